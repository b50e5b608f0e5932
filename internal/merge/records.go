package merge

import (
	"slices"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

type logicalSwitchStrategy struct{}

func (logicalSwitchStrategy) Type() model.EntityType { return model.EntityLogicalSwitch }
func (logicalSwitchStrategy) Describe() string       { return "logical switch merge" }
func (logicalSwitchStrategy) Upward() bool           { return true }

func (logicalSwitchStrategy) Transform(_ model.NodePath, src model.Entity) (model.Entity, error) {
	ls, ok := src.(model.LogicalSwitch)
	if !ok {
		return nil, typeMismatch(model.EntityLogicalSwitch, src)
	}
	return ls, nil
}

func (logicalSwitchStrategy) Identify(target model.NodePath, rec model.Entity) model.EntityPath {
	return model.PathOf(target, rec)
}

func (logicalSwitchStrategy) Refs(model.NodePath, model.Entity) []RefPair { return nil }

type locatorStrategy struct{}

func (locatorStrategy) Type() model.EntityType { return model.EntityPhysicalLocator }
func (locatorStrategy) Describe() string       { return "physical locator merge" }
func (locatorStrategy) Upward() bool           { return true }

func (locatorStrategy) Transform(_ model.NodePath, src model.Entity) (model.Entity, error) {
	loc, ok := src.(model.PhysicalLocator)
	if !ok {
		return nil, typeMismatch(model.EntityPhysicalLocator, src)
	}
	return loc, nil
}

func (locatorStrategy) Identify(target model.NodePath, rec model.Entity) model.EntityPath {
	return model.PathOf(target, rec)
}

func (locatorStrategy) Refs(model.NodePath, model.Entity) []RefPair { return nil }

// ucastStrategy handles local and remote unicast MACs.
type ucastStrategy struct {
	typ    model.EntityType
	upward bool
	unwrap func(model.Entity) (model.UcastMac, bool)
	wrap   func(model.UcastMac) model.Entity
}

func (s ucastStrategy) Type() model.EntityType { return s.typ }
func (s ucastStrategy) Describe() string       { return string(s.typ) + " merge" }
func (s ucastStrategy) Upward() bool           { return s.upward }

func (s ucastStrategy) Transform(target model.NodePath, src model.Entity) (model.Entity, error) {
	m, ok := s.unwrap(src)
	if !ok {
		return nil, typeMismatch(s.typ, src)
	}
	m.LogicalSwitch.Node = target.Global()
	m.Locator.Node = target.Global()
	return s.wrap(m), nil
}

func (s ucastStrategy) Identify(target model.NodePath, rec model.Entity) model.EntityPath {
	return model.PathOf(target.Global(), rec)
}

func (s ucastStrategy) Refs(target model.NodePath, src model.Entity) []RefPair {
	m, ok := s.unwrap(src)
	if !ok {
		return nil
	}
	return []RefPair{
		{From: m.LogicalSwitch.Path(), To: model.LogicalSwitchRef{Node: target.Global(), Name: m.LogicalSwitch.Name}.Path()},
		{From: m.Locator.Path(), To: model.LocatorRef{Node: target.Global(), ID: m.Locator.ID}.Path()},
	}
}

// mcastStrategy handles local and remote multicast MACs.
type mcastStrategy struct {
	typ    model.EntityType
	unwrap func(model.Entity) (model.McastMac, bool)
	wrap   func(model.McastMac) model.Entity
}

func (s mcastStrategy) Type() model.EntityType { return s.typ }
func (s mcastStrategy) Describe() string       { return string(s.typ) + " merge" }
func (s mcastStrategy) Upward() bool           { return true }

func (s mcastStrategy) Transform(target model.NodePath, src model.Entity) (model.Entity, error) {
	m, ok := s.unwrap(src)
	if !ok {
		return nil, typeMismatch(s.typ, src)
	}
	m.LogicalSwitch.Node = target.Global()
	m.Locators = slices.Clone(m.Locators)
	for i := range m.Locators {
		m.Locators[i].Node = target.Global()
	}
	return s.wrap(m), nil
}

func (s mcastStrategy) Identify(target model.NodePath, rec model.Entity) model.EntityPath {
	return model.PathOf(target.Global(), rec)
}

func (s mcastStrategy) Refs(target model.NodePath, src model.Entity) []RefPair {
	m, ok := s.unwrap(src)
	if !ok {
		return nil
	}
	out := []RefPair{{
		From: m.LogicalSwitch.Path(),
		To:   model.LogicalSwitchRef{Node: target.Global(), Name: m.LogicalSwitch.Name}.Path(),
	}}
	for _, loc := range m.Locators {
		out = append(out, RefPair{From: loc.Path(), To: model.LocatorRef{Node: target.Global(), ID: loc.ID}.Path()})
	}
	return out
}
