package store

import (
	"encoding/json"
	"fmt"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// encodeNode returns the canonical JSON body and digest of n.
func encodeNode(n *model.Node) (body, digest string, err error) {
	data, err := model.MarshalCanonical(n)
	if err != nil {
		return "", "", fmt.Errorf("marshal node: %w", err)
	}
	digest, err = model.NodeDigest(n)
	if err != nil {
		return "", "", err
	}
	return string(data), digest, nil
}

func decodeNode(body string) (*model.Node, error) {
	var n model.Node
	if err := json.Unmarshal([]byte(body), &n); err != nil {
		return nil, fmt.Errorf("unmarshal node: %w", err)
	}
	return &n, nil
}

// encodeEntity returns the canonical JSON body and digest of e.
func encodeEntity(e model.Entity) (body, digest string, err error) {
	data, err := model.MarshalCanonical(e)
	if err != nil {
		return "", "", fmt.Errorf("marshal %s: %w", e.Type(), err)
	}
	digest, err = model.EntityDigest(e)
	if err != nil {
		return "", "", err
	}
	return string(data), digest, nil
}

func decodeEntity(t model.EntityType, body string) (model.Entity, error) {
	e, err := model.DecodeEntity(t, []byte(body))
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", t, err)
	}
	return e, nil
}
