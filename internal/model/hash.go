package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for record digests. The version suffix allows the
// algorithm to change without colliding with stored digests.
const (
	DomainNode   = "hwvtepha/node/v1"
	DomainEntity = "hwvtepha/entity/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// NodeDigest returns the content digest of a node record.
func NodeDigest(n *Node) (string, error) {
	data, err := MarshalCanonical(n)
	if err != nil {
		return "", fmt.Errorf("node digest %s: %w", n.Path, err)
	}
	return hashWithDomain(DomainNode, data), nil
}

// EntityDigest returns the content digest of a sub-entity record.
// The type is part of the digest so equal bodies of different types differ.
func EntityDigest(e Entity) (string, error) {
	data, err := MarshalCanonical(e)
	if err != nil {
		return "", fmt.Errorf("entity digest %s/%s: %w", e.Type(), e.Key(), err)
	}
	return hashWithDomain(DomainEntity+"/"+string(e.Type()), data), nil
}

// EqualNodes reports whether two node records are canonically equal.
// Two nil nodes are equal.
func EqualNodes(a, b *Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return canonicalEqual(a, b)
}

// EqualEntities reports whether two records are canonically equal.
func EqualEntities(a, b Entity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	return canonicalEqual(a, b)
}

func canonicalEqual(a, b any) bool {
	ca, err := MarshalCanonical(a)
	if err != nil {
		return false
	}
	cb, err := MarshalCanonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}
