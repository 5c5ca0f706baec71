package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep hashes of different record kinds from colliding.
const (
	DomainEvent = "navexpect/event/v1"
	DomainTrace = "navexpect/trace/v1"
)

// hashWithDomain returns hex(SHA256(domain || 0x00 || data)).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventHash computes the content address of one observed event.
// The same name, attributes and arrival seq always hash identically.
func EventHash(name string, attrs Object, seq int64) (string, error) {
	if attrs == nil {
		attrs = Object{}
	}
	canonical, err := MarshalCanonical(Object{
		"name":       String(name),
		"attributes": attrs,
		"seq":        Int(seq),
	})
	if err != nil {
		return "", fmt.Errorf("event hash: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// TraceDigest folds a sequence of event hashes into a single digest, so two
// recorded runs can be compared without loading their events.
func TraceDigest(eventHashes []string) string {
	arr := make(Array, len(eventHashes))
	for i, h := range eventHashes {
		arr[i] = String(h)
	}
	// An array of plain strings always marshals.
	canonical, _ := MarshalCanonical(arr)
	return hashWithDomain(DomainTrace, canonical)
}
