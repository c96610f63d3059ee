package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainOptions  = "queryvalues/options/v1"
	DomainFragment = "queryvalues/fragment/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// OptionsFingerprint hashes the canonical form of an entity options object.
// Two option sets that resolve to the same canonical object share one
// fingerprint regardless of the order in which they were configured.
func OptionsFingerprint(options IRObject) (string, error) {
	canonical, err := MarshalCanonical(options)
	if err != nil {
		return "", fmt.Errorf("OptionsFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainOptions, canonical), nil
}

// FragmentKey computes the cache key for a compiled fragment from the
// shape signature, the options fingerprint and the row-limit flag.
func FragmentKey(shape *Shape, optionsFingerprint string, limit bool) (string, error) {
	if shape == nil {
		return "", fmt.Errorf("FragmentKey: nil shape")
	}
	obj := IRObject{
		"shape":   shape.canonical(),
		"options": IRString(optionsFingerprint),
		"limit":   IRBool(limit),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("FragmentKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFragment, canonical), nil
}

// MustFragmentKey is like FragmentKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFragmentKey(shape *Shape, optionsFingerprint string, limit bool) string {
	key, err := FragmentKey(shape, optionsFingerprint, limit)
	if err != nil {
		panic(err)
	}
	return key
}
