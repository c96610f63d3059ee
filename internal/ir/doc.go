// Package ir provides the shared types for queryvalues.
//
// This package contains type definitions, the error taxonomy and the
// canonical fingerprinting used for cache identity. All other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - ScalarKind is a closed set; every kind has exactly one catalog entry
//   - PropertyMapping, Shape and Fragment are immutable once built
//   - Cache identity is a domain-separated SHA-256 over RFC 8785 canonical JSON
//   - The ordinal column X and the scalar value column V are reserved wire names
package ir
