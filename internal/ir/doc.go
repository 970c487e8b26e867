// Package ir provides the canonical representation types for mnemos.
//
// This package contains keys, the constrained value model, canonical JSON
// serialization, content hashing, and the event wire format. All other
// internal packages import ir; ir imports nothing internal. This ensures
// IR remains the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - All JSON tags use snake_case
//   - Timestamps are int64 unix seconds
//   - Canonical JSON (RFC 8785) is the ONLY encoding used for hashing
package ir
