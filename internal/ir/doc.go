// Package ir holds the value types carried in navigation event attributes
// and their canonical JSON encoding.
//
// ir imports nothing internal; every other package builds on it.
//
// Constraints:
//   - no floats: timestamps are int64 milliseconds, ids are int64
//   - canonical JSON (RFC 8785, NFC strings) for golden files, stored
//     attributes and content hashes
package ir
