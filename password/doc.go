// Package password implements one-way password hashing and verification with
// bcrypt.
//
// # Output format
//
// Hashes are standard bcrypt strings ($2a$<cost>$<salt+digest>) carrying their
// own salt and work factor, so verification needs no parameters besides the
// stored digest.
//
// The [Hasher] supports transparent work-factor upgrades: if the stored hash
// was produced with a lower cost, [Hasher.NeedsRehash] returns true so the
// caller can re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy beyond the
// minimum plaintext length is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other greenauth package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
