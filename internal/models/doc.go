// Package models defines persistent entities for the local cache database.
//
//   - [BatchRecord] : Archived enforcement batches, one per terminal batch,
//     so history survives process exit
//   - [CachedArtist] : Artist identities cached per provider for fast DNP
//     lookups
//
// All persistent entities implement the Model interface providing ID
// generation, timestamps, validation, and soft delete support. The
// Repository[T] interface defines standard CRUD operations for database
// access. Transient API payloads live in the services package instead.
package models
