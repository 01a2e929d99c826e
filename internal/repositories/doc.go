// Package repositories implements SQLite persistence for the local cache.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [BatchRepository] : Enforcement history archive with server-batch-ID lookups
//   - [ArtistRepository] : Artist cache with provider identity lookups
//   - [BatchArchiveAdapter] : Idempotent archiving used by the enforcement engine
//   - [ArtistCacheAdapter] : Insert-or-refresh caching for artist search results
//
// Sequence numbers provide stable, human-readable ordering (e.g., batch #42, artist #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
