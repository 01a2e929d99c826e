// Package tasks orchestrates enforcement runs against the blocklist backend with real-time progress reporting.
//
// # Core Operations
//
// The [EnforcementRunner] interface defines the long-running operations:
//
//  1. [EnforcementEngine.Run] : Full enforcement cycle
//     - Creates a server-side plan for the selected providers
//     - Executes the plan with a fresh idempotency key
//     - Polls batch progress until a terminal status
//     - Archives the finished batch into enforcement history
//
//  2. [EnforcementEngine.Watch] : Observe a running batch
//     - Polls progress on a fixed interval owned by the watch call
//     - Validates each observed status against the batch state machine
//     - Rejects regressions and movement out of terminal statuses
//
//  3. [EnforcementEngine.Rollback] : Reverse a finished batch
//     - Requests a reversal batch from the server
//     - Marks the original history record rolled back
//
//  4. [EnforcementEngine.BulkImport] : Concurrent list import
//     - Resolves artist names through search when no ID is given
//     - Worker pool with rate limiting, partial failures collected per item
//
// [GatherOverview] is separate from the engine: it fans out over the account
// endpoints concurrently and feeds the status command.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # History
//
// Finished batches are recorded through the optional [HistoryStore] interface
// (repositories.BatchArchiveAdapter) so history survives process exit.
// Recording is idempotent on the server batch ID.
//
// # Implementation
//
// [EnforcementEngine] implements [EnforcementRunner] with dependencies on:
//   - [services.EnforcementAPI] : plan, execute, progress, and rollback endpoints
//   - [services.DNPAPI] : list mutation for bulk imports
//   - [HistoryStore] : Optional persistence layer for finished batches
package tasks
