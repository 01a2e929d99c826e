// Package services provides typed access to the No Drake in the House
// backend API.
//
// Each service owns one resource family and speaks through [api.Doer]:
//
//   - [AuthService] : accounts, sessions, profile
//   - [DNPService] : the personal do-not-play list and artist search
//   - [ConnectionService] : streaming-service links and the OAuth flow
//   - [CommunityService] : shared community blocklists
//   - [EnforcementService] : plan, execute, progress, rollback
//
// The per-service interfaces ([AuthAPI], [DNPAPI], ...) exist so the
// orchestration layer and its tests can substitute fakes for the backend.
//
// # Response Shape
//
// Every endpoint answers with the backend envelope; the HTTP client unwraps
// it, so service methods only describe the data payloads. Wire fields are
// snake_case and decoded into the exported DTOs in services.go.
//
// # Error Handling
//
// Services surface [api.Error] values from the client and wrap well-known
// failures in shared sentinels:
//   - [shared.ErrInvalidInput] : client-side validation failed, nothing sent
//   - [shared.ErrBatchNotFound] : enforcement progress for an unknown batch
//   - [shared.ErrAuthFailed] : credentials rejected by the backend
package services
