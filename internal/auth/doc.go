// Package auth persists the CLI session: the signed-in user, the token
// pair issued by the backend, and pending OAuth state nonces for
// streaming-service link flows that span CLI invocations.
package auth
