// Package server provides the short-lived localhost listener used while linking streaming services.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [RequestLogger] is the only middleware shipped here; it keeps query strings out of the logs because
// callback URLs carry authorization codes.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Link Callback Handler
//
// CallbackHandler receives the browser redirect at the end of a provider consent flow.
//
// The handler validates the state parameter against the nonce the backend issued when the link was
// initiated and sends the authorization code through a channel. It never exchanges the code itself;
// the CLI forwards it to the backend, which owns the provider credentials.
//
// A state mismatch fails closed: the code is discarded and an error result is delivered.
// Only one callback is processed to prevent replay.
//
// # Usage
//
// When the user runs `ndh connections link <provider>`, the CLI asks the backend to initiate the
// link, starts a temporary HTTP server on the configured localhost port, opens the consent URL in
// a browser, and waits on [CallbackHandler.Result] with a timeout. The server shuts down as soon
// as a result arrives.
package server
