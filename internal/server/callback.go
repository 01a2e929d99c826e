package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/nodrake/ndh/internal/shared"
)

// LinkResult contains what the provider's consent screen redirected back
// with: the authorization code the backend will exchange, or an error.
type LinkResult struct {
	Code  string
	State string
	err   error
}

func (l *LinkResult) Error() error {
	return l.err
}

// CallbackHandler receives the browser redirect that ends a streaming
// service link. Implements the Handler interface for registration with a Router.
//
// The handler never talks to the provider itself; code exchange happens on
// the backend. Its whole job is to check the state nonce and hand the code
// to the CLI. On a state mismatch the code is discarded unread and an error
// result is delivered instead.
type CallbackHandler struct {
	path        string
	state       string
	resultChan  chan LinkResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a handler that expects the given state nonce.
// The nonce comes from the backend's link initiation response. path defaults
// to /callback when empty.
func NewCallbackHandler(path, state string) *CallbackHandler {
	if path == "" {
		path = "/callback"
	}
	return &CallbackHandler{
		path:       path,
		state:      state,
		resultChan: make(chan LinkResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the link callback request.
//
// Validates the state parameter and sends the authorization code through
// the result channel. An empty expected state never matches; the handler
// fails closed.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only handle callback once
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	state := r.URL.Query().Get("state")
	if state == "" || h.state == "" || state != h.state {
		h.Send(LinkResult{err: fmt.Errorf("%w: state parameter does not match", shared.ErrStateMismatch)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		h.Send(LinkResult{err: fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, errParam, errDesc)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	h.Send(LinkResult{Code: code, State: state})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, linkSuccessPage)
}

// Send sends the link result through the channel (only once).
func (h *CallbackHandler) Send(result LinkResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving the browser redirect.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan LinkResult {
	return h.resultChan
}

const linkSuccessPage = `
<!DOCTYPE html>
<html>
<head>
    <title>Account Linked</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #22c55e; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Account Linked</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
