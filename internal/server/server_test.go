package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/nodrake/ndh/internal/shared"
)

func callbackRequest(t *testing.T, path string, params url.Values) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path+"?"+params.Encode(), nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	return req
}

func TestCallbackHandler(t *testing.T) {
	t.Run("matching state delivers the code", func(t *testing.T) {
		handler := NewCallbackHandler("/callback", "nonce123")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, callbackRequest(t, "/callback", url.Values{
			"state": {"nonce123"},
			"code":  {"authcode456"},
		}))

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Account Linked") {
			t.Error("success page should tell the user to return to the terminal")
		}

		result := <-handler.Result()
		if result.Error() != nil {
			t.Fatalf("result error = %v", result.Error())
		}
		if result.Code != "authcode456" || result.State != "nonce123" {
			t.Errorf("result = %+v, want code and state", result)
		}
	})

	t.Run("state mismatch fails closed", func(t *testing.T) {
		handler := NewCallbackHandler("/callback", "nonce123")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, callbackRequest(t, "/callback", url.Values{
			"state": {"forged"},
			"code":  {"stolen-code"},
		}))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}

		result := <-handler.Result()
		if !errors.Is(result.Error(), shared.ErrStateMismatch) {
			t.Fatalf("result error = %v, want ErrStateMismatch", result.Error())
		}
		if result.Code != "" {
			t.Error("a mismatched callback must never forward the code")
		}
	})

	t.Run("missing state fails closed", func(t *testing.T) {
		handler := NewCallbackHandler("/callback", "nonce123")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, callbackRequest(t, "/callback", url.Values{
			"code": {"authcode456"},
		}))

		result := <-handler.Result()
		if !errors.Is(result.Error(), shared.ErrStateMismatch) {
			t.Errorf("result error = %v, want ErrStateMismatch", result.Error())
		}
	})

	t.Run("empty expected state never matches", func(t *testing.T) {
		handler := NewCallbackHandler("/callback", "")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, callbackRequest(t, "/callback", url.Values{
			"state": {""},
			"code":  {"authcode456"},
		}))

		result := <-handler.Result()
		if !errors.Is(result.Error(), shared.ErrStateMismatch) {
			t.Errorf("result error = %v, want ErrStateMismatch", result.Error())
		}
	})

	t.Run("provider error without a code", func(t *testing.T) {
		handler := NewCallbackHandler("/callback", "nonce123")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, callbackRequest(t, "/callback", url.Values{
			"state":             {"nonce123"},
			"error":             {"access_denied"},
			"error_description": {"user cancelled"},
		}))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}

		result := <-handler.Result()
		if !errors.Is(result.Error(), shared.ErrAuthFailed) {
			t.Fatalf("result error = %v, want ErrAuthFailed", result.Error())
		}
		if !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("result error = %v, want provider error included", result.Error())
		}
	})

	t.Run("second callback is rejected", func(t *testing.T) {
		handler := NewCallbackHandler("/callback", "nonce123")

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, callbackRequest(t, "/callback", url.Values{
			"state": {"nonce123"},
			"code":  {"authcode456"},
		}))

		second := httptest.NewRecorder()
		handler.ServeHTTP(second, callbackRequest(t, "/callback", url.Values{
			"state": {"nonce123"},
			"code":  {"replayed"},
		}))

		if second.Code != http.StatusBadRequest {
			t.Errorf("replay status = %d, want 400", second.Code)
		}

		result := <-handler.Result()
		if result.Code != "authcode456" {
			t.Errorf("result code = %s, want the first callback's code", result.Code)
		}
		if _, open := <-handler.Result(); open {
			t.Error("result channel should be closed after the first result")
		}
	})

	t.Run("custom path", func(t *testing.T) {
		handler := NewCallbackHandler("/link/done", "nonce123")
		routes := handler.Routes()
		if len(routes) != 1 || routes[0] != "/link/done" {
			t.Errorf("Routes() = %v, want [/link/done]", routes)
		}
	})

	t.Run("empty path defaults", func(t *testing.T) {
		handler := NewCallbackHandler("", "nonce123")
		if routes := handler.Routes(); routes[0] != "/callback" {
			t.Errorf("Routes() = %v, want [/callback]", routes)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("method filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/only-get", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		srv := httptest.NewServer(router)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/only-get")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET status = %d, want 200", resp.StatusCode)
		}

		resp, err = http.Post(srv.URL+"/only-get", "text/plain", nil)
		if err != nil {
			t.Fatalf("POST failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("POST status = %d, want 405", resp.StatusCode)
		}
	})

	t.Run("handler routes are all registered", func(t *testing.T) {
		router := NewBasicRouter()
		handler := NewCallbackHandler("/callback", "nonce123")
		router.Handler(handler)

		srv := httptest.NewServer(router)
		defer srv.Close()

		resp, err := http.Get(fmt.Sprintf("%s/callback?state=nonce123&code=abc", srv.URL))
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("callback status = %d, want 200", resp.StatusCode)
		}

		result := <-handler.Result()
		if result.Code != "abc" {
			t.Errorf("result code = %s, want abc", result.Code)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		router := NewBasicRouter()

		var order []string
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, "first")
				next.ServeHTTP(w, r)
			})
		})
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, "second")
				next.ServeHTTP(w, r)
			})
		})

		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		rec := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		router.ServeHTTP(rec, req)

		want := []string{"first", "second", "handler"}
		if len(order) != len(want) {
			t.Fatalf("order = %v, want %v", order, want)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Fatalf("order = %v, want %v", order, want)
			}
		}
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := shared.NewLogger(&buf)
	logger.SetLevel(log.DebugLevel)

	router := NewBasicRouter()
	router.Use(RequestLogger(logger))
	router.Handle(http.MethodGet, "/callback", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/callback?state=secret&code=alsosecret", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	logged := buf.String()
	if !strings.Contains(logged, "/callback") {
		t.Error("request path should be logged")
	}
	if strings.Contains(logged, "alsosecret") || strings.Contains(logged, "state=") {
		t.Error("query string must never reach the logs")
	}
}
