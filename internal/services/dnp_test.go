package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/nodrake/ndh/internal/shared"
)

// recordingCache captures CacheArtist calls and can be told to fail.
type recordingCache struct {
	mu     sync.Mutex
	cached []string
	err    error
}

func (c *recordingCache) CacheArtist(provider, providerArtistID, name, imageURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = append(c.cached, provider+"/"+providerArtistID)
	return c.err
}

func TestDNPServiceList(t *testing.T) {
	svc := NewDNPService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/dnp/list" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":{"entries":[
			{"artist":{"id":"a_1","name":"Artist One"},"tags":["personal"],"note":"never again"},
			{"artist":{"id":"a_2","name":"Artist Two"}}]}}`))
	})), nil)

	entries, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Artist.Name != "Artist One" || entries[0].Note != "never again" {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}

func TestDNPServiceAdd(t *testing.T) {
	t.Run("posts the artist with tags and note", func(t *testing.T) {
		svc := NewDNPService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/v1/dnp/list" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			body := decodeBody(t, r)
			if body["artist_id"] != "a_1" || body["note"] != "no thanks" {
				t.Errorf("unexpected body %+v", body)
			}
			w.Write([]byte(`{"success":true,"data":{"artist":{"id":"a_1","name":"Artist One"},"tags":["personal"],"note":"no thanks"}}`))
		})), nil)

		entry, err := svc.Add(context.Background(), "a_1", []string{"personal"}, "no thanks")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entry.Artist.ID != "a_1" {
			t.Errorf("unexpected entry %+v", entry)
		}
	})

	t.Run("omits empty tags and note", func(t *testing.T) {
		svc := NewDNPService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := decodeBody(t, r)
			if _, ok := body["tags"]; ok {
				t.Error("tags should be omitted when empty")
			}
			if _, ok := body["note"]; ok {
				t.Error("note should be omitted when empty")
			}
			w.Write([]byte(`{"success":true,"data":{"artist":{"id":"a_1","name":"Artist One"}}}`))
		})), nil)

		if _, err := svc.Add(context.Background(), "a_1", nil, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("requires an artist id", func(t *testing.T) {
		svc := NewDNPService(refuseDoer(t), nil)
		if _, err := svc.Add(context.Background(), "", nil, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("surfaces the backend conflict message", func(t *testing.T) {
		svc := NewDNPService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"success":false,"message":"artist already on your list"}`))
		})), nil)

		_, err := svc.Add(context.Background(), "a_1", nil, "")
		if err == nil || err.Error() != "artist already on your list" {
			t.Errorf("expected backend message verbatim, got %v", err)
		}
	})
}

func TestDNPServiceUpdate(t *testing.T) {
	svc := NewDNPService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/v1/dnp/list/a_1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["note"] != "updated" {
			t.Errorf("unexpected body %+v", body)
		}
		w.Write([]byte(`{"success":true,"data":{"artist":{"id":"a_1","name":"Artist One"},"note":"updated"}}`))
	})), nil)

	entry, err := svc.Update(context.Background(), "a_1", []string{"community"}, "updated")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Note != "updated" {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestDNPServiceRemove(t *testing.T) {
	t.Run("deletes the entry", func(t *testing.T) {
		svc := NewDNPService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete || r.URL.Path != "/api/v1/dnp/list/a_1" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			w.WriteHeader(http.StatusNoContent)
		})), nil)

		if err := svc.Remove(context.Background(), "a_1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("maps 404 onto the artist sentinel", func(t *testing.T) {
		svc := NewDNPService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"message":"not on your list"}`))
		})), nil)

		if err := svc.Remove(context.Background(), "a_9"); !errors.Is(err, shared.ErrArtistNotFound) {
			t.Errorf("expected ErrArtistNotFound, got %v", err)
		}
	})
}

func TestDNPServiceSearch(t *testing.T) {
	searchHandler := func(t *testing.T, wantLimit int) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/dnp/search" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("limit"); got != fmt.Sprintf("%d", wantLimit) {
				t.Errorf("expected limit %d, got %s", wantLimit, got)
			}
			w.Write([]byte(`{"success":true,"data":{"artists":[
				{"id":"a_1","name":"Artist One","provider":"spotify","provider_artist_id":"sp_1","image_url":"https://img/1"},
				{"id":"a_2","name":"Artist Two"}]}}`))
		})
	}

	t.Run("escapes the query and clamps the limit", func(t *testing.T) {
		svc := NewDNPService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("q"); got != "earl sweatshirt" {
				t.Errorf("unexpected query %q", got)
			}
			if got := r.URL.Query().Get("limit"); got != "50" {
				t.Errorf("expected clamped limit 50, got %s", got)
			}
			w.Write([]byte(`{"success":true,"data":{"artists":[]}}`))
		})), nil)

		if _, err := svc.SearchArtists(context.Background(), "earl sweatshirt", 500); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("defaults the limit", func(t *testing.T) {
		svc := NewDNPService(testDoer(t, searchHandler(t, 20)), nil)
		if _, err := svc.SearchArtists(context.Background(), "drake", 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("requires a query", func(t *testing.T) {
		svc := NewDNPService(refuseDoer(t), nil)
		if _, err := svc.SearchArtists(context.Background(), "", 10); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("caches only artists with a provider identity", func(t *testing.T) {
		cache := &recordingCache{}
		svc := NewDNPService(testDoer(t, searchHandler(t, 20)), cache)

		artists, err := svc.SearchArtists(context.Background(), "drake", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(artists) != 2 {
			t.Fatalf("expected both artists returned, got %d", len(artists))
		}
		if len(cache.cached) != 1 || cache.cached[0] != "spotify/sp_1" {
			t.Errorf("unexpected cache calls %v", cache.cached)
		}
	})

	t.Run("a failing cache never fails the search", func(t *testing.T) {
		cache := &recordingCache{err: errors.New("disk full")}
		svc := NewDNPService(testDoer(t, searchHandler(t, 20)), cache)

		if _, err := svc.SearchArtists(context.Background(), "drake", 0); err != nil {
			t.Fatalf("expected cache failure to be swallowed, got %v", err)
		}
	})
}

func TestDNPServiceExport(t *testing.T) {
	svc := NewDNPService(testDoer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/dnp/export" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":{"entries":[{"artist":{"id":"a_1","name":"Artist One"}}],"total":1,"exported_at":"2026-08-01T00:00:00Z"}}`))
	})), nil)

	export, err := svc.Export(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if export.Total != 1 || len(export.Entries) != 1 {
		t.Errorf("unexpected export %+v", export)
	}
}
