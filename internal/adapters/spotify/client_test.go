package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ewilliams-labs/resonate/internal/core/ports"
)

func newTestClient(baseURL string) *Client {
	c := NewClient(baseURL)
	c.maxRetries = 1
	c.batchDelay = 0
	c.SetToken("test-token")
	return c
}

func artistsPayload(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf(`{"id":%q,"name":"Artist %s","genres":["genre-%s"]}`, id, id, id)
	}
	return `{"artists":[` + strings.Join(parts, ",") + `]}`
}

func TestArtistGenresRequiresToken(t *testing.T) {
	c := NewClient("http://unused.invalid")
	if _, err := c.ArtistGenres(context.Background(), []string{"a"}); !errors.Is(err, ports.ErrNoToken) {
		t.Fatalf("ArtistGenres without token: got %v, want ErrNoToken", err)
	}
}

func TestArtistGenresSingleBatch(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/artists" {
			t.Errorf("path: got %s, want /artists", r.URL.Path)
		}
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		fmt.Fprint(w, artistsPayload(ids))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	genres, err := c.ArtistGenres(context.Background(), []string{"a1", "a2"})
	if err != nil {
		t.Fatalf("ArtistGenres: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("authorization header: got %q", gotAuth)
	}
	if len(genres) != 2 {
		t.Fatalf("genres: got %d artists, want 2", len(genres))
	}
	if got := genres["a1"]; len(got) != 1 || got[0] != "genre-a1" {
		t.Fatalf("genres for a1: got %v", got)
	}
}

func TestArtistGenresBatchesAtFifty(t *testing.T) {
	var mu sync.Mutex
	var batchSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		mu.Lock()
		batchSizes = append(batchSizes, len(ids))
		mu.Unlock()
		fmt.Fprint(w, artistsPayload(ids))
	}))
	defer srv.Close()

	ids := make([]string, 60)
	for i := range ids {
		ids[i] = fmt.Sprintf("artist-%02d", i)
	}

	c := newTestClient(srv.URL)
	genres, err := c.ArtistGenres(context.Background(), ids)
	if err != nil {
		t.Fatalf("ArtistGenres: %v", err)
	}
	if len(genres) != 60 {
		t.Fatalf("genres: got %d artists, want 60", len(genres))
	}
	if len(batchSizes) != 2 || batchSizes[0] != 50 || batchSizes[1] != 10 {
		t.Fatalf("batch sizes: got %v, want [50 10]", batchSizes)
	}
}

func TestArtistGenresSkipsFailedBatch(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		fmt.Fprint(w, artistsPayload(ids))
	}))
	defer srv.Close()

	ids := make([]string, 60)
	for i := range ids {
		ids[i] = fmt.Sprintf("artist-%02d", i)
	}

	c := newTestClient(srv.URL)
	genres, err := c.ArtistGenres(context.Background(), ids)
	if err != nil {
		t.Fatalf("ArtistGenres: %v", err)
	}
	// The failed first batch is skipped; only the second batch's artists land.
	if len(genres) != 10 {
		t.Fatalf("genres: got %d artists, want 10", len(genres))
	}
	if _, ok := genres["artist-55"]; !ok {
		t.Fatal("second batch artist missing from result")
	}
}

func TestArtistGenresRetriesServerErrors(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		fmt.Fprint(w, artistsPayload(ids))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.maxRetries = 3
	c.baseBackoff = 1 // keep the test fast

	genres, err := c.ArtistGenres(context.Background(), []string{"a1"})
	if err != nil {
		t.Fatalf("ArtistGenres: %v", err)
	}
	if len(genres) != 1 {
		t.Fatalf("genres after retry: got %d artists, want 1", len(genres))
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("requests: got %d, want 2", calls)
	}
}

func TestSetTokenEmptyRevokes(t *testing.T) {
	c := NewClient("http://unused.invalid")
	c.SetToken("abc")
	if !c.tokenInstalled() {
		t.Fatal("token not installed after SetToken")
	}
	c.SetToken("")
	if c.tokenInstalled() {
		t.Fatal("token still installed after revoking it")
	}
	if _, err := c.ArtistGenres(context.Background(), []string{"a"}); !errors.Is(err, ports.ErrNoToken) {
		t.Fatalf("ArtistGenres after revoke: got %v, want ErrNoToken", err)
	}
}
