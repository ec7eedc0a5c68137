package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"mixdown/internal/services"
)

func TestFetchAllDownloadsInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "payload-for-%s", strings.TrimPrefix(r.URL.Path, "/"))
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	requests := make([]Request, 4)
	for i := range requests {
		requests[i] = Request{
			URL:  fmt.Sprintf("%s/track-%d", server.URL, i),
			Path: filepath.Join(dir, fmt.Sprintf("%02d_track.mp3", i+1)),
			Kind: KindAudio,
		}
	}

	outcomes := New(2).FetchAll(context.Background(), requests)
	if len(outcomes) != len(requests) {
		t.Fatalf("got %d outcomes", len(outcomes))
	}
	for i, outcome := range outcomes {
		if !outcome.OK() {
			t.Fatalf("fetch %d failed: %v", i, outcome.Err)
		}
		data, err := os.ReadFile(outcome.Value.Path)
		if err != nil {
			t.Fatal(err)
		}
		want := fmt.Sprintf("payload-for-track-%d", i)
		if string(data) != want {
			t.Errorf("slot %d holds %q, want %q", i, data, want)
		}
		if outcome.Value.Size != int64(len(want)) {
			t.Errorf("slot %d size = %d", i, outcome.Value.Size)
		}
	}
}

func TestFetchAllFailedDownloadDoesNotAbortSiblings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "bad") {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "audio bytes")
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	requests := []Request{
		{URL: server.URL + "/ok-1", Path: filepath.Join(dir, "a.mp3"), Kind: KindAudio},
		{URL: server.URL + "/bad", Path: filepath.Join(dir, "b.mp3"), Kind: KindAudio},
		{URL: server.URL + "/ok-2", Path: filepath.Join(dir, "c.mp3"), Kind: KindAudio},
	}

	outcomes := New(3).FetchAll(context.Background(), requests)
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Errorf("siblings failed: %v / %v", outcomes[0].Err, outcomes[2].Err)
	}
	if !services.IsPermanent(outcomes[1].Err) {
		t.Errorf("404 should be permanent, got %v", outcomes[1].Err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.mp3")); !os.IsNotExist(err) {
		t.Error("failed download left a file behind")
	}
}

func TestFetchRespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			observed := peak.Load()
			if current <= observed || peak.CompareAndSwap(observed, current) {
				break
			}
		}
		fmt.Fprint(w, "bytes")
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	requests := make([]Request, 12)
	for i := range requests {
		requests[i] = Request{
			URL:  fmt.Sprintf("%s/%d", server.URL, i),
			Path: filepath.Join(dir, fmt.Sprintf("%d.mp3", i)),
		}
	}

	New(2).FetchAll(context.Background(), requests)
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrent downloads %d exceeds cap 2", got)
	}
}

func TestFetchReusesExistingFile(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "fresh bytes")
	}))
	t.Cleanup(server.Close)

	path := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(path, []byte("already here"), 0o644); err != nil {
		t.Fatal(err)
	}

	asset, err := New(1).Fetch(context.Background(), Request{URL: server.URL + "/x", Path: path, Kind: KindAudio})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if hits.Load() != 0 {
		t.Error("existing asset was re-fetched")
	}
	if asset.Size != int64(len("already here")) {
		t.Errorf("size = %d", asset.Size)
	}
}

func TestFetchRejectsEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	path := filepath.Join(t.TempDir(), "track.mp3")
	_, err := New(1).Fetch(context.Background(), Request{URL: server.URL + "/x", Path: path})
	if !services.IsTransient(err) {
		t.Fatalf("expected transient error for empty body, got %v", err)
	}
}
