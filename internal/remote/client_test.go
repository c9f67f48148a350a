package remote

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mol-cyberwhip/veteranVR/internal/catalog"
)

var payload = bytes.Repeat([]byte("0123456789abcdef"), 1024)

func rangeServer(t *testing.T, seen *[]string, mu *sync.Mutex) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		*seen = append(*seen, r.Header.Get("Range"))
		mu.Unlock()
		http.ServeContent(w, r, "chunk.7z.001", time.Time{}, bytes.NewReader(payload))
	}))
}

func TestDownloadResumesWithRange(t *testing.T) {
	var (
		seen []string
		mu   sync.Mutex
	)
	srv := rangeServer(t, &seen, &mu)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "chunk.7z.001")
	if err := os.WriteFile(dest, payload[:1000], 0644); err != nil {
		t.Fatal(err)
	}

	c := NewClient(Options{})
	var transferred int64
	err := c.Download(context.Background(), srv.URL+"/chunk.7z.001", dest, true, func(n int64) error {
		transferred += n
		return nil
	})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if transferred != int64(len(payload)-1000) {
		t.Errorf("Expected %d bytes transferred, got %d", len(payload)-1000, transferred)
	}
	got, _ := os.ReadFile(dest)
	if !bytes.Equal(got, payload) {
		t.Error("Expected resumed file to match payload byte for byte")
	}
	if len(seen) != 1 || seen[0] != "bytes=1000-" {
		t.Errorf("Expected Range bytes=1000-, got %v", seen)
	}
}

func TestDownloadRestartsWithoutRangeSupport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "chunk")
	if err := os.WriteFile(dest, []byte("stale-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewClient(Options{})
	var total int64
	var reset bool
	err := c.Download(context.Background(), srv.URL, dest, true, func(n int64) error {
		if n < 0 {
			reset = true
		}
		total += n
		return nil
	})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	got, _ := os.ReadFile(dest)
	if !bytes.Equal(got, payload) {
		t.Errorf("Expected file rewritten from zero, got %d bytes", len(got))
	}
	if !reset {
		t.Error("Expected the discarded bytes to be reported")
	}
	if want := int64(len(payload) - len("stale-bytes")); total != want {
		t.Errorf("Expected net progress %d, got %d", want, total)
	}
}

func TestDownloadCompleteFileAnswered416(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") != "" {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "chunk")
	if err := os.WriteFile(dest, payload, 0644); err != nil {
		t.Fatal(err)
	}

	c := NewClient(Options{})
	if err := c.Download(context.Background(), srv.URL, dest, true, nil); err != nil {
		t.Fatalf("Expected complete file to be accepted, got %v", err)
	}
	got, _ := os.ReadFile(dest)
	if !bytes.Equal(got, payload) {
		t.Errorf("Expected file untouched, got %d bytes", len(got))
	}
}

func TestDownloadAbortKeepsPartialBytes(t *testing.T) {
	var (
		seen []string
		mu   sync.Mutex
	)
	srv := rangeServer(t, &seen, &mu)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "nested", "chunk")
	stop := errors.New("stop")

	c := NewClient(Options{})
	err := c.Download(context.Background(), srv.URL, dest, false, func(n int64) error {
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Expected abort error, got %v", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("Expected partial file to remain: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Expected partial bytes on disk")
	}
}

func TestDownloadStatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient(Options{})
	err := c.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x"), false, nil)

	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 StatusError, got %v", err)
	}
}

func TestHead(t *testing.T) {
	var (
		seen []string
		mu   sync.Mutex
	)
	srv := rangeServer(t, &seen, &mu)
	defer srv.Close()

	c := NewClient(Options{})
	head, err := c.Head(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if head.ContentLength != int64(len(payload)) {
		t.Errorf("Expected length %d, got %d", len(payload), head.ContentLength)
	}
	if !head.AcceptRanges {
		t.Error("Expected range support")
	}
}

func TestFetchPublicConfigFallsBack(t *testing.T) {
	var agents []string
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.UserAgent())
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.UserAgent())
		w.Write([]byte(`{"baseUri":"https://mirror.example/","password":"cGFzcw=="}`))
	}))
	defer good.Close()

	c := NewClient(Options{ConfigURLs: []string{bad.URL, good.URL}})
	cfg, err := c.FetchPublicConfig(context.Background())
	if err != nil {
		t.Fatalf("FetchPublicConfig failed: %v", err)
	}
	if cfg.BaseURI != "https://mirror.example/" || cfg.Password != "pass" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	for _, ua := range agents {
		if ua != DefaultUserAgent {
			t.Errorf("Expected user agent %s, got %s", DefaultUserAgent, ua)
		}
	}
}

func TestFetchPublicConfigAllFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer bad.Close()

	c := NewClient(Options{ConfigURLs: []string{bad.URL, bad.URL}})
	_, err := c.FetchPublicConfig(context.Background())
	if err == nil || !strings.Contains(err.Error(), "could not fetch public config") {
		t.Errorf("Expected wrapped failure, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Errorf("Expected last StatusError to be wrapped, got %v", err)
	}
}

func TestProbeChunksKeepsOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		size := map[string]int{"/a": 10, "/b": 20, "/c": 30}[r.URL.Path]
		http.ServeContent(w, r, r.URL.Path, time.Time{}, bytes.NewReader(make([]byte, size)))
	}))
	defer srv.Close()

	chunks := []catalog.RemoteChunkFile{
		{Name: "a", URL: srv.URL + "/a"},
		{Name: "b", URL: srv.URL + "/b"},
		{Name: "c", URL: srv.URL + "/c"},
	}

	c := NewClient(Options{})
	infos, err := c.ProbeChunks(context.Background(), chunks, 2)
	if err != nil {
		t.Fatalf("ProbeChunks failed: %v", err)
	}
	for i, want := range []int64{10, 20, 30} {
		if infos[i].Name != chunks[i].Name || infos[i].ContentLength != want {
			t.Errorf("Expected %s=%d, got %s=%d", chunks[i].Name, want, infos[i].Name, infos[i].ContentLength)
		}
	}
	if total := TotalKnownBytes(infos); total != 60 {
		t.Errorf("Expected 60 total bytes, got %d", total)
	}
}
