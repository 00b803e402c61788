package cdx

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"wayrake/internal/core/domain"
	"wayrake/internal/platform/diskcache"
	"wayrake/internal/platform/logx"
	"wayrake/internal/testutil"
)

const samplePayload = `[
  ["timestamp","original","mimetype","length"],
  ["20020527110458","http://example.com/a.jpg","image/jpeg","1024"],
  ["20031118093221","http://example.com/b.mp3","audio/mpeg","2048"]
]`

func newClient(t *testing.T, endpoint string, withCache bool) *Client {
	t.Helper()
	var store *diskcache.Store
	if withCache {
		var err error
		store, err = diskcache.New(t.TempDir(), time.Hour, logx.NewSilent())
		testutil.AssertNoError(t, err, "cache creation")
	}
	return New(Config{Endpoint: endpoint}, store, logx.NewSilent())
}

func TestCapturesParsesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		testutil.AssertEqual(t, q.Get("url"), "http://example.com", "url param")
		testutil.AssertEqual(t, q.Get("output"), "json", "output param")
		testutil.AssertEqual(t, q.Get("fl"), "timestamp,original,mimetype,length", "field list")
		testutil.AssertEqual(t, q.Get("filter"), "statuscode:200", "status filter")
		testutil.AssertEqual(t, q.Get("collapse"), "digest", "collapse param")
		testutil.AssertEqual(t, q.Get("limit"), "12", "default limit")
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	rows, err := newClient(t, srv.URL, false).Captures(context.Background(), "http://example.com", domain.Filters{})
	testutil.AssertNoError(t, err, "captures")
	testutil.AssertEqual(t, len(rows), 2, "header row skipped")
	testutil.AssertEqual(t, rows[0].Timestamp, "20020527110458", "first timestamp")
	testutil.AssertEqual(t, rows[0].Original, "http://example.com/a.jpg", "first original")
	testutil.AssertEqual(t, rows[1].Length, int64(2048), "length parsed")
}

func TestCapturesAppliesFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		testutil.AssertEqual(t, q.Get("from"), "20020101", "from stamp")
		testutil.AssertEqual(t, q.Get("to"), "20031231", "to stamp")
		testutil.AssertEqual(t, q.Get("limit"), "10000", "explicit limit")
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	f := domain.Filters{From: "2002-01-01", To: "2003-12-31", Limit: 10000}
	_, err := newClient(t, srv.URL, false).Captures(context.Background(), "http://example.com", f)
	testutil.AssertNoError(t, err, "captures with filters")
}

func TestCapturesUsesFreshCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, true)
	ctx := context.Background()

	_, err := c.Captures(ctx, "http://example.com", domain.Filters{})
	testutil.AssertNoError(t, err, "first query")
	rows, err := c.Captures(ctx, "http://example.com", domain.Filters{})
	testutil.AssertNoError(t, err, "second query")

	testutil.AssertEqual(t, atomic.LoadInt32(&calls), int32(1), "second query served from cache")
	testutil.AssertEqual(t, len(rows), 2, "cached rows parsed")
}

func TestCapturesRefetchesAfterExpiry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	store, err := diskcache.New(t.TempDir(), 24*time.Hour, logx.NewSilent())
	testutil.AssertNoError(t, err, "cache creation")
	c := New(Config{Endpoint: srv.URL}, store, logx.NewSilent())
	ctx := context.Background()

	base := time.Now()
	store.SetClock(func() time.Time { return base })
	_, err = c.Captures(ctx, "http://example.com", domain.Filters{})
	testutil.AssertNoError(t, err, "first query")

	store.SetClock(func() time.Time { return base.Add(25 * time.Hour) })
	_, err = c.Captures(ctx, "http://example.com", domain.Filters{})
	testutil.AssertNoError(t, err, "query past ttl")

	testutil.AssertEqual(t, atomic.LoadInt32(&calls), int32(2), "stale cache refetches")
}

func TestCapturesReplacesUnparseableCacheEntry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	dir := t.TempDir()
	store, err := diskcache.New(dir, time.Hour, logx.NewSilent())
	testutil.AssertNoError(t, err, "cache creation")
	c := New(Config{Endpoint: srv.URL}, store, logx.NewSilent())
	ctx := context.Background()

	_, err = c.Captures(ctx, "http://example.com", domain.Filters{})
	testutil.AssertNoError(t, err, "first query")

	// Overwrite the cached payload with JSON the row parser rejects.
	entries, err := os.ReadDir(dir)
	testutil.AssertNoError(t, err, "read cache dir")
	testutil.AssertEqual(t, len(entries), 1, "one cache entry")
	bad := fmt.Sprintf(`{"fetched_at":%d,"payload":{"not":"rows"}}`, time.Now().UnixMilli())
	testutil.AssertNoError(t,
		os.WriteFile(filepath.Join(dir, entries[0].Name()), []byte(bad), 0o644),
		"rewrite entry")

	rows, err := c.Captures(ctx, "http://example.com", domain.Filters{})
	testutil.AssertNoError(t, err, "bad entry falls through to the network")
	testutil.AssertEqual(t, len(rows), 2, "rows from refetch")
	testutil.AssertEqual(t, atomic.LoadInt32(&calls), int32(2), "one refetch")

	_, err = c.Captures(ctx, "http://example.com", domain.Filters{})
	testutil.AssertNoError(t, err, "third query")
	testutil.AssertEqual(t, atomic.LoadInt32(&calls), int32(2), "rewritten entry serves later queries")
}

func TestCapturesDistinctQueriesDistinctCacheEntries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, true)
	ctx := context.Background()

	_, err := c.Captures(ctx, "http://example.com", domain.Filters{})
	testutil.AssertNoError(t, err, "first target")
	_, err = c.Captures(ctx, "http://other.com", domain.Filters{})
	testutil.AssertNoError(t, err, "second target")

	testutil.AssertEqual(t, atomic.LoadInt32(&calls), int32(2), "different targets never share entries")
}

func TestCapturesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, false).Captures(context.Background(), "http://example.com", domain.Filters{})
	testutil.AssertError(t, err, "non-200 response fails the query")
}

func TestParseRowsMalformed(t *testing.T) {
	_, err := parseRows([]byte("<html>not json</html>"))
	testutil.AssertError(t, err, "non-json payload fails")
}

func TestParseRowsHeaderOnly(t *testing.T) {
	rows, err := parseRows([]byte(`[["timestamp","original","mimetype","length"]]`))
	testutil.AssertNoError(t, err, "header-only payload")
	testutil.AssertEqual(t, len(rows), 0, "no data rows")
}

func TestParseRowsShortRecordSkipped(t *testing.T) {
	payload := `[
	  ["timestamp","original","mimetype","length"],
	  ["20020527110458","http://example.com/a.jpg"],
	  ["20031118093221","http://example.com/b.mp3","audio/mpeg","2048"]
	]`
	rows, err := parseRows([]byte(payload))
	testutil.AssertNoError(t, err, "parse")
	testutil.AssertEqual(t, len(rows), 1, "short record dropped")
	testutil.AssertEqual(t, rows[0].Original, "http://example.com/b.mp3", "surviving row")
}
