package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"wayrake/internal/platform/logx"
	"wayrake/internal/testutil"
)

type recordingObserver struct {
	mu        sync.Mutex
	progress  int
	donePath  string
	doneErr   error
	lastTotal int64
}

func (o *recordingObserver) Progress(_, _ string, _, total int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress++
	o.lastTotal = total
}

func (o *recordingObserver) Done(_, savedPath string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.donePath = savedPath
	o.doneErr = err
}

func TestSaveWritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	d := New(Config{}, obs, logx.NewSilent())
	dir := t.TempDir()

	saved, err := d.Save(context.Background(), Request{URL: srv.URL + "/pics/shot.png", Dir: dir})
	testutil.AssertNoError(t, err, "save")
	testutil.AssertEqual(t, saved, filepath.Join(dir, "shot.png"), "path from url basename")

	got, err := os.ReadFile(saved)
	testutil.AssertNoError(t, err, "read back")
	testutil.AssertEqual(t, string(got), "png-bytes", "content intact")

	testutil.AssertTrue(t, obs.progress >= 1, "progress reported")
	testutil.AssertEqual(t, obs.donePath, saved, "done event carries path")
	testutil.AssertNoError(t, obs.doneErr, "done event without error")
}

func TestSaveGroupSubfolder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	d := New(Config{}, nil, logx.NewSilent())
	dir := t.TempDir()

	saved, err := d.Save(context.Background(), Request{
		URL:        srv.URL + "/a.jpg",
		Dir:        dir,
		GroupTitle: `Summer: "Trip"`,
		GroupYear:  "2002",
	})
	testutil.AssertNoError(t, err, "save")
	testutil.AssertEqual(t, saved, filepath.Join(dir, "Summer_ _Trip__2002", "a.jpg"), "sanitized group folder")
}

func TestSaveNameSanitizedAndExtFromContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg; charset=binary")
		w.Write([]byte("id3"))
	}))
	defer srv.Close()

	d := New(Config{}, nil, logx.NewSilent())
	dir := t.TempDir()

	saved, err := d.Save(context.Background(), Request{
		URL:      srv.URL + "/stream",
		Dir:      dir,
		Filename: `my<track>:v1`,
	})
	testutil.AssertNoError(t, err, "save")
	testutil.AssertEqual(t, filepath.Base(saved), "my_track_v1.mp3", "unsafe runs collapse, extension from content type")
}

func TestSaveExtFromURLWhenTypeUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	d := New(Config{}, nil, logx.NewSilent())
	saved, err := d.Save(context.Background(), Request{
		URL:      srv.URL + "/files/song.ogg",
		Dir:      t.TempDir(),
		Filename: "renamed",
	})
	testutil.AssertNoError(t, err, "save")
	testutil.AssertEqual(t, filepath.Base(saved), "renamed.ogg", "extension from url path")
}

func TestSaveFallbackNameWhenPathEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	d := New(Config{}, nil, logx.NewSilent())
	saved, err := d.Save(context.Background(), Request{URL: srv.URL + "/", Dir: t.TempDir()})
	testutil.AssertNoError(t, err, "save")
	testutil.AssertTrue(t, strings.HasPrefix(filepath.Base(saved), "resource_"), "timestamped fallback name")
}

func TestSaveHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	d := New(Config{}, obs, logx.NewSilent())

	_, err := d.Save(context.Background(), Request{URL: srv.URL + "/gone.jpg", Dir: t.TempDir()})
	testutil.AssertError(t, err, "404 fails the download")
	testutil.AssertError(t, obs.doneErr, "done event carries the error")
	testutil.AssertEqual(t, obs.donePath, "", "no path on failure")
}
