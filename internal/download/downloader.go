// Package download saves resolved resources to disk and probes ambiguous
// URLs for directly playable audio.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"wayrake/internal/core/domain"
	"wayrake/internal/platform/errors"
	"wayrake/internal/platform/httpclient"
	"wayrake/internal/platform/logx"
)

// copyChunk is the read size of the copy loop; progress is reported once
// per chunk.
const copyChunk = 32 * 1024

// unsafeChars are stripped from filenames and folder names.
var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]+`)

// Request describes one file to save.
type Request struct {
	// URL is the resource to fetch, usually a replay URL.
	URL string

	// Dir is the destination root.
	Dir string

	// Filename overrides the name derived from the URL.
	Filename string

	// GroupTitle and GroupYear place the file in a per-group subfolder
	// when set.
	GroupTitle string
	GroupYear  string
}

// Observer receives download lifecycle events. Callbacks run on the
// downloading goroutine and must be cheap.
type Observer interface {
	Progress(url, filename string, received, total int64)
	Done(url, savedPath string, err error)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) Progress(string, string, int64, int64) {}
func (NopObserver) Done(string, string, error)            {}

// Config tunes the downloader.
type Config struct {
	// Timeout bounds one full download. Default: 10m.
	Timeout time.Duration

	// UserAgent overrides the default request identity.
	UserAgent string
}

// Downloader saves resources to disk.
type Downloader struct {
	http     *httpclient.Client
	observer Observer
	logger   logx.Logger
}

// New creates a downloader. observer may be nil.
func New(cfg Config, observer Observer, logger logx.Logger) *Downloader {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Downloader{
		http: httpclient.New(httpclient.Config{
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
		}, logger),
		observer: observer,
		logger:   logger.With("component", "download"),
	}
}

// Save fetches req.URL and writes it under req.Dir, returning the full path
// of the saved file. Grouped requests land in a "<title>_<year>" subfolder.
func (d *Downloader) Save(ctx context.Context, req Request) (string, error) {
	resp, err := d.http.Get(ctx, req.URL, nil)
	if err != nil {
		d.observer.Done(req.URL, "", err)
		return "", err
	}
	defer resp.Body.Close()

	if err := httpclient.CheckStatus(resp); err != nil {
		d.observer.Done(req.URL, "", err)
		return "", errors.Wrapf(err, "download of %s failed", req.URL)
	}

	dir := filepath.Join(req.Dir, groupFolder(req.GroupTitle, req.GroupYear))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		d.observer.Done(req.URL, "", err)
		return "", errors.Wrap(err, "destination not writable")
	}

	name := fileName(req, resp.Header.Get("Content-Type"))
	fullPath := filepath.Join(dir, name)

	f, err := os.Create(fullPath)
	if err != nil {
		d.observer.Done(req.URL, "", err)
		return "", errors.Wrap(err, "cannot create file")
	}

	received, copyErr := d.copyBody(f, resp, req.URL, name)
	closeErr := f.Close()

	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(fullPath)
		d.observer.Done(req.URL, "", copyErr)
		return "", errors.Wrapf(copyErr, "download of %s failed", req.URL)
	}

	d.logger.Info("saved", "url", req.URL, "path", fullPath, "bytes", received)
	d.observer.Done(req.URL, fullPath, nil)
	return fullPath, nil
}

// copyBody streams the body to w in fixed chunks, reporting progress after
// each one. Total is 0 when the server sends no Content-Length.
func (d *Downloader) copyBody(w io.Writer, resp *http.Response, url, name string) (int64, error) {
	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	buf := make([]byte, copyChunk)
	var received int64
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return received, werr
			}
			received += int64(n)
			d.observer.Progress(url, name, received, total)
		}
		if err == io.EOF {
			return received, nil
		}
		if err != nil {
			return received, err
		}
	}
}

func groupFolder(title, year string) string {
	if title == "" {
		return ""
	}
	name := sanitize(title)
	if year != "" {
		name += "_" + sanitize(year)
	}
	return name
}

// fileName picks the saved name: explicit override, else the URL path base,
// else a timestamped fallback; unsafe characters collapse to underscores
// and a missing extension is inferred from the Content-Type, then from the
// URL path.
func fileName(req Request, contentType string) string {
	name := req.Filename
	if name == "" {
		if u, err := url.Parse(req.URL); err == nil {
			name = path.Base(u.Path)
		}
	}
	if name == "" || name == "." || name == "/" {
		name = fmt.Sprintf("resource_%d", time.Now().UnixMilli())
	}
	name = sanitize(name)

	if path.Ext(name) == "" {
		if ext := domain.ExtForMime(contentType); ext != "" {
			name += ext
		} else if u, err := url.Parse(req.URL); err == nil {
			name += path.Ext(u.Path)
		}
	}
	return name
}

func sanitize(s string) string {
	return unsafeChars.ReplaceAllString(s, "_")
}
