// Package lostmyspace searches the LostMySpace index of recovered profile
// music. The site is flaky, so the client retries hard with long timeouts.
package lostmyspace

import (
	"context"
	"encoding/json"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"wayrake/internal/core/ports"
	"wayrake/internal/platform/errors"
	"wayrake/internal/platform/httpclient"
	"wayrake/internal/platform/logx"
)

// browserUA avoids the site's bot filtering.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// audioExts are the anchor extensions treated as direct audio links.
var audioExts = []string{".mp3", ".ogg", ".m4a", ".flac"}

// hrefHints mark anchors leading to profile or music pages.
var hrefHints = []string{"myspace", "music", "artist", "band", "download", "archive", "files"}

// textHints mark anchors by their label.
var textHints = []string{"play", "listen"}

// Config tunes the source.
type Config struct {
	// BaseURL is the search endpoint. Default: https://lostmyspace.com/.
	BaseURL string

	// Timeout is the per-attempt timeout. Default: 90s.
	Timeout time.Duration
}

// Source implements ports.Searcher for LostMySpace.
type Source struct {
	base   string
	http   *httpclient.Client
	logger logx.Logger
}

// New creates the source.
func New(cfg Config, logger logx.Logger) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://lostmyspace.com/"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Source{
		base: cfg.BaseURL,
		http: httpclient.New(httpclient.Config{
			Timeout:         cfg.Timeout,
			MaxRetries:      5,
			RetryBackoff:    1 * time.Second,
			MaxRetryBackoff: 30 * time.Second,
			UserAgent:       browserUA,
		}, logger),
		logger: logger.With("source", "lostmyspace"),
	}
}

// Name implements ports.Searcher.
func (s *Source) Name() string { return "lostmyspace" }

// Search implements ports.Searcher.
func (s *Source) Search(ctx context.Context, q ports.SearchQuery) ([]ports.SearchHit, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	searchURL := s.base + "?" + params.Encode()

	body, err := s.http.FetchText(ctx, searchURL)
	if err != nil {
		return nil, errors.Wrap(err, "lostmyspace request failed")
	}

	hits := s.scrape(string(body), searchURL)
	s.logger.Info("search complete", "query", q.Text, "hits", len(hits))
	return hits, nil
}

// scrape collects music links: anchors with audio extensions or profile
// hints, audio elements, embedded players, lazy-load attributes, track
// listing rows and structured JSON blobs.
func (s *Source) scrape(body, pageURL string) []ports.SearchHit {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		s.logger.Warn("unparseable result page", "error", err.Error())
		return nil
	}

	set := newHitSet(pageURL)

	doc.Find("a[href]").Each(func(_ int, el *goquery.Selection) {
		href := el.AttrOr("href", "")
		text := strings.TrimSpace(el.Text())
		low := strings.ToLower(href)
		switch {
		case hasAnyExt(low, audioExts),
			containsAny(low, hrefHints),
			containsAny(strings.ToLower(text), textHints):
			set.add(href, text)
		}
	})

	doc.Find("audio").Each(func(_ int, el *goquery.Selection) {
		set.add(el.AttrOr("src", ""), "")
		el.Find("source[src]").Each(func(_ int, src *goquery.Selection) {
			set.add(src.AttrOr("src", ""), "")
		})
	})

	doc.Find("iframe[src]").Each(func(_ int, el *goquery.Selection) {
		set.add(el.AttrOr("src", ""), "")
	})

	doc.Find("[data-src], [data-href], [data-music], [data-audio]").Each(func(_ int, el *goquery.Selection) {
		for _, attr := range []string{"data-src", "data-href", "data-music", "data-audio"} {
			if v := strings.TrimSpace(el.AttrOr(attr, "")); v != "" {
				set.add(v, "")
				break
			}
		}
	})

	doc.Find(`tr, .track, .song, .music-item, [class*="track"], [class*="song"]`).Each(func(_ int, el *goquery.Selection) {
		el.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href := a.AttrOr("href", "")
			low := strings.ToLower(href)
			if strings.Contains(low, ".mp3") || strings.Contains(low, "music") || strings.Contains(low, "download") {
				set.add(href, strings.TrimSpace(a.Text()))
			}
		})
	})

	doc.Find(`script[type="application/json"], script[type="application/ld+json"]`).Each(func(_ int, el *goquery.Selection) {
		var blob struct {
			URL      string `json:"url"`
			Name     string `json:"name"`
			Audio    string `json:"audio"`
			MusicURL string `json:"musicURL"`
		}
		if json.Unmarshal([]byte(el.Text()), &blob) != nil {
			return
		}
		set.add(blob.URL, blob.Name)
		set.add(blob.Audio, "")
		set.add(blob.MusicURL, "")
	})

	return set.hits
}

func hasAnyExt(low string, exts []string) bool {
	if i := strings.IndexAny(low, "?#"); i >= 0 {
		low = low[:i]
	}
	for _, ext := range exts {
		if strings.HasSuffix(low, ext) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// hitSet accumulates hits resolved against the page URL, deduplicated by
// absolute URL. Untitled hits fall back to the last path segment, then to
// "track".
type hitSet struct {
	base *url.URL
	seen map[string]struct{}
	hits []ports.SearchHit
}

func newHitSet(pageURL string) *hitSet {
	base, _ := url.Parse(pageURL)
	return &hitSet{base: base, seen: make(map[string]struct{})}
}

func (h *hitSet) add(link, title string) {
	link = strings.TrimSpace(link)
	if link == "" || h.base == nil {
		return
	}
	ref, err := url.Parse(link)
	if err != nil {
		return
	}
	abs := h.base.ResolveReference(ref)
	if abs.Scheme == "" || abs.Host == "" {
		return
	}

	key := abs.String()
	if _, dup := h.seen[key]; dup {
		return
	}
	h.seen[key] = struct{}{}

	if title == "" {
		if title = path.Base(abs.Path); title == "." || title == "/" {
			title = "track"
		}
	}
	h.hits = append(h.hits, ports.SearchHit{Title: title, URL: key})
}
