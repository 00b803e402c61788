// Package mp3search queries the MP3 Search Archive and scrapes audio links
// out of the result page. When the site yields nothing, it falls back to a
// capture index query for archived audio files matching the search terms.
package mp3search

import (
	"context"
	"encoding/json"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"wayrake/internal/core/domain"
	"wayrake/internal/core/ports"
	"wayrake/internal/platform/errors"
	"wayrake/internal/platform/httpclient"
	"wayrake/internal/platform/logx"
)

// fallbackLimit caps the index query used when the site scrape is empty.
const fallbackLimit = 200

// audioExts are the anchor extensions treated as direct audio links.
var audioExts = []string{".mp3", ".ogg", ".m4a", ".flac", ".wav"}

// anchorHints mark anchors that likely lead to audio without a telling
// extension.
var anchorHints = []string{"download", "play", "listen", "stream", "files"}

// Config tunes the source.
type Config struct {
	// BaseURL is the search endpoint. Default: https://buildism.net/mp3-search/.
	BaseURL string

	// Timeout is the per-search timeout. Default: 30s.
	Timeout time.Duration

	// UserAgent overrides the default request identity.
	UserAgent string
}

// Source implements ports.Searcher for the MP3 Search Archive.
type Source struct {
	base   string
	http   *httpclient.Client
	index  ports.CaptureIndex
	logger logx.Logger
}

// New creates the source. index may be nil to disable the archive fallback.
func New(cfg Config, index ports.CaptureIndex, logger logx.Logger) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://buildism.net/mp3-search/"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Source{
		base: cfg.BaseURL,
		http: httpclient.New(httpclient.Config{
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
		}, logger),
		index:  index,
		logger: logger.With("source", "mp3search"),
	}
}

// Name implements ports.Searcher.
func (s *Source) Name() string { return "mp3search" }

// Search implements ports.Searcher.
func (s *Source) Search(ctx context.Context, q ports.SearchQuery) ([]ports.SearchHit, error) {
	params := url.Values{}
	params.Set("artist", q.Artist)
	params.Set("song", q.Song)
	params.Set("genre", q.Genre)
	params.Set("submit", "Search")
	searchURL := s.base + "?" + params.Encode()

	body, err := s.http.FetchText(ctx, searchURL)
	if err != nil {
		return nil, errors.Wrap(err, "mp3 search request failed")
	}

	hits := s.scrape(string(body), searchURL)
	if len(hits) > 0 {
		s.logger.Info("site results", "hits", len(hits))
		return hits, nil
	}

	if s.index == nil {
		return nil, nil
	}
	s.logger.Info("site gave no results, trying the archive index")
	return s.indexFallback(ctx, q)
}

// scrape collects audio links from the result page: dedicated audio rows,
// anchors with audio extensions or download-ish hints, audio elements,
// embedded players and lazy-load attributes, and structured JSON blobs.
func (s *Source) scrape(body, pageURL string) []ports.SearchHit {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		s.logger.Warn("unparseable result page", "error", err.Error())
		return nil
	}

	set := newHitSet(pageURL, "audio")

	doc.Find(".audio-row[data-url]").Each(func(_ int, el *goquery.Selection) {
		set.add(el.AttrOr("data-url", ""), "")
	})

	doc.Find("a[href]").Each(func(_ int, el *goquery.Selection) {
		href := el.AttrOr("href", "")
		text := strings.TrimSpace(el.Text())
		if hasAnyExt(href, audioExts) {
			set.add(href, text)
			return
		}
		if containsAny(strings.ToLower(href), anchorHints) || containsAny(strings.ToLower(text), anchorHints) {
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

	doc.Find("[data-src], [data-href], [data-url]").Each(func(_ int, el *goquery.Selection) {
		for _, attr := range []string{"data-src", "data-href", "data-url"} {
			if v := strings.TrimSpace(el.AttrOr(attr, "")); v != "" {
				set.add(v, "")
				break
			}
		}
	})

	doc.Find(`script[type="application/json"], script[type="application/ld+json"]`).Each(func(_ int, el *goquery.Selection) {
		var blob struct {
			URL  string `json:"url"`
			Name string `json:"name"`
		}
		if json.Unmarshal([]byte(el.Text()), &blob) == nil && blob.URL != "" {
			set.add(blob.URL, blob.Name)
		}
	})

	return set.hits
}

// indexFallback searches the capture index for archived audio files whose
// URL mentions the search terms.
func (s *Source) indexFallback(ctx context.Context, q ports.SearchQuery) ([]ports.SearchHit, error) {
	terms := searchTerms(q)
	pattern := "*.mp3"
	if len(terms) > 0 {
		pattern = "*" + terms[0] + "*.mp3"
	}

	rows, err := s.index.Captures(ctx, pattern, domain.Filters{Limit: fallbackLimit})
	if err != nil {
		return nil, errors.Wrap(err, "archive fallback failed")
	}

	var hits []ports.SearchHit
	for _, row := range rows {
		low := strings.ToLower(row.Original)
		if !matchesAll(low, terms) {
			continue
		}
		hits = append(hits, ports.SearchHit{
			Title: path.Base(row.Original),
			URL:   domain.ArchivedURL(row.Timestamp, row.Original),
		})
	}
	s.logger.Info("archive fallback results", "hits", len(hits))
	return hits, nil
}

func searchTerms(q ports.SearchQuery) []string {
	var terms []string
	for _, t := range []string{q.Song, q.Artist} {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func matchesAll(s string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}

func hasAnyExt(href string, exts []string) bool {
	low := strings.ToLower(href)
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
// absolute URL. Titles fall back to the last path segment.
type hitSet struct {
	base     *url.URL
	fallback string
	seen     map[string]struct{}
	hits     []ports.SearchHit
}

func newHitSet(pageURL, fallbackTitle string) *hitSet {
	base, _ := url.Parse(pageURL)
	return &hitSet{
		base:     base,
		fallback: fallbackTitle,
		seen:     make(map[string]struct{}),
	}
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
			title = h.fallback
		}
	}
	h.hits = append(h.hits, ports.SearchHit{Title: title, URL: key})
}
