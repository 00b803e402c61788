package download

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"wayrake/internal/platform/errors"
	"wayrake/internal/platform/httpclient"
	"wayrake/internal/platform/logx"
)

const (
	probeHeadTimeout    = 10 * time.Second
	probeGetTimeout     = 20 * time.Second
	probeConfirmTimeout = 8 * time.Second
)

var htmlTag = regexp.MustCompile(`(?i)<\s*html`)

// ProbeResult classifies a URL before playback or download.
type ProbeResult struct {
	// Type is "audio", "html" or "unknown".
	Type string `json:"type"`

	// ContentType is the reported Content-Type, possibly empty.
	ContentType string `json:"contentType,omitempty"`

	// URL is the playable URL: the probed one, or a direct audio link
	// discovered inside an HTML page.
	URL string `json:"url,omitempty"`

	// NeedsInteraction marks HTML pages with no direct audio link, which
	// usually hide the player behind scripted controls.
	NeedsInteraction bool `json:"needsInteraction,omitempty"`
}

// Prober inspects URLs to find something playable.
type Prober struct {
	http   *httpclient.Client
	logger logx.Logger
}

// NewProber creates a prober.
func NewProber(userAgent string, logger logx.Logger) *Prober {
	return &Prober{
		http: httpclient.New(httpclient.Config{
			Timeout:   probeGetTimeout,
			UserAgent: userAgent,
		}, logger),
		logger: logger.With("component", "probe"),
	}
}

// Probe classifies rawurl. A cheap HEAD goes first; when it reports audio
// the body is never fetched. HTML bodies are scanned for direct audio
// links, each confirmed with its own HEAD before being returned.
func (p *Prober) Probe(ctx context.Context, rawurl string) (ProbeResult, error) {
	if ct, ok := p.headContentType(ctx, rawurl, probeHeadTimeout); ok && isAudio(ct) {
		p.logger.Debug("audio via head", "url", rawurl)
		return ProbeResult{Type: "audio", ContentType: ct, URL: rawurl}, nil
	}

	getCtx, cancel := context.WithTimeout(ctx, probeGetTimeout)
	defer cancel()
	resp, err := p.http.Get(getCtx, rawurl, nil)
	if err != nil {
		return ProbeResult{}, errors.Wrapf(err, "probe of %s failed", rawurl)
	}
	if err := httpclient.CheckStatus(resp); err != nil {
		resp.Body.Close()
		return ProbeResult{}, errors.Wrapf(err, "probe of %s failed", rawurl)
	}

	ct := resp.Header.Get("Content-Type")
	if isAudio(ct) {
		resp.Body.Close()
		p.logger.Debug("audio via get", "url", rawurl)
		return ProbeResult{Type: "audio", ContentType: ct, URL: rawurl}, nil
	}

	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return ProbeResult{}, err
	}

	if strings.Contains(ct, "text/html") || htmlTag.Match(body) {
		if hit, ok := p.confirmCandidate(ctx, rawurl, audioCandidates(string(body))); ok {
			return hit, nil
		}
		p.logger.Debug("no direct audio in page", "url", rawurl)
		return ProbeResult{Type: "html", ContentType: ct, NeedsInteraction: true}, nil
	}

	return ProbeResult{Type: "unknown", ContentType: ct}, nil
}

// headContentType performs a bounded HEAD and returns the Content-Type.
// Failures are soft; many servers block HEAD.
func (p *Prober) headContentType(ctx context.Context, rawurl string, timeout time.Duration) (string, bool) {
	headCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.http.Head(headCtx, rawurl)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if httpclient.CheckStatus(resp) != nil {
		return "", false
	}
	return resp.Header.Get("Content-Type"), true
}

// confirmCandidate resolves each candidate against the page URL and keeps
// the first one whose own HEAD reports audio.
func (p *Prober) confirmCandidate(ctx context.Context, pageURL string, candidates []string) (ProbeResult, bool) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ProbeResult{}, false
	}
	for _, c := range candidates {
		ref, err := url.Parse(c)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref).String()
		if ct, ok := p.headContentType(ctx, abs, probeConfirmTimeout); ok && isAudio(ct) {
			p.logger.Debug("candidate confirmed", "url", abs)
			return ProbeResult{Type: "audio", ContentType: ct, URL: abs}, true
		}
	}
	return ProbeResult{}, false
}

// audioCandidates scans an HTML page for likely audio URLs: audio element
// sources, mp3 anchors and mp3 iframes.
func audioCandidates(body string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var out []string
	doc.Find("audio source[src], audio[src]").Each(func(_ int, el *goquery.Selection) {
		if s := el.AttrOr("src", ""); s != "" {
			out = append(out, s)
		}
	})
	doc.Find("a[href]").Each(func(_ int, el *goquery.Selection) {
		if href := el.AttrOr("href", ""); strings.Contains(strings.ToLower(href), ".mp3") {
			out = append(out, href)
		}
	})
	doc.Find("iframe[src]").Each(func(_ int, el *goquery.Selection) {
		if s := el.AttrOr("src", ""); strings.Contains(strings.ToLower(s), ".mp3") {
			out = append(out, s)
		}
	})
	return out
}

func isAudio(contentType string) bool {
	base, _, _ := strings.Cut(contentType, ";")
	return strings.HasPrefix(strings.TrimSpace(base), "audio/")
}
