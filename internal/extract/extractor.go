// Package extract pulls resource candidates out of archived HTML pages and
// normalizes them into resolvable items.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"wayrake/internal/core/domain"
	"wayrake/internal/platform/logx"
)

// maxLabelRunes bounds the nearby-text captured for grouping.
const maxLabelRunes = 80

// groupClasses marks container class fragments that usually wrap a titled
// set of resources.
var groupClasses = []string{"gallery", "album", "photo", "track", "figure"}

// backgroundURL matches url(...) values in inline background styles.
var backgroundURL = regexp.MustCompile(`(?i)background(?:-image)?\s*:\s*url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// embeddedReplay matches root-relative replay paths left inside archived
// markup, capturing the wrapped original URL. The scheme separator is often
// collapsed to a single slash by the archiver.
var embeddedReplay = regexp.MustCompile(`(?i)^/web/\d{4,14}[a-z_]{0,4}/(https?:/{1,2}.+)$`)

// Extractor scans HTML for resource candidates: images, audio, video,
// media links, lazy-load attributes and inline CSS backgrounds.
type Extractor struct {
	logger logx.Logger
}

// New creates an extractor.
func New(logger logx.Logger) *Extractor {
	return &Extractor{logger: logger.With("component", "extract")}
}

// Extract returns every candidate found in body, with its surrounding
// context. Links are raw (relative or absolute); resolution against the
// page URL happens in Normalize. Unparseable HTML yields no candidates.
func (e *Extractor) Extract(body, pageURL string) []domain.RawCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		e.logger.Warn("unparseable html", "page", pageURL, "error", err.Error())
		return nil
	}

	pageTitle := clip(doc.Find("title").First().Text())
	pageDate := pageDateMeta(doc)

	var out []domain.RawCandidate
	add := func(sel *goquery.Selection, tag, link string) {
		link = strings.TrimSpace(link)
		if link == "" {
			return
		}
		out = append(out, domain.RawCandidate{
			Link: unwrapReplay(link),
			Context: domain.ExtractionContext{
				Tag:        tag,
				NearbyText: nearbyLabel(sel),
				PageTitle:  pageTitle,
				PageDate:   pageDate,
			},
		})
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		add(s, "img", s.AttrOr("src", ""))
		add(s, "img", s.AttrOr("data-src", ""))
	})

	doc.Find("[srcset], [data-srcset]").Each(func(_ int, s *goquery.Selection) {
		for _, u := range splitSrcset(s.AttrOr("srcset", "")) {
			add(s, "srcset", u)
		}
		for _, u := range splitSrcset(s.AttrOr("data-srcset", "")) {
			add(s, "srcset", u)
		}
	})

	doc.Find(`meta[property="og:image"]`).Each(func(_ int, s *goquery.Selection) {
		add(s, "meta", s.AttrOr("content", ""))
	})
	doc.Find(`link[rel="image_src"]`).Each(func(_ int, s *goquery.Selection) {
		add(s, "link", s.AttrOr("href", ""))
	})

	doc.Find("audio, video").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		add(s, tag, s.AttrOr("src", ""))
		s.Find("source").Each(func(_ int, src *goquery.Selection) {
			add(src, tag, src.AttrOr("src", ""))
		})
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		if anchorLooksLikeMedia(href, s.Text()) {
			add(s, "a", href)
		}
	})

	doc.Find("[data-src], [data-href], [data-url]").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "img" {
			return // img data-src collected above
		}
		for _, attr := range []string{"data-src", "data-href", "data-url"} {
			if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
				add(s, "data", v)
				break
			}
		}
	})

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		for _, m := range backgroundURL.FindAllStringSubmatch(s.AttrOr("style", ""), -1) {
			add(s, "style", m[1])
		}
	})

	e.logger.Debug("extraction complete", "page", pageURL, "candidates", len(out))
	return out
}

// anchorLooksLikeMedia reports whether an anchor is worth keeping: its path
// ends in a known media or document extension, or its target or label hints
// at a media/file area.
func anchorLooksLikeMedia(href, text string) bool {
	if domain.HasMediaExt(href) {
		return true
	}
	low := strings.ToLower(href)
	lowText := strings.ToLower(text)
	for _, hint := range []string{"media", "files"} {
		if strings.Contains(low, hint) || strings.Contains(lowText, hint) {
			return true
		}
	}
	return false
}

// unwrapReplay strips a root-relative replay prefix, recovering the wrapped
// original URL so it does not get resolved as a path against the page URL.
// Absolute replay URLs are left alone; Normalize handles them.
func unwrapReplay(link string) string {
	m := embeddedReplay.FindStringSubmatch(link)
	if m == nil {
		return link
	}
	return restoreScheme(m[1])
}

// restoreScheme repairs "http:/host" into "http://host".
func restoreScheme(s string) string {
	i := strings.Index(s, ":/")
	if i < 0 || strings.HasPrefix(s[i:], "://") {
		return s
	}
	return s[:i] + "://" + s[i+2:]
}

// splitSrcset returns the URL of each srcset entry, dropping the width and
// density descriptors.
func splitSrcset(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if fields := strings.Fields(p); len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}

// pageDateMeta returns the first date-ish meta value on the page.
func pageDateMeta(doc *goquery.Document) string {
	selectors := []string{
		`meta[name="date"]`,
		`meta[property="article:published_time"]`,
		`meta[http-equiv="last-modified"]`,
	}
	for _, sel := range selectors {
		if v := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", "")); v != "" {
			return v
		}
	}
	return ""
}

// nearbyLabel finds the text most likely naming the resource: the heading
// or caption of an enclosing gallery-like container, else the nearest
// preceding heading.
func nearbyLabel(sel *goquery.Selection) string {
	for p := sel.Parent(); p.Length() > 0; p = p.Parent() {
		name := goquery.NodeName(p)
		if name == "body" || name == "html" {
			break
		}
		cls := strings.ToLower(p.AttrOr("class", ""))
		if name == "figure" || containsAny(cls, groupClasses) {
			if label := clip(p.Find("h1,h2,h3,h4,h5,h6,figcaption").First().Text()); label != "" {
				return label
			}
		}
	}

	for n := sel; n.Length() > 0; n = n.Parent() {
		if h := n.PrevAllFiltered("h1,h2,h3,h4,h5,h6").First(); h.Length() > 0 {
			if label := clip(h.Text()); label != "" {
				return label
			}
		}
		if goquery.NodeName(n) == "body" {
			break
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// clip collapses whitespace and bounds the label length.
func clip(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxLabelRunes {
		return string(r[:maxLabelRunes])
	}
	return s
}
