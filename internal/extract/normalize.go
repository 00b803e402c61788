package extract

import (
	"net/url"
	"strings"

	"wayrake/internal/core/domain"
)

// Normalize resolves a raw candidate against the page it came from and
// turns it into a resource item pinned to stamp. original is the canonical
// URL of the page; stamp may be empty for unpinned pages. The second return
// is false when the candidate cannot yield a usable absolute URL.
func Normalize(c domain.RawCandidate, original, stamp string) (domain.ResourceItem, bool) {
	base, err := url.Parse(original)
	if err != nil {
		return domain.ResourceItem{}, false
	}
	if base.Scheme == "" {
		base, err = url.Parse("http://" + original)
		if err != nil {
			return domain.ResourceItem{}, false
		}
	}

	ref, err := url.Parse(c.Link)
	if err != nil {
		return domain.ResourceItem{}, false
	}

	abs := base.ResolveReference(ref)
	if abs.Scheme == "" || abs.Host == "" {
		return domain.ResourceItem{}, false
	}

	it := domain.ResourceItem{
		Timestamp: stamp,
		Original:  abs.String(),
	}

	if strings.Contains(abs.Hostname(), domain.ReplayHost) {
		// Already a replay URL: serve it as-is and recover the wrapped
		// original for identity.
		it.Archived = abs.String()
		if cr := domain.ParseReplayInput(abs.String()); cr.Original != "" {
			it.Original = cr.Original
			if cr.HasStamp() {
				it.Timestamp = cr.Stamp
			}
		}
	} else {
		it.Archived = domain.ArchivedURL(stamp, abs.String())
	}

	it.Mimetype = domain.MimeForURL(it.Original)
	domain.AssignGroup(&it, c.Context)
	return it, true
}
