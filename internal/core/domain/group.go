package domain

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// AssignGroup fills the display-grouping fields of an item from its
// extraction context. Precedence for the title: contextual heading or
// container label, page title, capture timestamp, URL host. The year is the
// leading four digits of the stamp, else a year parsed from the page date
// meta tag. Grouping is presentation-only and must never affect
// deduplication.
func AssignGroup(it *ResourceItem, ctx ExtractionContext) {
	switch {
	case ctx.NearbyText != "":
		it.GroupTitle = ctx.NearbyText
	case ctx.PageTitle != "":
		it.GroupTitle = ctx.PageTitle
	case it.Timestamp != "":
		it.GroupTitle = it.Timestamp
	default:
		it.GroupTitle = hostLabel(it.Original)
	}

	if len(it.Timestamp) >= 4 {
		it.GroupYear = it.Timestamp[:4]
	} else if y := yearOf(ctx.PageDate); y != "" {
		it.GroupYear = y
	}
}

// hostLabel returns the registered domain of a URL's host, falling back to
// the raw host, then the raw string.
func hostLabel(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil || u.Hostname() == "" {
		return rawurl
	}
	host := u.Hostname()
	if reg, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return reg
	}
	return host
}

// yearOf extracts the leading four digits of a date-ish string when they
// form a plausible year.
func yearOf(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return ""
	}
	y := s[:4]
	for _, r := range y {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if y < "1000" || y > "2999" {
		return ""
	}
	return y
}
