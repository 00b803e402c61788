package domain

import (
	"net/url"
	"strings"
)

// CaptureRef identifies one point-in-time capture of a URL.
// An empty Stamp means "any/most recent capture".
type CaptureRef struct {
	Original string
	Stamp    string
}

// HasStamp reports whether the reference pins a concrete capture.
func (c CaptureRef) HasStamp() bool {
	return IsStamp(c.Stamp)
}

// ParseReplayInput normalizes a raw user-supplied link into a CaptureRef.
//
// Replay URLs of the shape https://web.archive.org/web/<stamp>/<rest> yield
// the embedded original URL and the stamp; a wildcard stamp normalizes to
// empty. Everything else (bare domains, live URLs, unparseable strings)
// passes through untouched as the discovery target. Never fails: malformed
// input degrades to pass-through.
func ParseReplayInput(input string) CaptureRef {
	input = strings.TrimSpace(input)

	u, err := url.Parse(input)
	if err != nil || !strings.Contains(u.Hostname(), ReplayHost) {
		return CaptureRef{Original: input}
	}

	// Slice the raw input rather than the parsed path so the embedded URL
	// keeps its scheme slashes, trailing slash and query intact.
	i := strings.Index(input, "/web/")
	if i < 0 {
		return CaptureRef{Original: input}
	}

	stamp, rest, _ := strings.Cut(input[i+len("/web/"):], "/")
	if stamp == WildcardStamp {
		stamp = ""
	}
	if rest == "" {
		// A replay URL with no embedded target names nothing to resolve.
		return CaptureRef{Stamp: stamp}
	}
	if !strings.HasPrefix(rest, "http") {
		rest = "http://" + rest
	}
	return CaptureRef{Original: rest, Stamp: stamp}
}
