// Package domain contains the core types of the wayrake resolution pipeline:
// capture references, CDX index rows, raw extraction candidates and the
// resource items surfaced to the caller.
package domain

import "strconv"

// ReplayHost is the hostname of the Wayback Machine replay service.
const ReplayHost = "web.archive.org"

// WildcardStamp selects "any/most recent capture" in a replay URL.
const WildcardStamp = "*"

// ResourceItem is the final, deduplicated unit surfaced to the caller.
// Identity for deduplication is Key(); grouping fields are display-only
// and never participate in identity.
type ResourceItem struct {
	// Timestamp is the 14-digit capture id, or empty when the item is not
	// pinned to a specific capture.
	Timestamp string `json:"timestamp,omitempty"`

	// Original is the absolute canonical URL of the resource.
	Original string `json:"original"`

	// Mimetype is inferred from the URL extension (HTML-derived items) or
	// taken from the CDX row (flat mode). Empty when unknown.
	Mimetype string `json:"mimetype,omitempty"`

	// Archived is the full Wayback replay URL serving this resource.
	Archived string `json:"archived"`

	// Length is the byte count when sourced from a CDX row, 0 otherwise.
	Length int64 `json:"length"`

	GroupTitle string `json:"group_title,omitempty"`
	GroupYear  string `json:"group_year,omitempty"`
}

// Key returns the deduplication identity of the item.
func (it ResourceItem) Key() string {
	return it.Timestamp + "::" + it.Original
}

// CdxRow is one row returned by the capture index.
type CdxRow struct {
	Timestamp string `json:"timestamp"`
	Original  string `json:"original"`
	Mimetype  string `json:"mimetype,omitempty"`
	Length    int64  `json:"length"`
}

// Item maps the row directly to a ResourceItem, keeping the index's own
// mimetype and length instead of re-deriving them.
func (r CdxRow) Item() ResourceItem {
	return ResourceItem{
		Timestamp: r.Timestamp,
		Original:  r.Original,
		Mimetype:  r.Mimetype,
		Archived:  ArchivedURL(r.Timestamp, r.Original),
		Length:    r.Length,
	}
}

// ArchivedURL builds the replay URL for a capture of original.
// An empty stamp produces the wildcard form.
func ArchivedURL(stamp, original string) string {
	if stamp == "" {
		stamp = WildcardStamp
	}
	return "https://" + ReplayHost + "/web/" + stamp + "/" + original
}

// IsStamp reports whether s is a concrete 14-digit capture id.
func IsStamp(s string) bool {
	if len(s) != 14 {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
