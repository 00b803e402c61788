package domain

import "strings"

// Filters narrows a capture lookup. From and To accept YYYY-MM-DD or
// YYYYMMDD; Limit caps the number of index rows (0 means the caller's
// default applies).
type Filters struct {
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// FromStamp returns the 8-digit lower bound for the index query, or empty.
func (f Filters) FromStamp() string { return dateStamp(f.From) }

// ToStamp returns the 8-digit upper bound for the index query, or empty.
func (f Filters) ToStamp() string { return dateStamp(f.To) }

// dateStamp strips separators from a date and keeps the leading eight
// digits. Anything that does not reduce to at least YYYYMMDD is discarded.
func dateStamp(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 8 {
		return ""
	}
	return digits[:8]
}
