package domain

// RawCandidate is one link found during HTML extraction, before any
// validation or resolution. Ephemeral: created and consumed within a single
// extraction pass.
type RawCandidate struct {
	// Link is the raw attribute value, possibly relative or archive-prefixed.
	Link    string
	Context ExtractionContext
}

// ExtractionContext carries the positional metadata recorded alongside a
// candidate. It feeds grouping only and never affects identity.
type ExtractionContext struct {
	// Tag is the element kind the link was taken from ("img", "a", "style", ...).
	Tag string

	// NearbyText is the label of the closest gallery-like container or
	// preceding heading, when one was found.
	NearbyText string

	// PageTitle is the <title> of the page the candidate came from.
	PageTitle string

	// PageDate is the content of a page-level date meta tag, if any.
	PageDate string
}
