// Package ports declares the interfaces between the resolution core and its
// collaborators: the capture index, the page fetcher, the auxiliary
// searchers and the progress observer.
package ports

import (
	"context"

	"wayrake/internal/core/domain"
)

// CaptureIndex queries the remote capture index (CDX) for a target URL.
type CaptureIndex interface {
	// Captures returns the capture rows for original, narrowed by filters.
	// A non-success response or network failure is an error; callers treat
	// it as "no captures found", not as a fatal pipeline error.
	Captures(ctx context.Context, original string, f domain.Filters) ([]domain.CdxRow, error)
}

// PageFetcher retrieves the HTML body of one archived capture page.
type PageFetcher interface {
	// Body performs a plain GET and returns the raw text body. Any
	// non-success status is an error carrying the status code. No retries
	// at this layer.
	Body(ctx context.Context, url string) (string, error)
}

// SearchQuery is the input of an auxiliary searcher. Music searches fill
// Artist/Song/Genre; free-text searches fill Text.
type SearchQuery struct {
	Artist string
	Song   string
	Genre  string
	Text   string
}

// SearchHit is one result of an auxiliary searcher.
type SearchHit struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Searcher is an auxiliary single-page search collaborator. Searchers use
// the same extraction techniques as the capture pipeline but perform no
// capture discovery or batching.
type Searcher interface {
	Name() string
	Search(ctx context.Context, q SearchQuery) ([]SearchHit, error)
}

// Notifier observes progress of long-running resolution work.
type Notifier interface {
	// Progress reports that done of total units of the named stage
	// finished. Implementations must be cheap and non-blocking.
	Progress(stage string, done, total int)
}

// ProgressFunc adapts a function to the Notifier interface.
type ProgressFunc func(stage string, done, total int)

// Progress implements Notifier.
func (f ProgressFunc) Progress(stage string, done, total int) { f(stage, done, total) }

// NopNotifier discards all progress updates.
type NopNotifier struct{}

// Progress implements Notifier.
func (NopNotifier) Progress(string, int, int) {}
