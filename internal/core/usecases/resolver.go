// Package usecases wires the resolution pipeline: capture discovery, page
// fetching, extraction and aggregation into a deduplicated result set.
package usecases

import (
	"context"
	"sync"

	"wayrake/internal/core/domain"
	"wayrake/internal/core/ports"
	"wayrake/internal/extract"
	"wayrake/internal/platform/errors"
	"wayrake/internal/platform/logx"
)

const (
	// MaxInputs bounds one resolution run.
	MaxInputs = 50

	// DefaultBatchWidth is how many capture pages are fetched concurrently.
	DefaultBatchWidth = 4

	// FlatLimit is the row cap for flat index listings.
	FlatLimit = 10000
)

// Config tunes the resolver.
type Config struct {
	// BatchWidth is the concurrent page fetch width. Default: 4.
	BatchWidth int

	// Notifier observes progress. Default: no-op.
	Notifier ports.Notifier
}

// Resolver turns user-supplied links into deduplicated resource items by
// walking captures of each target and extracting resources from their HTML.
type Resolver struct {
	index    ports.CaptureIndex
	fetcher  ports.PageFetcher
	extract  *extract.Extractor
	batch    int
	notifier ports.Notifier
	logger   logx.Logger
}

// NewResolver creates a resolver over the given collaborators.
func NewResolver(index ports.CaptureIndex, fetcher ports.PageFetcher, cfg Config, logger logx.Logger) *Resolver {
	if cfg.BatchWidth <= 0 {
		cfg.BatchWidth = DefaultBatchWidth
	}
	if cfg.Notifier == nil {
		cfg.Notifier = ports.NopNotifier{}
	}
	return &Resolver{
		index:    index,
		fetcher:  fetcher,
		extract:  extract.New(logger),
		batch:    cfg.BatchWidth,
		notifier: cfg.Notifier,
		logger:   logger.With("component", "resolver"),
	}
}

// Resolve processes each input in order and returns the aggregated,
// deduplicated items. Inputs pinned to a concrete capture resolve that one
// page; everything else goes through capture discovery. Per-page failures
// degrade to skips; an error is returned only when nothing at all could be
// resolved and at least one failure occurred.
func (r *Resolver) Resolve(ctx context.Context, inputs []string, f domain.Filters) ([]domain.ResourceItem, error) {
	if len(inputs) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "no inputs given")
	}
	if len(inputs) > MaxInputs {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "too many inputs: %d > %d", len(inputs), MaxInputs)
	}

	seen := make(map[string]struct{})
	var out []domain.ResourceItem
	var lastErr error

	for i, input := range inputs {
		ref := domain.ParseReplayInput(input)
		if ref.Original == "" {
			r.logger.Warn("input names no target, skipping", "input", input)
			continue
		}

		var items []domain.ResourceItem
		var err error
		if ref.HasStamp() {
			items, err = r.capturePage(ctx, ref.Original, ref.Stamp)
		} else {
			items, err = r.discover(ctx, ref.Original, f)
		}
		if err != nil {
			r.logger.Warn("input failed, continuing", "input", input, "error", err.Error())
			lastErr = err
		}

		for _, it := range items {
			if _, dup := seen[it.Key()]; dup {
				continue
			}
			seen[it.Key()] = struct{}{}
			out = append(out, it)
		}
		r.notifier.Progress("inputs", i+1, len(inputs))
	}

	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	r.logger.Info("resolution complete", "inputs", len(inputs), "items", len(out))
	return out, nil
}

// ResolveFlat lists captures of each input directly from the index, with no
// page fetching. Rows keep the index's own mimetype and length.
func (r *Resolver) ResolveFlat(ctx context.Context, inputs []string, f domain.Filters) ([]domain.ResourceItem, error) {
	if len(inputs) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "no inputs given")
	}
	if len(inputs) > MaxInputs {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "too many inputs: %d > %d", len(inputs), MaxInputs)
	}
	if f.Limit <= 0 {
		f.Limit = FlatLimit
	}

	seen := make(map[string]struct{})
	var out []domain.ResourceItem
	var lastErr error

	for i, input := range inputs {
		ref := domain.ParseReplayInput(input)
		if ref.Original == "" {
			continue
		}
		rows, err := r.index.Captures(ctx, ref.Original, f)
		if err != nil {
			r.logger.Warn("index query failed, continuing", "input", input, "error", err.Error())
			lastErr = err
			continue
		}
		for _, row := range rows {
			it := row.Item()
			if _, dup := seen[it.Key()]; dup {
				continue
			}
			seen[it.Key()] = struct{}{}
			out = append(out, it)
		}
		r.notifier.Progress("inputs", i+1, len(inputs))
	}

	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// discover queries the index for captures of original and extracts resources
// from each capture page, fetching pages in fixed-width batches. Batch N+1
// starts only after batch N fully finishes. Result order follows capture
// order regardless of fetch completion order.
func (r *Resolver) discover(ctx context.Context, original string, f domain.Filters) ([]domain.ResourceItem, error) {
	rows, err := r.index.Captures(ctx, original, f)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(errors.ErrNoCaptures, "no captures for %s", original)
	}

	results := make([][]domain.ResourceItem, len(rows))
	errs := make([]error, len(rows))
	done := 0

	for start := 0; start < len(rows); start += r.batch {
		end := start + r.batch
		if end > len(rows) {
			end = len(rows)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = r.capturePage(ctx, rows[i].Original, rows[i].Timestamp)
			}(i)
		}
		wg.Wait()

		done = end
		r.notifier.Progress("captures", done, len(rows))

		if ctx.Err() != nil {
			return flatten(results), ctx.Err()
		}
	}

	var lastErr error
	for i, err := range errs {
		if err != nil {
			r.logger.Warn("capture page failed, skipping",
				"url", rows[i].Original, "stamp", rows[i].Timestamp, "error", err.Error())
			lastErr = err
		}
	}

	out := flatten(results)
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// capturePage fetches one capture page and extracts its resources, pinned
// to the page's stamp.
func (r *Resolver) capturePage(ctx context.Context, original, stamp string) ([]domain.ResourceItem, error) {
	pageURL := domain.ArchivedURL(stamp, original)
	body, err := r.fetcher.Body(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	cands := r.extract.Extract(body, pageURL)
	items := make([]domain.ResourceItem, 0, len(cands))
	for _, c := range cands {
		if it, ok := extract.Normalize(c, original, stamp); ok {
			items = append(items, it)
		}
	}
	return items, nil
}

func flatten(batches [][]domain.ResourceItem) []domain.ResourceItem {
	var out []domain.ResourceItem
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}
