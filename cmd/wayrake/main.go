// cmd/wayrake/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wayrake/internal/adapters/output"
	"wayrake/internal/core/domain"
	"wayrake/internal/core/ports"
	"wayrake/internal/core/usecases"
	"wayrake/internal/download"
	"wayrake/internal/platform/config"
	"wayrake/internal/platform/diskcache"
	"wayrake/internal/platform/logx"
	"wayrake/internal/sources/cdx"
	"wayrake/internal/sources/lostmyspace"
	"wayrake/internal/sources/mp3search"
	"wayrake/internal/sources/wayback"
)

var (
	// Set with -ldflags at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration load failed: %v\n", err)
		os.Exit(2)
	}

	if cfg.PrintVersion {
		fmt.Printf("wayrake %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	logger := logx.New()
	logger.Info("wayrake starting", "version", version, "config", cfg.Summary())

	ctx, cancel := rootContextWithSignals(cfg.TimeoutS)
	defer cancel()

	var runErr error
	switch {
	case cfg.ProbeURL != "":
		runErr = runProbe(ctx, cfg, logger)
	case cfg.Mode == "mp3" || cfg.Mode == "space":
		runErr = runSearch(ctx, cfg, logger)
	default:
		runErr = runResolve(ctx, cfg, logger)
	}

	if runErr != nil {
		logger.Err(runErr, "phase", "run")
		os.Exit(1)
	}
}

// runResolve executes the capture resolution pipeline.
func runResolve(ctx context.Context, cfg config.Config, logger logx.Logger) error {
	inputs, err := cfg.ExpandInputs()
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one target is required")
		fmt.Fprintln(os.Stderr, "Usage: wayrake [flags] <url-or-domain> ...")
		os.Exit(2)
	}

	index := cdx.New(cdx.Config{
		Collapse:  cfg.Collapse,
		RateLimit: cfg.RateLimit,
	}, newCache(cfg, logger), logger)

	fetcher := wayback.NewFetcher(wayback.Config{RateLimit: cfg.RateLimit}, logger)

	var notifier ports.Notifier
	progress := output.NewProgress()
	defer progress.Stop()
	notifier = progress
	if cfg.NoTable {
		notifier = ports.NopNotifier{}
	}

	resolver := usecases.NewResolver(index, fetcher, usecases.Config{
		BatchWidth: cfg.BatchWidth,
		Notifier:   notifier,
	}, logger)

	filters := domain.Filters{From: cfg.From, To: cfg.To, Limit: cfg.Limit}

	start := time.Now()
	var items []domain.ResourceItem
	if cfg.Flat {
		items, err = resolver.ResolveFlat(ctx, inputs, filters)
	} else {
		items, err = resolver.Resolve(ctx, inputs, filters)
	}
	if err != nil {
		return err
	}
	progress.Stop()

	items = filterByType(items, domain.TypeClass(cfg.Type))
	logger.Info("resolution finished",
		"elapsed_ms", time.Since(start).Milliseconds(), "items", len(items))

	mode := "resolve"
	if cfg.Flat {
		mode = "flat"
	}
	path, err := output.WriteJSON(cfg.OutputDir, output.Report{
		Tool:        "wayrake",
		Version:     version,
		GeneratedAt: time.Now(),
		Mode:        mode,
		Inputs:      inputs,
		Items:       items,
	})
	if err != nil {
		return err
	}
	logger.Info("report written", "path", path)

	if !cfg.NoTable {
		if err := output.RenderItems(items); err != nil {
			return err
		}
	}

	if cfg.Download {
		downloadItems(ctx, cfg, items, logger)
	}
	return nil
}

// runSearch executes one of the auxiliary searchers.
func runSearch(ctx context.Context, cfg config.Config, logger logx.Logger) error {
	var searcher ports.Searcher
	query := ports.SearchQuery{Artist: cfg.Artist, Song: cfg.Song, Genre: cfg.Genre, Text: cfg.Query}

	switch cfg.Mode {
	case "mp3":
		index := cdx.New(cdx.Config{RateLimit: cfg.RateLimit}, newCache(cfg, logger), logger)
		searcher = mp3search.New(mp3search.Config{}, index, logger)
	default:
		searcher = lostmyspace.New(lostmyspace.Config{}, logger)
	}

	hits, err := searcher.Search(ctx, query)
	if err != nil {
		return err
	}

	queryText := query.Text
	if queryText == "" {
		queryText = query.Artist + " " + query.Song
	}
	path, err := output.WriteJSON(cfg.OutputDir, output.Report{
		Tool:        "wayrake",
		Version:     version,
		GeneratedAt: time.Now(),
		Mode:        cfg.Mode,
		Query:       queryText,
		Hits:        hits,
	})
	if err != nil {
		return err
	}
	logger.Info("report written", "path", path)

	if !cfg.NoTable {
		return output.RenderHits(searcher.Name(), hits)
	}
	return nil
}

// runProbe classifies one URL before playback or download and prints the
// verdict as JSON on stdout.
func runProbe(ctx context.Context, cfg config.Config, logger logx.Logger) error {
	prober := download.NewProber("", logger)
	res, err := prober.Probe(ctx, cfg.ProbeURL)
	if err != nil {
		return err
	}
	logger.Info("probe finished",
		"url", cfg.ProbeURL, "type", res.Type, "needs_interaction", res.NeedsInteraction)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// downloadItems saves each resolved item, best effort.
func downloadItems(ctx context.Context, cfg config.Config, items []domain.ResourceItem, logger logx.Logger) {
	d := download.New(download.Config{}, nil, logger)
	saved := 0
	for _, it := range items {
		if ctx.Err() != nil {
			logger.Warn("download pass aborted", "saved", saved, "total", len(items))
			return
		}
		if _, err := d.Save(ctx, download.Request{
			URL:        it.Archived,
			Dir:        cfg.DownloadDir,
			GroupTitle: it.GroupTitle,
			GroupYear:  it.GroupYear,
		}); err != nil {
			logger.Warn("download failed, continuing", "url", it.Archived, "error", err.Error())
			continue
		}
		saved++
	}
	logger.Info("downloads finished", "saved", saved, "total", len(items))
}

// newCache builds the index cache; a cache that cannot be created disables
// caching instead of failing the run.
func newCache(cfg config.Config, logger logx.Logger) *diskcache.Store {
	if cfg.CacheDir == "" {
		return nil
	}
	store, err := diskcache.New(cfg.CacheDir, time.Duration(cfg.CacheTTLHours)*time.Hour, logger)
	if err != nil {
		logger.Warn("cache unavailable, continuing without it", "dir", cfg.CacheDir, "error", err.Error())
		return nil
	}
	return store
}

func filterByType(items []domain.ResourceItem, t domain.TypeClass) []domain.ResourceItem {
	if t == domain.TypeAll {
		return items
	}
	out := items[:0]
	for _, it := range items {
		if t.Matches(it.Mimetype) {
			out = append(out, it)
		}
	}
	return out
}

// rootContextWithSignals creates the root context with an optional global
// timeout and SIGINT/SIGTERM cancellation.
func rootContextWithSignals(timeoutSeconds int) (context.Context, context.CancelFunc) {
	var base context.Context
	var baseCancel context.CancelFunc

	if timeoutSeconds > 0 {
		base, baseCancel = context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)
	} else {
		base, baseCancel = context.WithCancel(context.Background())
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-ch:
			baseCancel()
		case <-base.Done():
		}
	}()

	return base, func() {
		signal.Stop(ch)
		close(ch)
		baseCancel()
	}
}
