package output

import (
	"sync"

	"github.com/pterm/pterm"
)

// Progress renders one progress bar per pipeline stage. It satisfies
// ports.Notifier and is safe for concurrent updates.
type Progress struct {
	mu   sync.Mutex
	bars map[string]*pterm.ProgressbarPrinter
}

// NewProgress creates the notifier.
func NewProgress() *Progress {
	return &Progress{bars: make(map[string]*pterm.ProgressbarPrinter)}
}

// Progress implements ports.Notifier. A bar is created on the first update
// of a stage and stopped when it completes.
func (p *Progress) Progress(stage string, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bar, ok := p.bars[stage]
	if !ok {
		started, err := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle(stage).
			WithRemoveWhenDone().
			Start()
		if err != nil {
			return
		}
		bar = started
		p.bars[stage] = bar
	}

	if delta := done - bar.Current; delta > 0 {
		bar.Add(delta)
	}
	if done >= total {
		bar.Stop()
		delete(p.bars, stage)
	}
}

// Stop closes any bars left behind by an aborted run.
func (p *Progress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for stage, bar := range p.bars {
		bar.Stop()
		delete(p.bars, stage)
	}
}
