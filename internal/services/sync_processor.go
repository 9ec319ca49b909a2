package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Reconciler brings the transaction mirror back in line with the store.
// It reports whether the mirror had to be rewritten.
type Reconciler interface {
	Reconcile(ctx context.Context) (bool, error)
}

type SyncProcessorConfig struct {
	Interval time.Duration // between reconciliations, 5m by default
	Timeout  time.Duration // per reconciliation, 1m by default
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{Interval: 5 * time.Minute, Timeout: time.Minute}
}

// SyncProcessor reconciles the mirror on a timer so that transaction
// events lost on the way to the worker are eventually caught up.
type SyncProcessor struct {
	reconciler Reconciler
	config     SyncProcessorConfig

	mu       sync.Mutex
	cancel   context.CancelFunc // nil while stopped
	done     chan struct{}
	runs     int
	rewrites int
}

var (
	errProcessorRunning   = errors.New("sync processor is already running")
	errProcessorNoBackend = errors.New("sync processor has no reconciler")
)

func NewSyncProcessor(reconciler Reconciler, config SyncProcessorConfig) *SyncProcessor {
	defaults := DefaultSyncProcessorConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	return &SyncProcessor{reconciler: reconciler, config: config}
}

// Start reconciles once right away and then every Interval, in the
// background, until ctx ends or Stop is called.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.reconciler == nil:
		return errProcessorNoBackend
	case p.cancel != nil:
		return errProcessorRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(loopCtx, p.done)

	slog.InfoContext(ctx, "Sync processor started", "interval", p.config.Interval)
	return nil
}

// Stop ends the loop and waits for an in-flight reconciliation, at most
// until ctx is done. It is safe to call more than once.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.cancel = nil
	p.mu.Unlock()
	slog.InfoContext(ctx, "Sync processor stopped")
	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stats reports how many reconciliations ran and how many rewrote the mirror.
func (p *SyncProcessor) Stats() (runs, rewrites int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs, p.rewrites
}

func (p *SyncProcessor) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		p.runOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *SyncProcessor) runOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	rewritten, err := p.reconciler.Reconcile(ctx)

	p.mu.Lock()
	p.runs++
	if rewritten {
		p.rewrites++
	}
	p.mu.Unlock()

	switch {
	case err != nil:
		slog.ErrorContext(ctx, "Mirror reconciliation failed", "error", err)
	case rewritten:
		slog.InfoContext(ctx, "Mirror was out of date and has been rewritten")
	}
}
