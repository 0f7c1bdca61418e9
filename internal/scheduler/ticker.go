// Package scheduler provides the background loops that drive playout: the
// tick driver that advances every channel session, and the plan sync loop
// that activates plans on their cron windows.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/airwave/internal/observability"
)

// Ticker is the tick driver's target, one pass over every session.
type Ticker interface {
	TickAll(ctx context.Context)
}

// TickDriver invokes the registry's tick pass at a fixed rate. Ticks never
// overlap; a pass that runs long simply delays the next one.
type TickDriver struct {
	mu sync.Mutex

	target   Ticker
	interval time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTickDriver creates a tick driver.
func NewTickDriver(target Ticker, interval time.Duration, logger *slog.Logger) *TickDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &TickDriver{
		target:   target,
		interval: interval,
		logger:   observability.WithComponent(logger, "tick-driver"),
	}
}

// Start begins the tick loop.
func (d *TickDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx != nil {
		return fmt.Errorf("tick driver already started")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go d.loop()

	d.logger.Info("tick driver started", slog.Duration("interval", d.interval))
	return nil
}

// Stop stops the tick loop and waits for the in-flight pass.
func (d *TickDriver) Stop() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()

	d.wg.Wait()

	d.mu.Lock()
	d.ctx = nil
	d.cancel = nil
	d.mu.Unlock()

	d.logger.Info("tick driver stopped")
}

func (d *TickDriver) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.target.TickAll(d.ctx)
		}
	}
}
