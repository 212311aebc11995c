package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CheckFunc reports whether the store is reachable. A nil error means it is.
type CheckFunc func(ctx context.Context) error

// ProbeMonitor is the reachability facility feeding an Observer: it calls a
// CheckFunc on an interval and reports Available or Lost.
type ProbeMonitor struct {
	check    CheckFunc
	observer *Observer
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewProbeMonitor creates a stopped monitor.
func NewProbeMonitor(check CheckFunc, observer *Observer, interval, timeout time.Duration, logger *slog.Logger) *ProbeMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProbeMonitor{
		check:    check,
		observer: observer,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start probes once and then keeps probing in the background until ctx is
// cancelled or Stop is called. Starting a running monitor is a no-op.
func (m *ProbeMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(ctx, m.done)
}

// Stop halts the background loop and waits for it to exit.
func (m *ProbeMonitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *ProbeMonitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	m.Probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// Probe runs a single check and reports the outcome to the observer. A check
// interrupted by ctx being cancelled is not reported.
func (m *ProbeMonitor) Probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.check(pctx)
	cancel()

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.logger.Debug("store probe failed", "error", err)
		m.observer.Lost()
		return
	}
	m.observer.Available()
}
