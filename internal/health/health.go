// Package health supervises the agent's external dependencies: the
// model backend and the MCP server subprocesses. Each monitor probes
// one target, backing off exponentially while it is down and settling
// into steady polling once it answers.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Probe checks one target. A nil return means healthy. Must be safe
// for concurrent use.
type Probe func(ctx context.Context) error

// Config tunes a single monitor.
type Config struct {
	// Name identifies the target in logs and status output.
	Name string

	// Probe checks the target.
	Probe Probe

	// Interval is the steady-state poll period once the target is up
	// (default 60s).
	Interval time.Duration

	// RetryFloor and RetryCeil bound the backoff while the target is
	// down: the delay starts at RetryFloor and doubles up to RetryCeil
	// (defaults 2s and 60s).
	RetryFloor time.Duration
	RetryCeil  time.Duration

	// ProbeTimeout bounds one probe call (default 10s).
	ProbeTimeout time.Duration

	// OnUp fires on the down-to-up transition, OnDown on up-to-down.
	// Both run on the monitor goroutine. Optional.
	OnUp   func()
	OnDown func(err error)

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 60 * time.Second
	}
	if c.RetryFloor <= 0 {
		c.RetryFloor = 2 * time.Second
	}
	if c.RetryCeil <= 0 {
		c.RetryCeil = 60 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Status is a point-in-time snapshot of one monitored target.
type Status struct {
	Name      string    `json:"name"`
	Up        bool      `json:"up"`
	LastCheck time.Time `json:"last_check"`
	LastError string    `json:"last_error,omitempty"`
}

// Monitor watches a single target.
type Monitor struct {
	cfg    Config
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	up        bool
	checked   bool
	lastCheck time.Time
	lastErr   error
}

// Start launches a monitor. It runs until ctx is cancelled or Stop is
// called. Name and Probe are required.
func Start(ctx context.Context, cfg Config) *Monitor {
	if cfg.Name == "" || cfg.Probe == nil {
		panic("health: Config.Name and Config.Probe are required")
	}
	cfg.applyDefaults()

	runCtx, cancel := context.WithCancel(ctx)
	m := &Monitor{
		cfg:    cfg,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go m.run(runCtx)
	return m
}

// Up reports whether the target answered its most recent probe.
func (m *Monitor) Up() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.up
}

// Status returns the current snapshot.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Status{
		Name:      m.cfg.Name,
		Up:        m.up,
		LastCheck: m.lastCheck,
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

// Stop cancels the monitor and waits for its goroutine to exit.
func (m *Monitor) Stop() {
	m.cancel()
	<-m.done
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	delay := m.cfg.RetryFloor
	for {
		err := m.probe(ctx)
		if ctx.Err() != nil {
			return
		}
		m.record(err)

		var next time.Duration
		if err == nil {
			next = m.cfg.Interval
			delay = m.cfg.RetryFloor
		} else {
			next = delay
			delay *= 2
			if delay > m.cfg.RetryCeil {
				delay = m.cfg.RetryCeil
			}
		}

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (m *Monitor) probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()
	return m.cfg.Probe(probeCtx)
}

// record stores the outcome and fires transition callbacks. The first
// probe counts as a transition so callers learn the initial state.
func (m *Monitor) record(err error) {
	m.mu.Lock()
	wasUp, wasChecked := m.up, m.checked
	m.up = err == nil
	m.checked = true
	m.lastErr = err
	m.lastCheck = time.Now()
	m.mu.Unlock()

	switch {
	case err == nil && (!wasUp || !wasChecked):
		m.cfg.Logger.Info("target reachable", "target", m.cfg.Name)
		if m.cfg.OnUp != nil {
			m.cfg.OnUp()
		}
	case err != nil && (wasUp || !wasChecked):
		m.cfg.Logger.Warn("target unreachable", "target", m.cfg.Name, "err", err)
		if m.cfg.OnDown != nil {
			m.cfg.OnDown(err)
		}
	case err != nil:
		m.cfg.Logger.Debug("target still unreachable", "target", m.cfg.Name, "err", err)
	}
}

// Set groups monitors so they can be inspected and stopped together.
type Set struct {
	mu       sync.Mutex
	monitors map[string]*Monitor
}

// NewSet creates an empty monitor set.
func NewSet() *Set {
	return &Set{monitors: make(map[string]*Monitor)}
}

// Watch starts a monitor and adds it to the set. A monitor already
// registered under the same name is stopped and replaced.
func (s *Set) Watch(ctx context.Context, cfg Config) *Monitor {
	m := Start(ctx, cfg)
	s.mu.Lock()
	old := s.monitors[cfg.Name]
	s.monitors[cfg.Name] = m
	s.mu.Unlock()
	if old != nil {
		old.Stop()
	}
	return m
}

// Statuses snapshots every monitor in the set.
func (s *Set) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.monitors))
	for _, m := range s.monitors {
		out = append(out, m.Status())
	}
	return out
}

// Stop shuts down every monitor and waits for them to exit.
func (s *Set) Stop() {
	s.mu.Lock()
	monitors := make([]*Monitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		monitors = append(monitors, m)
	}
	s.monitors = make(map[string]*Monitor)
	s.mu.Unlock()

	for _, m := range monitors {
		m.Stop()
	}
}
