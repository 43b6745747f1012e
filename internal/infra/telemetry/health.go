package telemetry

import (
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// HealthTracker aggregates loop heartbeats and on-demand checks into one report.
type HealthTracker struct {
	mu     sync.Mutex
	beats  map[string]*Heartbeat
	checks map[string]func() error
	now    func() time.Time
}

// Heartbeat is a registered loop. A loop is stale once no beat arrived within its timeout.
type Heartbeat struct {
	tracker *HealthTracker
	name    string
	timeout time.Duration
	last    time.Time
}

// HealthCheck is one entry of a HealthReport.
type HealthCheck struct {
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	LastBeat time.Time `json:"lastBeat,omitzero"`
	Message  string    `json:"message,omitempty"`
}

type HealthReport struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks,omitempty"`
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		beats:  make(map[string]*Heartbeat),
		checks: make(map[string]func() error),
		now:    time.Now,
	}
}

// Register adds a heartbeat. Registration counts as the first beat.
func (t *HealthTracker) Register(name string, timeout time.Duration) *Heartbeat {
	t.mu.Lock()
	defer t.mu.Unlock()
	hb := &Heartbeat{tracker: t, name: name, timeout: timeout, last: t.now()}
	t.beats[name] = hb
	return hb
}

// SetCheck installs a named check evaluated on every Report. A nil fn removes it.
func (t *HealthTracker) SetCheck(name string, fn func() error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fn == nil {
		delete(t.checks, name)
		return
	}
	t.checks[name] = fn
}

func (h *Heartbeat) Beat() {
	if h == nil {
		return
	}
	h.tracker.mu.Lock()
	h.last = h.tracker.now()
	h.tracker.mu.Unlock()
}

// Stop unregisters the heartbeat.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.tracker.mu.Lock()
	defer h.tracker.mu.Unlock()
	if current, ok := h.tracker.beats[h.name]; ok && current == h {
		delete(h.tracker.beats, h.name)
	}
}

func (t *HealthTracker) Report() HealthReport {
	t.mu.Lock()
	now := t.now()
	entries := make([]HealthCheck, 0, len(t.beats)+len(t.checks))
	for name, hb := range t.beats {
		entry := HealthCheck{Name: name, Status: HealthStatusOK, LastBeat: hb.last}
		if hb.timeout > 0 && now.Sub(hb.last) > hb.timeout {
			entry.Status = HealthStatusDegraded
			entry.Message = "heartbeat stale"
		}
		entries = append(entries, entry)
	}
	checks := make(map[string]func() error, len(t.checks))
	for name, fn := range t.checks {
		checks[name] = fn
	}
	t.mu.Unlock()

	// Checks run without the lock; they may be slow.
	for name, fn := range checks {
		entry := HealthCheck{Name: name, Status: HealthStatusOK}
		if err := fn(); err != nil {
			entry.Status = HealthStatusDegraded
			entry.Message = err.Error()
		}
		entries = append(entries, entry)
	}

	slices.SortFunc(entries, func(a, b HealthCheck) int {
		return strings.Compare(a.Name, b.Name)
	})
	report := HealthReport{Status: HealthStatusOK, Checks: entries}
	for _, entry := range entries {
		if entry.Status != HealthStatusOK {
			report.Status = HealthStatusDegraded
			break
		}
	}
	return report
}
