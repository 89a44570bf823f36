// internal/browser/page/dirty.go
package page

import "time"

// DefaultCoalesceWindow is the longest a dirty phase waits for further
// requests before it must be cleaned.
const DefaultCoalesceWindow = 30 * time.Millisecond

// Phase is the most expensive pipeline stage that must run again. Phases are
// ordered: requesting a phase also covers every cheaper one.
type Phase uint8

const (
	PhaseReady Phase = iota
	PhasePaint
	PhaseLayout
	PhaseGenerateLayoutTree
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhasePaint:
		return "paint"
	case PhaseLayout:
		return "layout"
	case PhaseGenerateLayoutTree:
		return "generate-layout-tree"
	}
	return "unknown"
}

// DirtyState merges invalidation requests and decides when the owning task
// has to act on them.
type DirtyState struct {
	phase     Phase
	lastClean time.Time
	cleaned   bool
	window    time.Duration
	now       func() time.Time
}

// NewDirtyState starts at PhaseGenerateLayoutTree with no clean recorded. A
// nil clock uses time.Now.
func NewDirtyState(window time.Duration, now func() time.Time) *DirtyState {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = DefaultCoalesceWindow
	}
	return &DirtyState{phase: PhaseGenerateLayoutTree, window: window, now: now}
}

// Phase returns the current phase.
func (d *DirtyState) Phase() Phase { return d.phase }

// Request raises the phase to p. It never lowers it.
func (d *DirtyState) Request(p Phase) {
	if p > d.phase {
		d.phase = p
	}
}

// MarkLayoutTreeGenerated records a generation, which includes layout.
func (d *DirtyState) MarkLayoutTreeGenerated() {
	d.phase = PhasePaint
}

// MarkLayedOut moves Layout to Paint and leaves any other phase alone.
func (d *DirtyState) MarkLayedOut() {
	if d.phase == PhaseLayout {
		d.phase = PhasePaint
	}
}

// MarkPainted moves Paint to Ready and records the time of the clean.
func (d *DirtyState) MarkPainted() {
	if d.phase == PhasePaint {
		d.phase = PhaseReady
		d.lastClean = d.now()
		d.cleaned = true
	}
}

// MustActNow reports whether the pending work may not wait any longer.
func (d *DirtyState) MustActNow() bool {
	if !d.cleaned {
		return true
	}
	return d.phase != PhaseReady && d.now().Sub(d.lastClean) > d.window
}
