// internal/browser/page/dirty_test.go
package page

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestDirtyStateStartsDirty(t *testing.T) {
	d := NewDirtyState(0, nil)
	assert.Equal(t, PhaseGenerateLayoutTree, d.Phase())
	assert.True(t, d.MustActNow(), "nothing has been cleaned yet")
}

func TestDirtyStateRequestIsMonotonic(t *testing.T) {
	tests := []struct {
		name     string
		start    Phase
		request  Phase
		expected Phase
	}{
		{"raise from ready", PhaseReady, PhaseLayout, PhaseLayout},
		{"lower request ignored", PhaseLayout, PhasePaint, PhaseLayout},
		{"same phase", PhasePaint, PhasePaint, PhasePaint},
		{"ready request ignored", PhaseGenerateLayoutTree, PhaseReady, PhaseGenerateLayoutTree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &DirtyState{phase: tt.start, window: DefaultCoalesceWindow, now: time.Now}
			d.Request(tt.request)
			assert.Equal(t, tt.expected, d.Phase())
		})
	}
}

func TestDirtyStateMarks(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	d := NewDirtyState(DefaultCoalesceWindow, clock.now)

	d.MarkLayedOut()
	assert.Equal(t, PhaseGenerateLayoutTree, d.Phase(), "only Layout moves to Paint")
	d.MarkPainted()
	assert.Equal(t, PhaseGenerateLayoutTree, d.Phase(), "only Paint moves to Ready")

	d.MarkLayoutTreeGenerated()
	assert.Equal(t, PhasePaint, d.Phase())
	d.MarkPainted()
	assert.Equal(t, PhaseReady, d.Phase())

	d.Request(PhaseLayout)
	d.MarkLayedOut()
	assert.Equal(t, PhasePaint, d.Phase())
}

func TestDirtyStateCoalescing(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	d := NewDirtyState(30*time.Millisecond, clock.now)
	d.MarkLayoutTreeGenerated()
	d.MarkPainted()
	assert.False(t, d.MustActNow(), "nothing is dirty")

	d.Request(PhaseLayout)
	assert.False(t, d.MustActNow(), "inside the window")
	clock.advance(30 * time.Millisecond)
	assert.False(t, d.MustActNow(), "the window is inclusive")
	clock.advance(time.Millisecond)
	assert.True(t, d.MustActNow())

	d.MarkLayedOut()
	d.MarkPainted()
	assert.False(t, d.MustActNow(), "painting restarts the window")
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "generate-layout-tree", PhaseGenerateLayoutTree.String())
	assert.Equal(t, "ready", PhaseReady.String())
	assert.Equal(t, "layout-performed", ProgressLayoutPerformed.String())
}
