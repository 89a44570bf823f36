// internal/browser/images/table.go
package images

import (
	"net/url"

	"go.uber.org/zap"
)

// State is the loading state of one image URL.
type State uint8

const (
	StatePending State = iota + 1
	StateDecoded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDecoded:
		return "decoded"
	case StateFailed:
		return "failed"
	}
	return "absent"
}

type entry struct {
	state State
	image *Image
}

// Table tracks images by absolute URL. It is owned by a single task and
// is not safe for concurrent use.
type Table struct {
	log     *zap.Logger
	entries map[string]*entry
	request func(u *url.URL)
}

// NewTable creates a table. request is called once for every URL the
// first time its size is asked for; it must not block.
func NewTable(log *zap.Logger, request func(u *url.URL)) *Table {
	if log == nil {
		log = zap.NewNop()
	}
	return &Table{log: log.Named("images"), entries: make(map[string]*entry), request: request}
}

// NaturalSize returns the decoded size of the image at u. Unknown URLs are
// requested and reported as not ready.
func (t *Table) NaturalSize(u *url.URL) (width, height float64, ok bool) {
	key := u.String()
	e, found := t.entries[key]
	if !found {
		t.entries[key] = &entry{state: StatePending}
		if t.request != nil {
			t.request(u)
		}
		return 0, 0, false
	}
	if e.state != StateDecoded {
		return 0, 0, false
	}
	return float64(e.image.Width), float64(e.image.Height), true
}

// Resolve records the outcome of a load. It reports whether the entry was
// pending, so a duplicate or unrequested result changes nothing.
func (t *Table) Resolve(u *url.URL, img *Image, err error) bool {
	key := u.String()
	e, found := t.entries[key]
	if !found || e.state != StatePending {
		return false
	}
	if err != nil {
		e.state = StateFailed
		t.log.Warn("Image failed to load", zap.String("url", key), zap.Error(err))
		return true
	}
	e.state, e.image = StateDecoded, img
	t.log.Debug("Image decoded", zap.String("url", key), zap.String("format", img.Format), zap.Int("width", img.Width), zap.Int("height", img.Height))
	return true
}

// State returns the state of u, or zero if it was never requested.
func (t *Table) State(u *url.URL) State {
	if e, ok := t.entries[u.String()]; ok {
		return e.state
	}
	return 0
}

// Image returns the decoded image at u.
func (t *Table) Image(u *url.URL) (*Image, bool) {
	e, ok := t.entries[u.String()]
	if !ok || e.state != StateDecoded {
		return nil, false
	}
	return e.image, true
}

// Pending reports how many images are still loading.
func (t *Table) Pending() int {
	n := 0
	for _, e := range t.entries {
		if e.state == StatePending {
			n++
		}
	}
	return n
}
