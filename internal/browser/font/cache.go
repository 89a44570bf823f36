// internal/browser/font/cache.go
package font

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/xkilldash9x/weblayout/internal/browser/text"
)

type measureKey struct {
	text     string
	size     float64
	hinting  text.Hinting
	features string
}

// measureCache is a bounded least-recently-used map of text measurements.
// It is safe for concurrent use.
type measureCache = lru.Cache[measureKey, text.Size]

func newMeasureCache(limit int) (*measureCache, error) {
	if limit <= 0 {
		limit = DefaultCacheSize
	}
	return lru.New[measureKey, text.Size](limit)
}
