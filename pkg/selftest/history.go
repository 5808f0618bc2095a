package selftest

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// History defaults
const (
	DefaultHistorySize = 64
	DefaultHistoryTTL  = 24 * time.Hour
)

// Entry is a stored report and when it was recorded
type Entry struct {
	Report *Report
	At     time.Time
}

// History keeps the latest report of each suite. Old entries expire and the least
// recently used suite is evicted once Size is reached.
type History struct {
	cache *lru.LRU[string, Entry]
	now   func() time.Time
}

// NewHistory creates a history. Non-positive arguments select the defaults.
func NewHistory(size int, ttl time.Duration) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	return &History{
		cache: lru.NewLRU[string, Entry](size, nil, ttl),
		now:   time.Now,
	}
}

// Record stores report as the latest for its plugin
func (h *History) Record(report *Report) {
	if h == nil || report == nil {
		return
	}
	h.cache.Add(report.Plugin, Entry{Report: report, At: h.now()})
}

// Last returns the latest report of plugin
func (h *History) Last(plugin string) (Entry, bool) {
	if h == nil {
		return Entry{}, false
	}
	return h.cache.Get(plugin)
}

// Plugins lists suites with a stored report, oldest first
func (h *History) Plugins() []string {
	if h == nil {
		return nil
	}
	return h.cache.Keys()
}

// Len returns the number of stored reports
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return h.cache.Len()
}
