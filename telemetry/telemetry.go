// Package telemetry collects in-process statement statistics for sqlwrap.
package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// KindStats aggregates the statements of one kind.
type KindStats struct {
	Kind     string        `json:"kind" yaml:"kind"`
	Count    int64         `json:"count" yaml:"count"`
	Errors   int64         `json:"errors" yaml:"errors"`
	Total    time.Duration `json:"total" yaml:"total"`
	Slowest  time.Duration `json:"slowest" yaml:"slowest"`
	LastUsed time.Time     `json:"last_used" yaml:"last_used"`
}

// Average returns the mean duration of the recorded statements.
func (s KindStats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Collector records statement counts and durations. It is safe for
// concurrent use.
type Collector struct {
	mu    sync.Mutex
	kinds map[string]*KindStats
	now   func() time.Time
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		kinds: make(map[string]*KindStats),
		now:   time.Now,
	}
}

// Record adds one statement execution.
func (c *Collector) Record(query string, duration time.Duration, err error) {
	kind := StatementKind(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.kinds[kind]
	if !ok {
		s = &KindStats{Kind: kind}
		c.kinds[kind] = s
	}
	s.Count++
	s.Total += duration
	if duration > s.Slowest {
		s.Slowest = duration
	}
	if err != nil {
		s.Errors++
	}
	s.LastUsed = c.now()
}

// Snapshot returns a copy of the statistics ordered by kind.
func (c *Collector) Snapshot() []KindStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]KindStats, 0, len(c.kinds))
	for _, s := range c.kinds {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Reset drops all recorded statistics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kinds = make(map[string]*KindStats)
}

// StatementKind classifies a statement by its leading keyword, e.g.
// "SELECT" or "SAVEPOINT". Prepared statements without text are "STMT".
func StatementKind(query string) string {
	query = strings.TrimLeft(query, " \t\r\n(")
	if query == "" {
		return "STMT"
	}
	end := strings.IndexFunc(query, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end == 0 {
		return "OTHER"
	}
	if end > 0 {
		query = query[:end]
	}
	return strings.ToUpper(query)
}
