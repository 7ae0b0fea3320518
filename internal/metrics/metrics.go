package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// GatewayStats counts gateway calls by operation and outcome, e.g.
// "confirm.gateway_error", and keeps the slowest call per operation.
type GatewayStats struct {
	mu       sync.Mutex
	counters map[string]*Counter
	slowest  map[string]time.Duration
}

func NewGatewayStats() *GatewayStats {
	return &GatewayStats{
		counters: make(map[string]*Counter),
		slowest:  make(map[string]time.Duration),
	}
}

func (s *GatewayStats) Observe(op, outcome string, d time.Duration) {
	s.mu.Lock()
	key := op + "." + outcome
	c, ok := s.counters[key]
	if !ok {
		c = &Counter{}
		s.counters[key] = c
	}
	if d > s.slowest[op] {
		s.slowest[op] = d
	}
	s.mu.Unlock()

	c.Inc()
}

type Snapshot struct {
	Calls     map[string]uint64 `json:"calls"`
	SlowestMS map[string]int64  `json:"slowestMs"`
}

func (s *GatewayStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Calls:     make(map[string]uint64, len(s.counters)),
		SlowestMS: make(map[string]int64, len(s.slowest)),
	}
	for k, c := range s.counters {
		snap.Calls[k] = c.Load()
	}
	for op, d := range s.slowest {
		snap.SlowestMS[op] = d.Milliseconds()
	}
	return snap
}

// Keys lists the counter keys seen so far, sorted.
func (s *GatewayStats) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.counters))
	for k := range s.counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
