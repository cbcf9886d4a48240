package security

import (
	"container/list"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultMaxEntries bounds the number of client keys tracked at once.
	DefaultMaxEntries = 10000

	// DefaultSweepInterval is how often expired windows are swept.
	DefaultSweepInterval = 60 * time.Second
)

// rateLimitRecord is the fixed-window counter kept for one client key.
type rateLimitRecord struct {
	key       string
	count     int
	resetTime time.Time
}

// Record is a read-only snapshot of a client key's current window.
type Record struct {
	Count     int
	ResetTime time.Time
}

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	// MaxEntries bounds the table. Zero means DefaultMaxEntries.
	MaxEntries int

	// SweepInterval is the period of the background sweep started by Start.
	// Zero means DefaultSweepInterval.
	SweepInterval time.Duration

	// Clock is the time source for windows. Nil means SystemClock.
	Clock Clock

	// Logger for eviction and sweep diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// RateLimiter provides per-key fixed-window rate limiting with strict LRU
// eviction to keep memory bounded under address-rotating attacks.
//
// The table is process-local. Instances behind a load balancer each keep their
// own counters.
type RateLimiter struct {
	records       map[string]*list.Element // key -> element holding *rateLimitRecord
	lruList       *list.List               // front is least recently used
	mu            sync.Mutex
	maxEntries    int
	sweepInterval time.Duration
	clock         Clock
	logger        *slog.Logger

	lifecycleMu sync.Mutex
	stopSweep   chan struct{}
	sweepDone   chan struct{}

	// Statistics
	totalEvictions int64
	totalSweeps    int64
}

// NewRateLimiter creates a rate limiter with default bounds.
// The background sweep is not running until Start is called.
func NewRateLimiter(logger *slog.Logger) *RateLimiter {
	return NewRateLimiterWithConfig(RateLimiterConfig{Logger: logger})
}

// NewRateLimiterWithConfig creates a rate limiter with custom bounds.
func NewRateLimiterWithConfig(cfg RateLimiterConfig) *RateLimiter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		if maxEntries < 0 {
			logger.Warn("Invalid maxEntries, using default", "maxEntries", DefaultMaxEntries)
		}
		maxEntries = DefaultMaxEntries
	}
	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	return &RateLimiter{
		records:       make(map[string]*list.Element),
		lruList:       list.New(),
		maxEntries:    maxEntries,
		sweepInterval: sweepInterval,
		clock:         clockOrDefault(cfg.Clock),
		logger:        logger,
	}
}

// Admit records one attempt for key and reports whether it is within limit
// for the current window. The key is sanitized before use.
//
// A missing or elapsed window is replaced by a fresh one counting this attempt.
// Otherwise the attempt is admitted only while count < limit, and the count is
// incremented on admission. Every call makes key the most recently used entry.
func (rl *RateLimiter) Admit(key string, limit int, window time.Duration) bool {
	key = SanitizeKey(key)
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if elem, exists := rl.records[key]; exists {
		rl.lruList.MoveToBack(elem)
		rec := elem.Value.(*rateLimitRecord)

		if IsWindowElapsed(now, rec.resetTime) {
			rec.count = 1
			rec.resetTime = now.Add(window)
			return true
		}
		if rec.count >= limit {
			return false
		}
		rec.count++
		return true
	}

	if len(rl.records) >= rl.maxEntries {
		rl.evictLRU()
	}

	rec := &rateLimitRecord{
		key:       key,
		count:     1,
		resetTime: now.Add(window),
	}
	rl.records[key] = rl.lruList.PushBack(rec)
	return true
}

// evictLRU removes the single least recently used entry.
// Must be called with mutex locked.
func (rl *RateLimiter) evictLRU() {
	elem := rl.lruList.Front()
	if elem == nil {
		return
	}

	rec := elem.Value.(*rateLimitRecord)
	delete(rl.records, rec.key)
	rl.lruList.Remove(elem)
	rl.totalEvictions++

	rl.logger.Debug("Rate limiter LRU eviction",
		"key", rec.key,
		"total_evictions", rl.totalEvictions,
		"current_entries", len(rl.records))
}

// Sweep removes every record whose window has elapsed and returns how many
// were removed.
func (rl *RateLimiter) Sweep() int {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	var next *list.Element
	for elem := rl.lruList.Front(); elem != nil; elem = next {
		next = elem.Next()
		rec := elem.Value.(*rateLimitRecord)

		if IsWindowElapsed(now, rec.resetTime) {
			delete(rl.records, rec.key)
			rl.lruList.Remove(elem)
			removed++
		}
	}

	rl.totalSweeps++
	if removed > 0 {
		rl.logger.Debug("Rate limiter sweep completed",
			"removed", removed,
			"remaining", len(rl.records),
			"total_sweeps", rl.totalSweeps)
	}
	return removed
}

// Start launches the periodic sweep. Calling Start on a running limiter is a
// no-op, so at most one sweeper goroutine exists per limiter.
func (rl *RateLimiter) Start() {
	rl.lifecycleMu.Lock()
	defer rl.lifecycleMu.Unlock()

	if rl.stopSweep != nil {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	rl.stopSweep = stop
	rl.sweepDone = done

	go rl.sweepLoop(stop, done)
}

// Stop terminates the periodic sweep and waits for it to exit.
// It is safe to call more than once; the limiter can be started again.
func (rl *RateLimiter) Stop() {
	rl.lifecycleMu.Lock()
	defer rl.lifecycleMu.Unlock()

	if rl.stopSweep == nil {
		return
	}

	close(rl.stopSweep)
	<-rl.sweepDone
	rl.stopSweep = nil
	rl.sweepDone = nil
}

// Running reports whether the periodic sweep is active.
func (rl *RateLimiter) Running() bool {
	rl.lifecycleMu.Lock()
	defer rl.lifecycleMu.Unlock()
	return rl.stopSweep != nil
}

func (rl *RateLimiter) sweepLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(rl.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Sweep()
		case <-stop:
			return
		}
	}
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.records)
}

// Keys returns the tracked keys from least to most recently used.
func (rl *RateLimiter) Keys() []string {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	keys := make([]string, 0, rl.lruList.Len())
	for elem := rl.lruList.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*rateLimitRecord).key)
	}
	return keys
}

// Record returns a snapshot of the window for key without touching it.
func (rl *RateLimiter) Record(key string) (Record, bool) {
	key = SanitizeKey(key)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	elem, exists := rl.records[key]
	if !exists {
		return Record{}, false
	}
	rec := elem.Value.(*rateLimitRecord)
	return Record{Count: rec.count, ResetTime: rec.resetTime}, true
}

// Stats holds rate limiter statistics for monitoring
type Stats struct {
	CurrentEntries int     // Current number of tracked keys
	MaxEntries     int     // Maximum allowed entries
	TotalEvictions int64   // Total number of LRU evictions
	TotalSweeps    int64   // Total number of sweep passes
	MemoryPressure float64 // Percentage of max capacity used (0-100)
}

// GetStats returns current rate limiter statistics for monitoring and alerting.
func (rl *RateLimiter) GetStats() Stats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return Stats{
		CurrentEntries: len(rl.records),
		MaxEntries:     rl.maxEntries,
		TotalEvictions: rl.totalEvictions,
		TotalSweeps:    rl.totalSweeps,
		MemoryPressure: float64(len(rl.records)) / float64(rl.maxEntries) * 100.0,
	}
}
