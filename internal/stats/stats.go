// Package stats keeps in-process counters about reconciliation activity and
// mirrors the headline numbers into redis so they survive restarts.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkrenek/adwatch/internal/logger"
)

// EWMA weight for the running average check duration. Old value dominates so
// one slow pass does not swing the number.
const avgWeight = 0.8

const redisKeyPrefix = "adwatch:stats:"

// TermActivity is the per-term found/deleted tally.
type TermActivity struct {
	Found         int64      `json:"found"`
	Deleted       int64      `json:"deleted"`
	LastFoundAt   *time.Time `json:"last_found_at,omitempty"`
	LastDeletedAt *time.Time `json:"last_deleted_at,omitempty"`
}

// Snapshot is a point-in-time copy of all counters, safe to serve as JSON.
type Snapshot struct {
	Checks       int64                   `json:"checks"`
	TotalFound   int64                   `json:"total_found"`
	TotalDeleted int64                   `json:"total_deleted"`
	AvgCheckMs   float64                 `json:"avg_check_ms"`
	FastestMs    float64                 `json:"fastest_check_ms"`
	SlowestMs    float64                 `json:"slowest_check_ms"`
	LastCheckAt  *time.Time              `json:"last_check_at,omitempty"`
	StartedAt    time.Time               `json:"started_at"`
	UptimeSecs   float64                 `json:"uptime_seconds"`
	Terms        map[string]TermActivity `json:"terms"`
}

// Recorder accumulates check metrics. All methods are safe for concurrent
// use. The redis mirror is best effort: failures are logged and ignored, a
// nil client disables it entirely.
type Recorder struct {
	mu sync.Mutex

	checks       int64
	totalFound   int64
	totalDeleted int64
	avgCheck     time.Duration
	fastest      time.Duration
	slowest      time.Duration
	lastCheckAt  time.Time
	terms        map[string]*TermActivity

	startedAt time.Time
	rdb       *redis.Client
	log       logger.Logger
	now       func() time.Time
}

func NewRecorder(rdb *redis.Client, log logger.Logger) *Recorder {
	return &Recorder{
		terms:     make(map[string]*TermActivity),
		startedAt: time.Now().UTC(),
		rdb:       rdb,
		log:       log,
		now:       time.Now,
	}
}

// RecordCheck folds one completed subscriber pass into the counters.
func (r *Recorder) RecordCheck(ctx context.Context, duration time.Duration) {
	r.mu.Lock()
	r.checks++
	r.lastCheckAt = r.now().UTC()
	if r.checks == 1 {
		r.avgCheck = duration
		r.fastest = duration
		r.slowest = duration
	} else {
		r.avgCheck = time.Duration(avgWeight*float64(r.avgCheck) + (1-avgWeight)*float64(duration))
		if duration < r.fastest {
			r.fastest = duration
		}
		if duration > r.slowest {
			r.slowest = duration
		}
	}
	r.mu.Unlock()

	r.mirror(ctx, "checks", 1)
}

// RecordFound tallies count listings discovered under term.
func (r *Recorder) RecordFound(ctx context.Context, term string, count int) {
	r.mu.Lock()
	r.totalFound += int64(count)
	entry := r.term(term)
	entry.Found += int64(count)
	at := r.now().UTC()
	entry.LastFoundAt = &at
	r.mu.Unlock()

	r.mirror(ctx, "found", int64(count))
}

// RecordDeleted tallies count listings that disappeared under term.
func (r *Recorder) RecordDeleted(ctx context.Context, term string, count int) {
	r.mu.Lock()
	r.totalDeleted += int64(count)
	entry := r.term(term)
	entry.Deleted += int64(count)
	at := r.now().UTC()
	entry.LastDeletedAt = &at
	r.mu.Unlock()

	r.mirror(ctx, "deleted", int64(count))
}

// Snapshot returns a consistent copy of every counter.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Checks:       r.checks,
		TotalFound:   r.totalFound,
		TotalDeleted: r.totalDeleted,
		AvgCheckMs:   float64(r.avgCheck) / float64(time.Millisecond),
		FastestMs:    float64(r.fastest) / float64(time.Millisecond),
		SlowestMs:    float64(r.slowest) / float64(time.Millisecond),
		StartedAt:    r.startedAt,
		UptimeSecs:   r.now().UTC().Sub(r.startedAt).Seconds(),
		Terms:        make(map[string]TermActivity, len(r.terms)),
	}
	if !r.lastCheckAt.IsZero() {
		at := r.lastCheckAt
		snap.LastCheckAt = &at
	}
	for name, entry := range r.terms {
		snap.Terms[name] = *entry
	}
	return snap
}

// term returns the activity entry for name. Caller holds the lock.
func (r *Recorder) term(name string) *TermActivity {
	entry, ok := r.terms[name]
	if !ok {
		entry = &TermActivity{}
		r.terms[name] = entry
	}
	return entry
}

func (r *Recorder) mirror(ctx context.Context, counter string, delta int64) {
	if r.rdb == nil {
		return
	}
	if err := r.rdb.IncrBy(ctx, redisKeyPrefix+counter, delta).Err(); err != nil {
		r.log.Debug("stats mirror write failed",
			logger.String("counter", counter),
			logger.Error(err))
	}
}
