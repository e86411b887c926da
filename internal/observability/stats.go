package observability

import (
	"sync"
	"sync/atomic"
	"time"

	"careersync/pkg/models"
)

// Stats tracks service-wide pipeline counters. All methods are safe for
// concurrent use.
type Stats struct {
	startTime time.Time

	fetchesTotal   atomic.Int64
	fetchesFailed  atomic.Int64
	jobsFetched    atomic.Int64
	recordsDropped atomic.Int64
	syncBatches    atomic.Int64
	syncFailures   atomic.Int64

	mu              sync.RWMutex
	successByMethod map[string]int64
}

// Snapshot is a point-in-time view of the pipeline counters.
type Snapshot struct {
	UptimeSeconds    float64          `json:"uptime_seconds"`
	FetchesTotal     int64            `json:"fetches_total"`
	FetchesSucceeded int64            `json:"fetches_succeeded"`
	FetchesFailed    int64            `json:"fetches_failed"`
	SuccessByMethod  map[string]int64 `json:"success_by_method"`
	JobsFetched      int64            `json:"jobs_fetched"`
	RecordsDropped   int64            `json:"records_dropped"`
	SyncBatches      int64            `json:"sync_batches"`
	SyncFailures     int64            `json:"sync_failures"`
}

// New creates a fresh counter set with the uptime clock starting now.
func New() *Stats {
	return &Stats{
		startTime:       time.Now(),
		successByMethod: make(map[string]int64),
	}
}

var global = New()

// Global returns the process-wide counter set.
func Global() *Stats {
	return global
}

// RecordFetch accounts for one completed fetch envelope.
func (s *Stats) RecordFetch(result *models.JobFetchResult) {
	if result == nil {
		return
	}

	s.fetchesTotal.Add(1)

	if !result.Success {
		s.fetchesFailed.Add(1)
		return
	}

	s.jobsFetched.Add(int64(result.TotalCount))

	s.mu.Lock()
	s.successByMethod[result.Method]++
	s.mu.Unlock()
}

// RecordDropped accounts for raw records discarded during normalization.
func (s *Stats) RecordDropped(count int) {
	if count > 0 {
		s.recordsDropped.Add(int64(count))
	}
}

// RecordSync accounts for one delivery attempt to the downstream consumer.
func (s *Stats) RecordSync(summary *models.SyncSummary, err error) {
	s.syncBatches.Add(1)
	if err != nil || summary == nil || !summary.Success {
		s.syncFailures.Add(1)
	}
}

// Uptime returns how long this counter set has been alive.
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// GetSnapshot returns a copy of all counters.
func (s *Stats) GetSnapshot() Snapshot {
	s.mu.RLock()
	byMethod := make(map[string]int64, len(s.successByMethod))
	var succeeded int64
	for method, count := range s.successByMethod {
		byMethod[method] = count
		succeeded += count
	}
	s.mu.RUnlock()

	return Snapshot{
		UptimeSeconds:    time.Since(s.startTime).Seconds(),
		FetchesTotal:     s.fetchesTotal.Load(),
		FetchesSucceeded: succeeded,
		FetchesFailed:    s.fetchesFailed.Load(),
		SuccessByMethod:  byMethod,
		JobsFetched:      s.jobsFetched.Load(),
		RecordsDropped:   s.recordsDropped.Load(),
		SyncBatches:      s.syncBatches.Load(),
		SyncFailures:     s.syncFailures.Load(),
	}
}
