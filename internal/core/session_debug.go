// Session bookkeeping: operation counters and timing
package core

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Stats counts the work a Session has done. Tests use it to observe
// memoization.
type Stats struct {
	KernelBuilds    int64
	CompositeBuilds int64
	CacheHits       int64
	Failures        int64
}

// SessionOperation is one timed unit of work.
type SessionOperation struct {
	Timestamp time.Time
	Operation string // "build_kernel", "composite", "cache_hit"
	Sigma     float64
	Success   bool
	Duration  time.Duration
	Error     string
}

const maxRecordedOperations = 256

type sessionTracker struct {
	logger *slog.Logger

	kernelBuilds    atomic.Int64
	compositeBuilds atomic.Int64
	cacheHits       atomic.Int64
	failures        atomic.Int64

	mu         sync.Mutex
	operations []SessionOperation
}

func newSessionTracker(logger *slog.Logger) *sessionTracker {
	return &sessionTracker{
		logger:     logger,
		operations: make([]SessionOperation, 0),
	}
}

func (st *sessionTracker) record(operation string, sigma float64, duration time.Duration, err error) {
	switch {
	case err != nil:
		st.failures.Add(1)
	case operation == "build_kernel":
		st.kernelBuilds.Add(1)
	case operation == "composite":
		st.compositeBuilds.Add(1)
	case operation == "cache_hit":
		st.cacheHits.Add(1)
	}

	op := SessionOperation{
		Timestamp: time.Now(),
		Operation: operation,
		Sigma:     sigma,
		Success:   err == nil,
		Duration:  duration,
	}
	if err != nil {
		op.Error = err.Error()
	}

	st.mu.Lock()
	if len(st.operations) == maxRecordedOperations {
		st.operations = st.operations[1:]
	}
	st.operations = append(st.operations, op)
	st.mu.Unlock()

	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	st.logger.Log(context.Background(), level, "SESSION: "+operation,
		"sigma", sigma,
		"success", err == nil,
		"duration_ms", duration.Milliseconds(),
		"error", op.Error)
}

func (st *sessionTracker) stats() Stats {
	return Stats{
		KernelBuilds:    st.kernelBuilds.Load(),
		CompositeBuilds: st.compositeBuilds.Load(),
		CacheHits:       st.cacheHits.Load(),
		Failures:        st.failures.Load(),
	}
}

func (st *sessionTracker) history() []SessionOperation {
	st.mu.Lock()
	defer st.mu.Unlock()

	result := make([]SessionOperation, len(st.operations))
	copy(result, st.operations)
	return result
}
