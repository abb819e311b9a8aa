// Package profiler - Per-stage timing for the removal pipeline.
//
// The profiler tracks wall-clock durations per pipeline stage across a batch
// run. It is thread-safe, though the pipeline itself records sequentially.
package profiler

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// TimeTracker tracks timing statistics for one stage.
type TimeTracker struct {
	name      string
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// StageProfiler aggregates per-stage durations.
type StageProfiler struct {
	mu     sync.Mutex
	stages map[string]*TimeTracker
}

// NewStageProfiler creates an empty profiler.
//
// Returns:
//   - *StageProfiler: The profiler.
func NewStageProfiler() *StageProfiler {
	return &StageProfiler{stages: make(map[string]*TimeTracker)}
}

// Track runs fn and records its duration under the given stage name.
//
// Arguments:
//   - stage: The stage name, e.g. "detect" or "inpaint".
//   - fn: The work to time.
//
// Returns:
//   - error: Whatever fn returned.
func (p *StageProfiler) Track(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.Record(stage, time.Since(start))
	return err
}

// Record adds one duration sample for a stage.
//
// Arguments:
//   - stage: The stage name.
//   - d: The measured duration.
func (p *StageProfiler) Record(stage string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, ok := p.stages[stage]
	if !ok {
		tracker = &TimeTracker{name: stage, minTime: d, maxTime: d}
		p.stages[stage] = tracker
	}
	tracker.totalTime += d
	tracker.count++
	if d < tracker.minTime {
		tracker.minTime = d
	}
	if d > tracker.maxTime {
		tracker.maxTime = d
	}
}

// Report formats the collected statistics, one stage per line, ordered by
// stage name.
//
// Returns:
//   - string: The human-readable report.
func (p *StageProfiler) Report() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.stages))
	for name := range p.stages {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		t := p.stages[name]
		avg := time.Duration(0)
		if t.count > 0 {
			avg = t.totalTime / time.Duration(t.count)
		}
		fmt.Fprintf(&b, "%-12s count=%-4d total=%-12s avg=%-12s min=%-12s max=%s\n",
			t.name, t.count, t.totalTime, avg, t.minTime, t.maxTime)
	}
	return b.String()
}
