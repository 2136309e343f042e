// Package timings measures named operations and fans samples out to sinks.
package timings

import (
	"sort"
	"sync"
	"time"
)

// Well-known timer names.
const (
	CraftingDataCacheRebuild = "craftingDataCacheRebuild"
	ChunkEncode              = "chunkEncode"
)

type Sample struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ns"`
	At       time.Time     `json:"at"`
}

// Sink receives every completed sample. RecordTiming must not block.
type Sink interface {
	RecordTiming(Sample)
}

type Stats struct {
	Name  string        `json:"name"`
	Count uint64        `json:"count"`
	Total time.Duration `json:"total_ns"`
	Max   time.Duration `json:"max_ns"`
}

type Timings struct {
	mu     sync.Mutex
	timers map[string]*Timer
	sinks  []Sink
}

func New(sinks ...Sink) *Timings {
	return &Timings{timers: map[string]*Timer{}, sinks: sinks}
}

func (t *Timings) AddSink(s Sink) {
	t.mu.Lock()
	t.sinks = append(t.sinks, s)
	t.mu.Unlock()
}

// Timer returns the timer for name, creating it on first use. A nil
// *Timings yields a nil *Timer, which measures nothing.
func (t *Timings) Timer(name string) *Timer {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	tm, ok := t.timers[name]
	if !ok {
		tm = &Timer{name: name, owner: t}
		t.timers[name] = tm
	}
	return tm
}

func (t *Timings) Snapshot() []Stats {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	timers := make([]*Timer, 0, len(t.timers))
	for _, tm := range t.timers {
		timers = append(timers, tm)
	}
	t.mu.Unlock()

	out := make([]Stats, 0, len(timers))
	for _, tm := range timers {
		out = append(out, tm.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (t *Timings) emit(s Sample) {
	t.mu.Lock()
	sinks := append([]Sink(nil), t.sinks...)
	t.mu.Unlock()
	for _, sink := range sinks {
		sink.RecordTiming(s)
	}
}

type Timer struct {
	name  string
	owner *Timings

	mu    sync.Mutex
	count uint64
	total time.Duration
	max   time.Duration
}

func (tm *Timer) Name() string { return tm.name }

// Start begins a measurement; the returned func ends it.
func (tm *Timer) Start() func() {
	if tm == nil {
		return func() {}
	}
	start := time.Now()
	return func() { tm.record(start, time.Since(start)) }
}

func (tm *Timer) Time(fn func()) {
	stop := tm.Start()
	defer stop()
	fn()
}

func (tm *Timer) record(at time.Time, d time.Duration) {
	tm.mu.Lock()
	tm.count++
	tm.total += d
	if d > tm.max {
		tm.max = d
	}
	tm.mu.Unlock()
	tm.owner.emit(Sample{Name: tm.name, Duration: d, At: at.UTC()})
}

func (tm *Timer) Stats() Stats {
	if tm == nil {
		return Stats{}
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return Stats{Name: tm.name, Count: tm.count, Total: tm.total, Max: tm.max}
}
