package timings

import (
	"sync"
	"testing"
)

type memSink struct {
	mu      sync.Mutex
	samples []Sample
}

func (s *memSink) RecordTiming(x Sample) {
	s.mu.Lock()
	s.samples = append(s.samples, x)
	s.mu.Unlock()
}

func TestTimer_AggregatesAndEmits(t *testing.T) {
	sink := &memSink{}
	ts := New(sink)
	tm := ts.Timer(ChunkEncode)
	if ts.Timer(ChunkEncode) != tm {
		t.Fatalf("timer must be reused by name")
	}
	for i := 0; i < 3; i++ {
		tm.Time(func() {})
	}
	st := tm.Stats()
	if st.Count != 3 || st.Max > st.Total {
		t.Fatalf("stats=%+v", st)
	}
	if len(sink.samples) != 3 || sink.samples[0].Name != ChunkEncode {
		t.Fatalf("samples=%+v", sink.samples)
	}
	snap := ts.Snapshot()
	if len(snap) != 1 || snap[0].Count != 3 {
		t.Fatalf("snapshot=%+v", snap)
	}
}

func TestNilTimings_AreNoOps(t *testing.T) {
	var ts *Timings
	tm := ts.Timer("x")
	tm.Start()()
	if tm.Stats().Count != 0 || ts.Snapshot() != nil {
		t.Fatalf("nil timings must measure nothing")
	}
}
