package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelgate.ai/internal/timings"
)

const hourLayout = "2006-01-02-15"

// segment is one open <prefix>-<hour>.jsonl.zst file. Lines are buffered in
// front of the zstd encoder; the frame is only finished by close.
type segment struct {
	hour  string
	f     *os.File
	enc   *zstd.Encoder
	buf   *bufio.Writer
	lines int
}

func openSegment(path, hour string) (*segment, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{hour: hour, f: f, enc: enc, buf: bufio.NewWriterSize(enc, 64*1024)}, nil
}

func (s *segment) writeLine(b []byte) error {
	if _, err := s.buf.Write(b); err != nil {
		return err
	}
	if err := s.buf.WriteByte('\n'); err != nil {
		return err
	}
	s.lines++
	return nil
}

func (s *segment) flush() error {
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.enc.Flush()
}

func (s *segment) close() error {
	return errors.Join(s.buf.Flush(), s.enc.Close(), s.f.Close())
}

// JSONLZstdWriter appends one JSON document per line to zstd-compressed
// files rotated on the UTC hour. Writes never span two hours: the first
// write of a new hour closes the previous file.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	cur     *segment
	written uint64
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{baseDir: baseDir, prefix: prefix, now: time.Now}
}

func (w *JSONLZstdWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	seg, err := w.segmentLocked(w.now().UTC().Format(hourLayout))
	if err != nil {
		return err
	}
	if err := seg.writeLine(b); err != nil {
		return err
	}
	w.written++
	return nil
}

// Flush makes buffered lines readable by a streaming decoder without ending
// the current file.
func (w *JSONLZstdWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur == nil {
		return nil
	}
	return w.cur.flush()
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Written is the number of lines accepted since construction.
func (w *JSONLZstdWriter) Written() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

func (w *JSONLZstdWriter) segmentLocked(hour string) (*segment, error) {
	if w.cur != nil && w.cur.hour == hour {
		return w.cur, nil
	}
	if err := w.closeLocked(); err != nil {
		return nil, err
	}
	seg, err := openSegment(w.Path(hour), hour)
	if err != nil {
		return nil, err
	}
	w.cur = seg
	return seg, nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	if w.cur == nil {
		return nil
	}
	seg := w.cur
	w.cur = nil
	return seg.close()
}

// Path returns the file that lines written during hour (in hourLayout) go to.
func (w *JSONLZstdWriter) Path(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// TimingLogger is a timings.Sink writing each sample as one line under
// <dataDir>/timings. Write errors are counted, not returned.
type TimingLogger struct {
	w      *JSONLZstdWriter
	failed atomic.Uint64
}

func NewTimingLogger(dataDir string) *TimingLogger {
	return &TimingLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "timings"), "timings")}
}

func (l *TimingLogger) RecordTiming(s timings.Sample) {
	if err := l.w.Write(s); err != nil {
		l.failed.Add(1)
	}
}

func (l *TimingLogger) Failed() uint64  { return l.failed.Load() }
func (l *TimingLogger) Written() uint64 { return l.w.Written() }
func (l *TimingLogger) Flush() error    { return l.w.Flush() }
func (l *TimingLogger) Close() error    { return l.w.Close() }
