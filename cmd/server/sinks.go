package main

import (
	"log"
	"path/filepath"

	"voxelgate.ai/internal/config"
	"voxelgate.ai/internal/persistence/indexdb"
	persistlog "voxelgate.ai/internal/persistence/log"
	"voxelgate.ai/internal/timings"
)

// timingSinks owns the persistent timing sinks selected by config.
type timingSinks struct {
	index  *indexdb.SQLiteIndex
	jsonl  *persistlog.TimingLogger
	logger *log.Logger
}

func openSinks(cfg config.Config, logger *log.Logger) (*timingSinks, error) {
	s := &timingSinks{logger: logger}
	if cfg.Sinks.IndexDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(cfg.DataDir, "index", "timings.sqlite"))
		if err != nil {
			return nil, err
		}
		s.index = idx
	} else {
		logger.Printf("timing index disabled")
	}
	if cfg.Sinks.TimingLog {
		s.jsonl = persistlog.NewTimingLogger(cfg.DataDir)
	}
	return s, nil
}

func (s *timingSinks) list() []timings.Sink {
	var out []timings.Sink
	if s.index != nil {
		out = append(out, s.index)
	}
	if s.jsonl != nil {
		out = append(out, s.jsonl)
	}
	return out
}

func (s *timingSinks) Close() {
	if s.jsonl != nil {
		if err := s.jsonl.Close(); err != nil {
			s.logger.Printf("timing log close: %v", err)
		}
		if n := s.jsonl.Failed(); n > 0 {
			s.logger.Printf("timing log: %d samples failed to write", n)
		}
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			s.logger.Printf("timing index close: %v", err)
		}
	}
}
