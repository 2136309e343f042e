// Package indexdb keeps a queryable SQLite index of timing samples, encoded
// chunk artifacts and the catalogs the server booted with.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelgate.ai/internal/timings"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTiming   atomic.Uint64
	dropArtifact atomic.Uint64
}

type reqKind int

const (
	reqTiming reqKind = iota + 1
	reqArtifact
)

type req struct {
	kind reqKind

	timing   timings.Sample
	artifact ArtifactRow
}

// ArtifactRow summarizes one encoded chunk artifact.
type ArtifactRow struct {
	X, Z        int32
	Protocol    int32
	Dictionary  int32
	Compression string
	SubChunks   int
	PacketBytes int
}

// CatalogRow is one digest-tracked configuration input.
type CatalogRow struct {
	Name   string
	Digest string
	JSON   []byte
}

type Stats struct {
	DropTimingTotal   uint64
	DropArtifactTotal uint64
	QueueDepth        int
	QueueCapacity     int
}

const defaultQueueSize = 65536

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, defaultQueueSize),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS timings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			duration_ns INTEGER NOT NULL,
			at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_timings_name_at ON timings(name, at);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			x INTEGER NOT NULL,
			z INTEGER NOT NULL,
			protocol INTEGER NOT NULL,
			dictionary INTEGER NOT NULL,
			compression TEXT NOT NULL,
			subchunks INTEGER NOT NULL,
			packet_bytes INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_pos ON artifacts(x, z, protocol);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes queued rows and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		if s.db != nil {
			err = s.db.Close()
		}
	})
	return err
}

// RecordTiming implements timings.Sink. Samples are dropped when the writer
// falls behind; the JSONL log remains the source of truth.
func (s *SQLiteIndex) RecordTiming(sample timings.Sample) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqTiming, timing: sample}:
	default:
		s.dropTiming.Add(1)
	}
}

func (s *SQLiteIndex) RecordArtifact(row ArtifactRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqArtifact, artifact: row}:
	default:
		s.dropArtifact.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		DropTimingTotal:   s.dropTiming.Load(),
		DropArtifactTotal: s.dropArtifact.Load(),
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
	}
}

// UpsertCatalogs records the digests of the configuration the process
// loaded. It runs synchronously.
func (s *SQLiteIndex) UpsertCatalogs(rows []CatalogRow) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.Name == "" || r.Digest == "" || len(r.JSON) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.Name, r.Digest, string(r.JSON), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTiming, _ := s.db.Prepare(`INSERT INTO timings(name,duration_ns,at) VALUES(?,?,?)`)
	insertArtifact, _ := s.db.Prepare(`INSERT INTO artifacts(x,z,protocol,dictionary,compression,subchunks,packet_bytes,recorded_at) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertTiming != nil {
			_ = insertTiming.Close()
		}
		if insertArtifact != nil {
			_ = insertArtifact.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTiming:
			if insertTiming == nil {
				continue
			}
			t := r.timing
			if _, err := tx.Stmt(insertTiming).Exec(t.Name, int64(t.Duration), t.At.UTC().Format(time.RFC3339Nano)); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqArtifact:
			if insertArtifact == nil {
				continue
			}
			a := r.artifact
			if _, err := tx.Stmt(insertArtifact).Exec(
				a.X, a.Z,
				a.Protocol,
				a.Dictionary,
				a.Compression,
				a.SubChunks,
				a.PacketBytes,
				time.Now().UTC().Format(time.RFC3339Nano),
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

