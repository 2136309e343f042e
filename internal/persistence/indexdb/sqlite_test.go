package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"voxelgate.ai/internal/timings"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTiming}

	s.RecordTiming(timings.Sample{Name: timings.ChunkEncode})
	s.RecordArtifact(ArtifactRow{X: 1})

	st := s.Stats()
	if st.DropTimingTotal != 1 {
		t.Fatalf("DropTimingTotal=%d want=1", st.DropTimingTotal)
	}
	if st.DropArtifactTotal != 1 {
		t.Fatalf("DropArtifactTotal=%d want=1", st.DropArtifactTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_TimingsSinkPersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.sqlite")
	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	ts := timings.New(idx)
	tm := ts.Timer(timings.CraftingDataCacheRebuild)
	for i := 0; i < 3; i++ {
		tm.Time(func() {})
	}
	idx.RecordArtifact(ArtifactRow{X: 2, Z: -1, Protocol: 671, Dictionary: 671, Compression: "zstd", SubChunks: 4, PacketBytes: 120})
	if err := idx.UpsertCatalogs([]CatalogRow{{Name: "recipes", Digest: "abc", JSON: []byte(`[]`)}, {Name: "skipped"}}); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	idx.RecordTiming(timings.Sample{Name: "late", At: time.Now()})

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM timings WHERE name = ?`, timings.CraftingDataCacheRebuild).Scan(&n); err != nil || n != 3 {
		t.Fatalf("timings=%d err=%v", n, err)
	}
	var subchunks, bytes int
	if err := db.QueryRow(`SELECT subchunks, packet_bytes FROM artifacts WHERE x = 2 AND z = -1`).Scan(&subchunks, &bytes); err != nil {
		t.Fatalf("artifact row: %v", err)
	}
	if subchunks != 4 || bytes != 120 {
		t.Fatalf("artifact=%d/%d", subchunks, bytes)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM catalogs`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("catalogs=%d err=%v", n, err)
	}
}
