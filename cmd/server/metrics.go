package main

import (
	"fmt"
	"io"

	"voxelgate.ai/internal/cache"
	"voxelgate.ai/internal/chunkreq"
	"voxelgate.ai/internal/persistence/indexdb"
	"voxelgate.ai/internal/timings"
)

func writeMetrics(w io.Writer, ts *timings.Timings, p *chunkreq.Pipeline, cc *cache.CraftingDataCache, idx *indexdb.SQLiteIndex) {
	fmt.Fprintf(w, "# HELP voxelgate_timer_count Completed measurements per timer.\n")
	fmt.Fprintf(w, "# TYPE voxelgate_timer_count counter\n")
	for _, st := range ts.Snapshot() {
		fmt.Fprintf(w, "voxelgate_timer_count{timer=%q} %d\n", st.Name, st.Count)
	}
	fmt.Fprintf(w, "# HELP voxelgate_timer_seconds_total Total measured time per timer.\n")
	fmt.Fprintf(w, "# TYPE voxelgate_timer_seconds_total counter\n")
	for _, st := range ts.Snapshot() {
		fmt.Fprintf(w, "voxelgate_timer_seconds_total{timer=%q} %.6f\n", st.Name, st.Total.Seconds())
	}
	fmt.Fprintf(w, "# HELP voxelgate_timer_max_seconds Longest single measurement per timer.\n")
	fmt.Fprintf(w, "# TYPE voxelgate_timer_max_seconds gauge\n")
	for _, st := range ts.Snapshot() {
		fmt.Fprintf(w, "voxelgate_timer_max_seconds{timer=%q} %.6f\n", st.Name, st.Max.Seconds())
	}

	fmt.Fprintf(w, "# HELP voxelgate_chunk_pipeline_in_flight Submitted chunk encodes not yet delivered.\n")
	fmt.Fprintf(w, "# TYPE voxelgate_chunk_pipeline_in_flight gauge\n")
	fmt.Fprintf(w, "voxelgate_chunk_pipeline_in_flight %d\n", p.InFlight())

	fmt.Fprintf(w, "# HELP voxelgate_crafting_cache_entries Recipe sets with a cached crafting entry.\n")
	fmt.Fprintf(w, "# TYPE voxelgate_crafting_cache_entries gauge\n")
	fmt.Fprintf(w, "voxelgate_crafting_cache_entries %d\n", cc.Len())

	fmt.Fprintf(w, "# HELP voxelgate_crafting_cache_rebuilds_total Crafting data rebuilds.\n")
	fmt.Fprintf(w, "# TYPE voxelgate_crafting_cache_rebuilds_total counter\n")
	fmt.Fprintf(w, "voxelgate_crafting_cache_rebuilds_total %d\n", cc.Rebuilds())

	if idx == nil {
		return
	}
	st := idx.Stats()
	fmt.Fprintf(w, "# HELP voxelgate_index_dropped_total Rows dropped because the index writer fell behind.\n")
	fmt.Fprintf(w, "# TYPE voxelgate_index_dropped_total counter\n")
	fmt.Fprintf(w, "voxelgate_index_dropped_total{kind=%q} %d\n", "timing", st.DropTimingTotal)
	fmt.Fprintf(w, "voxelgate_index_dropped_total{kind=%q} %d\n", "artifact", st.DropArtifactTotal)
	fmt.Fprintf(w, "# HELP voxelgate_index_queue_depth Index writer backlog.\n")
	fmt.Fprintf(w, "# TYPE voxelgate_index_queue_depth gauge\n")
	fmt.Fprintf(w, "voxelgate_index_queue_depth %d\n", st.QueueDepth)
}
