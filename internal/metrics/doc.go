// Package metrics collects wall-time statistics for solver runs.
//
// # Basic Usage
//
//	m := metrics.New()
//
//	start := time.Now()
//	// ... run the solver ...
//	m.RecordSuccess(time.Since(start))
//
//	snap := m.Snapshot()
//	fmt.Printf("runs: %d, avg: %v, max: %v\n",
//	    snap.TotalRuns, snap.AverageWall, snap.MaxWall)
//
// # Thread Safety
//
// Counters are atomic and the sample list is guarded by a mutex, so the
// progress server may read a snapshot while the sweep records runs.
package metrics
