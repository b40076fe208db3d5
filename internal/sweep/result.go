package sweep

import (
	"fmt"
	"strings"
	"time"

	"convsweep/internal/metrics"
	"convsweep/internal/summary"
)

// Result はスイープの実行結果
type Result struct {
	SweepID     string
	Project     string
	SummaryPath string

	Rows  []summary.Row
	Table string

	Metrics metrics.Snapshot

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Report は結果をフォーマットして返す
func (r *Result) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, `
================================================================================
                         SWEEP REPORT: %s
================================================================================

EXECUTION SUMMARY
-----------------
  Sweep ID:       %s
  Start Time:     %s
  End Time:       %s
  Duration:       %v
  Summary File:   %s

RUN STATISTICS
--------------
  Total Runs:     %d
  Succeeded:      %d
  Failed:         %d
  Avg Wall:       %v
  Min Wall:       %v
  Max Wall:       %v

COST PER DOF
------------
`,
		r.Project,
		r.SweepID,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.EndTime.Format("2006-01-02 15:04:05"),
		r.Duration.Round(time.Millisecond),
		r.SummaryPath,
		r.Metrics.TotalRuns,
		r.Metrics.SucceededRuns,
		r.Metrics.FailedRuns,
		r.Metrics.AverageWall.Round(time.Millisecond),
		r.Metrics.MinWall.Round(time.Millisecond),
		r.Metrics.MaxWall.Round(time.Millisecond),
	)

	for _, row := range r.Rows {
		fmt.Fprintf(&b, "  %-8s %-45s %12.4e sec\n", row.Degree, row.MeshName, row.CostPerDOF)
	}

	b.WriteString("\n================================================================================")
	return b.String()
}
