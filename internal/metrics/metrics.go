package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics はソルバー実行のメトリクスを収集する
type Metrics struct {
	totalRuns     atomic.Uint64
	succeededRuns atomic.Uint64
	failedRuns    atomic.Uint64
	totalWallNs   atomic.Uint64

	mu        sync.RWMutex
	startTime time.Time
	walls     []time.Duration
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return &Metrics{
		startTime: time.Now(),
		walls:     make([]time.Duration, 0, 16),
	}
}

// RecordSuccess は成功した実行を記録する
func (m *Metrics) RecordSuccess(wall time.Duration) {
	m.totalRuns.Add(1)
	m.succeededRuns.Add(1)
	m.totalWallNs.Add(uint64(wall.Nanoseconds()))

	m.mu.Lock()
	m.walls = append(m.walls, wall)
	m.mu.Unlock()
}

// RecordFailure は失敗した実行を記録する
func (m *Metrics) RecordFailure(wall time.Duration) {
	m.totalRuns.Add(1)
	m.failedRuns.Add(1)
	m.totalWallNs.Add(uint64(wall.Nanoseconds()))
}

// TotalRuns は総実行数を返す
func (m *Metrics) TotalRuns() uint64 {
	return m.totalRuns.Load()
}

// SucceededRuns は成功した実行数を返す
func (m *Metrics) SucceededRuns() uint64 {
	return m.succeededRuns.Load()
}

// FailedRuns は失敗した実行数を返す
func (m *Metrics) FailedRuns() uint64 {
	return m.failedRuns.Load()
}

// TotalWall は全実行の合計時間を返す
func (m *Metrics) TotalWall() time.Duration {
	return time.Duration(m.totalWallNs.Load())
}

// AverageWall は1回あたりの平均実行時間を返す
func (m *Metrics) AverageWall() time.Duration {
	total := m.totalRuns.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalWallNs.Load() / total)
}

// MinMaxWall は成功した実行の最短・最長時間を返す
func (m *Metrics) MinMaxWall() (time.Duration, time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.walls) == 0 {
		return 0, 0
	}
	sorted := make([]time.Duration, len(m.walls))
	copy(sorted, m.walls)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	return sorted[0], sorted[len(sorted)-1]
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	TotalRuns     uint64
	SucceededRuns uint64
	FailedRuns    uint64
	TotalWall     time.Duration
	AverageWall   time.Duration
	MinWall       time.Duration
	MaxWall       time.Duration
	Elapsed       time.Duration
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	minWall, maxWall := m.MinMaxWall()
	return Snapshot{
		TotalRuns:     m.TotalRuns(),
		SucceededRuns: m.SucceededRuns(),
		FailedRuns:    m.FailedRuns(),
		TotalWall:     m.TotalWall(),
		AverageWall:   m.AverageWall(),
		MinWall:       minWall,
		MaxWall:       maxWall,
		Elapsed:       time.Since(m.startTime),
	}
}
