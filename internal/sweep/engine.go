package sweep

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"convsweep/internal/archive"
	"convsweep/internal/events"
	"convsweep/internal/extract"
	"convsweep/internal/logger"
	"convsweep/internal/mesh"
	"convsweep/internal/metrics"
	"convsweep/internal/prm"
	"convsweep/internal/solver"
	"convsweep/internal/staging"
	"convsweep/internal/summary"
)

// Recorder はスイープ結果の保存先
type Recorder interface {
	BeginSweep(ctx context.Context, sw archive.Sweep) error
	RecordRow(ctx context.Context, sweepID string, seq int, row summary.Row) error
	FinishSweep(ctx context.Context, sweepID string, runErr error) error
}

// Status は実行中のスイープの状態
type Status struct {
	SweepID   string        `json:"sweep_id"`
	Project   string        `json:"project"`
	Running   bool          `json:"running"`
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Current   *events.Point `json:"current,omitempty"`
}

// Engine はスイープ実行エンジン
type Engine struct {
	config     Config
	extractors extract.Set
	eventBus   *events.Bus
	recorder   Recorder
	metrics    *metrics.Metrics

	mu      sync.RWMutex
	running bool
	status  Status
	rows    []summary.Row
}

// New は新しいEngineを作成する
func New(config Config) *Engine {
	return &Engine{
		config:     config,
		extractors: extract.DefaultSet(),
		metrics:    metrics.New(),
	}
}

// SetEventBus はイベントバスを設定する
func (e *Engine) SetEventBus(bus *events.Bus) {
	e.eventBus = bus
}

// SetRecorder は結果の保存先を設定する
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// SetExtractors はメトリクス抽出器を差し替える
func (e *Engine) SetExtractors(set extract.Set) {
	e.extractors = set
}

// ProjectName はスイープ点ごとのプロジェクト名を返す
func ProjectName(base, degree, meshName string) string {
	return base + "_Degree_" + degree + "_Mesh_" + meshName
}

// Points はスイープ点を実行順（次数が外側、メッシュが内側）に返す
func Points(base string, degrees []string, meshes []mesh.Mesh) []events.Point {
	total := len(degrees) * len(meshes)
	points := make([]events.Point, 0, total)
	for _, d := range degrees {
		for _, m := range meshes {
			points = append(points, events.Point{
				Project:  ProjectName(base, d, m.Name),
				Degree:   d,
				Mesh:     m.Name,
				MeshFile: m.Path,
				Index:    len(points) + 1,
				Total:    total,
			})
		}
	}
	return points
}

// Run はスイープを実行する
func (e *Engine) Run(ctx context.Context) (result *Result, err error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	e.running = true
	e.rows = nil
	e.status = Status{SweepID: uuid.NewString(), Running: true}
	sweepID := e.status.SweepID
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.status.Running = false
		e.status.Current = nil
		e.mu.Unlock()
	}()

	cfg := e.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 一時ディレクトリを作る前に確認する
	if _, err := os.Stat(cfg.Prm); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: '%s'", ErrPrmNotFound, cfg.Prm)
		}
		return nil, fmt.Errorf("failed to stat parameter file: %w", err)
	}

	area, err := staging.New(cfg.TempRoot, "convsweep-")
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := area.Cleanup(); cerr != nil {
			logger.Warn("", "Cleanup failed: %v", cerr)
		}
	}()

	exe, err := area.Copy(cfg.Exe)
	if err != nil {
		return nil, fmt.Errorf("failed to stage executable: %w", err)
	}
	prmPath, err := area.Copy(cfg.Prm)
	if err != nil {
		return nil, fmt.Errorf("failed to stage parameter file: %w", err)
	}
	logger.Debug("", "Staged %s and %s in %s", exe, prmPath, area.Dir())

	meshes, err := mesh.Discover(cfg.MeshDir, cfg.MeshPattern)
	if err != nil {
		if errors.Is(err, mesh.ErrNoMeshes) {
			logger.Error("", "NO MESHES FOUND IN %s", cfg.MeshDir)
		}
		return nil, err
	}
	for i, m := range meshes {
		logger.Info("", "Mesh %4d %s", i, m.Path)
	}
	logger.Info("", "%4d MESH(ES) FOUND IN %s", len(meshes), cfg.MeshDir)

	base, err := prm.Get(prmPath, "ProjectName")
	if err != nil {
		return nil, fmt.Errorf("failed to read ProjectName: %w", err)
	}

	points := Points(base, cfg.Degrees, meshes)
	meshNames := make([]string, 0, len(meshes))
	for _, m := range meshes {
		meshNames = append(meshNames, m.Name)
	}

	writer := summary.NewWriter(summary.Path(cfg.SummaryDir, base))
	if err := writer.RemoveStale(); err != nil {
		return nil, err
	}

	result = &Result{
		SweepID:     sweepID,
		Project:     base,
		SummaryPath: writer.Path(),
		StartTime:   time.Now(),
	}

	e.mu.Lock()
	e.status.Project = base
	e.status.Total = len(points)
	e.mu.Unlock()

	rec := e.recorder
	if rec != nil {
		if rerr := rec.BeginSweep(ctx, archive.Sweep{
			ID:        sweepID,
			Project:   base,
			Exe:       cfg.Exe,
			Prm:       cfg.Prm,
			Degrees:   cfg.Degrees,
			Meshes:    meshNames,
			StartedAt: result.StartTime,
		}); rerr != nil {
			logger.Warn("", "Archive disabled: %v", rerr)
			rec = nil
		}
	}
	defer func() {
		if rec == nil {
			return
		}
		// 中断後でも記録できるよう親のキャンセルを引き継がない
		if rerr := rec.FinishSweep(context.WithoutCancel(ctx), sweepID, err); rerr != nil {
			logger.Warn("", "Failed to finish archive record: %v", rerr)
		}
	}()

	e.publish(events.NewSweepStartedEvent(sweepID, base, len(points)))

	runner := &solver.Runner{
		Exe:          exe,
		Procs:        cfg.Procs,
		Launcher:     cfg.Launcher,
		LauncherArgs: cfg.LauncherArgs,
		LogDir:       cfg.LogDir,
		NTail:        cfg.NTail,
	}

	nVar := -1
	for _, p := range points {
		row, rerr := e.runPoint(ctx, runner, prmPath, p, nVar)
		if rerr != nil {
			e.publish(events.NewSweepAbortedEvent(sweepID, base, p.Index-1, len(points), rerr))
			return nil, rerr
		}

		if !writer.Started() {
			nVar = row.NVar()
			if werr := writer.Start(nVar); werr != nil {
				return nil, werr
			}
		}
		if werr := writer.Append(*row); werr != nil {
			return nil, werr
		}

		e.mu.Lock()
		e.rows = append(e.rows, *row)
		e.status.Completed = p.Index
		e.mu.Unlock()

		if rec != nil {
			if rerr := rec.RecordRow(ctx, sweepID, p.Index, *row); rerr != nil {
				logger.Warn(p.Project, "Failed to archive row: %v", rerr)
			}
		}
		e.publish(events.NewRunSucceededEvent(sweepID, p, row.L2, row.Linf, row.CostPerDOF, row.Wall))
	}

	result.Rows = e.Rows()
	table, err := summary.Finalize(result.Rows)
	if err != nil {
		return nil, err
	}
	result.Table = table
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Metrics = e.metrics.Snapshot()

	e.publish(events.NewSweepCompletedEvent(sweepID, base, len(points)))
	logger.Info("", "Sweep '%s' completed: %d runs", base, len(points))

	return result, nil
}

// runPoint は1点分のパラメータ書き換え・実行・抽出を行う
func (e *Engine) runPoint(ctx context.Context, runner *solver.Runner, prmPath string, p events.Point, nVar int) (*summary.Row, error) {
	e.mu.Lock()
	current := p
	e.status.Current = &current
	e.mu.Unlock()

	logger.Info(p.Project, "Degree: %s , Mesh: %s (%d/%d)", p.Degree, p.MeshFile, p.Index, p.Total)

	fail := func(exitCode int, wall time.Duration, err error) error {
		e.metrics.RecordFailure(wall)
		e.publish(events.NewRunFailedEvent(e.sweepID(), p, exitCode, err))
		return &RunFailure{Point: p, Err: err}
	}

	if err := prm.Set(prmPath,
		prm.KV{Key: "ProjectName", Value: p.Project},
		prm.KV{Key: "N", Value: p.Degree},
		prm.KV{Key: "MeshFile", Value: p.MeshFile},
	); err != nil {
		return nil, fail(-1, 0, err)
	}

	e.publish(events.NewRunStartedEvent(e.sweepID(), p))

	start := time.Now()
	out, err := runner.Run(ctx, prmPath, p.Project)
	if err != nil {
		var runErr *solver.RunError
		exitCode := -1
		if errors.As(err, &runErr) {
			exitCode = runErr.ExitCode
			e.logTail(p.Project, runErr.Tail)
		}
		return nil, fail(exitCode, time.Since(start), err)
	}

	got, err := e.extractors.Apply(out.Stdout)
	if err != nil {
		e.logTail(p.Project, out.Tail)
		return nil, fail(0, out.Wall, fmt.Errorf("failed to extract metrics: %w", err))
	}
	if nVar >= 0 && got.NVar() != nVar {
		return nil, fail(0, out.Wall, fmt.Errorf("%w: got %d, expected %d", ErrColumnMismatch, got.NVar(), nVar))
	}

	e.metrics.RecordSuccess(out.Wall)
	logger.Debug(p.Project, "Solver finished in %v, log: %s", out.Wall.Round(time.Millisecond), out.LogPath)

	return &summary.Row{
		Degree:      p.Degree,
		MeshName:    p.Mesh,
		L2:          got.L2,
		Linf:        got.Linf,
		ProjectName: p.Project,
		CostPerDOF:  got.CostPerDOF,
		Wall:        out.Wall,
	}, nil
}

func (e *Engine) logTail(project string, tail []string) {
	if len(tail) == 0 {
		return
	}
	logger.Error(project, "Last %d lines of solver output:\n%s", len(tail), solver.FormatTail(tail))
}

func (e *Engine) publish(ev events.Event) {
	if e.eventBus != nil {
		e.eventBus.Publish(ev)
	}
}

func (e *Engine) sweepID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status.SweepID
}

// IsRunning は実行中かどうかを返す
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Status は現在の状態を返す
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.status
	if s.Current != nil {
		c := *s.Current
		s.Current = &c
	}
	return s
}

// Rows はこれまでに成功した行のコピーを返す
func (e *Engine) Rows() []summary.Row {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rows := make([]summary.Row, len(e.rows))
	copy(rows, e.rows)
	return rows
}

// Metrics は実行メトリクスを返す
func (e *Engine) Metrics() metrics.Snapshot {
	return e.metrics.Snapshot()
}
