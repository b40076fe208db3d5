package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// DefaultLauncher は並列実行時の既定のランチャー
const DefaultLauncher = "mpirun"

// Runner はソルバーの実行設定
type Runner struct {
	Exe          string   // ソルバー実行ファイル
	Procs        int      // プロセス数（1より大きい場合はランチャーを使う）
	Launcher     string   // MPIランチャー
	LauncherArgs []string // ランチャーの追加引数
	Dir          string   // 作業ディレクトリ（空なら現在のディレクトリ）
	LogDir       string   // ログの出力先（空ならDir）
	NTail        int      // 保持する末尾行数
	Env          []string // 追加の環境変数
}

// NewRunner は既定値でRunnerを作成する
func NewRunner(exe string) *Runner {
	return &Runner{
		Exe:      exe,
		Procs:    1,
		Launcher: DefaultLauncher,
		NTail:    20,
	}
}

// Output は1回の実行結果
type Output struct {
	Project string
	Command []string
	LogPath string
	Stdout  string
	Tail    []string
	Wall    time.Duration
}

// RunError はソルバー実行の失敗
type RunError struct {
	Project  string
	Command  []string
	ExitCode int // 起動失敗やキャンセル時は-1
	LogPath  string
	Tail     []string
	Err      error
}

func (e *RunError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("run %s failed with exit code %d", e.Project, e.ExitCode)
	}
	return fmt.Sprintf("run %s failed: %v", e.Project, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Command は実行するコマンドラインを返す
func (r *Runner) Command(prmPath string) []string {
	if r.Procs > 1 {
		launcher := r.Launcher
		if launcher == "" {
			launcher = DefaultLauncher
		}
		cmd := []string{launcher}
		cmd = append(cmd, r.LauncherArgs...)
		cmd = append(cmd, "-np", strconv.Itoa(r.Procs), r.Exe, prmPath)
		return cmd
	}
	return []string{r.Exe, prmPath}
}

// LogPath はプロジェクト名に対応するログファイルのパスを返す
func (r *Runner) LogPath(project string) string {
	dir := r.LogDir
	if dir == "" {
		dir = r.Dir
	}
	return filepath.Join(dir, project+".log")
}

// Run はソルバーを実行し、終了まで待つ
func (r *Runner) Run(ctx context.Context, prmPath, project string) (*Output, error) {
	if r.Exe == "" {
		return nil, fmt.Errorf("solver executable is empty")
	}

	argv := r.Command(prmPath)
	logPath := r.LogPath(project)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	defer logFile.Close()

	var stdout bytes.Buffer
	tail := NewTail(r.NTail)
	w := io.MultiWriter(logFile, &stdout, tail)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Stdout = w
	cmd.Stderr = w
	// キャンセル時にランチャーの子プロセスごと止めるため
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	runErr := &RunError{
		Project:  project,
		Command:  argv,
		ExitCode: -1,
		LogPath:  logPath,
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		runErr.Err = fmt.Errorf("failed to start solver: %w", err)
		return nil, runErr
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		runErr.Tail = tail.Lines()
		runErr.Err = fmt.Errorf("solver cancelled: %w", ctx.Err())
		return nil, runErr
	case err = <-done:
	}

	if err != nil {
		runErr.Tail = tail.Lines()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			runErr.ExitCode = exitErr.ExitCode()
		}
		runErr.Err = err
		return nil, runErr
	}

	return &Output{
		Project: project,
		Command: argv,
		LogPath: logPath,
		Stdout:  stdout.String(),
		Tail:    tail.Lines(),
		Wall:    time.Since(start),
	}, nil
}

// FormatTail は診断用に末尾行を整形する
func FormatTail(lines []string) string {
	return strings.Join(lines, "\n")
}
