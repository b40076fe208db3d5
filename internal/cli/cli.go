package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"convsweep/internal/api"
	"convsweep/internal/archive"
	"convsweep/internal/config"
	"convsweep/internal/events"
	"convsweep/internal/logger"
	"convsweep/internal/sweep"
)

// Version はビルド時に上書きされる
var Version = "dev"

const separatorWidth = 132

// ExitError は終了コード付きのエラー
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// options はコマンドラインフラグの値
type options struct {
	configFile string

	procs        int
	ntail        int
	degrees      []string
	meshDir      string
	meshPattern  string
	summaryDir   string
	logDir       string
	tmpRoot      string
	launcher     string
	launcherArgs []string

	logLevel  string
	logFormat string

	watch   string
	archive string
}

// settings は解決済みの実行設定
type settings struct {
	sweep     sweep.Config
	logLevel  logger.Level
	logFormat logger.Format
	watch     string
	archive   string
}

// Run はコマンドを実行し終了コードを返す
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(normalizeArgs(args))

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintf(stderr, "Error: %s\n", exitErr.Message)
		if exitErr.Code == 2 {
			fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", cmd.Name())
		}
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "convsweep [flags] exe prm",
		Short: "Run a solver convergence sweep over polynomial degrees and meshes",
		Long: `convsweep runs a solver once per (degree, mesh) pair, collects the
L2 and Linf error norms from its output and writes them to
<summary-dir>/summary_<ProjectName>.csv.

Meshes are discovered as <mesh-dir>/<mesh-pattern>. The solver and its
parameter file are copied to a scratch directory that is removed on exit.`,
		Example: `  convsweep ./flexi parameter_flexi.ini
  convsweep -p 4 -ntail 40 ./flexi parameter_flexi.ini
  convsweep --config sweep.yaml --watch 127.0.0.1:8080`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return usageError("expected exe and prm arguments, got %d argument(s)", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolve(cmd.Flags(), opts, args)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), s, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	bindFlags(cmd.Flags(), opts)
	return cmd
}

func bindFlags(fs *pflag.FlagSet, o *options) {
	defaults := sweep.DefaultConfig()

	fs.StringVar(&o.configFile, "config", "", "sweep config file (.yaml, .yml, .json, .hcl)")

	fs.IntVarP(&o.procs, "procs", "p", defaults.Procs, "number of processes; >1 runs the solver through the launcher")
	fs.IntVar(&o.ntail, "ntail", defaults.NTail, "number of solver output lines shown on failure")
	fs.StringSliceVar(&o.degrees, "degrees", defaults.Degrees, "polynomial degrees to sweep")
	fs.StringVar(&o.meshDir, "mesh-dir", defaults.MeshDir, "directory searched for meshes")
	fs.StringVar(&o.meshPattern, "mesh-pattern", defaults.MeshPattern, "mesh file glob")
	fs.StringVar(&o.summaryDir, "summary-dir", defaults.SummaryDir, "directory of the summary file")
	fs.StringVar(&o.logDir, "log-dir", defaults.LogDir, "directory of the per-run solver logs")
	fs.StringVar(&o.tmpRoot, "tmp-root", "", "parent of the scratch directory (default OS temp dir)")
	fs.StringVar(&o.launcher, "launcher", defaults.Launcher, "MPI launcher")
	fs.StringArrayVar(&o.launcherArgs, "launcher-arg", nil, "extra launcher argument (repeatable)")

	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&o.logFormat, "log-format", string(logger.FormatConsole), "log format: console, json")

	fs.StringVar(&o.watch, "watch", "", "serve live progress on this address")
	fs.StringVar(&o.archive, "archive", "", "record the sweep in this SQLite database")

	fs.SortFlags = false
}

// normalizeArgs は単一ダッシュの -ntail を --ntail に読み替える
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i, a := range args {
		if a == "--" {
			out = append(out, args[i:]...)
			break
		}
		if a == "-ntail" || strings.HasPrefix(a, "-ntail=") {
			a = "-" + a
		}
		out = append(out, a)
	}
	return out
}

// resolve はデフォルト、設定ファイル、明示されたフラグの順に設定を重ねる
func resolve(fs *pflag.FlagSet, o *options, args []string) (*settings, error) {
	cfg := sweep.DefaultConfig()
	var logSettings config.LogConfig
	s := &settings{}

	// 1. 設定ファイル
	if o.configFile != "" {
		fileConfig, err := config.LoadFile(o.configFile)
		if err != nil {
			if errors.Is(err, config.ErrUnsupportedFormat) {
				return nil, usageError("%v", err)
			}
			return nil, &ExitError{Code: 1, Message: err.Error()}
		}
		if err := fileConfig.Validate(); err != nil {
			return nil, usageError("%s: %v", o.configFile, err)
		}
		cfg = fileConfig.Apply(cfg)
		logSettings = fileConfig.LogSettings()
		s.watch = fileConfig.Watch
		s.archive = fileConfig.Archive
	}

	// 2. 明示されたフラグでオーバーライド
	if len(args) == 2 {
		cfg.Exe = args[0]
		cfg.Prm = args[1]
	}
	if fs.Changed("procs") {
		cfg.Procs = o.procs
	}
	if fs.Changed("ntail") {
		cfg.NTail = o.ntail
	}
	if fs.Changed("degrees") {
		cfg.Degrees = o.degrees
	}
	if fs.Changed("mesh-dir") {
		cfg.MeshDir = o.meshDir
	}
	if fs.Changed("mesh-pattern") {
		cfg.MeshPattern = o.meshPattern
	}
	if fs.Changed("summary-dir") {
		cfg.SummaryDir = o.summaryDir
	}
	if fs.Changed("log-dir") {
		cfg.LogDir = o.logDir
	}
	if fs.Changed("tmp-root") {
		cfg.TempRoot = o.tmpRoot
	}
	if fs.Changed("launcher") {
		cfg.Launcher = o.launcher
	}
	if fs.Changed("launcher-arg") {
		cfg.LauncherArgs = o.launcherArgs
	}
	if fs.Changed("log-level") || logSettings.Level == "" {
		logSettings.Level = o.logLevel
	}
	if fs.Changed("log-format") || logSettings.Format == "" {
		logSettings.Format = o.logFormat
	}
	if fs.Changed("watch") {
		s.watch = o.watch
	}
	if fs.Changed("archive") {
		s.archive = o.archive
	}

	if cfg.Exe == "" || cfg.Prm == "" {
		return nil, usageError("exe and prm are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, usageError("%v", err)
	}

	level, ok := logger.ParseLevel(logSettings.Level)
	if !ok {
		return nil, usageError("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", logSettings.Level)
	}
	format := logger.Format(strings.ToLower(logSettings.Format))
	if format != logger.FormatConsole && format != logger.FormatJSON {
		return nil, usageError("invalid log-format %q: must be 'console' or 'json'", logSettings.Format)
	}

	s.sweep = cfg
	s.logLevel = level
	s.logFormat = format
	return s, nil
}

// execute はスイープと、指定があれば進捗サーバーを並行して動かす
func execute(ctx context.Context, s *settings, stdout, stderr io.Writer) error {
	log := logger.NewWithFormat(stderr, s.logLevel, s.logFormat)
	prev := logger.SetDefault(log)
	defer func() {
		_ = log.Sync()
		logger.SetDefault(prev)
	}()

	engine := sweep.New(s.sweep)
	bus := events.NewBus()
	defer bus.Close()
	engine.SetEventBus(bus)

	if s.archive != "" {
		store, err := archive.Open(ctx, s.archive)
		if err != nil {
			logger.Warn("", "Archive disabled: %v", err)
		} else {
			defer store.Close()
			engine.SetRecorder(store)
			logger.Debug("", "Recording sweep in %s", store.Path())
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	serverCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	if s.watch != "" {
		server := api.NewServer(s.watch, engine, bus)
		g.Go(func() error {
			if err := server.Start(serverCtx); err != nil {
				logger.Warn("", "Progress server stopped: %v", err)
			}
			return nil
		})
	}

	var result *sweep.Result
	g.Go(func() error {
		defer stopServer()
		var err error
		result, err = engine.Run(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, sweep.ErrPrmNotFound) {
			logger.Error("", "parameter file '%s' not found", s.sweep.Prm)
		}
		if ctx.Err() != nil {
			logger.Error("", "Interrupted, sweep aborted")
		}
		return &ExitError{Code: 1, Message: err.Error()}
	}

	printTable(stdout, result)
	fmt.Fprintln(stdout, result.Report())
	return nil
}

func printTable(w io.Writer, result *sweep.Result) {
	sep := strings.Repeat("=", separatorWidth)
	fmt.Fprintln(w, sep)
	fmt.Fprintln(w, result.Table)
	fmt.Fprintln(w, sep)
	fmt.Fprintf(w, "table written to %s ...\n", result.SummaryPath)
}
