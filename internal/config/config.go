package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"

	"convsweep/internal/logger"
	"convsweep/internal/sweep"
)

var (
	// ErrUnsupportedFormat は拡張子が未対応の場合のエラー
	ErrUnsupportedFormat = errors.New("unsupported config format")
	// ErrInvalid は設定値が不正な場合のエラー
	ErrInvalid = errors.New("invalid config")
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Sweep *SweepConfig `yaml:"sweep" json:"sweep" hcl:"sweep,block"`
	Log   *LogConfig   `yaml:"log" json:"log" hcl:"log,block"`

	Watch   string `yaml:"watch" json:"watch" hcl:"watch,optional"`
	Archive string `yaml:"archive" json:"archive" hcl:"archive,optional"`
}

// SweepConfig はスイープ設定
type SweepConfig struct {
	Exe     string   `yaml:"exe" json:"exe" hcl:"exe,optional"`
	Prm     string   `yaml:"prm" json:"prm" hcl:"prm,optional"`
	Degrees []string `yaml:"degrees" json:"degrees" hcl:"degrees,optional"`

	MeshDir     string `yaml:"mesh_dir" json:"mesh_dir" hcl:"mesh_dir,optional"`
	MeshPattern string `yaml:"mesh_pattern" json:"mesh_pattern" hcl:"mesh_pattern,optional"`
	SummaryDir  string `yaml:"summary_dir" json:"summary_dir" hcl:"summary_dir,optional"`
	LogDir      string `yaml:"log_dir" json:"log_dir" hcl:"log_dir,optional"`
	TempRoot    string `yaml:"tmp_root" json:"tmp_root" hcl:"tmp_root,optional"`

	Procs        int      `yaml:"procs" json:"procs" hcl:"procs,optional"`
	NTail        *int     `yaml:"ntail" json:"ntail" hcl:"ntail,optional"` // 0は有効な値なので未指定はnil
	Launcher     string   `yaml:"launcher" json:"launcher" hcl:"launcher,optional"`
	LauncherArgs []string `yaml:"launcher_args" json:"launcher_args" hcl:"launcher_args,optional"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level  string `yaml:"level" json:"level" hcl:"level,optional"`
	Format string `yaml:"format" json:"format" hcl:"format,optional"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml", ".json", ".hcl":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case ".hcl":
		if err := hclsimple.Decode(filepath.Base(path), data, nil, &config); err != nil {
			return nil, fmt.Errorf("failed to parse HCL: %w", err)
		}
	}

	return &config, nil
}

// Apply は設定ファイルの値をbaseに上書きして返す。未設定の項目はbaseのまま
func (f *FileConfig) Apply(base sweep.Config) sweep.Config {
	sc := f.SweepSettings()
	config := base

	if sc.Exe != "" {
		config.Exe = sc.Exe
	}
	if sc.Prm != "" {
		config.Prm = sc.Prm
	}
	if len(sc.Degrees) > 0 {
		config.Degrees = append([]string(nil), sc.Degrees...)
	}

	// パス設定
	if sc.MeshDir != "" {
		config.MeshDir = sc.MeshDir
	}
	if sc.MeshPattern != "" {
		config.MeshPattern = sc.MeshPattern
	}
	if sc.SummaryDir != "" {
		config.SummaryDir = sc.SummaryDir
	}
	if sc.LogDir != "" {
		config.LogDir = sc.LogDir
	}
	if sc.TempRoot != "" {
		config.TempRoot = sc.TempRoot
	}

	// 実行設定
	if sc.Procs > 0 {
		config.Procs = sc.Procs
	}
	if sc.NTail != nil {
		config.NTail = *sc.NTail
	}
	if sc.Launcher != "" {
		config.Launcher = sc.Launcher
	}
	if len(sc.LauncherArgs) > 0 {
		config.LauncherArgs = append([]string(nil), sc.LauncherArgs...)
	}

	return config
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	sc := f.SweepSettings()
	lc := f.LogSettings()

	if sc.Procs < 0 {
		return fmt.Errorf("%w: sweep.procs must be non-negative", ErrInvalid)
	}
	if sc.NTail != nil && *sc.NTail < 0 {
		return fmt.Errorf("%w: sweep.ntail must be non-negative", ErrInvalid)
	}
	for _, d := range sc.Degrees {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("%w: sweep.degrees contains an empty entry", ErrInvalid)
		}
	}
	if sc.MeshPattern != "" {
		if _, err := filepath.Match(sc.MeshPattern, ""); err != nil {
			return fmt.Errorf("%w: sweep.mesh_pattern: %v", ErrInvalid, err)
		}
	}

	if lc.Level != "" {
		if _, ok := logger.ParseLevel(lc.Level); !ok {
			return fmt.Errorf("%w: unknown log.level %q", ErrInvalid, lc.Level)
		}
	}
	switch logger.Format(strings.ToLower(lc.Format)) {
	case "", logger.FormatConsole, logger.FormatJSON:
	default:
		return fmt.Errorf("%w: unknown log.format %q", ErrInvalid, lc.Format)
	}

	return nil
}

// SweepSettings はスイープ設定を返す。未指定ならゼロ値
func (f *FileConfig) SweepSettings() SweepConfig {
	if f.Sweep == nil {
		return SweepConfig{}
	}
	return *f.Sweep
}

// LogSettings はログ設定を返す。未指定ならゼロ値
func (f *FileConfig) LogSettings() LogConfig {
	if f.Log == nil {
		return LogConfig{}
	}
	return *f.Log
}
