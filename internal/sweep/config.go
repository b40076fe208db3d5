package sweep

import (
	"fmt"
	"strings"

	"convsweep/internal/mesh"
	"convsweep/internal/solver"
)

// Config はスイープの設定
type Config struct {
	Exe string // ソルバー実行ファイル
	Prm string // パラメータファイル

	Degrees     []string // 多項式次数（外側のループ）
	MeshDir     string   // メッシュディレクトリ
	MeshPattern string   // メッシュのglobパターン

	SummaryDir string // サマリーファイルの出力先
	LogDir     string // ソルバーログの出力先
	TempRoot   string // 一時ディレクトリの親（空ならOS既定）

	// 実行設定
	Procs        int      // プロセス数
	NTail        int      // 保持するログ末尾行数
	Launcher     string   // MPIランチャー
	LauncherArgs []string // ランチャーの追加引数
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Degrees:     []string{"4", "5", "6"},
		MeshDir:     "../meshes",
		MeshPattern: mesh.DefaultPattern,
		SummaryDir:  "..",
		LogDir:      ".",
		Procs:       1,
		NTail:       20,
		Launcher:    solver.DefaultLauncher,
	}
}

// Validate は設定を検証する
func (c Config) Validate() error {
	if c.Exe == "" {
		return fmt.Errorf("%w: executable path is required", ErrInvalidConfig)
	}
	if c.Prm == "" {
		return fmt.Errorf("%w: parameter file path is required", ErrInvalidConfig)
	}
	if len(c.Degrees) == 0 {
		return fmt.Errorf("%w: at least one degree is required", ErrInvalidConfig)
	}
	for _, d := range c.Degrees {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("%w: empty degree", ErrInvalidConfig)
		}
	}
	if c.Procs < 1 {
		return fmt.Errorf("%w: procs must be at least 1", ErrInvalidConfig)
	}
	if c.NTail < 0 {
		return fmt.Errorf("%w: ntail must be non-negative", ErrInvalidConfig)
	}
	if c.MeshPattern == "" {
		return fmt.Errorf("%w: mesh pattern is required", ErrInvalidConfig)
	}
	return nil
}
