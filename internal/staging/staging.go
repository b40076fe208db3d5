package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrNameCollision は同じファイル名が既にコピー済みの場合のエラー
var ErrNameCollision = errors.New("staged file name already in use")

// Area は一時ディレクトリ
type Area struct {
	dir string

	mu      sync.Mutex
	removed bool
}

// New は一時ディレクトリを作成する。rootが空の場合はOSの一時ディレクトリを使う
func New(root, pattern string) (*Area, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create temp root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(root, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return &Area{dir: dir}, nil
}

// Dir は一時ディレクトリのパスを返す
func (a *Area) Dir() string {
	return a.dir
}

// Copy はファイルを一時ディレクトリにコピーし、新しいパスを返す。
// 既にコピーしたファイルは上書きしない
func (a *Area) Copy(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", src)
	}

	dst := filepath.Join(a.dir, filepath.Base(src))
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrNameCollision, filepath.Base(src))
		}
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", dst, err)
	}

	// umaskで落ちた実行ビットを戻す
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("failed to chmod %s: %w", dst, err)
	}
	return dst, nil
}

// Cleanup は一時ディレクトリを削除する。複数回呼んでもよい
func (a *Area) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.removed {
		return nil
	}
	if err := os.RemoveAll(a.dir); err != nil {
		return fmt.Errorf("failed to remove temp dir: %w", err)
	}
	a.removed = true
	return nil
}
