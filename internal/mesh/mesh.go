// Package mesh discovers mesh files for a convergence sweep.
package mesh

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPattern はメッシュファイルの既定のglobパターン
const DefaultPattern = "*_mesh.h5"

var (
	// ErrNoMeshes はメッシュが1つも見つからない場合のエラー
	ErrNoMeshes = errors.New("no meshes found")
	// ErrDuplicateName は別々のパスのメッシュが同じ名前になる場合のエラー
	ErrDuplicateName = errors.New("duplicate mesh name")
)

// Mesh は発見されたメッシュファイル
type Mesh struct {
	Path string // ソルバーに渡すパス
	Name string // サフィックスを除いたファイル名
}

// Discover はdir内のpatternに一致するメッシュを辞書順で返す。
// 名前はプロジェクト名とログファイル名に使われるため、重複は拒否する
func Discover(dir, pattern string) ([]Mesh, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid mesh pattern %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoMeshes, dir)
	}
	sort.Strings(paths)

	suffix := Suffix(pattern)
	meshes := make([]Mesh, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), suffix)
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w %q: %s and %s", ErrDuplicateName, name, prev, p)
		}
		seen[name] = p
		meshes = append(meshes, Mesh{Path: p, Name: name})
	}
	return meshes, nil
}

// Suffix はパターンの最後のワイルドカード以降の固定部分を返す
func Suffix(pattern string) string {
	if i := strings.LastIndexAny(pattern, "*?]"); i >= 0 {
		return pattern[i+1:]
	}
	return ""
}
