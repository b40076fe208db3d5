package summary

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoRows は行が1つもない場合のエラー
var ErrNoRows = errors.New("summary has no rows")

// Row はスイープ1点分の結果
type Row struct {
	Degree   string
	MeshName string
	L2       []float64
	Linf     []float64

	// 以下はファイルには書かれない
	ProjectName string
	CostPerDOF  float64
	Wall        time.Duration
}

// NVar は変数の数を返す
func (r Row) NVar() int {
	return len(r.L2)
}

// FileName はプロジェクト名に対応するサマリーファイル名を返す
func FileName(project string) string {
	return "summary_" + project + ".csv"
}

// Path はサマリーファイルのパスを返す
func Path(dir, project string) string {
	return filepath.Join(dir, FileName(project))
}

// Header はnVar変数分のヘッダー行を返す
func Header(nVar int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-8s ", " Degree")
	fmt.Fprintf(&b, ", %45s ", "Meshname")
	for i := 0; i < nVar; i++ {
		fmt.Fprintf(&b, ", %10s%2d%-9s ", "   L2(", i+1, ")")
	}
	for i := 0; i < nVar; i++ {
		fmt.Fprintf(&b, ", %10s%2d%-9s ", " Linf(", i+1, ")")
	}
	return b.String()
}

// FormatRow は1行分を整形する
func FormatRow(r Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%8s ", r.Degree)
	fmt.Fprintf(&b, ", %45s ", r.MeshName)
	for _, v := range r.L2 {
		fmt.Fprintf(&b, ", %21.11e ", v)
	}
	for _, v := range r.Linf {
		fmt.Fprintf(&b, ", %21.11e ", v)
	}
	return b.String()
}

// Finalize は集めた行から表全体を組み立てる。変数の数は最初の行で決まる
func Finalize(rows []Row) (string, error) {
	if len(rows) == 0 {
		return "", ErrNoRows
	}
	nVar := rows[0].NVar()
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, Header(nVar))
	for i, r := range rows {
		if r.NVar() != nVar || len(r.Linf) != nVar {
			return "", fmt.Errorf("row %d has %d/%d variables, expected %d", i, r.NVar(), len(r.Linf), nVar)
		}
		lines = append(lines, FormatRow(r))
	}
	return strings.Join(lines, "\n"), nil
}

// Writer はサマリーファイルに逐次書き込む
type Writer struct {
	path    string
	started bool
}

// NewWriter は新しいWriterを作成する
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path はファイルのパスを返す
func (w *Writer) Path() string {
	return w.path
}

// Started はヘッダーが書かれたかどうかを返す
func (w *Writer) Started() bool {
	return w.started
}

// Start はファイルを上書きしてヘッダーを書く
func (w *Writer) Start(nVar int) error {
	if err := os.WriteFile(w.path, []byte(Header(nVar)), 0o644); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}
	w.started = true
	return nil
}

// Append は1行を追記する。ファイルは毎回開いて閉じる
func (w *Writer) Append(r Row) error {
	if !w.started {
		return fmt.Errorf("summary header not written")
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open summary: %w", err)
	}
	if _, err := f.WriteString("\n" + FormatRow(r)); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append summary row: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close summary: %w", err)
	}
	return nil
}

// RemoveStale は前回のスイープで残ったファイルを削除する
func (w *Writer) RemoveStale() error {
	err := os.Remove(w.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale summary: %w", err)
	}
	return nil
}
