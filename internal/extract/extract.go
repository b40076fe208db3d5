package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound は出力にパターンが見つからない場合のエラー
var ErrNotFound = errors.New("metric not found in output")

// Value は名前付きの数値
type Value struct {
	Name  string
	Value float64
}

// Extractor は出力テキストからメトリクスを抽出する
type Extractor interface {
	Extract(output string) ([]Value, error)
}

// Func は関数をExtractorとして使うためのアダプタ
type Func func(output string) ([]Value, error)

// Extract はfを呼び出す
func (f Func) Extract(output string) ([]Value, error) {
	return f(output)
}

// LastLine はPrefixで始まる最後の行から':'以降の数値列を読み取る
type LastLine struct {
	Name   string
	Prefix string
}

// Extract はExtractorを実装する
func (e LastLine) Extract(output string) ([]Value, error) {
	line, ok := lastLine(output, func(l string) bool {
		return strings.HasPrefix(l, e.Prefix)
	})
	if !ok {
		return nil, fmt.Errorf("%s: %w", e.Name, ErrNotFound)
	}

	_, rest, ok := strings.Cut(line, ":")
	if !ok {
		return nil, fmt.Errorf("%s: no ':' in %q: %w", e.Name, line, ErrNotFound)
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s: no values in %q: %w", e.Name, line, ErrNotFound)
	}

	values := make([]Value, 0, len(fields))
	for i, f := range fields {
		v, err := ParseFloat(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name, err)
		}
		values = append(values, Value{
			Name:  fmt.Sprintf("%s(%d)", e.Name, i+1),
			Value: v,
		})
	}
	return values, nil
}

// Bracketed はMarkerを含む最後の行からUnitの直前の数値を読み取る
type Bracketed struct {
	Name   string
	Marker string
	Unit   string
}

// Extract はExtractorを実装する
func (e Bracketed) Extract(output string) ([]Value, error) {
	line, ok := lastLine(output, func(l string) bool {
		return strings.Contains(l, e.Marker)
	})
	if !ok {
		return nil, fmt.Errorf("%s: %w", e.Name, ErrNotFound)
	}

	_, rest, _ := strings.Cut(line, e.Marker)
	if e.Unit != "" {
		var found bool
		rest, _, found = strings.Cut(rest, e.Unit)
		if !found {
			return nil, fmt.Errorf("%s: no %q in %q: %w", e.Name, e.Unit, line, ErrNotFound)
		}
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s: no value in %q: %w", e.Name, line, ErrNotFound)
	}
	v, err := ParseFloat(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}
	return []Value{{Name: e.Name, Value: v}}, nil
}

// ParseFloat はFortran形式の指数（1.0D-03）も受け付ける
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if r == 'D' || r == 'd' {
			return 'E'
		}
		return r
	}, s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v, nil
}

func lastLine(output string, match func(string) bool) (string, bool) {
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if match(lines[i]) {
			return lines[i], true
		}
	}
	return "", false
}

// Floats はValueの数値部分だけを返す
func Floats(values []Value) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.Value
	}
	return out
}
