package extract

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch はL2とLinfの変数数が一致しない場合のエラー
var ErrShapeMismatch = errors.New("L2 and Linf variable counts differ")

// Metrics は1回の実行から抽出されたメトリクス
type Metrics struct {
	L2         []float64
	Linf       []float64
	CostPerDOF float64
}

// NVar は変数の数を返す
func (m *Metrics) NVar() int {
	return len(m.L2)
}

// Set はスイープで使う3つの抽出器
type Set struct {
	L2   Extractor
	Linf Extractor
	Cost Extractor
}

// DefaultSet はソルバーの解析出力に合わせた抽出器を返す
func DefaultSet() Set {
	return Set{
		L2:   LastLine{Name: "L2", Prefix: " L_2"},
		Linf: LastLine{Name: "Linf", Prefix: " L_inf"},
		Cost: Bracketed{Name: "CostPerDOF", Marker: "CALCULATION TIME PER TSTEP/DOF: [", Unit: "sec"},
	}
}

// Apply は出力からメトリクスを抽出する
func (s Set) Apply(output string) (*Metrics, error) {
	l2, err := s.L2.Extract(output)
	if err != nil {
		return nil, err
	}
	linf, err := s.Linf.Extract(output)
	if err != nil {
		return nil, err
	}
	cost, err := s.Cost.Extract(output)
	if err != nil {
		return nil, err
	}

	if len(l2) != len(linf) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrShapeMismatch, len(l2), len(linf))
	}
	if len(cost) == 0 {
		return nil, fmt.Errorf("CostPerDOF: %w", ErrNotFound)
	}

	return &Metrics{
		L2:         Floats(l2),
		Linf:       Floats(linf),
		CostPerDOF: cost[0].Value,
	}, nil
}
