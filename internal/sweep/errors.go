package sweep

import (
	"errors"
	"fmt"

	"convsweep/internal/events"
)

var (
	// ErrInvalidConfig は設定値が不正な場合のエラー
	ErrInvalidConfig = errors.New("invalid sweep config")
	// ErrPrmNotFound はパラメータファイルが存在しない場合のエラー
	ErrPrmNotFound = errors.New("parameter file not found")
	// ErrColumnMismatch は変数の数が最初の実行と異なる場合のエラー
	ErrColumnMismatch = errors.New("variable count differs from first run")
	// ErrAlreadyRunning は二重実行のエラー
	ErrAlreadyRunning = errors.New("sweep is already running")
)

// RunFailure はスイープ点の実行失敗。スイープ全体を中断する
type RunFailure struct {
	Point events.Point
	Err   error
}

func (e *RunFailure) Error() string {
	return fmt.Sprintf("sweep point %d/%d (degree %s, mesh %s) failed: %v",
		e.Point.Index, e.Point.Total, e.Point.Degree, e.Point.Mesh, e.Err)
}

func (e *RunFailure) Unwrap() error {
	return e.Err
}
