package solver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solver.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestTailKeepsLastLines(t *testing.T) {
	tail := NewTail(3)
	_, _ = tail.Write([]byte("one\ntwo\nthr"))
	_, _ = tail.Write([]byte("ee\nfour\nfive\n"))

	assert.Equal(t, []string{"three", "four", "five"}, tail.Lines())
}

func TestTailIncludesPartialLine(t *testing.T) {
	tail := NewTail(2)
	_, _ = tail.Write([]byte("a\nb\nc"))

	assert.Equal(t, []string{"b", "c"}, tail.Lines())
}

func TestTailZero(t *testing.T) {
	tail := NewTail(0)
	_, _ = tail.Write([]byte("a\nb\n"))

	assert.Empty(t, tail.Lines())
}

func TestCommand(t *testing.T) {
	r := NewRunner("/tmp/solver")
	assert.Equal(t, []string{"/tmp/solver", "p.ini"}, r.Command("p.ini"))

	r.Procs = 4
	assert.Equal(t, []string{"mpirun", "-np", "4", "/tmp/solver", "p.ini"}, r.Command("p.ini"))

	r.Launcher = "srun"
	r.LauncherArgs = []string{"--quiet"}
	assert.Equal(t, []string{"srun", "--quiet", "-np", "4", "/tmp/solver", "p.ini"}, r.Command("p.ini"))
}

func TestRunCapturesOutputAndLog(t *testing.T) {
	exe := writeScript(t, `echo "prm=$1"
echo " L_2 : 1.0E-03"
echo "warning" 1>&2
`)
	logDir := t.TempDir()

	r := NewRunner(exe)
	r.LogDir = logDir
	r.NTail = 2

	out, err := r.Run(context.Background(), "param.ini", "X_Degree_4")
	require.NoError(t, err)

	assert.Contains(t, out.Stdout, "prm=param.ini")
	assert.Contains(t, out.Stdout, "warning")
	assert.Len(t, out.Tail, 2)
	assert.Equal(t, filepath.Join(logDir, "X_Degree_4.log"), out.LogPath)

	logData, err := os.ReadFile(out.LogPath)
	require.NoError(t, err)
	assert.Equal(t, out.Stdout, string(logData))
}

func TestRunNonZeroExit(t *testing.T) {
	exe := writeScript(t, `i=0
while [ $i -lt 30 ]; do echo "line $i"; i=$((i+1)); done
exit 3
`)
	r := NewRunner(exe)
	r.LogDir = t.TempDir()
	r.NTail = 5

	_, err := r.Run(context.Background(), "param.ini", "X")
	require.Error(t, err)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, 3, runErr.ExitCode)
	assert.Equal(t, []string{"line 25", "line 26", "line 27", "line 28", "line 29"}, runErr.Tail)
	assert.Contains(t, runErr.Error(), "exit code 3")
}

func TestRunMissingExecutable(t *testing.T) {
	r := NewRunner(filepath.Join(t.TempDir(), "missing"))
	r.LogDir = t.TempDir()

	_, err := r.Run(context.Background(), "param.ini", "X")

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, -1, runErr.ExitCode)
}

func TestRunCancelled(t *testing.T) {
	exe := writeScript(t, "echo started\nsleep 30\n")
	r := NewRunner(exe)
	r.LogDir = t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, "param.ini", "X")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestFormatTail(t *testing.T) {
	assert.Equal(t, "a\nb", FormatTail([]string{"a", "b"}))
	assert.True(t, strings.HasPrefix(FormatTail([]string{"x"}), "x"))
}
