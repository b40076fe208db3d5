package mesh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}
}

func TestDiscoverSortsAndStrips(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"ConformBoxTrilinear_04_04_04_mesh.h5",
		"CartBoxPeriodic_02_02_02_mesh.h5",
		"ConformBoxTrilinear_02_02_02_mesh.h5",
		"notes.txt",
		"Box_mesh.h5.bak",
	)

	got, err := Discover(dir, DefaultPattern)
	require.NoError(t, err)

	want := []Mesh{
		{Path: filepath.Join(dir, "CartBoxPeriodic_02_02_02_mesh.h5"), Name: "CartBoxPeriodic_02_02_02"},
		{Path: filepath.Join(dir, "ConformBoxTrilinear_02_02_02_mesh.h5"), Name: "ConformBoxTrilinear_02_02_02"},
		{Path: filepath.Join(dir, "ConformBoxTrilinear_04_04_04_mesh.h5"), Name: "ConformBoxTrilinear_04_04_04"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverEmpty(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "readme.md")

	_, err := Discover(dir, DefaultPattern)
	require.ErrorIs(t, err, ErrNoMeshes)
}

func TestDiscoverMissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "meshes"), "")
	require.ErrorIs(t, err, ErrNoMeshes)
}

func TestDiscoverBadPattern(t *testing.T) {
	_, err := Discover(t.TempDir(), "[")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMeshes)
}

func TestDiscoverSubdirectories(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"fine", "coarse"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, sub), 0o755))
	}
	touch(t, dir, "coarse/Box_02_mesh.h5", "fine/Box_08_mesh.h5")

	got, err := Discover(dir, "*/*_mesh.h5")
	require.NoError(t, err)

	want := []Mesh{
		{Path: filepath.Join(dir, "coarse", "Box_02_mesh.h5"), Name: "Box_02"},
		{Path: filepath.Join(dir, "fine", "Box_08_mesh.h5"), Name: "Box_08"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverDuplicateName(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"a", "b"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, sub), 0o755))
	}
	touch(t, dir, "a/x_mesh.h5", "b/x_mesh.h5")

	_, err := Discover(dir, "*/*_mesh.h5")
	require.ErrorIs(t, err, ErrDuplicateName)
	assert.Contains(t, err.Error(), filepath.Join(dir, "a", "x_mesh.h5"))
	assert.Contains(t, err.Error(), filepath.Join(dir, "b", "x_mesh.h5"))
}

func TestSuffix(t *testing.T) {
	assert.Equal(t, "_mesh.h5", Suffix("*_mesh.h5"))
	assert.Equal(t, ".mesh", Suffix("Box_??.mesh"))
	assert.Equal(t, "", Suffix("exact.h5*"))
	assert.Equal(t, "", Suffix("exact.h5"))
}
