package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freettes/calculator"
)

func sampleState() calculator.State {
	return calculator.State{
		Storage: calculator.Grid{
			{Pos: 0.25, T: 30, Dh: 0.5},
			{Pos: 0.75, T: 45.5, Dh: 0.5, Imp: 0.01, V: 0.002},
			{Pos: 1.25, T: 70.125, Dh: 0.5},
			{Pos: 1.75, T: 88.3, Dh: 0.5},
		},
		Foundation: []calculator.FoundationCell{
			{Pos: -0.05, T: 29, Dh: 0.1},
			{Pos: -0.15, T: 28.5, Dh: 0.1},
		},
		Shell: []calculator.ShellCell{
			{Pos: 0.5, T: 40, Dh: 1, C: 1.2e6},
			{Pos: 1.5, T: 80, Dh: 1, C: 1.2e6},
		},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), 2)
	require.NoError(t, err)

	want := sampleState()
	require.NoError(t, fs.Save(want))

	got, err := fs.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStoreHeader(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, 2)
	require.NoError(t, err)
	require.NoError(t, fs.Save(sampleState()))

	b, err := os.ReadFile(filepath.Join(dir, storageFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "pos;T;dh;imp;v", lines[0])
	assert.Equal(t, "0.75;45.5;0.5;0.01;0.002", lines[2])
}

func TestFileStoreLoadMissing(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), 2)
	require.NoError(t, err)

	_, err = fs.Load()
	assert.ErrorIs(t, err, ErrNoState)
}

func TestResample(t *testing.T) {
	g := calculator.Grid{
		{Pos: 0.5, T: 30, Dh: 1},
		{Pos: 1.5, T: 40, Dh: 1},
		{Pos: 2.5, T: 50, Dh: 1},
	}
	heights, temps, err := Resample(g, 3.2, 0.1)
	require.NoError(t, err)
	require.Len(t, heights, 33)
	assert.InDelta(t, 3.2, heights[32], 1e-9)

	// linear below the lowest centre
	assert.InDelta(t, 25, temps[0], 1e-9)
	// held above the highest
	assert.InDelta(t, 50, temps[30], 1e-9)
	assert.InDelta(t, 50, temps[32], 1e-9)
	// a natural spline through collinear points is the line itself
	want := []float64{35, 40, 45}
	got := []float64{temps[10], temps[15], temps[20]}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("spline mismatch (-want +got):\n%s", diff)
	}
}

func TestResampleSingleCell(t *testing.T) {
	_, temps, err := Resample(calculator.Grid{{Pos: 0.5, T: 42, Dh: 1}}, 1, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{42, 42, 42}, temps)

	_, _, err = Resample(nil, 1, 0.5)
	assert.Error(t, err)
}

func TestWriteProfile(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, 0.1)
	require.NoError(t, err)

	g := calculator.Grid{{Pos: 0.05, T: 30, Dh: 0.1}, {Pos: 0.15, T: 40, Dh: 0.1}}
	require.NoError(t, fs.WriteProfile(12, g))
	require.NoError(t, fs.WriteSnapshot(12, g))

	b, err := os.ReadFile(filepath.Join(dir, profileDir, "temp_profil_12.dat"))
	require.NoError(t, err)
	assert.Equal(t, "0.00;25.00000;\n0.05;30.00000;\n0.10;35.00000;\n", string(b))

	b, err = os.ReadFile(filepath.Join(dir, snapshotDir, "sz12.dat"))
	require.NoError(t, err)
	assert.Equal(t, "0.050000;30.000000;\n0.150000;40.000000;\n", string(b))
}
