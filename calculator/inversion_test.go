package calculator

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		temps []float64
		want  Direction
	}{
		{name: "single cell", temps: []float64{50}, want: None},
		{name: "stable", temps: []float64{20, 40, 60, 80}, want: None},
		{name: "below threshold", temps: []float64{20.0000005, 20, 20}, want: None},
		{name: "warm floor", temps: []float64{90, 20}, want: Ascending},
		{name: "cold surface", temps: []float64{20, 40, 10}, want: Descending},
		{name: "warm interior", temps: []float64{20, 70, 30, 40}, want: Ascending},
		{name: "cold interior", temps: []float64{20, 50, 25, 60}, want: Descending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := make(Grid, len(tt.temps))
			for i, temp := range tt.temps {
				g[i] = Cell{T: temp, Dh: 1}
			}
			got, err := Detect(Compact(g))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveWarmUnderCold(t *testing.T) {
	cfg := DefaultConfig()
	area := cfg.Area()
	g := Compact(Grid{
		{T: 90, Dh: 5},
		{T: 20, Dh: 5},
	})
	dir, err := Detect(g)
	require.NoError(t, err)
	require.Equal(t, Ascending, dir)

	m0, e0 := g.Mass(area), g.Enthalpy(area)
	g, err = resolveAll(cfg, g, dir, Undefined, 0, 60, nil)
	require.NoError(t, err)

	assert.InDelta(t, m0, g.Mass(area), 1e-6*m0)
	assert.InDelta(t, e0, g.Enthalpy(area), 1e-6*e0)
	assert.Less(t, g[0].T, g[len(g)-1].T)

	after, err := Detect(g)
	require.NoError(t, err)
	assert.Equal(t, None, after)
}

func TestResolveStableColumnUnchanged(t *testing.T) {
	cfg := DefaultConfig()
	g := Compact(Grid{
		{T: 20, Dh: 5},
		{T: 90, Dh: 5},
	})
	dir, err := Detect(g)
	require.NoError(t, err)
	assert.Equal(t, None, dir)

	got, err := resolveAll(cfg, g.Clone(), dir, Undefined, 0, 60, nil)
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestPairIndices(t *testing.T) {
	assert.Equal(t, []int{2, 1, 0}, pairIndices(4, Ascending))
	assert.Equal(t, []int{0, 1, 2}, pairIndices(4, Descending))
	assert.Nil(t, pairIndices(1, Ascending))
}

func TestDetectRejectsMissingTemperature(t *testing.T) {
	g := Compact(Grid{{T: 20, Dh: 1}, {T: math.NaN(), Dh: 1}, {T: 60, Dh: 1}})
	_, err := Detect(g)
	assert.ErrorIs(t, err, ErrModelInvariant)

	_, err = Detect(Grid{{T: math.NaN(), Dh: 1}})
	assert.ErrorIs(t, err, ErrModelInvariant)
}

func TestResolveLayeredInversions(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name  string
		temps []float64
	}{
		{name: "warm floor under chain", temps: []float64{90, 80, 70, 20, 25, 30}},
		{name: "cold surface", temps: []float64{30, 40, 50, 60, 15}},
		{name: "stacked", temps: []float64{60, 20, 80, 30, 90, 40, 70}},
		{name: "saw tooth", temps: []float64{50, 30, 50, 30, 50, 30, 50, 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := make(Grid, len(tt.temps))
			for i, temp := range tt.temps {
				g[i] = Cell{T: temp, Dh: 0.5}
			}
			checkResolved(t, cfg, Compact(g))
		})
	}
}

func TestResolveRandomColumns(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(7))
	for k := 0; k < 200; k++ {
		n := 2 + rng.Intn(39)
		g := make(Grid, n)
		for i := range g {
			g[i] = Cell{
				T:  20 + 75*rng.Float64(),
				Dh: 0.05 + 0.45*rng.Float64(),
			}
			if rng.Intn(4) == 0 {
				g[i].V = 0.2 * rng.Float64()
				g[i].Imp = 0.2 * rng.Float64()
			}
		}
		t.Run(fmt.Sprintf("%d cells #%d", n, k), func(t *testing.T) {
			checkResolved(t, cfg, Compact(g))
		})
	}
}

func checkResolved(t *testing.T, cfg *Config, g Grid) {
	t.Helper()
	area := cfg.Area()
	m0, e0 := g.Mass(area), g.Enthalpy(area)
	dir, err := Detect(g)
	require.NoError(t, err)

	g, err = resolveAll(cfg, g, dir, Undefined, 0, 60, nil)
	require.NoError(t, err)
	assert.InDelta(t, m0, g.Mass(area), 1e-6*m0)
	assert.InDelta(t, e0, g.Enthalpy(area), 1e-6*e0)

	after, err := Detect(g)
	require.NoError(t, err)
	assert.Equal(t, None, after)
}
