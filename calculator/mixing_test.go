package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stratified(n int) Grid {
	g := make(Grid, n)
	for i := range g {
		g[i] = Cell{T: 30 + 60*float64(i)/float64(n-1), Dh: 0.5}
	}
	return Compact(g)
}

func TestMixConserves(t *testing.T) {
	cfg := DefaultConfig()
	area := cfg.Area()
	g := stratified(40)
	g[20].V = 0.5
	m0, e0 := g.Mass(area), g.Enthalpy(area)

	g = Mix(cfg, g)
	assert.InDelta(t, m0, g.Mass(area), 1e-9*m0)
	assert.InDelta(t, e0, g.Enthalpy(area), 1e-9*e0)
	assert.Less(t, len(g), 40, "drained neighbours are dropped")

	thickest := 0
	for i, c := range g {
		if c.Dh > g[thickest].Dh {
			thickest = i
		}
	}
	assert.Greater(t, g[thickest].Dh, 0.5, "plug entrains its neighbours")
}

func TestMixWithoutMovingCell(t *testing.T) {
	cfg := DefaultConfig()
	g := stratified(10)
	want := g.Clone()
	assert.Equal(t, want, Mix(cfg, g))
}

func TestAdvanceCarriesWarmPlugUp(t *testing.T) {
	cfg := DefaultConfig()
	area := cfg.Area()
	g := uniform(10, 1, 20)
	g = insertCell(g, 1, Cell{T: 90, Dh: 0.1, Imp: 1, V: 0.1})
	g = Compact(g)
	m0 := g.Mass(area)

	g = Advance(cfg, g, Ascending, 60)
	assert.InDelta(t, m0, g.Mass(area), 1e-9*m0)

	hottest := 0
	for i, c := range g {
		if c.T > g[hottest].T {
			hottest = i
		}
	}
	assert.Greater(t, hottest, 1)
	assert.Greater(t, g[hottest].T, 20.0)
}

func TestAdvanceIgnoresWeakMomentum(t *testing.T) {
	cfg := DefaultConfig()
	g := uniform(5, 1, 20)
	g[1].Imp = minMomentum / 2
	g = Advance(cfg, g, Ascending, 60)
	assert.Zero(t, g[1].Imp)
	assert.InDelta(t, 5, g.Level(), 1e-12)

	assert.Equal(t, uniform(3, 1, 20), Advance(cfg, uniform(3, 1, 20), None, 60))
}

func TestSideStreamKeepsMassBalance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SideStream.Enabled = true
	area := cfg.Area()
	dt := 60.0

	g := uniform(40, 1, 60)
	m0 := g.Mass(area)
	g, rep, err := Inflow(cfg, g, TopSide, 10, 60, dt)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rep.Velocity, 10/density(60)/(2*3.141592653589793*cfg.DiffuserRadius*cfg.DiffuserSlot)-1e-12)
	assert.InDelta(t, m0+10*dt, g.Mass(area), 1e-6*m0)

	m1 := g.Mass(area)
	g, out, err := Outflow(cfg, g, TopSide, 10, dt)
	require.NoError(t, err)
	assert.InDelta(t, 10*dt, out.Mass, 1e-3*10*dt)
	assert.InDelta(t, m1-out.Mass, g.Mass(area), 1e-6*m0)
	assert.InDelta(t, 60, out.Temperature, 1e-6)
}
