package calculator

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInputValidation marks boundary conditions the model refuses to run with.
	ErrInputValidation = errors.New("input validation")
	// ErrModelInvariant marks a state the physics cannot continue from.
	ErrModelInvariant = errors.New("model invariant violated")
)

const (
	gravity       = 9.81
	minCellHeight = 1.0e-9
)

// Cell is one horizontal plug of the water column.
type Cell struct {
	Pos float64 // centre height above the floor, m
	T   float64 // °C
	Dh  float64 // thickness, m
	Imp float64 // momentum indicator, m/s
	V   float64 // entrainment velocity, m/s
}

// Grid is the water column ordered from the floor upwards. Functions taking a
// Grid may reuse its backing array; callers continue with the returned value.
type Grid []Cell

// FoundationCell is one layer of the ground below the tank floor.
type FoundationCell struct {
	Pos float64 // negative, m
	T   float64
	Dh  float64
}

// ShellCell is one ring of the tank wall and fixtures.
type ShellCell struct {
	Pos float64
	T   float64
	Dh  float64
	C   float64 // heat capacity, J/K
}

// State is everything the model carries from one macro step to the next.
type State struct {
	Storage    Grid
	Foundation []FoundationCell
	Shell      []ShellCell
}

// Clone returns a deep copy.
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	copy(out, g)
	return out
}

// Clone returns a deep copy of all three grids.
func (st State) Clone() State {
	out := State{Storage: st.Storage.Clone()}
	if st.Foundation != nil {
		out.Foundation = make([]FoundationCell, len(st.Foundation))
		copy(out.Foundation, st.Foundation)
	}
	if st.Shell != nil {
		out.Shell = make([]ShellCell, len(st.Shell))
		copy(out.Shell, st.Shell)
	}
	return out
}

// Compact drops cells thinner than 1e-9 m and stacks the rest from the floor,
// so every Pos becomes the running half-thickness sum.
func Compact(g Grid) Grid {
	out := g[:0]
	h := 0.0
	for _, c := range g {
		if c.Dh < minCellHeight {
			continue
		}
		h += c.Dh / 2
		c.Pos = h
		h += c.Dh / 2
		out = append(out, c)
	}
	return out
}

// Level is the water surface height.
func (g Grid) Level() float64 {
	if len(g) == 0 {
		return 0
	}
	top := g[len(g)-1]
	return top.Pos + top.Dh/2
}

// Height is the sum of all thicknesses.
func (g Grid) Height() float64 {
	dh := make([]float64, len(g))
	for i, c := range g {
		dh[i] = c.Dh
	}
	return floats.Sum(dh)
}

// Mass returns the water mass in kg for the cross section area.
func (g Grid) Mass(area float64) float64 {
	m := make([]float64, len(g))
	for i, c := range g {
		m[i] = c.Dh * density(c.T)
	}
	return area * floats.Sum(m)
}

// Enthalpy returns the water enthalpy in J for the cross section area.
func (g Grid) Enthalpy(area float64) float64 {
	e := make([]float64, len(g))
	for i, c := range g {
		e[i] = c.Dh * density(c.T) * enthalpy(c.T)
	}
	return area * floats.Sum(e)
}

// Positions lists the cell centres.
func (g Grid) Positions() []float64 {
	x := make([]float64, len(g))
	for i, c := range g {
		x[i] = c.Pos
	}
	return x
}

// Temperatures lists the cell temperatures.
func (g Grid) Temperatures() []float64 {
	y := make([]float64, len(g))
	for i, c := range g {
		y[i] = c.T
	}
	return y
}

// Energy of the foundation in J, relative to 0 °C.
func foundationEnergy(f []FoundationCell, area float64) float64 {
	e := make([]float64, len(f))
	for i, c := range f {
		e[i] = c.T * c.Dh * FoundationDensity * FoundationSpecificHeat
	}
	return area * floats.Sum(e)
}

// Energy of the shell in J, relative to 0 °C.
func shellEnergy(s []ShellCell) float64 {
	e := make([]float64, len(s))
	for i, c := range s {
		e[i] = c.T * c.C
	}
	return floats.Sum(e)
}

// TotalEnergy is water enthalpy plus the sensible heat of foundation and shell.
func (st State) TotalEnergy(area float64) float64 {
	return st.Storage.Enthalpy(area) + foundationEnergy(st.Foundation, area) + shellEnergy(st.Shell)
}

// findIndex returns the index of the centre closest to h. Ties go to the upper
// cell.
func findIndex(g Grid, h float64) int {
	lo, hi := 0, len(g)
	for hi-lo > 1 {
		mid := (lo + hi + 1) / 2
		if mid >= len(g) {
			break
		}
		if h > g[mid].Pos {
			lo = mid
		} else {
			hi = mid
		}
	}
	if hi >= len(g) {
		return lo
	}
	if math.Abs(h-g[lo].Pos) < math.Abs(h-g[hi].Pos) {
		return lo
	}
	return hi
}

func insertCell(g Grid, i int, c Cell) Grid {
	g = append(g, Cell{})
	copy(g[i+1:], g[i:])
	g[i] = c
	return g
}
