package calculator

import (
	"fmt"
	"math"
	"sort"
)

// Side names the diffuser a flow passes.
type Side int

const (
	BottomSide Side = iota
	TopSide
)

func (s Side) String() string {
	if s == TopSide {
		return "top"
	}
	return "bottom"
}

func (s Side) source() Source {
	if s == TopSide {
		return Top
	}
	return Bottom
}

const maxOutflowPasses = 1000

// InflowReport describes the plug an inflow created.
type InflowReport struct {
	Temperature float64 // °C, after the side stream correction
	Height      float64 // plug thickness, m
	Velocity    float64 // effective exit velocity, m/s
	Flow        float64 // volume rate, m³/s
	Direction   Direction
}

// OutflowReport describes what an outflow removed.
type OutflowReport struct {
	Temperature float64 // mixed outlet temperature, °C
	Mass        float64 // kg
	Enthalpy    float64 // J
}

// inflowBand is the height range in which an inflow of that side settles.
func inflowBand(cfg *Config, side Side, level float64) (float64, float64) {
	if side == BottomSide {
		return cfg.BottomDiffuser + 0.01*cfg.DiffuserSlot, cfg.BottomDiffuser + 0.99*cfg.DiffuserSlot
	}
	return level - (cfg.TopDiffuserDepth + 0.99*cfg.DiffuserSlot), level - (cfg.TopDiffuserDepth + 0.01*cfg.DiffuserSlot)
}

// outflowBand is the slot of the diffuser.
func outflowBand(cfg *Config, side Side, level float64) (float64, float64) {
	if side == BottomSide {
		return cfg.BottomDiffuser, cfg.BottomDiffuser + cfg.DiffuserSlot
	}
	return level - cfg.TopDiffuserDepth - cfg.DiffuserSlot, level - cfg.TopDiffuserDepth
}

// Inflow adds a plug of massFlow·dt kg next to the cell in the diffuser band
// whose temperature is closest to inletTemp.
func Inflow(cfg *Config, g Grid, side Side, massFlow, inletTemp, dt float64) (Grid, InflowReport, error) {
	if len(g) == 0 {
		return g, InflowReport{}, fmt.Errorf("inflow into an empty tank: %w", ErrModelInvariant)
	}
	area := cfg.Area()
	level := g.Level()
	lo, hi := inflowBand(cfg, side, level)

	best := -1
	bestDiff := 1.0e12
	if side == BottomSide {
		for k := 0; k < len(g); k++ {
			if g[k].Pos < lo {
				continue
			}
			if g[k].Pos > hi {
				break
			}
			if d := math.Abs(inletTemp - g[k].T); d < bestDiff {
				best, bestDiff = k, d
			}
		}
	} else {
		for k := len(g) - 1; k >= 0; k-- {
			if g[k].Pos > hi {
				continue
			}
			if g[k].Pos < lo {
				break
			}
			if d := math.Abs(inletTemp - g[k].T); d < bestDiff {
				best, bestDiff = k, d
			}
		}
	}
	if best < 0 {
		best = findIndex(g, (lo+hi)/2)
	}

	flow := massFlow / density(inletTemp)
	dh := flow * dt / area
	v := flow / (math.Pi * 2 * cfg.DiffuserRadius * cfg.DiffuserSlot)
	t := inletTemp
	fak := 0.0
	if side == TopSide && cfg.SideStream.Enabled {
		var err error
		g, dh, t, fak, err = sideStreamIn(cfg, g, t, flow, level, dh)
		if err != nil {
			return g, InflowReport{}, err
		}
	}

	report := InflowReport{Temperature: t, Height: dh, Velocity: v * (1 + fak), Flow: flow, Direction: Descending}
	if t >= g[best].T {
		report.Direction = Ascending
	}
	if dh <= 0 {
		return g, report, nil
	}

	at := best
	if t >= g[best].T {
		at = best + 1
	}
	if cfg.MomentumPlacement {
		at = momentumPlacement(g, side, best, t, v)
	}
	g = insertCell(g, at, Cell{T: t, Dh: dh, V: report.Velocity})
	return Compact(g), report, nil
}

// momentumPlacement lets a warm bottom inflow sink, or a cold top inflow
// rise, against buoyancy for as long as its exit momentum lasts. It returns
// the insertion index.
func momentumPlacement(g Grid, side Side, best int, t, v float64) int {
	rhoIn := density(t)
	imp := v
	k := best
	switch {
	case side == BottomSide && t >= g[best].T:
		for {
			q := 0.5*2*gravity*(rhoIn-density(g[k].T))/rhoIn*g[k].Dh + imp*imp
			if q < 0 {
				break
			}
			imp = math.Sqrt(q)
			if k-1 <= 0 {
				break
			}
			k--
		}
		return k
	case side == TopSide && t < g[best].T:
		for {
			q := 2*gravity*(density(g[k].T)-rhoIn)/rhoIn*g[k].Dh + imp*imp
			if q < 0 {
				break
			}
			imp = math.Sqrt(q)
			if k+1 >= len(g)-1 {
				break
			}
			k++
		}
		return k + 1
	}
	if t >= g[best].T {
		return best + 1
	}
	return best
}

// overlap returns per cell index the fraction of the band [lo, lo+slot]
// covered by it. Cells are visited from the side the band is approached.
func overlap(g Grid, side Side, lo, hi, slot float64) map[int]float64 {
	rel := make(map[int]float64)
	visit := func(k int) bool {
		bottom := g[k].Pos - g[k].Dh/2
		top := g[k].Pos + g[k].Dh/2
		switch {
		case side == BottomSide && top < lo, side == TopSide && bottom > hi:
			return true
		case bottom <= lo && top >= hi:
			rel[k] = 1
		case bottom <= lo && top >= lo:
			rel[k] = (top - lo) / slot
		case bottom >= lo && top <= hi:
			rel[k] = g[k].Dh / slot
		case bottom <= hi && top >= hi:
			rel[k] = (hi - bottom) / slot
		default:
			return false
		}
		return true
	}
	if side == BottomSide {
		for k := 0; k < len(g) && visit(k); k++ {
		}
	} else {
		for k := len(g) - 1; k >= 0 && visit(k); k-- {
		}
	}
	return rel
}

// DiffuserTemperature is the slot averaged temperature in front of a diffuser.
func DiffuserTemperature(cfg *Config, g Grid, side Side, level float64) float64 {
	lo, hi := outflowBand(cfg, side, level)
	rel := overlap(g, side, lo, hi, cfg.DiffuserSlot)
	t := 0.0
	for _, k := range sortedKeys(rel) {
		t += rel[k] * g[k].T
	}
	return t
}

// Outflow withdraws massFlow·dt kg through the diffuser slot, proportionally
// to how much of the slot each cell covers.
func Outflow(cfg *Config, g Grid, side Side, massFlow, dt float64) (Grid, OutflowReport, error) {
	g = Compact(g)
	if len(g) == 0 {
		return g, OutflowReport{}, fmt.Errorf("outflow from an empty tank: %w", ErrModelInvariant)
	}
	area := cfg.Area()
	level := g.Level()
	flow := massFlow / density(DiffuserTemperature(cfg, g, side, level))
	lo, hi := outflowBand(cfg, side, level)

	var report OutflowReport
	sideFlow := 0.0
	if side == TopSide && cfg.SideStream.Enabled {
		var sideTemp float64
		var err error
		g, sideTemp, sideFlow, err = sideStreamOut(cfg, g, flow, level, dt)
		if err != nil {
			return g, report, err
		}
		if sideFlow > 0 {
			report.Mass = density(sideTemp) * sideFlow * dt
			report.Enthalpy = report.Mass * enthalpy(sideTemp)
		}
	}

	rel := overlap(g, side, lo, hi, cfg.DiffuserSlot)
	keys := sortedKeys(rel)
	sum, rhoMean := 0.0, 0.0
	for _, k := range keys {
		sum += rel[k]
		rhoMean += rel[k] * density(g[k].T)
	}
	if math.Abs(sum-1) > 1.0e-6 {
		return g, report, fmt.Errorf("diffuser slot %.3f..%.3f m covered %.6f times: %w", lo, hi, sum, ErrModelInvariant)
	}

	want := massFlow / rhoMean * dt
	have := sideFlow * dt
	for pass := 0; math.Abs(want-have) > 1.0e-6; pass++ {
		if pass >= maxOutflowPasses {
			return g, report, fmt.Errorf("outflow volume off by %g m³ after %d passes: %w", want-have, pass, ErrModelInvariant)
		}
		total := (want - have) / area
		for _, k := range keys {
			dh := rel[k] * total
			if dh > g[k].Dh {
				return g, report, fmt.Errorf("cannot withdraw %.6f m from cell at %.3f m (%.6f m thick): %w",
					dh, g[k].Pos, g[k].Dh, ErrModelInvariant)
			}
			t := g[k].T
			g[k].Dh -= dh
			m := dh * area * density(t)
			report.Enthalpy += m * enthalpy(t)
			report.Mass += m
		}
		report.Temperature = temperature(report.Enthalpy / report.Mass)
		have = report.Mass / density(report.Temperature)
	}
	if report.Mass == 0 {
		report.Temperature = 0
	}
	return Compact(g), report, nil
}

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
