package calculator

import (
	"fmt"
	"math"
)

// Direction of the dominant buoyancy inversion.
type Direction int

const (
	None Direction = iota
	Ascending
	Descending
)

func (d Direction) String() string {
	switch d {
	case None:
		return "none"
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	}
	return "unknown"
}

// Source is the diffuser an inflow entered through. It selects the
// entrainment calibration of the resolver.
type Source int

const (
	Undefined Source = iota
	Bottom
	Top
)

func (s Source) String() string {
	switch s {
	case Bottom:
		return "bottom"
	case Top:
		return "top"
	}
	return "undefined"
}

const (
	inversionThreshold = 1.0e-6
	maxResolverPasses  = 10000
	maxResolverLoops   = 1000

	// plume calibration
	entrainSlope    = 15.6
	entrainOffset   = 0.165
	entrainMin      = 0.123
	resolverGravity = 1.08
	releaseDivisor  = 25
	releaseSlope    = 5.54
)

// Detect finds the strongest inversion. A warm cell under a colder one is
// ascending, a cold cell over a warmer one descending.
func Detect(g Grid) (Direction, error) {
	for i, c := range g {
		if math.IsNaN(c.T) {
			return None, fmt.Errorf("cell %d has no temperature: %w", i, ErrModelInvariant)
		}
	}
	if len(g) < 2 {
		return None, nil
	}
	asc, desc := 0.0, 0.0
	for i := 1; i < len(g)-1; i++ {
		t, lower, upper := g[i].T, g[i-1].T, g[i+1].T
		inv := t - (lower+upper)/2
		if t > upper+inversionThreshold {
			if inv > asc {
				asc = inv
			}
		} else if t < lower-inversionThreshold {
			if inv < desc {
				desc = inv
			}
		}
	}
	if inv := g[0].T - g[1].T; inv > inversionThreshold && inv > asc {
		asc = inv
	}
	n := len(g) - 1
	if inv := g[n].T - g[n-1].T; inv < -inversionThreshold && inv < desc {
		desc = inv
	}

	switch {
	case asc == 0 && desc == 0:
		return None, nil
	case math.Abs(asc) > math.Abs(desc):
		return Ascending, nil
	default:
		return Descending, nil
	}
}

// pair addresses the moving plug b, the resting cell r it passes and the cell
// after r.
type pair struct {
	b, r, next int
}

func (d Direction) pairAt(g Grid, i, c int) (pair, bool) {
	p := pair{next: -1}
	if d == Ascending {
		if i+c+1 > len(g)-1 {
			return p, false
		}
		p.b, p.r = i+c, i+c+1
		if i+c+2 <= len(g)-1 {
			p.next = i + c + 2
		}
		return p, true
	}
	if i-c < 0 {
		return p, false
	}
	p.b, p.r = i+1-c, i-c
	if i-c-1 >= 0 {
		p.next = i - c - 1
	}
	return p, true
}

// densityJump is positive when b is lighter (ascending) or heavier
// (descending) than r.
func (d Direction) densityJump(rhoB, rhoR float64) float64 {
	if d == Ascending {
		return rhoB - rhoR
	}
	return rhoR - rhoB
}

func (d Direction) tempJump(tb, tr float64) float64 {
	if d == Ascending {
		return tb - tr
	}
	return tr - tb
}

func pairIndices(n int, d Direction) []int {
	if n < 2 {
		return nil
	}
	idx := make([]int, n-1)
	for i := range idx {
		idx[i] = i
	}
	if d == Ascending {
		for l, r := 0, len(idx)-1; l < r; l, r = l+1, r-1 {
			idx[l], idx[r] = idx[r], idx[l]
		}
	}
	return idx
}

// Resolve moves every inverted plug through its neighbours until it is
// stably stratified. flow is the inflow volume rate in m³/s that triggered
// the inversion, zero for conduction driven ones.
func Resolve(cfg *Config, g Grid, dir Direction, source Source, flow, dt float64) (Grid, error) {
	if dir == None || len(g) < 2 {
		return g, nil
	}
	area := cfg.Area()

	for pass, found := 0, true; found; pass++ {
		if pass >= maxResolverPasses {
			return g, fmt.Errorf("resolver did not converge after %d passes: %w", pass, ErrModelInvariant)
		}
		found = false
		for _, i := range pairIndices(len(g), dir) {
			p, _ := dir.pairAt(g, i, 0)
			tr := g[p.r].T
			kern := g[p.b].T
			grenz := tr
			dTheta := dir.tempJump(kern, tr)
			if dTheta <= 1.0e-9 {
				continue
			}
			found = true

			var m1, e1 float64
			if dTheta > 1 {
				m1, e1 = g.Mass(area), g.Enthalpy(area)
			}

			frac := 0.0
			for c, inv := 0, true; inv; {
				inv = false

				fb := math.Max(entrainMin*dt, (entrainSlope*flow-entrainOffset)*dt)
				fr := resolverGravity - dTheta/releaseDivisor - flow*releaseSlope
				if source == Bottom {
					fb = math.Max(0.03*dt, (3*flow-0.04)*dt)
					fr = 3 - dTheta/10 - flow*10
				}
				fr = math.Max(fr, 0)
				if g[p.b].V == 0 {
					fb = entrainMin * dt
					fr = 0.5
				}

				vb := g[p.b].Dh * area
				if vb < 1.0e-9 {
					g[p.b].T = g[p.r].T
					break
				}
				vLin := vb * frac
				vKern := vb - vLin
				dhR := g[p.r].Dh

				if dhR < 1.0e-12 {
					if p.next < 0 {
						g[p.r].Dh = 0
						return Compact(g), nil
					}
					mr := area * dhR * density(g[p.r].T)
					mn := area * g[p.next].Dh * density(g[p.next].T)
					t := temperature((mr*enthalpy(g[p.r].T) + mn*enthalpy(g[p.next].T)) / (mr + mn))
					g[p.r].Dh = 0
					g[p.next].T = t
					g[p.next].Dh = (mr + mn) / density(t) / area
					return Compact(g), nil
				}

				rhoB := density(g[p.b].T)
				rhoR := density(tr)
				dRho := dir.densityJump(rhoB, rhoR)
				dvB := math.Min(fb*dhR, dhR*area*0.99)

				impSq := g[p.b].Imp * g[p.b].Imp
				impSq = impSq*(1-2*math.Log((vb*rhoB+dvB*rhoR)/(vb*rhoB))) - 2*resolverGravity*(dRho/rhoB)*dhR
				impSq = math.Max(0, impSq)
				g[p.b].Imp = math.Sqrt(impSq)
				g[p.b].V *= vb / (dvB + vb)

				a := (vKern+vLin/2)*(kern-grenz) + dvB*(tr-grenz)
				sum := vKern + vLin + dvB
				if kern != grenz && a/(kern-grenz) >= sum/2 {
					vKern = 2*a/(kern-grenz) - sum
					vLin = sum - vKern
				} else {
					vKern = 0
					vLin = sum
					kern = 2*a/sum + grenz
				}

				dvR := 0.0
				if p.next >= 0 {
					beta := expansion(tr)
					dz := math.Abs(g[p.r].Pos - g[p.next].Pos)
					var limit float64
					if dir == Ascending {
						limit = g[p.next].T - fr*impSq/(-2*resolverGravity*beta*dz)
					} else {
						limit = g[p.next].T - fr*impSq/(2*resolverGravity*beta*dz)
					}
					if kern != grenz {
						dvR = vLin * (limit - grenz) / (kern - grenz)
					}
					if dir == Ascending && (limit > kern || limit < grenz) {
						dvR = 0
					}
					if dir == Descending && (limit < kern || limit > grenz) {
						dvR = 0
					}
				}
				if dvR/area < 1.0e-6 {
					dvR = 0
				}

				dGrenz := 0.0
				if dvR > 0 {
					dGrenz = (kern - grenz) * dvR / vLin
				}
				grenz += dGrenz

				dhR -= dvB / area
				tr = (tr*dhR*area + (grenz-0.5*dGrenz)*dvR) / (dhR*area + dvR)
				dhR += dvR / area
				vLin -= dvR

				vb = vLin + vKern
				if vb == 0 {
					break
				}
				frac = vLin / vb
				mix := (vKern*kern + (kern+grenz)/2*vLin) / vb

				g[p.r].Dh, g[p.r].T = vb/area, mix
				g[p.b].Dh, g[p.b].T = dhR, tr
				g[p.r].Imp, g[p.b].Imp = g[p.b].Imp, g[p.r].Imp
				g[p.r].V, g[p.b].V = g[p.b].V, g[p.r].V

				c++
				np, ok := dir.pairAt(g, i, c)
				if !ok || np.next < 0 {
					break
				}
				p = np
				tr = g[p.r].T
				dTheta = dir.tempJump(g[p.b].T, tr)
				inv = dTheta > 0
			}

			if m1 > 0 {
				m2, e2 := g.Mass(area), g.Enthalpy(area)
				mOld := area * g[p.b].Dh * density(g[p.b].T)
				eOld := mOld * enthalpy(g[p.b].T)
				mNew := mOld - (m2 - m1)
				t := temperature((eOld - (e2 - e1)) / mNew)
				g[p.b].T = t
				g[p.b].Dh = mNew / area / density(t)
			}
		}
	}
	return Compact(g), nil
}

// resolveAll runs detect and resolve until the grid is stable. The first
// pass uses start, later passes the freshly detected direction. afterFirst
// runs once after the first resolve.
func resolveAll(cfg *Config, g Grid, start Direction, source Source, flow, dt float64, afterFirst func(Grid) Grid) (Grid, error) {
	dir := start
	for loop := 0; dir != None; loop++ {
		if loop >= maxResolverLoops {
			return g, fmt.Errorf("inversions remain after %d resolver loops: %w", loop, ErrModelInvariant)
		}
		var err error
		if g, err = Resolve(cfg, g, dir, source, flow, dt); err != nil {
			return g, err
		}
		if loop == 0 && afterFirst != nil {
			g = Compact(afterFirst(g))
		}
		if dir, err = Detect(g); err != nil {
			return g, err
		}
	}
	return g, nil
}
