package calculator

import "math"

const minMomentum = 4.0e-3

// Advance carries the momentum of freshly injected plugs through the column.
// A plug entrains from every cell it passes and stops once buoyancy has used
// up its momentum.
func Advance(cfg *Config, g Grid, dir Direction, dt float64) Grid {
	if dir == None || len(g) < 2 {
		return g
	}
	area := cfg.Area()
	perHeight := dt / 3

	for i := range g {
		if g[i].Imp < minMomentum {
			g[i].Imp = 0
		}
	}
	switch dir {
	case Descending:
		g[0].Imp = 0
	case Ascending:
		g[len(g)-1].Imp = 0
	}

	for _, i := range pairIndices(len(g), dir) {
		p, _ := dir.pairAt(g, i, 0)
		imp := g[p.b].Imp
		if g[p.b].V > 0 {
			perHeight = 0.1 * g[p.b].Dh * area
		}
		perHeight = math.Min(perHeight, area)

		for c := 0; imp > 0; {
			tb, tr := g[p.b].T, g[p.r].T
			vb := g[p.b].Dh * area
			dhR := g[p.r].Dh
			rhoB, rhoR := density(tb), density(tr)
			dRho := dir.densityJump(rhoB, rhoR)

			dv := perHeight * dhR
			g[p.b].V *= vb / (dv + vb)

			if imp*imp-gravity*dRho/rhoB*dhR < 0 {
				g[p.b].Imp = 0
				break
			}
			q := imp*imp*(1-2*math.Log((vb*rhoB+dv*rhoR)/(vb*rhoB))) - 2*gravity*dRho/rhoB*dhR
			imp = math.Sqrt(math.Max(0, q))

			tb = (vb*tb*rhoB + dv*tr*rhoR) / (vb*rhoB + dv*rhoR)
			vb = (vb*rhoB + dv*rhoR) / density(tb)
			dhR -= dv / area

			g[p.r].Dh, g[p.r].T = vb/area, tb
			g[p.b].Dh, g[p.b].T = dhR, tr
			g[p.r].Imp, g[p.b].Imp = imp, g[p.r].Imp
			g[p.r].V, g[p.b].V = g[p.b].V, g[p.r].V

			c++
			np, ok := dir.pairAt(g, i, c)
			if !ok {
				break
			}
			p = np
		}
	}
	return Compact(g)
}
