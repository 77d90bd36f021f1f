package calculator

import "math"

const maxMixingRounds = 100000

// Mix spreads the first moving plug horizontally into its neighbours until
// its kinetic energy is spent or the plume has covered the mixing height
// tan(6.5°)·(R - R_diffuser) on that side.
func Mix(cfg *Config, g Grid) Grid {
	n := len(g)
	i := -1
	for k := range g {
		if g[k].V > 0 {
			i = k
			break
		}
	}
	if i < 0 || n < 3 {
		return Compact(g)
	}

	maxDh := math.Tan(6.5/180*math.Pi) * (cfg.Radius - cfg.DiffuserRadius)
	diffuserZone := 1.5 * (cfg.BottomDiffuser + cfg.DiffuserSlot)
	v := g[i].V

	cp, cm := 1, 1
	atTop, atBottom := i >= n-2, i <= 1
	if atTop {
		cp = 0
	}
	if atBottom {
		cm = 0
	}
	mixPlus, mixMinus := true, true
	spentPlus, spentMinus := 0.0, 0.0
	sumPlus, sumMinus := 0.0, 0.0

	for round := 0; (mixPlus || mixMinus) && round < maxMixingRounds; round++ {
		up, down := i+cp, i-cm
		dhPlus, dhMinus := g[up].Dh, g[down].Dh
		sumPlus += dhPlus
		sumMinus += dhMinus
		tPlus, tMinus := g[up].T, g[down].T

		rho := density(g[i].T)
		rhoPlus, rhoMinus := density(tPlus), density(tMinus)
		head := rho / (2 * gravity) * v * v

		potPlus := 0.0
		if !atTop && mixPlus {
			if rho == rhoPlus {
				potPlus = dhPlus
			} else {
				potPlus = (head - spentPlus) / math.Abs(rho-rhoPlus)
			}
		}
		potMinus := 0.0
		if !atBottom && mixMinus {
			if rho == rhoMinus {
				potMinus = dhMinus
			} else {
				potMinus = (head - spentMinus) / math.Abs(rho-rhoMinus)
			}
		}
		potPlus = math.Min(potPlus, dhPlus)
		potMinus = math.Min(potMinus, dhMinus)

		mixPlus = potPlus > 1.0e-9 && sumPlus <= maxDh && !atTop && !(up == n-2 && dhPlus == 0)
		mixMinus = potMinus > 1.0e-9 && sumMinus <= maxDh && !atBottom && !(down == 1 && dhMinus == 0)

		spentPlus += potPlus * math.Abs(rho-rhoPlus)
		f := math.Pow(g[down].Pos/diffuserZone, 2)
		f = math.Max(math.Min(f, 1), 0.1)
		spentMinus += f * potMinus * math.Abs(rho-rhoMinus)

		if mixPlus {
			g[i] = entrain(g[i], tPlus, rhoPlus*potPlus)
			g[up].Dh -= potPlus
			if up < n-2 {
				cp++
			}
		}
		if mixMinus {
			g[i] = entrain(g[i], tMinus, rhoMinus*potMinus)
			g[down].Dh -= potMinus
			if down > 1 {
				cm++
			}
		}
	}
	return Compact(g)
}

// entrain adds mass m (per unit area) of temperature t to the plug and slows
// it down by momentum conservation.
func entrain(c Cell, t, m float64) Cell {
	mc := c.Dh * density(c.T)
	h := mc*enthalpy(c.T) + m*enthalpy(t)
	c.T = temperature(h / (mc + m))
	c.Dh = (mc + m) / density(c.T)
	c.V *= mc / (mc + m)
	return c
}
