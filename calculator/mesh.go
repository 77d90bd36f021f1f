package calculator

import "math"

// MeshMode selects what Normalize does to the cell sizes.
type MeshMode int

const (
	Split MeshMode = iota
	Merge
	Both
)

func (m MeshMode) String() string {
	switch m {
	case Split:
		return "split"
	case Merge:
		return "merge"
	case Both:
		return "both"
	}
	return "unknown"
}

// Normalize trisects cells that are too thick or sit in a steep gradient,
// halves oversized edge cells, and merges thin cells in flat regions into
// their upper neighbour. step < 1 lowers the merge hysteresis.
func Normalize(cfg *Config, g Grid, mode MeshMode, step int) Grid {
	maxTheta := 0.015
	if mode == Split {
		maxTheta = 0.15
	}
	if mode == Split || mode == Both {
		g = split(cfg, g, mode, maxTheta)
	}
	if mode == Merge || mode == Both {
		g = merge(cfg, g, step, maxTheta)
	}
	return Compact(g)
}

func steep(a, b, dh, limit float64) bool {
	return math.Pow(math.Abs(a-b), 0.75)*dh > limit
}

func split(cfg *Config, g Grid, mode MeshMode, maxTheta float64) Grid {
	maxDh := cfg.MaxCellHeight
	for again := true; again; {
		again = false
		if len(g) == 0 {
			return g
		}
		next := make(Grid, 0, len(g)+8)
		next = append(next, splitEdge(g[0], maxDh, &again)...)
		for i := 1; i < len(g)-1; i++ {
			c, lower, upper := g[i], g[i-1], g[i+1]
			if c.Dh <= maxDh && !steep(c.T, lower.T, c.Dh, maxTheta) && !steep(upper.T, c.T, c.Dh, maxTheta) {
				next = append(next, c)
				continue
			}
			gradMinus := (c.T - lower.T) / ((c.Dh + lower.Dh) / 2)
			gradPlus := (upper.T - c.T) / ((c.Dh + upper.Dh) / 2)
			tu := c.T - gradMinus*c.Dh/3
			to := c.T + gradPlus*c.Dh/3
			ti := c.T

			m := c.Dh * density(c.T)
			h := enthalpy(c.T)
			for loop := 0; loop < 2; loop++ {
				d := (h - (enthalpy(tu)+enthalpy(to)+enthalpy(ti))/3) / specificHeat(ti)
				ti += d
				tu += d
				to += d
			}
			dhi := m / 3 / density(ti)
			imp, v := 0.0, 0.0
			if mode == Split {
				imp, v = c.Imp, c.V
			}
			next = append(next,
				Cell{Pos: c.Pos - dhi/3, T: tu, Dh: m / 3 / density(tu), Imp: imp, V: v},
				Cell{Pos: c.Pos, T: ti, Dh: dhi, Imp: imp, V: v},
				Cell{Pos: c.Pos + dhi/3, T: to, Dh: m / 3 / density(to), Imp: imp, V: v},
			)
			again = true
		}
		if len(g) > 1 {
			next = append(next, splitEdge(g[len(g)-1], maxDh, &again)...)
		}
		g = Compact(next)
	}
	return g
}

func splitEdge(c Cell, maxDh float64, again *bool) []Cell {
	if c.Dh <= maxDh {
		return []Cell{c}
	}
	*again = true
	return []Cell{
		{Pos: c.Pos - c.Dh/4, T: c.T, Dh: c.Dh / 2},
		{Pos: c.Pos + c.Dh/4, T: c.T, Dh: c.Dh / 2},
	}
}

func merge(cfg *Config, g Grid, step int, maxTheta float64) Grid {
	hyst := 4.0
	if step < 1 {
		hyst = 2
	}
	n := len(g)
	for i := 0; i < n; i++ {
		p := i + 1
		if i == n-1 {
			p = i - 1
			for p >= 0 && g[p].Dh == 0 {
				p--
			}
			if p < 0 {
				continue
			}
		}
		c := g[i]
		if !(math.Pow(math.Abs(g[p].T-c.T), 0.75)*c.Dh < maxTheta/hyst && c.Dh < cfg.MaxCellHeight/hyst) {
			continue
		}
		mi := c.Dh * density(c.T)
		mp := g[p].Dh * density(g[p].T)
		t := temperature((mi*enthalpy(c.T) + mp*enthalpy(g[p].T)) / (mi + mp))
		g[p] = Cell{Pos: g[p].Pos, T: t, Dh: (mi + mp) / density(t)}
		g[i] = Cell{Pos: c.Pos}
	}
	return g
}
