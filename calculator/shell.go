package calculator

import (
	"fmt"
	"math"
)

// ExchangeShell couples every water cell with the shell rings it touches and
// then lets the submerged rings lose heat to the ambient. It returns the
// ambient loss in J.
func ExchangeShell(cfg *Config, st State, dt, ambient float64) (State, float64, error) {
	g := st.Storage
	shell := st.Shell
	if len(g) == 0 || len(shell) == 0 {
		return st, 0, nil
	}
	level := g.Level()
	if level > cfg.ShellHeight {
		return st, 0, fmt.Errorf("water level %.3f m above shell height %.3f m: %w", level, cfg.ShellHeight, ErrModelInvariant)
	}
	perimeter := math.Pi * 2 * cfg.Radius

	gained := make([]float64, len(g))
	k := 0
	for i, w := range g {
		wLo, wHi := w.Pos-w.Dh/2, w.Pos+w.Dh/2
		for next := true; next; {
			next = false
			if k >= len(shell) {
				// water surface flush with the shell top
				break
			}
			s := &shell[k]
			sLo, sHi := s.Pos-s.Dh/2, s.Pos+s.Dh/2
			var contact float64
			switch {
			case wLo >= sLo && wHi < sHi:
				contact = w.Dh
			case wLo >= sLo && wHi >= sHi:
				contact = sHi - wLo
				next = true
				k++
			case wLo < sLo && wHi < sHi:
				contact = wHi - sLo
			default:
				contact = s.Dh
				next = true
				k++
			}
			e := dt * cfg.WallAlpha * contact * perimeter * (s.T - w.T)
			gained[i] += e
			s.T -= e / s.C
		}
	}

	area := cfg.Area()
	for i := range g {
		m := density(g[i].T) * g[i].Dh * area
		t := temperature((m*enthalpy(g[i].T) + gained[i]) / m)
		g[i].T = t
		g[i].Dh = m / density(t) / area
	}

	loss := 0.0
	for k := range shell {
		s := &shell[k]
		if s.Pos+s.Dh/2 > level {
			continue
		}
		e := dt * (s.T - ambient) * cfg.ShellU * perimeter * s.Dh
		s.T -= e / s.C
		loss += e
	}
	st.Storage, st.Shell = g, shell
	return st, loss, nil
}
