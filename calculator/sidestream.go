package calculator

import (
	"fmt"
	"math"
)

const maxSideStreamIterations = 1000

// guideTube holds the flow cross sections and reference heights of the
// floating top diffuser.
type guideTube struct {
	ring, orifice, tube, mixing, annulus, slot float64 // m²
	i0, i1, i2                                      int
	h02, h12, h01                                   float64
	rho02                                           float64
}

func newGuideTube(cfg *Config, g Grid, level float64) (guideTube, error) {
	s := cfg.SideStream
	circle := func(r float64) float64 { return math.Pi * r * r }
	gt := guideTube{
		ring:    circle(s.GuideInnerRadius) - circle(s.DoubleWallOuter),
		orifice: circle(s.OrificeRadius) - circle(s.DoubleWallOuter),
		tube:    circle(s.TubeInnerRadius),
		mixing:  circle(s.GuideInnerRadius),
		slot:    math.Pi * 2 * cfg.DiffuserRadius * cfg.DiffuserSlot,
	}
	gt.annulus = gt.mixing - circle(s.SingleWallOuter)

	h0 := level - cfg.TopDiffuserDepth - cfg.DiffuserSlot
	h2 := h0 - s.GuideLength
	gt.i0 = findIndex(g, h0)
	gt.i2 = findIndex(g, h2)
	gt.i1 = findIndex(g, s.PipeEndHeight)
	gt.h02 = g[gt.i0].Pos - g[gt.i2].Pos
	gt.h12 = g[gt.i1].Pos - g[gt.i2].Pos
	gt.h01 = g[gt.i0].Pos - g[gt.i1].Pos

	rho, dh := 0.0, 0.0
	for k := gt.i2; k <= gt.i0; k++ {
		rho += density(g[k].T) * g[k].Dh
		dh += g[k].Dh
	}
	if dh == 0 {
		return gt, fmt.Errorf("guide tube %.3f..%.3f m holds no water: %w", h2, h0, ErrModelInvariant)
	}
	gt.rho02 = rho / dh
	return gt, nil
}

// sideStreamIn corrects a top inflow for the water the jet drags up through
// the guide tube. It returns the grid, plug thickness, plug temperature and
// the side stream factor.
func sideStreamIn(cfg *Config, g Grid, t, flow, level, dh float64) (Grid, float64, float64, float64, error) {
	gt, err := newGuideTube(cfg, g, level)
	if err != nil {
		return g, dh, t, 0, err
	}
	s := cfg.SideStream

	t12, dh12 := 0.0, 0.0
	for k := gt.i2; k <= gt.i1; k++ {
		t12 += g[k].T * g[k].Dh
		dh12 += g[k].Dh
	}
	if dh12 > 0 {
		t12 /= dh12
	}
	t2 := g[gt.i2].T
	t1s := (1-s.HeatTransferFactor)*t2 + s.HeatTransferFactor*(g[gt.i0].T+t12)/2

	rho1 := density(t)
	rho2 := density(t2)
	rhoR := density((t2 + t1s) / 2)
	rho1s := density(t1s)
	rhoW := rho1

	u1 := flow / gt.tube
	u2s := u1
	pDyn := rho1 * gt.tube / gt.mixing * u1 * u1

	fak, fakOld := 0.0, 1.0
	for it := 0; it < maxSideStreamIterations; it++ {
		pStat := gravity * (gt.rho02*gt.h02 - rhoR*gt.h12 - rhoW*gt.h01)
		u1s := rho2 * gt.orifice * u2s / (rho1s * gt.annulus)
		uM := (rho1*gt.tube*u1 + rho1s*gt.annulus*u1s) / (rhoW * gt.mixing)
		u0s := uM * gt.mixing / gt.slot
		uR := rho2 * gt.orifice * u2s / (rhoR * gt.ring)

		terms := pStat + pDyn - rhoW/2*uM*uM + rho1s*u1s*u1s*(gt.annulus/gt.mixing-0.5) -
			rhoW/2*u0s*u0s*2 - rhoR/2*uR*uR
		if terms <= 0 {
			fak = 0
			break
		}
		u2s = math.Sqrt(2 / (rho2 * s.OrificeLoss) * terms)
		fak = u2s / u1 * gt.orifice / gt.tube
		rhoW = (rho1 + fak*rho2) / (fak + 1)
		if math.Abs(fakOld-fak) <= 1.0e-3 {
			break
		}
		fakOld = fak
	}

	want := dh * fak * rho1
	got, h := 0.0, 0.0
	for k := gt.i2; got < want; k++ {
		if k >= len(g) {
			return g, dh, t, fak, fmt.Errorf("side stream needs %.3f kg/m² more than the tank holds: %w", want-got, ErrModelInvariant)
		}
		rho := density(g[k].T)
		m := g[k].Dh * rho
		if want-got <= m {
			g[k].Dh = (m - (want - got)) / rho
			h += (want - got) * enthalpy(g[k].T)
			got = want
		} else {
			h += m * enthalpy(g[k].T)
			got += m
			g[k].Dh = 0
		}
	}
	h += dh * rho1 * enthalpy(t)
	m := rho1 * dh * (1 + fak)
	t = temperature(h / m)
	return g, m / density(t), t, fak, nil
}

// sideStreamOut estimates the flow a top outflow draws past the guide tube
// and removes it from the cells above the tube inlet. It returns the grid,
// the side stream temperature and its volume rate in m³/s. The grid is not
// compacted.
func sideStreamOut(cfg *Config, g Grid, flow, level, dt float64) (Grid, float64, float64, error) {
	gt, err := newGuideTube(cfg, g, level)
	if err != nil {
		return g, 0, 0, err
	}
	s := cfg.SideStream
	area := cfg.Area()

	t2 := g[gt.i2].T
	t1s := (1-s.HeatTransferFactor)*t2 + s.HeatTransferFactor*g[gt.i0].T
	rho2 := density(t2)
	rhoR := density((t2 + t1s) / 2)
	rho1s := density(t1s)
	rhoW := density(g[gt.i0].T)

	u1 := flow / gt.tube
	u2s := u1
	pDyn := rhoW*gt.tube/gt.mixing*u1*u1 + s.OutflowPressure

	side, sideOld := 0.0, -1.0
	for it := 0; it < maxSideStreamIterations; it++ {
		pStat := gravity * (gt.rho02*gt.h02 - rhoR*gt.h12 - rhoW*gt.h01)
		u1s := rho2 * gt.orifice * u2s / (rho1s * gt.annulus)
		uR := rho2 * gt.orifice * u2s / (rhoR * gt.ring)
		u0s := (flow - side) / gt.slot
		uM := (flow - side) / gt.mixing

		terms := pStat + pDyn - rhoW/2*uM*uM - rho1s*u1s*u1s*(gt.annulus/gt.mixing+0.5) +
			rhoW/2*u0s*u0s - rhoR/2*uR*uR
		if terms <= 0 {
			side = 0
			break
		}
		u2s = math.Sqrt(2 / (rho2 * s.OrificeLoss) * terms)
		side = u2s * gt.orifice
		if math.Abs(sideOld-side) <= 1.0e-3 {
			break
		}
		sideOld = side
	}
	side = math.Min(side, 0.99*flow)

	want := side * dt
	got, m, h := 0.0, 0.0, 0.0
	for k := gt.i2; got < want; k++ {
		if k >= len(g) {
			return g, 0, 0, fmt.Errorf("side stream needs %.3f m³ more than the tank holds: %w", want-got, ErrModelInvariant)
		}
		rho := density(g[k].T)
		hk := enthalpy(g[k].T)
		v := area * g[k].Dh
		if want-got <= v {
			g[k].Dh = (v - (want - got)) / area
			h += (want - got) * rho * hk
			m += (want - got) * rho
			got = want
		} else {
			h += v * rho * hk
			m += v * rho
			g[k].Dh = 0
			got += v
		}
	}
	if side <= 0 || m == 0 {
		return g, 0, 0, nil
	}
	t := temperature(h / m)
	return g, t, m / density(t) / dt, nil
}
