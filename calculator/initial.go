package calculator

import (
	"fmt"
	"math"
	"sort"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/interp"
)

const (
	initCellHeight   = 0.05
	linearGridStep   = 0.1
	foundationCells  = 500
	shellCells       = 1000
	erfTransitionFit = 0.9061938
)

// InitMode names how Initialize builds the first water column.
type InitMode int

const (
	ChargeFactorMode InitMode = iota
	TransitionPosMode
	MeasuredMode
	LinearMode
)

func (m InitMode) String() string {
	switch m {
	case ChargeFactorMode:
		return "charge factor"
	case TransitionPosMode:
		return "transition position"
	case MeasuredMode:
		return "measured"
	case LinearMode:
		return "linear"
	}
	return "unknown"
}

// InitModeFor picks the initialisation mode for the configuration and an
// optional measured profile.
func InitModeFor(cfg *Config, profile Profile) InitMode {
	switch {
	case len(profile) > 0 && cfg.InitPressure != 0:
		return MeasuredMode
	case len(profile) > 0:
		return LinearMode
	case cfg.ChargeFactor < 0:
		return TransitionPosMode
	}
	return ChargeFactorMode
}

// Initialize builds the state of a tank at t = 0: the water column, the
// foundation below it and the shell rings around it.
func Initialize(cfg *Config, profile Profile) (State, error) {
	mode := InitModeFor(cfg, profile)
	var (
		g   Grid
		err error
	)
	switch mode {
	case ChargeFactorMode:
		g = chargeFactorColumn(cfg)
	case TransitionPosMode:
		g = transitionColumn(cfg)
	case MeasuredMode:
		g, err = measuredColumn(cfg, profile)
	case LinearMode:
		g, err = linearColumn(cfg, profile)
	}
	if err != nil {
		return State{}, err
	}
	g = Normalize(cfg, Compact(g), Both, 0)
	if len(g) < 2 {
		return State{}, fmt.Errorf("initial %s column has %d cells: %w", mode, len(g), ErrInputValidation)
	}

	foundation, err := initFoundation(cfg, g)
	if err != nil {
		return State{}, err
	}
	shell, err := initShell(cfg, g)
	if err != nil {
		return State{}, err
	}

	log.WithFields(log.Fields{
		"mode":  mode.String(),
		"cells": len(g),
		"level": g.Level(),
		"mass":  g.Mass(cfg.Area()),
	}).Info("tank initialised")
	return State{Storage: g, Foundation: foundation, Shell: shell}, nil
}

// chargeFactorColumn fills the active zone between the diffusers with the
// hot and cold share given by the charge factor, joined by an erf transition.
func chargeFactorColumn(cfg *Config) Grid {
	area := cfg.Area()
	fa := 2 * erfTransitionFit / cfg.TransitionHeight
	mean := (cfg.TopTemp + cfg.BottomTemp) / 2
	diff := cfg.TopTemp - cfg.BottomTemp
	active := cfg.MaxWaterLevel - cfg.BottomDiffuser - cfg.TopDiffuserDepth
	loaded := active * area * density(cfg.TopTemp)
	hot := loaded * cfg.ChargeFactor
	cold := loaded - hot

	// side fills cells of initCellHeight until mass m is used up; the
	// last cell takes the remainder
	side := func(m, sign float64) []Cell {
		var cells []Cell
		for k := 1; m > 0; k++ {
			t := mean + sign*diff/2*math.Erf(fa*initCellHeight*(float64(k)-0.5))
			rho := density(t)
			cm := rho * initCellHeight * area
			if cm <= m {
				cells = append(cells, Cell{T: t, Dh: initCellHeight})
				m -= cm
				continue
			}
			cells = append(cells, Cell{T: t, Dh: m / rho / area})
			m = 0
		}
		return cells
	}
	coldSide := side(cold, -1)
	hotSide := side(hot, 1)

	var bottom []Cell
	for k := 1; ; k++ {
		if initCellHeight*float64(k) < cfg.BottomDiffuser {
			bottom = append(bottom, Cell{T: cfg.BottomTemp, Dh: initCellHeight})
			continue
		}
		bottom = append(bottom, Cell{T: cfg.BottomTemp, Dh: cfg.BottomDiffuser - initCellHeight*float64(k-1)})
		break
	}

	var top []Cell
	grad := (cfg.VaporTemp - cfg.TopTemp) / cfg.TopDiffuserDepth
	for k := 1; ; k++ {
		if initCellHeight*float64(k) < cfg.TopDiffuserDepth {
			top = append(top, Cell{T: cfg.TopTemp + grad*initCellHeight*(float64(k)-0.5), Dh: initCellHeight})
			continue
		}
		rest := cfg.TopDiffuserDepth - initCellHeight*float64(k-1)
		top = append(top, Cell{T: cfg.TopTemp + grad*(initCellHeight*float64(k)-rest/2), Dh: rest})
		break
	}

	g := make(Grid, 0, len(bottom)+len(coldSide)+len(hotSide)+len(top))
	for k := len(bottom) - 1; k >= 0; k-- {
		g = append(g, bottom[k])
	}
	for k := len(coldSide) - 1; k >= 0; k-- {
		g = append(g, coldSide[k])
	}
	g = append(g, hotSide...)
	g = append(g, top...)
	return Compact(g)
}

// transitionColumn places the erf transition at TransitionPos and fills the
// rest of the tank with the bottom and top temperatures.
func transitionColumn(cfg *Config) Grid {
	const dh = initCellHeight
	fa := 2 * erfTransitionFit / cfg.TransitionHeight
	mean := (cfg.TopTemp + cfg.BottomTemp) / 2
	diff := cfg.TopTemp - cfg.BottomTemp
	var g Grid
	h := 0.0
	add := func(t, thick float64) {
		g = append(g, Cell{T: t, Dh: thick})
		h += thick
	}
	fill := func(t, upTo float64) {
		base := h
		for k := 1; base+dh*float64(k) < upTo; k++ {
			add(t, dh)
		}
		if rest := upTo - h; rest > 0 {
			add(t, rest)
		}
	}

	grad := cfg.GroundHeatFlux * cfg.BottomDiffuser / conductivity(cfg.BottomTemp)
	for k := cfg.BottomDiffuser / dh; k > 0; k-- {
		add(cfg.BottomTemp-grad*dh*(k-0.5), dh)
	}
	fill(cfg.BottomTemp, cfg.TransitionPos)

	half := cfg.TransitionHeight / dh * 0.5
	for k := half; k > 0; k-- {
		add(mean-diff/2*math.Erf(fa*dh*(k-0.5)), dh)
	}
	for k := 1.0; k < half; k++ {
		add(mean+diff/2*math.Erf(fa*dh*(k-0.5)), dh)
	}

	topEdge := cfg.MaxWaterLevel - cfg.TopDiffuserDepth
	fill(cfg.TopTemp, topEdge)

	grad = (cfg.VaporTemp - cfg.TopTemp) / cfg.TopDiffuserDepth
	base := h
	k := 1
	for ; base+dh*float64(k) < cfg.MaxWaterLevel; k++ {
		add(cfg.TopTemp+grad*dh*(float64(k)-0.5), dh)
	}
	if rest := cfg.MaxWaterLevel - h; rest > 0 {
		add(cfg.TopTemp+grad*(dh*float64(k-1)+rest/2), rest)
	}
	return Compact(g)
}

// measuredColumn uses a measured profile of equidistant sensors. The water
// level follows from the bottom pressure walked upward from the sensor, the
// part below the lowest sensor is extrapolated towards the floor temperature.
func measuredColumn(cfg *Config, profile Profile) (Grid, error) {
	heights := profile.Heights()
	if len(heights) < 2 {
		return nil, fmt.Errorf("measured profile needs two sensors, got %d: %w", len(heights), ErrInputValidation)
	}
	dh := heights[1] - heights[0]

	level := cfg.PressureSensor
	p := cfg.InitPressure * 1.0e5
	for _, h := range heights {
		if h < level || p < 0 {
			continue
		}
		rho := density(profile[h])
		p -= rho * gravity * (h - level)
		level = h
		if p < 0 {
			level += p / (gravity * rho)
		}
	}

	var upper Grid
	for _, h := range heights {
		if h+dh/2 <= level {
			upper = append(upper, Cell{T: profile[h], Dh: dh})
			continue
		}
		if h-dh/2 <= level {
			upper = append(upper, Cell{T: profile[h], Dh: dh/2 - (h - level)})
		}
		break
	}

	first := heights[0]
	grad := 0.0
	if first != cfg.FloorSection {
		grad = (profile[first] - cfg.FloorTemp) / (first - cfg.FloorSection)
	}
	var lower Grid
	for edge := first - dh/2; edge > 0; edge -= dh {
		if edge-dh >= 0 {
			lower = append(lower, Cell{T: profile[first] - grad*(first-(edge-dh/2)), Dh: dh})
			continue
		}
		lower = append(lower, Cell{T: profile[first] - grad*(first-edge/2), Dh: edge})
	}

	g := make(Grid, 0, len(lower)+len(upper))
	for k := len(lower) - 1; k >= 0; k-- {
		g = append(g, lower[k])
	}
	g = append(g, upper...)
	log.WithFields(log.Fields{
		"sensors": len(heights),
		"level":   level,
	}).Debug("water level from bottom pressure")
	return Compact(g), nil
}

// linearColumn interpolates the profile, pinned to the floor and vapour
// temperatures, on a uniform grid.
func linearColumn(cfg *Config, profile Profile) (Grid, error) {
	pinned := make(Profile, len(profile)+2)
	for h, t := range profile {
		pinned[h] = t
	}
	pinned[0] = cfg.FloorTemp
	pinned[cfg.MaxWaterLevel] = cfg.VaporTemp
	xs := pinned.Heights()
	ys := make([]float64, len(xs))
	for i, h := range xs {
		ys[i] = pinned[h]
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("failed to fit linear profile: %v: %w", err, ErrInputValidation)
	}
	n := int(math.Ceil(cfg.MaxWaterLevel/linearGridStep - 1e-9))
	g := make(Grid, 0, n)
	for k := 0; k < n; k++ {
		z := float64(k) * linearGridStep
		dh := math.Min(linearGridStep, cfg.MaxWaterLevel-z)
		g = append(g, Cell{T: pl.Predict(z), Dh: dh})
	}
	return Compact(g), nil
}

// initFoundation extrapolates the floor contact temperature from the two
// lowest cells and lays the foundation down to the depth at which the ground
// flux reaches the ground temperature.
func initFoundation(cfg *Config, g Grid) ([]FoundationCell, error) {
	grad := (g[1].T - g[0].T) / (g[1].Pos - g[0].Pos)
	contact := g[0].T - g[0].Dh/2*grad
	depth := cfg.FoundationConductivity * (contact - cfg.GroundTemp) / cfg.GroundHeatFlux
	if depth <= 0 || math.IsNaN(depth) {
		return nil, fmt.Errorf("foundation depth %.3f m from contact %.2f °C and ground %.2f °C: %w",
			depth, contact, cfg.GroundTemp, ErrInputValidation)
	}
	dh := depth / foundationCells
	tGrad := cfg.GroundHeatFlux / cfg.FoundationConductivity
	f := make([]FoundationCell, foundationCells)
	for i := range f {
		pos := -(float64(i) + 0.5) * dh
		f[i] = FoundationCell{Pos: pos, T: contact + pos*tGrad, Dh: dh}
	}
	return f, nil
}

// initShell spreads the wall capacity over uniform rings and starts them at
// the water temperature next to them.
func initShell(cfg *Config, g Grid) ([]ShellCell, error) {
	dh := cfg.ShellHeight / shellCells
	outer := cfg.Radius + cfg.ShellThickness
	perMetre := math.Pi * ShellDensity * (outer*outer - cfg.Radius*cfg.Radius)
	capacity := dh * perMetre * ShellSpecificHeat

	xs, ys := g.Positions(), g.Temperatures()
	var spline interp.NaturalCubic
	if err := spline.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("failed to fit shell spline: %w", err)
	}
	top := xs[len(xs)-1]
	s := make([]ShellCell, shellCells)
	for i := range s {
		pos := (float64(i) + 0.5) * dh
		t := ys[len(ys)-1]
		if pos < top {
			t = spline.Predict(pos)
		}
		s[i] = ShellCell{Pos: pos, T: t, Dh: dh, C: capacity}
	}
	return s, nil
}

// Heights returns the measured heights in ascending order.
func (p Profile) Heights() []float64 {
	hs := make([]float64, 0, len(p))
	for h := range p {
		hs = append(hs, h)
	}
	sort.Float64s(hs)
	return hs
}
