package calculator

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
)

// Simulator advances the tank one macro step at a time. It holds no state of
// its own besides the configuration; the tank state travels in and out of
// Step.
type Simulator struct {
	cfg *Config
	log *log.Entry
}

func NewSimulator(cfg *Config) *Simulator {
	s := &Simulator{cfg: cfg, log: log.WithField("component", "simulator")}
	NewGeometry(cfg).Log(s.log)
	return s
}

// WithRun returns a simulator that tags its log lines with the run id.
func (s *Simulator) WithRun(id string) *Simulator {
	return &Simulator{cfg: s.cfg, log: s.log.WithField("run", id)}
}

func (s *Simulator) Config() *Config {
	return s.cfg
}

// StepInput are the boundary conditions of one macro step. Flows are positive
// into the tank. With Volumetric set they are m³/s, otherwise kg/s.
type StepInput struct {
	T             float64 // elapsed time at the step start, h
	Dt            float64 // step length, s
	SupplyFlow    float64 // top diffuser
	ReturnFlow    float64 // bottom diffuser
	InletTemp     float64 // °C
	AmbientTemp   float64 // °C
	Volumetric    bool
	OutletTemp    float64  // °C, density of volumetric outflows
	VaporTemp     *float64 // overrides the configured vapour space temperature
	MomentaryTemp float64  // usable threshold of the momentary metrics, 0 selects the configured one
	Profile       Profile  // measured profile for the t = 0 initialisation
}

// SubStepRecord holds the diagnostics of one sub-step.
type SubStepRecord struct {
	T                 float64 // h
	Level             float64 // m
	BottomPressure    float64 // bar
	MassDeviation     float64 // kg
	EnthalpyDeviation float64 // kJ
	WaterEnthalpy     float64 // J
}

// Losses are heat flows out of the tank in W.
type Losses struct {
	Total      float64
	VaporSpace float64
	Shell      float64
	Ground     float64
}

// StepResult is everything a macro step reports.
type StepResult struct {
	T          float64
	OutletTemp float64 // °C, -1 without outflow

	UsableMass            float64 // t
	UsableMassMomentary   float64 // t
	MaxUsableMass         float64 // t
	UsableEnergy          float64 // GJ
	UsableEnergyMomentary float64 // GJ
	TotalMass             float64 // t
	TotalEnergy           float64 // GJ
	WaterEnthalpy         float64 // GJ

	BottomDiffuserTemp float64
	TopDiffuserTemp    float64
	Losses             Losses
	DeliveredHeat      float64 // J
	TimeToEmpty        float64 // s, +Inf without return flow
	Level              float64 // m
	BottomPressure     float64 // bar
	Limits             FlowLimits

	// thermocline location, never computed
	ThermoclineLowTemp  *float64
	ThermoclineHighTemp *float64
	ThermoclineBottom   *float64
	ThermoclineTop      *float64
	ThermoclineShare    *float64
	ChargeFactor        *float64

	State    State
	SubSteps []SubStepRecord
}

// Step advances prev by in.Dt. At in.T == 0 prev is ignored and the tank is
// initialised. prev must not be used by the caller afterwards.
func (s *Simulator) Step(prev State, in StepInput) (StepResult, error) {
	if in.InletTemp > 105 || in.InletTemp < 25 {
		return StepResult{}, fmt.Errorf("inlet temperature %.2f °C outside [25, 105] °C: %w", in.InletTemp, ErrInputValidation)
	}
	if in.Dt <= 0 {
		return StepResult{}, fmt.Errorf("step length %v s: %w", in.Dt, ErrInputValidation)
	}
	cfg := s.cfg
	if in.VaporTemp != nil {
		c := *s.cfg
		c.VaporTemp = *in.VaporTemp
		cfg = &c
	}
	supply, ret := in.SupplyFlow, in.ReturnFlow
	if in.Volumetric {
		supply = toMassFlow(supply, in.InletTemp, in.OutletTemp)
		ret = toMassFlow(ret, in.InletTemp, in.OutletTemp)
	}
	momentary := in.MomentaryTemp
	if momentary == 0 {
		momentary = cfg.MomentaryTemp
	}

	var st State
	if in.T == 0 {
		var err error
		if st, err = Initialize(cfg, in.Profile); err != nil {
			return StepResult{}, err
		}
	} else {
		if len(prev.Storage) == 0 {
			return StepResult{}, fmt.Errorf("no tank state at t = %v h: %w", in.T, ErrInputValidation)
		}
		st = prev
	}

	area := cfg.Area()
	m0 := st.Storage.Mass(area)
	e0 := st.TotalEnergy(area)

	n := int(math.Round(in.Dt / cfg.SubStep))
	if n < 1 {
		n = 1
	}
	dt := in.Dt / float64(n)
	entry := s.log.WithFields(log.Fields{"t": in.T, "supply": supply, "return": ret, "subSteps": n})
	entry.Debug("step started")

	var (
		boundaryMass, boundaryEnergy float64
		outEnthalpy, delivered       float64
		qTop, shellLoss              float64
		records                      = make([]SubStepRecord, 0, n)
		err                          error
	)
	for j := 1; j <= n; j++ {
		g := st.Storage

		switch {
		case ret > 0:
			if g, err = s.inject(cfg, g, BottomSide, ret, in.InletTemp, dt); err != nil {
				return StepResult{}, err
			}
			boundaryMass += ret * dt
			boundaryEnergy += ret * dt * enthalpy(in.InletTemp)
		case ret < 0:
			var rep OutflowReport
			if g, rep, err = Outflow(cfg, g, BottomSide, -ret, dt); err != nil {
				return StepResult{}, err
			}
			m := ret * dt
			h := enthalpy(rep.Temperature)
			boundaryMass += m
			boundaryEnergy += m * h
			outEnthalpy -= m * h
			delivered += specificHeat((in.InletTemp+rep.Temperature)/2) * supply * (in.InletTemp - rep.Temperature) * dt
		}

		switch {
		case supply > 0:
			if g, err = s.inject(cfg, g, TopSide, supply, in.InletTemp, dt); err != nil {
				return StepResult{}, err
			}
			boundaryMass += supply * dt
			boundaryEnergy += supply * dt * enthalpy(in.InletTemp)
		case supply < 0:
			var rep OutflowReport
			if g, rep, err = Outflow(cfg, g, TopSide, -supply, dt); err != nil {
				return StepResult{}, err
			}
			m := supply * dt
			h := enthalpy(rep.Temperature)
			boundaryMass += m
			boundaryEnergy += m * h
			outEnthalpy -= m * h
			delivered += specificHeat((in.InletTemp+rep.Temperature)/2) * supply * (in.InletTemp - rep.Temperature) * dt
		}

		g = Normalize(cfg, g, Both, j)
		var start Direction
		if start, err = Detect(g); err != nil {
			return StepResult{}, err
		}
		if g, err = resolveAll(cfg, g, start, Undefined, 0, dt, nil); err != nil {
			return StepResult{}, err
		}
		st.Storage = g

		before := g[len(g)-1].T
		st = Conduct(cfg, st, dt, cfg.VaporTemp, cfg.GroundHeatFlux)
		top := st.Storage[len(st.Storage)-1]
		q := (cfg.VaporTemp - (before+top.T)/2) / (top.Dh / 2) * conductivity(top.T)
		boundaryEnergy += (-cfg.GroundHeatFlux + q) * area * dt
		qTop += q * area * dt

		var loss float64
		if st, loss, err = ExchangeShell(cfg, st, dt, in.AmbientTemp); err != nil {
			return StepResult{}, err
		}
		shellLoss += loss
		boundaryEnergy -= loss

		g = Compact(st.Storage)
		if len(g) == 0 {
			return StepResult{}, fmt.Errorf("tank ran empty in sub-step %d: %w", j, ErrModelInvariant)
		}
		level := g.Level()
		pressure := 0.0
		for _, c := range g {
			pressure += gravity * c.Dh * density(c.T)
		}

		corr := -(g.Mass(area) - m0) + boundaryMass
		last := len(g) - 1
		g[0].Dh += corr / (2 * area * density(g[0].T))
		g[last].Dh += corr / (2 * area * density(g[last].T))
		st.Storage = Compact(g)

		rec := SubStepRecord{
			T:                 (in.T*3600 + dt*float64(j)) / 3600,
			Level:             level,
			BottomPressure:    pressure / 1.0e5,
			MassDeviation:     st.Storage.Mass(area) - m0 - boundaryMass,
			EnthalpyDeviation: (st.TotalEnergy(area) - e0 - boundaryEnergy) / 1000,
			WaterEnthalpy:     st.Storage.Enthalpy(area),
		}
		records = append(records, rec)
		entry.WithFields(log.Fields{
			"sub":       j,
			"cells":     len(st.Storage),
			"level":     rec.Level,
			"massDev":   rec.MassDeviation,
			"energyDev": rec.EnthalpyDeviation,
		}).Debug("sub step done")
	}

	return s.result(cfg, st, in, supply, ret, momentary, outEnthalpy, delivered, qTop, shellLoss, records), nil
}

// inject adds an inflow, lets the new plug find its height and mixes it into
// its neighbours.
func (s *Simulator) inject(cfg *Config, g Grid, side Side, massFlow, tin, dt float64) (Grid, error) {
	g, rep, err := Inflow(cfg, g, side, massFlow, tin, dt)
	if err != nil {
		return g, err
	}
	g = Compact(g)
	start, err := Detect(g)
	if err != nil {
		return g, err
	}
	g, err = resolveAll(cfg, g, start, side.source(), rep.Flow, dt, func(g Grid) Grid {
		return Advance(cfg, g, start, dt)
	})
	if err != nil {
		return g, fmt.Errorf("%s inflow at %.2f °C: %w", side, tin, err)
	}
	g = Mix(cfg, g)
	for i := range g {
		g[i].Imp, g[i].V = 0, 0
	}
	return g, nil
}

func (s *Simulator) result(cfg *Config, st State, in StepInput, supply, ret, momentary, outEnthalpy, delivered, qTop, shellLoss float64, records []SubStepRecord) StepResult {
	area := cfg.Area()
	g := st.Storage
	level := g.Level()

	outMass := 0.0
	if supply < 0 {
		outMass = -supply * in.Dt
	}
	if ret < 0 {
		outMass = -ret * in.Dt
	}
	outlet := -1.0
	if outMass > 0 {
		outlet = temperature(outEnthalpy / outMass)
	}

	r := StepResult{
		T:                     in.T,
		OutletTemp:            outlet,
		UsableMass:            UsableMass(cfg, g, level, cfg.UsableTemp),
		UsableMassMomentary:   UsableMass(cfg, g, level, momentary),
		MaxUsableMass:         MaxUsableMass(cfg, g, level),
		UsableEnergy:          UsableEnergy(cfg, g, level, cfg.UsableTemp),
		UsableEnergyMomentary: UsableEnergy(cfg, g, level, momentary),
		TotalMass:             g.Mass(area) / 1000,
		TotalEnergy:           st.TotalEnergy(area) / 1.0e9,
		WaterEnthalpy:         g.Enthalpy(area) / 1.0e9,
		BottomDiffuserTemp:    DiffuserTemperature(cfg, g, BottomSide, level),
		TopDiffuserTemp:       DiffuserTemperature(cfg, g, TopSide, level),
		DeliveredHeat:         delivered,
		TimeToEmpty:           math.Inf(1),
		Level:                 level,
		State:                 st,
		SubSteps:              records,
	}
	if ret != 0 {
		r.TimeToEmpty = r.UsableMass * 1000 / math.Abs(ret)
	}
	if len(records) > 0 {
		r.BottomPressure = records[len(records)-1].BottomPressure
	}
	r.Limits = Limits(cfg, r.UsableMass, r.MaxUsableMass, r.TopDiffuserTemp, r.BottomDiffuserTemp, in.Dt)
	r.Losses = Losses{
		VaporSpace: -qTop / in.Dt,
		Shell:      shellLoss / in.Dt,
		Ground:     cfg.GroundHeatFlux * area,
	}
	r.Losses.Total = r.Losses.VaporSpace + r.Losses.Shell + r.Losses.Ground

	s.log.WithFields(log.Fields{
		"t":           in.T,
		"level":       r.Level,
		"usableMass":  r.UsableMass,
		"totalEnergy": r.TotalEnergy,
		"outletTemp":  r.OutletTemp,
	}).Info("step finished")
	return r
}

// toMassFlow converts a volume rate with the density of the water passing
// the diffuser: inflows at the inlet temperature, outflows at the outlet one.
func toMassFlow(flow, inlet, outlet float64) float64 {
	if flow > 0 {
		return flow * density(inlet)
	}
	return flow * density(outlet)
}
