package calculator

import (
	log "github.com/sirupsen/logrus"
)

// UsableEnergy is the enthalpy above tref stored below the upper edge of the
// top diffuser, in GJ.
func UsableEnergy(cfg *Config, g Grid, level, tref float64) float64 {
	edge := level - cfg.TopDiffuserDepth
	href := enthalpy(tref)
	e := 0.0
	for _, c := range g {
		if c.T <= tref {
			continue
		}
		lo, hi := c.Pos-c.Dh/2, c.Pos+c.Dh/2
		switch {
		case hi <= edge:
			e += c.Dh * density(c.T) * (enthalpy(c.T) - href)
		case lo < edge:
			e += (edge - lo) * density(c.T) * (enthalpy(c.T) - href)
		}
	}
	return cfg.Area() * e / 1.0e9
}

// UsableMass is the mass at or above tref between the lower edge of the
// bottom diffuser and the upper edge of the top diffuser, in t.
func UsableMass(cfg *Config, g Grid, level, tref float64) float64 {
	m := 0.0
	for _, c := range g {
		if c.T >= tref {
			m += activeMass(cfg, c, level)
		}
	}
	return cfg.Area() * m / 1000
}

// MaxUsableMass is the mass between the two diffuser edges, in t.
func MaxUsableMass(cfg *Config, g Grid, level float64) float64 {
	m := 0.0
	for _, c := range g {
		m += activeMass(cfg, c, level)
	}
	return cfg.Area() * m / 1000
}

// activeMass is the mass per area of c inside the active zone.
func activeMass(cfg *Config, c Cell, level float64) float64 {
	top := level - cfg.TopDiffuserDepth
	bottom := cfg.BottomDiffuser
	lo, hi := c.Pos-c.Dh/2, c.Pos+c.Dh/2
	switch {
	case lo >= bottom && hi <= top:
		return c.Dh * density(c.T)
	case lo < top && hi > top:
		return (top - lo) * density(c.T)
	case hi > bottom && lo < bottom:
		return (hi - bottom) * density(c.T)
	}
	return 0
}

// FlowLimits are the admissible mass flows for the next step, kg/s.
type FlowLimits struct {
	MaxCharge    float64
	MaxDischarge float64
	Min          float64
}

// Limits derives the flow limits from the usable masses (t) and the diffuser
// temperatures. dt is the step length in s.
func Limits(cfg *Config, usable, maxUsable, topDiffuserTemp, bottomDiffuserTemp, dt float64) FlowLimits {
	capCharge := cfg.MaxFlow / 3600 * density(topDiffuserTemp)
	capDischarge := cfg.MaxFlow / 3600 * density(bottomDiffuserTemp)

	l := FlowLimits{
		MaxCharge:    max(0, min((maxUsable-usable)*1000/dt, capCharge)),
		MaxDischarge: min(usable*1000/dt, capDischarge),
		Min:          max(cfg.MinFlowRel*capDischarge, cfg.MinFlowRel*capCharge),
	}
	if topDiffuserTemp < cfg.UsableTemp {
		log.WithFields(log.Fields{
			"diffuserTemp": topDiffuserTemp,
			"usableTemp":   cfg.UsableTemp,
		}).Warn("top diffuser temperature below the usable threshold")
	}
	return l
}
