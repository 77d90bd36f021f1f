package calculator

import (
	"math"

	log "github.com/sirupsen/logrus"
)

// Zone is a horizontal band of the tank.
type Zone int

const (
	BelowBottomDiffuser Zone = iota
	BottomDiffuserZone
	ActiveZone
	TopDiffuserZone
	AboveTopDiffuser
)

var zoneNames = [...]string{
	BelowBottomDiffuser: "floor",
	BottomDiffuserZone:  "bottom diffuser",
	ActiveZone:          "active",
	TopDiffuserZone:     "top diffuser",
	AboveTopDiffuser:    "surface",
}

func (z Zone) String() string {
	if z < 0 || int(z) >= len(zoneNames) {
		return "unknown"
	}
	return zoneNames[z]
}

// Geometry are the quantities derived from the tank configuration.
type Geometry struct {
	Area         float64 // m²
	Volume       float64 // m³ up to the maximum water level
	ActiveHeight float64 // m between the diffuser edges at maximum level
	SlotArea     float64 // m², outlet area of one diffuser
	MixingHeight float64 // m, reach of the horizontal mixing per side
	ShellMass    float64 // kg
}

func NewGeometry(cfg *Config) Geometry {
	outer := cfg.Radius + cfg.ShellThickness
	return Geometry{
		Area:         cfg.Area(),
		Volume:       cfg.Area() * cfg.MaxWaterLevel,
		ActiveHeight: cfg.MaxWaterLevel - cfg.BottomDiffuser - cfg.TopDiffuserDepth,
		SlotArea:     math.Pi * 2 * cfg.DiffuserRadius * cfg.DiffuserSlot,
		MixingHeight: math.Tan(6.5/180*math.Pi) * (cfg.Radius - cfg.DiffuserRadius),
		ShellMass:    math.Pi * (outer*outer - cfg.Radius*cfg.Radius) * cfg.ShellHeight * ShellDensity,
	}
}

func (g Geometry) Log(entry *log.Entry) {
	entry.WithFields(log.Fields{
		"area":         g.Area,
		"volume":       g.Volume,
		"activeHeight": g.ActiveHeight,
		"slotArea":     g.SlotArea,
		"mixingHeight": g.MixingHeight,
		"shellMass":    g.ShellMass,
	}).Info("tank geometry")
}

// WhichZone returns the band a height lies in for the given water level.
func WhichZone(cfg *Config, h, level float64) Zone {
	topEdge := level - cfg.TopDiffuserDepth
	switch {
	case h < cfg.BottomDiffuser:
		return BelowBottomDiffuser
	case h <= cfg.BottomDiffuser+cfg.DiffuserSlot:
		return BottomDiffuserZone
	case h < topEdge-cfg.DiffuserSlot:
		return ActiveZone
	case h <= topEdge:
		return TopDiffuserZone
	}
	return AboveTopDiffuser
}
