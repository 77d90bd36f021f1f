package calculator

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// Config holds the tank parameters of one run. It is loaded once and only
// read afterwards.
type Config struct {
	// tank
	Radius        float64 // R_innen, m
	ShellHeight   float64 // H_Mantel, m
	MaxWaterLevel float64 // H_WS_max, m
	MaxCellHeight float64 // m

	// diffusers
	DiffuserRadius   float64 // m
	DiffuserSlot     float64 // slot height of both diffusers, m
	BottomDiffuser   float64 // height of the lower edge of the bottom diffuser above the floor, m
	TopDiffuserDepth float64 // depth of the upper edge of the top diffuser below the water level, m
	MaxFlow          float64 // m³/h
	MinFlowRel       float64

	// temperatures, °C
	UsableTemp    float64 // T_grenz
	MomentaryTemp float64 // default T_RL
	TopTemp       float64
	BottomTemp    float64
	VaporTemp     float64 // T_DR
	FloorTemp     float64
	FloorSection  float64 // height of the lowest measured cell used for extrapolation, m

	// ground
	GroundTemp             float64 // °C
	GroundHeatFlux         float64 // W/m², positive towards the ground
	FoundationConductivity float64 // W/(m K), for the initial gradient

	// shell
	WallAlpha      float64 // W/(m² K), water to inner wall
	ShellU         float64 // W/(m² K), shell to ambient
	ShellThickness float64 // m

	// initial state
	TransitionHeight float64 // m
	ChargeFactor     float64 // < 0 selects the transition position
	TransitionPos    float64 // m
	InitPressure     float64 // bar, 0 selects linear interpolation
	PressureSensor   float64 // m

	// options
	MomentumPlacement bool
	SideStream        SideStreamConfig

	SubStep float64 // s
}

// SideStreamConfig describes the guide tube geometry of tanks whose top
// diffuser sits on a floating pipe.
type SideStreamConfig struct {
	Enabled            bool
	TubeInnerRadius    float64 // r_i_Gleitrohr
	GuideLength        float64 // L_Fuehrung
	GuideInnerRadius   float64 // r_i_Fuehrung
	DoubleWallOuter    float64 // r_a_Doppelwand_Gleitrohr
	OrificeRadius      float64 // r_Blende
	SingleWallOuter    float64 // r_a_Einwand_Gleitrohr
	PipeEndHeight      float64 // h_Rohrende
	HeatTransferFactor float64
	OrificeLoss        float64
	OutflowPressure    float64 // Pa
}

// DefaultConfig returns the parameter set of conf/config.ini.
func DefaultConfig() *Config {
	cfg, _ := newConfig(ini.Empty())
	return cfg
}

// LoadConfig reads the tank parameters from an ini file.
func LoadConfig(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := newConfig(file)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	log.WithFields(log.Fields{
		"path":   path,
		"radius": cfg.Radius,
		"height": cfg.ShellHeight,
		"level":  cfg.MaxWaterLevel,
	}).Info("config loaded")
	return cfg, nil
}

func newConfig(file *ini.File) (*Config, error) {
	tank := file.Section("tank")
	diffuser := file.Section("diffuser")
	thresholds := file.Section("thresholds")
	temperatures := file.Section("temperatures")
	ground := file.Section("ground")
	shell := file.Section("shell")
	initial := file.Section("init")
	inflow := file.Section("inflow")
	side := file.Section("sidestream")

	cfg := &Config{
		Radius:        tank.Key("radius").MustFloat64(10.0),
		ShellHeight:   tank.Key("shell_height").MustFloat64(42.0),
		MaxWaterLevel: tank.Key("max_water_level").MustFloat64(40.0),
		MaxCellHeight: tank.Key("max_cell_height").MustFloat64(0.5),
		SubStep:       tank.Key("sub_step").MustFloat64(60),

		DiffuserRadius:   diffuser.Key("radius").MustFloat64(3.0),
		DiffuserSlot:     diffuser.Key("slot_height").MustFloat64(0.6),
		BottomDiffuser:   diffuser.Key("bottom_edge").MustFloat64(1.0),
		TopDiffuserDepth: diffuser.Key("top_depth").MustFloat64(1.5),
		MaxFlow:          diffuser.Key("max_flow").MustFloat64(1000),
		MinFlowRel:       diffuser.Key("min_flow_rel").MustFloat64(0.1),

		UsableTemp:    thresholds.Key("usable").MustFloat64(60),
		MomentaryTemp: thresholds.Key("momentary").MustFloat64(60),

		TopTemp:      temperatures.Key("top").MustFloat64(90),
		BottomTemp:   temperatures.Key("bottom").MustFloat64(30),
		VaporTemp:    temperatures.Key("vapor").MustFloat64(90),
		FloorTemp:    temperatures.Key("floor").MustFloat64(27),
		FloorSection: temperatures.Key("floor_section").MustFloat64(0),

		GroundTemp:             ground.Key("temperature").MustFloat64(10),
		GroundHeatFlux:         ground.Key("heat_flux").MustFloat64(5),
		FoundationConductivity: ground.Key("conductivity").MustFloat64(FoundationConductivity),

		WallAlpha:      shell.Key("alpha_inner").MustFloat64(800),
		ShellU:         shell.Key("u_value").MustFloat64(0.3),
		ShellThickness: shell.Key("thickness").MustFloat64(0.016),

		TransitionHeight: initial.Key("transition_height").MustFloat64(2.0),
		ChargeFactor:     initial.Key("charge_factor").MustFloat64(0.5),
		TransitionPos:    initial.Key("transition_pos").MustFloat64(20),
		InitPressure:     initial.Key("bottom_pressure").MustFloat64(0),
		PressureSensor:   initial.Key("pressure_sensor").MustFloat64(0),

		MomentumPlacement: inflow.Key("momentum_placement").MustBool(false),

		SideStream: SideStreamConfig{
			Enabled:            side.Key("enabled").MustBool(false),
			TubeInnerRadius:    side.Key("tube_inner_radius").MustFloat64(0.35),
			GuideLength:        side.Key("guide_length").MustFloat64(3.0),
			GuideInnerRadius:   side.Key("guide_inner_radius").MustFloat64(0.6),
			DoubleWallOuter:    side.Key("double_wall_outer").MustFloat64(0.45),
			OrificeRadius:      side.Key("orifice_radius").MustFloat64(0.55),
			SingleWallOuter:    side.Key("single_wall_outer").MustFloat64(0.37),
			PipeEndHeight:      side.Key("pipe_end_height").MustFloat64(30),
			HeatTransferFactor: side.Key("heat_transfer_factor").MustFloat64(0.05),
			OrificeLoss:        side.Key("orifice_loss").MustFloat64(2.6),
			OutflowPressure:    side.Key("outflow_pressure").MustFloat64(0.75),
		},
	}
	return cfg, cfg.validate()
}

func (cfg *Config) validate() error {
	var err error
	switch {
	case cfg.Radius <= 0:
		err = fmt.Errorf("tank radius must be positive, got %v", cfg.Radius)
	case cfg.MaxWaterLevel <= 0 || cfg.MaxWaterLevel > cfg.ShellHeight:
		err = fmt.Errorf("max water level %v outside (0, %v]", cfg.MaxWaterLevel, cfg.ShellHeight)
	case cfg.MaxCellHeight <= 0:
		err = fmt.Errorf("max cell height must be positive, got %v", cfg.MaxCellHeight)
	case cfg.DiffuserSlot <= 0:
		err = fmt.Errorf("diffuser slot height must be positive, got %v", cfg.DiffuserSlot)
	case cfg.DiffuserRadius >= cfg.Radius:
		err = fmt.Errorf("diffuser radius %v not inside tank radius %v", cfg.DiffuserRadius, cfg.Radius)
	case cfg.GroundHeatFlux == 0:
		err = fmt.Errorf("ground heat flux must not be zero")
	case cfg.SubStep <= 0:
		err = fmt.Errorf("sub step must be positive, got %v", cfg.SubStep)
	}
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrInputValidation)
	}
	return nil
}

// Area is the free cross section of the tank.
func (cfg *Config) Area() float64 {
	return math.Pi * cfg.Radius * cfg.Radius
}

// Profile maps measured heights (m) to temperatures (°C).
type Profile map[float64]float64

// ParseProfile reads "height:temperature" pairs, e.g. "2.0:27.6, 6.0:28.4".
func ParseProfile(pairs []string) (Profile, error) {
	p := make(Profile, len(pairs))
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("profile entry %q is not height:temperature", pair)
		}
		h, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("profile height %q: %w", parts[0], err)
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("profile temperature %q: %w", parts[1], err)
		}
		p[h] = t
	}
	return p, nil
}

// MarshalJSON writes the heights as object keys.
func (p Profile) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, len(p))
	for h, t := range p {
		m[strconv.FormatFloat(h, 'f', -1, 64)] = t
	}
	return json.Marshal(m)
}
