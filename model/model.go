package model

// Env is the scenario a client asks the server to run.
type Env struct {
	StepSeconds float64 `json:"step_seconds"`
	AmbientTemp float64 `json:"ambient_temp"`
	PipeLoss    bool    `json:"pipe_loss"`
	Phases      []Phase `json:"phases"`
	// measured start profile, height in m to temperature in °C
	Profile map[string]float64 `json:"profile,omitempty"`
}

// Phase is a stretch of constant operation.
type Phase struct {
	Name       string  `json:"name"`
	Hours      float64 `json:"hours"`
	SupplyFlow float64 `json:"supply_flow"` // kg/s, positive into the tank
	ReturnFlow float64 `json:"return_flow"` // kg/s
	InletTemp  float64 `json:"inlet_temp"`
}

// StepReport is what is pushed to clients after every macro step.
type StepReport struct {
	RunID      string  `json:"run_id"`
	T          float64 `json:"t"`
	Phase      string  `json:"phase"`
	OutletTemp float64 `json:"outlet_temp"`

	UsableMass            float64 `json:"usable_mass"`
	UsableMassMomentary   float64 `json:"usable_mass_momentary"`
	MaxUsableMass         float64 `json:"max_usable_mass"`
	UsableEnergy          float64 `json:"usable_energy"`
	UsableEnergyMomentary float64 `json:"usable_energy_momentary"`
	TotalMass             float64 `json:"total_mass"`
	TotalEnergy           float64 `json:"total_energy"`
	WaterEnthalpy         float64 `json:"water_enthalpy"`

	BottomDiffuserTemp float64 `json:"bottom_diffuser_temp"`
	TopDiffuserTemp    float64 `json:"top_diffuser_temp"`
	LossTotal          float64 `json:"loss_total"`
	LossVaporSpace     float64 `json:"loss_vapor_space"`
	LossShell          float64 `json:"loss_shell"`
	LossGround         float64 `json:"loss_ground"`
	TimeToEmpty        float64 `json:"time_to_empty"` // -1 when infinite
	Level              float64 `json:"level"`
	BottomPressure     float64 `json:"bottom_pressure"`
	MaxChargeFlow      float64 `json:"max_charge_flow"`
	MaxDischargeFlow   float64 `json:"max_discharge_flow"`
	MinFlow            float64 `json:"min_flow"`

	Cells []CellRecord `json:"cells,omitempty"`
}

// CellRecord is one water cell of a pushed profile.
type CellRecord struct {
	Pos  float64 `json:"pos"`
	T    float64 `json:"t"`
	Dh   float64 `json:"dh"`
	Zone string  `json:"zone"`
}

// Snapshot is a temperature profile at an elapsed time.
type Snapshot struct {
	T       float64   // h
	Heights []float64 // m
	Temps   []float64 // °C
}

// 前后端通信消息结构
type Msg struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}
