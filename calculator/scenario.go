package calculator

import (
	"fmt"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// Phase is a stretch of constant operation. Flows are kg/s, positive into
// the tank.
type Phase struct {
	Name       string
	Hours      float64
	SupplyFlow float64
	ReturnFlow float64
	InletTemp  float64
}

// Scenario is a sequence of phases run with a fixed macro step.
type Scenario struct {
	Step     float64 // s
	Start    float64 // h, elapsed time of the first step; 0 initialises the tank
	Ambient  float64 // °C
	PipeLoss bool    // inlet temperature after the district heating pipe
	Profile  Profile // measured start profile, nil for the configured one
	Phases   []Phase
}

// Plan is one macro step of a scenario.
type Plan struct {
	Phase string
	Input StepInput
}

// ExampleScenario is a year of charging, idling, discharging and idling with
// 14 m³/h through the diffusers.
func ExampleScenario() Scenario {
	charge := density(90) * 14 / 3600
	discharge := density(30) * 14 / 3600
	return Scenario{
		Step:    3600,
		Ambient: 10,
		Profile: Profile{
			2: 27.63, 6: 28.39, 10: 28.39, 14: 28.39, 18: 28.39,
			22: 28.39, 26: 28.39, 30: 28.42, 34: 31.07, 38: 44.13,
		},
		Phases: []Phase{
			{Name: "charge", Hours: 2920, SupplyFlow: charge, ReturnFlow: -charge, InletTemp: 90},
			{Name: "idle", Hours: 730, InletTemp: 90},
			{Name: "discharge", Hours: 2921, SupplyFlow: -discharge, ReturnFlow: discharge, InletTemp: 30},
			{Name: "idle", Hours: 2190, InletTemp: 30},
		},
	}
}

// LoadScenario reads the [scenario] section and its [scenario.<phase>]
// children. Without phases the example scenario is returned with the
// section's step, ambient and pipe settings applied.
func LoadScenario(path string) (Scenario, error) {
	file, err := ini.Load(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	return newScenario(file)
}

func newScenario(file *ini.File) (Scenario, error) {
	sec := file.Section("scenario")
	sc := ExampleScenario()
	sc.Step = sec.Key("step").MustFloat64(sc.Step)
	sc.Start = sec.Key("start").MustFloat64(0)
	sc.Ambient = sec.Key("ambient").MustFloat64(sc.Ambient)
	sc.PipeLoss = sec.Key("pipe_loss").MustBool(false)
	if sec.HasKey("profile") {
		p, err := ParseProfile(sec.Key("profile").Strings(","))
		if err != nil {
			return Scenario{}, err
		}
		sc.Profile = p
	}
	if sc.Step <= 0 {
		return Scenario{}, fmt.Errorf("scenario step must be positive, got %v", sc.Step)
	}
	if sc.Start < 0 {
		return Scenario{}, fmt.Errorf("scenario start must not be negative, got %v", sc.Start)
	}

	children := sec.ChildSections()
	if len(children) == 0 {
		return sc, nil
	}
	sc.Phases = sc.Phases[:0]
	for _, child := range children {
		name := strings.TrimPrefix(child.Name(), "scenario.")
		ph := Phase{
			Name:       child.Key("name").MustString(name),
			Hours:      child.Key("hours").MustFloat64(0),
			SupplyFlow: child.Key("supply_flow").MustFloat64(0),
			ReturnFlow: child.Key("return_flow").MustFloat64(0),
			InletTemp:  child.Key("inlet_temp").MustFloat64(60),
		}
		if ph.Hours <= 0 {
			return Scenario{}, fmt.Errorf("phase %s: hours must be positive, got %v", name, ph.Hours)
		}
		sc.Phases = append(sc.Phases, ph)
	}
	return sc, nil
}

// Plans expands the phases into macro steps.
func (sc Scenario) Plans() []Plan {
	var plans []Plan
	t := sc.Start
	for _, ph := range sc.Phases {
		steps := int(math.Round(ph.Hours * 3600 / sc.Step))
		inlet := ph.InletTemp
		if sc.PipeLoss {
			if in := math.Max(ph.SupplyFlow, ph.ReturnFlow); in > 0 {
				inlet = PipeOutletTemperature(inlet, in, sc.Ambient)
			}
		}
		for k := 0; k < steps; k++ {
			in := StepInput{
				T:           t,
				Dt:          sc.Step,
				SupplyFlow:  ph.SupplyFlow,
				ReturnFlow:  ph.ReturnFlow,
				InletTemp:   inlet,
				AmbientTemp: sc.Ambient,
			}
			if t == 0 {
				in.Profile = sc.Profile
			}
			plans = append(plans, Plan{Phase: ph.Name, Input: in})
			t += sc.Step / 3600
		}
	}
	log.WithFields(log.Fields{
		"phases":   len(sc.Phases),
		"steps":    len(plans),
		"pipeLoss": sc.PipeLoss,
	}).Debug("scenario planned")
	return plans
}
