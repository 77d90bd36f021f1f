package calculator

import (
	"fmt"
	"math"
	"strconv"

	"freettes/model"
)

// Report flattens a finished step for clients and the history database.
// With cells set the water column is attached.
func (o Outcome) Report(cfg *Config, runID string, cells bool) model.StepReport {
	r := o.Result
	rep := model.StepReport{
		RunID:      runID,
		T:          r.T,
		Phase:      o.Phase,
		OutletTemp: r.OutletTemp,

		UsableMass:            r.UsableMass,
		UsableMassMomentary:   r.UsableMassMomentary,
		MaxUsableMass:         r.MaxUsableMass,
		UsableEnergy:          r.UsableEnergy,
		UsableEnergyMomentary: r.UsableEnergyMomentary,
		TotalMass:             r.TotalMass,
		TotalEnergy:           r.TotalEnergy,
		WaterEnthalpy:         r.WaterEnthalpy,

		BottomDiffuserTemp: r.BottomDiffuserTemp,
		TopDiffuserTemp:    r.TopDiffuserTemp,
		LossTotal:          r.Losses.Total,
		LossVaporSpace:     r.Losses.VaporSpace,
		LossShell:          r.Losses.Shell,
		LossGround:         r.Losses.Ground,
		TimeToEmpty:        r.TimeToEmpty,
		Level:              r.Level,
		BottomPressure:     r.BottomPressure,
		MaxChargeFlow:      r.Limits.MaxCharge,
		MaxDischargeFlow:   r.Limits.MaxDischarge,
		MinFlow:            r.Limits.Min,
	}
	if math.IsInf(rep.TimeToEmpty, 1) {
		rep.TimeToEmpty = -1
	}
	if cells {
		rep.Cells = make([]model.CellRecord, len(r.State.Storage))
		for i, c := range r.State.Storage {
			rep.Cells[i] = model.CellRecord{
				Pos:  c.Pos,
				T:    c.T,
				Dh:   c.Dh,
				Zone: WhichZone(cfg, c.Pos, r.Level).String(),
			}
		}
	}
	return rep
}

// ScenarioFromEnv builds a scenario from a client request. Missing fields
// fall back to the example scenario.
func ScenarioFromEnv(env model.Env) (Scenario, error) {
	sc := ExampleScenario()
	if env.StepSeconds > 0 {
		sc.Step = env.StepSeconds
	}
	if env.AmbientTemp != 0 {
		sc.Ambient = env.AmbientTemp
	}
	sc.PipeLoss = env.PipeLoss
	if len(env.Profile) > 0 {
		sc.Profile = make(Profile, len(env.Profile))
		for k, t := range env.Profile {
			h, err := strconv.ParseFloat(k, 64)
			if err != nil {
				return Scenario{}, fmt.Errorf("profile height %q: %w", k, ErrInputValidation)
			}
			sc.Profile[h] = t
		}
	}
	if len(env.Phases) > 0 {
		sc.Phases = make([]Phase, len(env.Phases))
		for i, p := range env.Phases {
			if p.Hours <= 0 {
				return Scenario{}, fmt.Errorf("phase %q lasts %v h: %w", p.Name, p.Hours, ErrInputValidation)
			}
			sc.Phases[i] = Phase(p)
		}
	}
	return sc, nil
}
