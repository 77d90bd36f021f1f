package calculator

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"freettes/model"
)

func TestExampleScenarioPlans(t *testing.T) {
	sc := ExampleScenario()
	plans := sc.Plans()
	require.Len(t, plans, 2920+730+2921+2190)

	first := plans[0]
	assert.Equal(t, "charge", first.Phase)
	assert.Zero(t, first.Input.T)
	assert.Equal(t, sc.Profile, first.Input.Profile)
	assert.InDelta(t, density(90)*14/3600, first.Input.SupplyFlow, 1e-12)
	assert.Equal(t, -first.Input.SupplyFlow, first.Input.ReturnFlow)

	assert.Nil(t, plans[1].Input.Profile)
	assert.Equal(t, "idle", plans[2920].Phase)
	assert.InDelta(t, 2920, plans[2920].Input.T, 1e-6)

	last := plans[len(plans)-1]
	assert.Equal(t, "idle", last.Phase)
	assert.InDelta(t, 8760, last.Input.T, 1e-6)
	assert.Equal(t, 30.0, last.Input.InletTemp)
}

func TestLoadScenarioFromConfig(t *testing.T) {
	sc, err := LoadScenario("../conf/config.ini")
	require.NoError(t, err)

	names := make([]string, len(sc.Phases))
	for i, ph := range sc.Phases {
		names[i] = ph.Name
	}
	assert.Equal(t, []string{"charge", "idle", "discharge", "idle"}, names)
	assert.Len(t, sc.Plans(), 8761)
	if diff := cmp.Diff(ExampleScenario().Profile, sc.Profile); diff != "" {
		t.Errorf("profile mismatch (-example +file):\n%s", diff)
	}
}

func TestNewScenario(t *testing.T) {
	file, err := ini.Load([]byte(`
[scenario]
step = 1800
start = 12
ambient = 5
[scenario.warmup]
hours = 1
return_flow = 2
`))
	require.NoError(t, err)
	sc, err := newScenario(file)
	require.NoError(t, err)

	want := []Phase{{Name: "warmup", Hours: 1, ReturnFlow: 2, InletTemp: 60}}
	assert.Equal(t, want, sc.Phases)

	plans := sc.Plans()
	require.Len(t, plans, 2)
	assert.Equal(t, 12.0, plans[0].Input.T)
	assert.Equal(t, 12.5, plans[1].Input.T)
	assert.Nil(t, plans[0].Input.Profile, "a restart keeps the saved state")
	assert.Equal(t, 5.0, plans[0].Input.AmbientTemp)
}

func TestNewScenarioRejects(t *testing.T) {
	for name, src := range map[string]string{
		"step":    "[scenario]\nstep = 0",
		"start":   "[scenario]\nstart = -1",
		"hours":   "[scenario.x]\nhours = 0",
		"profile": "[scenario]\nprofile = 2:hot",
	} {
		t.Run(name, func(t *testing.T) {
			file, err := ini.Load([]byte(src))
			require.NoError(t, err)
			_, err = newScenario(file)
			assert.Error(t, err)
		})
	}
}

func TestLoadScenarioWithoutPhases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.ini")
	require.NoError(t, os.WriteFile(path, []byte("[scenario]\nambient = 0\n"), 0644))
	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Len(t, sc.Phases, 4)
	assert.Zero(t, sc.Ambient)
}

func TestPlansWithPipeLoss(t *testing.T) {
	sc := Scenario{
		Step:     3600,
		Ambient:  10,
		PipeLoss: true,
		Phases: []Phase{
			{Name: "charge", Hours: 1, SupplyFlow: 20, ReturnFlow: -20, InletTemp: 90},
			{Name: "idle", Hours: 1, InletTemp: 90},
		},
	}
	plans := sc.Plans()
	require.Len(t, plans, 2)
	assert.InDelta(t, PipeOutletTemperature(90, 20, 10), plans[0].Input.InletTemp, 1e-12)
	assert.Less(t, plans[0].Input.InletTemp, 90.0)
	assert.Equal(t, 90.0, plans[1].Input.InletTemp, "no flow, no pipe")
}

func TestScenarioFromEnv(t *testing.T) {
	sc, err := ScenarioFromEnv(model.Env{
		StepSeconds: 600,
		AmbientTemp: 3,
		Profile:     map[string]float64{"2": 30, "38": 80},
		Phases:      []model.Phase{{Name: "charge", Hours: 2, SupplyFlow: 5, ReturnFlow: -5, InletTemp: 85}},
	})
	require.NoError(t, err)
	assert.Equal(t, 600.0, sc.Step)
	assert.Equal(t, 3.0, sc.Ambient)
	assert.Equal(t, Profile{2: 30, 38: 80}, sc.Profile)
	assert.Equal(t, []Phase{{Name: "charge", Hours: 2, SupplyFlow: 5, ReturnFlow: -5, InletTemp: 85}}, sc.Phases)
	assert.Len(t, sc.Plans(), 12)

	sc, err = ScenarioFromEnv(model.Env{})
	require.NoError(t, err)
	assert.Equal(t, ExampleScenario().Step, sc.Step)

	_, err = ScenarioFromEnv(model.Env{Profile: map[string]float64{"top": 80}})
	assert.ErrorIs(t, err, ErrInputValidation)
	_, err = ScenarioFromEnv(model.Env{Phases: []model.Phase{{Name: "x"}}})
	assert.ErrorIs(t, err, ErrInputValidation)
}

func TestOutcomeReport(t *testing.T) {
	cfg := DefaultConfig()
	o := Outcome{
		Phase: "idle",
		Result: StepResult{
			T:           3,
			TimeToEmpty: math.Inf(1),
			Level:       40,
			Losses:      Losses{Total: 7, Shell: 2},
			Limits:      FlowLimits{MaxCharge: 1, MaxDischarge: 2, Min: 0.5},
			State:       State{Storage: uniform(40, 1, 60)},
		},
	}
	rep := o.Report(cfg, "run-1", false)
	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, "idle", rep.Phase)
	assert.Equal(t, -1.0, rep.TimeToEmpty)
	assert.Equal(t, 7.0, rep.LossTotal)
	assert.Equal(t, 2.0, rep.MaxDischargeFlow)
	assert.Nil(t, rep.Cells)

	rep = o.Report(cfg, "run-1", true)
	require.Len(t, rep.Cells, 40)
	assert.Equal(t, "floor", rep.Cells[0].Zone)
	assert.Equal(t, "bottom diffuser", rep.Cells[1].Zone)
	assert.Equal(t, "active", rep.Cells[20].Zone)
	assert.Equal(t, "surface", rep.Cells[39].Zone)
}
