package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepAtRestConserves(t *testing.T) {
	cfg := DefaultConfig()
	sim := NewSimulator(cfg)
	r, err := sim.Step(State{}, StepInput{Dt: 600, InletTemp: 60, AmbientTemp: 10})
	require.NoError(t, err)
	require.Len(t, r.SubSteps, 10)

	area := cfg.Area()
	mass := r.State.Storage.Mass(area)
	energy := r.State.TotalEnergy(area)
	for i, rec := range r.SubSteps {
		assert.InDelta(t, 0, rec.MassDeviation, 1e-6*mass, "sub-step %d", i)
		assert.InDelta(t, 0, rec.EnthalpyDeviation*1000, 1e-6*energy, "sub-step %d", i)
	}
	assert.InDelta(t, 10.0/60, r.SubSteps[len(r.SubSteps)-1].T, 1e-12)

	assert.Equal(t, -1.0, r.OutletTemp)
	assert.True(t, math.IsInf(r.TimeToEmpty, 1))
	assert.Nil(t, r.ThermoclineBottom)
	assert.Greater(t, r.Losses.Shell, 0.0)
	assert.InDelta(t, cfg.GroundHeatFlux*area, r.Losses.Ground, 1e-9)
	assert.InDelta(t, r.Losses.VaporSpace+r.Losses.Shell+r.Losses.Ground, r.Losses.Total, 1e-9)
	assert.Greater(t, r.BottomPressure, 3.5)

	dir, err := Detect(r.State.Storage)
	require.NoError(t, err)
	assert.Equal(t, None, dir)
}

func TestStepCharging(t *testing.T) {
	cfg := DefaultConfig()
	sim := NewSimulator(cfg)
	flow := density(90) * 100 / 3600

	first, err := sim.Step(State{}, StepInput{Dt: 3600, InletTemp: 90, AmbientTemp: 10})
	require.NoError(t, err)

	r, err := sim.Step(first.State, StepInput{
		T: 1, Dt: 3600, SupplyFlow: flow, ReturnFlow: -flow, InletTemp: 90, AmbientTemp: 10,
	})
	require.NoError(t, err)
	assert.Greater(t, r.UsableEnergy, first.UsableEnergy)
	assert.Greater(t, r.UsableMass, first.UsableMass)
	assert.InDelta(t, first.TotalMass, r.TotalMass, 1e-6*first.TotalMass)
	assert.InDelta(t, cfg.BottomTemp, r.OutletTemp, 1)
	assert.Greater(t, r.DeliveredHeat, 0.0)
	assert.False(t, math.IsInf(r.TimeToEmpty, 1))

	dir, err := Detect(r.State.Storage)
	require.NoError(t, err)
	assert.Equal(t, None, dir)
}

func TestStepDischargingVolumetric(t *testing.T) {
	cfg := DefaultConfig()
	sim := NewSimulator(cfg)
	first, err := sim.Step(State{}, StepInput{Dt: 3600, InletTemp: 30, AmbientTemp: 10})
	require.NoError(t, err)

	r, err := sim.Step(first.State, StepInput{
		T: 1, Dt: 3600, SupplyFlow: -0.02, ReturnFlow: 0.02, InletTemp: 30,
		AmbientTemp: 10, Volumetric: true, OutletTemp: 90,
	})
	require.NoError(t, err)
	assert.Less(t, r.UsableEnergy, first.UsableEnergy)
	assert.InDelta(t, cfg.TopTemp, r.OutletTemp, 1)
	assert.Greater(t, r.DeliveredHeat, 0.0)
}

func TestStepRejectsInput(t *testing.T) {
	sim := NewSimulator(DefaultConfig())
	tests := []struct {
		name string
		prev State
		in   StepInput
	}{
		{name: "inlet too cold", in: StepInput{Dt: 60, InletTemp: 10}},
		{name: "inlet too hot", in: StepInput{Dt: 60, InletTemp: 110}},
		{name: "no step", in: StepInput{Dt: 0, InletTemp: 60}},
		{name: "no state", in: StepInput{T: 5, Dt: 60, InletTemp: 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Step(tt.prev, tt.in)
			assert.ErrorIs(t, err, ErrInputValidation)
		})
	}
}

func TestStepVaporOverride(t *testing.T) {
	cfg := DefaultConfig()
	sim := NewSimulator(cfg)
	base, err := sim.Step(State{}, StepInput{Dt: 600, InletTemp: 60, AmbientTemp: 10})
	require.NoError(t, err)

	vapor := 40.0
	r, err := sim.Step(State{}, StepInput{Dt: 600, InletTemp: 60, AmbientTemp: 10, VaporTemp: &vapor})
	require.NoError(t, err)
	assert.Less(t, r.TotalEnergy, base.TotalEnergy)
	assert.Equal(t, 90.0, cfg.VaporTemp, "override must not leak into the configuration")
}

func TestToMassFlow(t *testing.T) {
	assert.InDelta(t, density(90), toMassFlow(1, 90, 30), 1e-12)
	assert.InDelta(t, -density(30), toMassFlow(-1, 90, 30), 1e-12)
}

func TestDeliveredHeatIsEnergyOverStep(t *testing.T) {
	sim := NewSimulator(DefaultConfig())
	first, err := sim.Step(State{}, StepInput{Dt: 3600, InletTemp: 30, AmbientTemp: 10})
	require.NoError(t, err)

	deliver := func(dt float64) float64 {
		r, err := sim.Step(first.State.Clone(), StepInput{
			T: 1, Dt: dt, SupplyFlow: -0.02, ReturnFlow: 0.02, InletTemp: 30,
			AmbientTemp: 10, Volumetric: true, OutletTemp: 90,
		})
		require.NoError(t, err)
		return r.DeliveredHeat
	}
	half, full := deliver(1800), deliver(3600)
	assert.InEpsilon(t, 2*half, full, 0.02, "heat in J, not W")
}
