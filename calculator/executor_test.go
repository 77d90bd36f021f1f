package calculator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortScenario(inlet float64) []Plan {
	sc := Scenario{
		Step:    600,
		Ambient: 10,
		Phases: []Phase{
			{Name: "idle", Hours: 0.5, InletTemp: inlet},
		},
	}
	return sc.Plans()
}

func TestExecutorRuns(t *testing.T) {
	exec := NewExecutor(NewSimulator(DefaultConfig()), nil)

	var seen []Outcome
	st, err := exec.Run(context.Background(), shortScenario(60), State{}, func(o Outcome) error {
		seen = append(seen, o)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 3)
	for i, o := range seen {
		assert.Equal(t, "idle", o.Phase)
		assert.InDelta(t, float64(i)/6, o.Result.T, 1e-9)
	}
	assert.Equal(t, len(seen[2].Result.State.Storage), len(st.Storage))

	// results are copies; changing one must not reach the worker's state
	seen[0].Result.State.Storage[0].T = -100
	assert.NotEqual(t, -100.0, seen[1].Result.State.Storage[0].T)
}

func TestExecutorStopsOnFailingStep(t *testing.T) {
	exec := NewExecutor(NewSimulator(DefaultConfig()), nil)
	calls := 0
	_, err := exec.Run(context.Background(), shortScenario(10), State{}, func(Outcome) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, ErrInputValidation)
	assert.Zero(t, calls)
}

func TestExecutorSinkError(t *testing.T) {
	exec := NewExecutor(NewSimulator(DefaultConfig()), nil)
	boom := errors.New("disk full")
	calls := 0
	_, err := exec.Run(context.Background(), shortScenario(60), State{}, func(Outcome) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestExecutorStopSignal(t *testing.T) {
	exec := NewExecutor(NewSimulator(DefaultConfig()), nil)
	calls := 0
	st, err := exec.Run(context.Background(), shortScenario(60), State{}, func(Outcome) error {
		calls++
		exec.Hub().StopSignal()
		return nil
	})
	assert.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, 1, calls)
	assert.NotEmpty(t, st.Storage, "state of the finished step is kept")
}

func TestExecutorCancelled(t *testing.T) {
	exec := NewExecutor(NewSimulator(DefaultConfig()), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := exec.Run(ctx, shortScenario(60), State{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutorPublish(t *testing.T) {
	hub := NewCalcHub()
	exec := NewExecutor(NewSimulator(DefaultConfig()), hub)
	_, err := exec.Run(context.Background(), shortScenario(60), State{}, exec.Publish)
	require.NoError(t, err)
	require.Len(t, hub.Results, 3)
	o := <-hub.Results
	assert.Zero(t, o.Result.T)
}

func TestCalcHub(t *testing.T) {
	hub := NewCalcHub()
	assert.False(t, hub.Stopped())

	for i := 0; i < cap(hub.Results); i++ {
		require.True(t, hub.Push(Outcome{Phase: "fill"}))
	}
	hub.StopSignal()
	hub.StopSignal()
	assert.True(t, hub.Stopped())
	assert.False(t, hub.Push(Outcome{}), "full and stopped")

	hub.Finish(nil)
	hub.Finish(errors.New("second report is dropped"))
	assert.NoError(t, <-hub.Done)

	hub.StartSignal()
	assert.False(t, hub.Stopped())
}

func TestExecutorKeepsStateOfFailedStep(t *testing.T) {
	cfg := DefaultConfig()
	st, err := Initialize(cfg, nil)
	require.NoError(t, err)
	// the shell is overtopped, so the first sub-step fails after conduction
	st.Storage = uniform(43, 1, 60)
	want := st.Clone()

	exec := NewExecutor(NewSimulator(cfg), nil)
	plans := []Plan{{Phase: "idle", Input: StepInput{T: 1, Dt: 600, InletTemp: 60, AmbientTemp: 10}}}
	got, err := exec.Run(context.Background(), plans, st)
	assert.ErrorIs(t, err, ErrModelInvariant)
	assert.Equal(t, want, got)
	assert.Equal(t, want, st, "caller's grids are left alone")
}
