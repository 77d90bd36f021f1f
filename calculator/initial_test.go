package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var measured = Profile{
	2: 27.63, 6: 28.39, 10: 28.39, 14: 28.39, 18: 28.39,
	22: 28.39, 26: 28.39, 30: 28.42, 34: 31.07, 38: 44.13,
}

func TestInitModeFor(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ChargeFactorMode, InitModeFor(cfg, nil))
	assert.Equal(t, LinearMode, InitModeFor(cfg, measured))

	cfg.InitPressure = 3.5
	assert.Equal(t, MeasuredMode, InitModeFor(cfg, measured))

	cfg = DefaultConfig()
	cfg.ChargeFactor = -1
	assert.Equal(t, TransitionPosMode, InitModeFor(cfg, nil))
	assert.Equal(t, "transition position", TransitionPosMode.String())
}

func checkState(t *testing.T, cfg *Config, st State) {
	t.Helper()
	require.Greater(t, len(st.Storage), 1)
	for i, c := range st.Storage {
		assert.LessOrEqual(t, c.Dh, 1.5*cfg.MaxCellHeight, "cell %d", i)
	}
	require.Len(t, st.Foundation, foundationCells)
	require.Len(t, st.Shell, shellCells)
	assert.Less(t, st.Foundation[len(st.Foundation)-1].T, st.Foundation[0].T)
	assert.InDelta(t, cfg.ShellHeight, float64(len(st.Shell))*st.Shell[0].Dh, 1e-9)
}

func TestInitializeChargeFactor(t *testing.T) {
	cfg := DefaultConfig()
	st, err := Initialize(cfg, nil)
	require.NoError(t, err)
	checkState(t, cfg, st)

	level := st.Storage.Level()
	assert.Greater(t, level, cfg.MaxWaterLevel-1)
	assert.LessOrEqual(t, level, cfg.MaxWaterLevel)
	assert.InDelta(t, cfg.BottomTemp, st.Storage[0].T, 1e-6)
	assert.InDelta(t, cfg.TopTemp, st.Storage[len(st.Storage)-1].T, 1e-6)

	usable := UsableMass(cfg, st.Storage, level, (cfg.TopTemp+cfg.BottomTemp)/2)
	assert.InDelta(t, cfg.ChargeFactor, usable/MaxUsableMass(cfg, st.Storage, level), 0.02)
}

func TestInitializeTransitionPos(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChargeFactor = -1
	st, err := Initialize(cfg, nil)
	require.NoError(t, err)
	checkState(t, cfg, st)

	assert.InDelta(t, cfg.MaxWaterLevel, st.Storage.Level(), 1e-3)
	k := findIndex(st.Storage, cfg.TransitionPos+cfg.TransitionHeight/2)
	assert.InDelta(t, (cfg.TopTemp+cfg.BottomTemp)/2, st.Storage[k].T, 5)
}

func TestInitializeLinear(t *testing.T) {
	cfg := DefaultConfig()
	st, err := Initialize(cfg, measured)
	require.NoError(t, err)
	checkState(t, cfg, st)

	assert.InDelta(t, cfg.MaxWaterLevel, st.Storage.Level(), 1e-3)
	k := findIndex(st.Storage, 18)
	assert.InDelta(t, 28.39, st.Storage[k].T, 0.01)
}

func TestInitializeMeasured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitPressure = 3.5
	st, err := Initialize(cfg, measured)
	require.NoError(t, err)
	checkState(t, cfg, st)

	level := st.Storage.Level()
	assert.Greater(t, level, 35.0)
	assert.Less(t, level, 36.0)
}

func TestInitializeMeasuredNeedsTwoSensors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitPressure = 3.5
	_, err := Initialize(cfg, Profile{10: 40})
	assert.ErrorIs(t, err, ErrInputValidation)
}

func TestInitializeGroundWarmerThanFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GroundTemp = 50
	_, err := Initialize(cfg, nil)
	assert.ErrorIs(t, err, ErrInputValidation)
}
