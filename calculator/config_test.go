package calculator

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func TestShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := LoadConfig("../conf/config.ini")
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("conf/config.ini drifted from the defaults (-default +file):\n%s", diff)
	}
}

func TestConfigOverride(t *testing.T) {
	file, err := ini.Load([]byte(`
[tank]
radius = 20
max_cell_height = 0.25
[sidestream]
enabled = true
pipe_end_height = 25
`))
	require.NoError(t, err)

	cfg, err := newConfig(file)
	require.NoError(t, err)
	assert.Equal(t, 20.0, cfg.Radius)
	assert.Equal(t, 0.25, cfg.MaxCellHeight)
	assert.True(t, cfg.SideStream.Enabled)
	assert.Equal(t, 25.0, cfg.SideStream.PipeEndHeight)
	assert.Equal(t, 40.0, cfg.MaxWaterLevel)
	assert.InDelta(t, 400*3.141592653589793, cfg.Area(), 1e-9)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		ini  string
	}{
		{name: "radius", ini: "[tank]\nradius = 0"},
		{name: "level above shell", ini: "[tank]\nmax_water_level = 43"},
		{name: "cell height", ini: "[tank]\nmax_cell_height = -1"},
		{name: "slot", ini: "[diffuser]\nslot_height = 0"},
		{name: "diffuser outside", ini: "[diffuser]\nradius = 10"},
		{name: "ground flux", ini: "[ground]\nheat_flux = 0"},
		{name: "sub step", ini: "[tank]\nsub_step = 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := ini.Load([]byte(tt.ini))
			require.NoError(t, err)
			_, err = newConfig(file)
			assert.ErrorIs(t, err, ErrInputValidation)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("does/not/exist.ini")
	assert.Error(t, err)
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile([]string{" 2:27.63", "38 : 44.13", ""})
	require.NoError(t, err)
	assert.Equal(t, Profile{2: 27.63, 38: 44.13}, p)
	assert.Equal(t, []float64{2, 38}, p.Heights())

	_, err = ParseProfile([]string{"2-27"})
	assert.Error(t, err)
	_, err = ParseProfile([]string{"x:27"})
	assert.Error(t, err)
	_, err = ParseProfile([]string{"2:warm"})
	assert.Error(t, err)
}

func TestProfileMarshalJSON(t *testing.T) {
	b, err := json.Marshal(Profile{2: 27.5, 0.5: 20})
	require.NoError(t, err)
	assert.JSONEq(t, `{"0.5": 20, "2": 27.5}`, string(b))
}
