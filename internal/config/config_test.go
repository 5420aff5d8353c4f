package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test in a temp directory so Load never sees a stray
// config.yaml from the developer's checkout.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Conversion.IntervalLength)
	assert.Equal(t, "AGL", cfg.Conversion.FromParticipant)
	assert.Equal(t, "Converter", cfg.Conversion.ToParticipant)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_FromFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
conversion:
  interval_length: 15
  from_participant: RETAILER
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Conversion.IntervalLength)
	assert.Equal(t, "RETAILER", cfg.Conversion.FromParticipant)
	// fields the file omits still get their defaults
	assert.Equal(t, "Converter", cfg.Conversion.ToParticipant)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := "conversion:\n  interval_length: 15\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(yaml), 0o644))
	t.Setenv("NEM12_CONVERSION_INTERVAL_LENGTH", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Conversion.IntervalLength)
}

func TestLoad_LayerPrecedence(t *testing.T) {
	dir := chdirTemp(t)

	// File values must survive for fields whose environment variable is
	// unset, and env must still win where set.
	yaml := `
conversion:
  interval_length: 15
  from_participant: RETAILER
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(yaml), 0o644))
	t.Setenv("NEM12_CONVERSION_INTERVAL_LENGTH", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Conversion.IntervalLength)           // env over file
	assert.Equal(t, "RETAILER", cfg.Conversion.FromParticipant) // file over default
	assert.Equal(t, "debug", cfg.Logging.Level)                 // file over default
	assert.Equal(t, "Converter", cfg.Conversion.ToParticipant)  // default
	assert.Equal(t, "json", cfg.Logging.Format)                 // default
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{
			name: "interval length not in allowed set",
			env:  map[string]string{"NEM12_CONVERSION_INTERVAL_LENGTH": "7"},
		},
		{
			name: "participant too long",
			env:  map[string]string{"NEM12_CONVERSION_FROM_PARTICIPANT": "WAYTOOLONGPARTICIPANT"},
		},
		{
			name: "unknown log level",
			env:  map[string]string{"NEM12_LOGGING_LEVEL": "loud"},
		},
		{
			name: "malformed yaml",
			yaml: "conversion: [not a map",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdirTemp(t)
			if tt.yaml != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(tt.yaml), 0o644))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_AfterFlagOverride(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Conversion.IntervalLength = 10
	assert.Error(t, cfg.Validate())

	cfg.Conversion.IntervalLength = 5
	assert.NoError(t, cfg.Validate())
}
