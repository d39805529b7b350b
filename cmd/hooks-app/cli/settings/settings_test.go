package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	t.Parallel()

	s := FromLookup(lookupFrom(nil))
	assert.Empty(t, s.PluginRoot)
	assert.False(t, s.LogEnabled)
	assert.Empty(t, s.LogLevel)
	assert.Equal(t, filepath.Join(os.TempDir(), "turboshovel"), s.LogDir)
	assert.Equal(t, DefaultGateTimeout, s.GateTimeout)
	assert.False(t, s.Telemetry)
	assert.False(t, s.Accessible)
}

func TestFromLookup_ReadsEnvironment(t *testing.T) {
	t.Parallel()

	s := FromLookup(lookupFrom(map[string]string{
		PluginRootEnvVar: " /plugins/turboshovel/ ",
		LogEnabledEnvVar: "1",
		LogLevelEnvVar:   "debug",
		TelemetryEnvVar:  "1",
		AccessibleEnvVar: "yes",
	}))
	assert.Equal(t, filepath.Clean("/plugins/turboshovel"), s.PluginRoot)
	assert.True(t, s.LogEnabled)
	assert.Equal(t, "debug", s.LogLevel)
	assert.True(t, s.Telemetry)
	assert.True(t, s.Accessible)
}

func TestFromLookup_Toggles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		env           map[string]string
		wantLog       bool
		wantTelemetry bool
	}{
		{name: "log_requires_1", env: map[string]string{LogEnabledEnvVar: "true"}, wantLog: false},
		{name: "telemetry_opt_in", env: map[string]string{TelemetryEnvVar: "1"}, wantTelemetry: true},
		{name: "telemetry_opt_out_wins", env: map[string]string{TelemetryEnvVar: "1", TelemetryOptOutEnvVar: "1"}, wantTelemetry: false},
		{name: "telemetry_not_set", env: map[string]string{TelemetryOptOutEnvVar: ""}, wantTelemetry: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := FromLookup(lookupFrom(tt.env))
			assert.Equal(t, tt.wantLog, s.LogEnabled)
			assert.Equal(t, tt.wantTelemetry, s.Telemetry)
		})
	}
}

func TestWithPluginRoot(t *testing.T) {
	t.Parallel()

	base := Settings{PluginRoot: "/from/env"}
	assert.Equal(t, "/from/env", base.WithPluginRoot("").PluginRoot)
	assert.Equal(t, filepath.Clean("/from/flag"), base.WithPluginRoot("/from/flag/").PluginRoot)
	assert.Equal(t, "/from/env", base.PluginRoot, "receiver is not modified")
}

func TestPluginRoot_RelativeIsMadeAbsolute(t *testing.T) {
	t.Parallel()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, wd, Settings{}.WithPluginRoot(".").PluginRoot)
	assert.Equal(t, filepath.Join(wd, "plugin"), FromLookup(lookupFrom(map[string]string{PluginRootEnvVar: "plugin/"})).PluginRoot)
}
