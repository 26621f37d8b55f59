package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func envMap(values map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.ini"), "")
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Confidence)
	assert.True(t, cfg.Grayscale)
	assert.Equal(t, []float64{1.0}, cfg.Scales)
	assert.Equal(t, time.Second, cfg.ScanInterval)
	assert.Equal(t, 2*time.Second, cfg.ClickDelay)
	assert.Equal(t, 2, cfg.Compensation.Tolerance)
	assert.Equal(t, 0.5, cfg.Compensation.RatioMin)
	assert.Equal(t, 2.0, cfg.Compensation.RatioMax)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromINI(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Settings.ini", `
[AutoClicker]
Confidence = 1.7
Grayscale = false
Scales = 1.0, 0.75, bogus, -1, 0.75
ScanInterval = 0.25
ClickDelay = -3
LogClicks = true

[Compensation]
Tolerance = 4
RatioMin = 0.8
RatioMax = 1.5
SettleDelayMs = 25

[Paths]
TargetsDir = buttons
DBPath = journal.db
`)

	cfg := NewDefaultConfig()
	require.NoError(t, LoadFromINI(cfg, path))

	assert.Equal(t, 1.0, cfg.Confidence, "confidence is clamped")
	assert.False(t, cfg.Grayscale)
	assert.Equal(t, []float64{1.0, 0.75}, cfg.Scales)
	assert.Equal(t, 250*time.Millisecond, cfg.ScanInterval)
	assert.Equal(t, time.Duration(0), cfg.ClickDelay, "negative delay becomes zero")
	assert.True(t, cfg.LogClicks)
	assert.Equal(t, 4, cfg.Compensation.Tolerance)
	assert.Equal(t, 0.8, cfg.Compensation.RatioMin)
	assert.Equal(t, 1.5, cfg.Compensation.RatioMax)
	assert.Equal(t, 25*time.Millisecond, cfg.Compensation.SettleDelay)
	assert.Equal(t, "buttons", cfg.TargetsDir)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, "journal.db", cfg.DBPath)
}

func TestMalformedINIValuesKeepDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Settings.ini", `
[AutoClicker]
Confidence = high
ScanInterval = soon
Grayscale = maybe
`)

	cfg := NewDefaultConfig()
	require.NoError(t, LoadFromINI(cfg, path))

	assert.Equal(t, 0.9, cfg.Confidence)
	assert.Equal(t, time.Second, cfg.ScanInterval)
	assert.True(t, cfg.Grayscale)
}

func TestApplyEnv(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyEnv(cfg, envMap(map[string]string{
		"AUTO_CLICKER_CONFIDENCE":    "0.75",
		"AUTO_CLICKER_GRAYSCALE":     "no",
		"AUTO_CLICKER_SCALES":        "0.5,1,0.5,0",
		"AUTO_CLICKER_SCAN_INTERVAL": "abc",
		"AUTO_CLICKER_CLICK_DELAY":   "0.5",
		"AUTO_CLICKER_LOG_CLICKS":    "yes",
		"AUTO_CLICKER_TARGETS_DIR":   "  ",
		"AUTO_CLICKER_LOG_LEVEL":     "debug",
	}))

	assert.Equal(t, 0.75, cfg.Confidence)
	assert.False(t, cfg.Grayscale)
	assert.Equal(t, []float64{0.5, 1}, cfg.Scales)
	assert.Equal(t, time.Second, cfg.ScanInterval, "malformed value keeps default")
	assert.Equal(t, 500*time.Millisecond, cfg.ClickDelay)
	assert.True(t, cfg.LogClicks)
	assert.Equal(t, "targets", cfg.TargetsDir, "blank value is ignored")
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestHugeDurationsSaturate(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyEnv(cfg, envMap(map[string]string{
		"AUTO_CLICKER_SCAN_INTERVAL": "1e12",
		"AUTO_CLICKER_CLICK_DELAY":   "9223372036.9",
	}))

	assert.Equal(t, time.Duration(math.MaxInt64), cfg.ScanInterval)
	assert.Equal(t, time.Duration(math.MaxInt64), cfg.ClickDelay)
	assert.Equal(t, 1500*time.Millisecond, seconds(1.5, 0))
}

func TestEnvBool(t *testing.T) {
	for _, raw := range []string{"0", "false", "False", "NO", "off"} {
		assert.False(t, parseEnvBool(raw), raw)
	}
	for _, raw := range []string{"1", "true", "yes", "anything"} {
		assert.True(t, parseEnvBool(raw), raw)
	}
}

func TestParseScales(t *testing.T) {
	assert.Equal(t, []float64{1.0}, ParseScales(""))
	assert.Equal(t, []float64{1.0}, ParseScales("x,-2,0"))
	assert.Equal(t, []float64{1.25, 0.8}, ParseScales(" 1.25 ,0.8,1.25"))
	assert.Equal(t, "1.25,0.8", FormatScales([]float64{1.25, 0.8}))
}

func TestDotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	t.Setenv("AUTO_CLICKER_CONFIDENCE", "0.6")
	t.Cleanup(func() {
		os.Unsetenv("AUTO_CLICKER_CLICK_DELAY")
	})

	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", `
# local overrides
AUTO_CLICKER_CONFIDENCE=0.99
AUTO_CLICKER_CLICK_DELAY=4
`)

	cfg, err := Load(filepath.Join(dir, "Settings.ini"), envPath)
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.Confidence)
	assert.Equal(t, 4*time.Second, cfg.ClickDelay)
}

func TestEnvOverridesINI(t *testing.T) {
	dir := t.TempDir()
	iniPath := writeFile(t, dir, "Settings.ini", "[AutoClicker]\nConfidence = 0.7\n")
	t.Setenv("AUTO_CLICKER_CONFIDENCE", "0.8")

	cfg, err := Load(iniPath, "")
	require.NoError(t, err)
	assert.Equal(t, 0.8, cfg.Confidence)
}

func TestValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.TargetsDir = ""
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Compensation.RatioMin = 3
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())
}

func TestSaveToINIRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Settings.ini")

	saved := NewDefaultConfig()
	saved.Scales = []float64{1, 0.5}
	saved.ScanInterval = 1500 * time.Millisecond
	saved.Compensation.Tolerance = 3
	require.NoError(t, SaveToINI(saved, path))

	loaded := NewDefaultConfig()
	require.NoError(t, LoadFromINI(loaded, path))
	assert.Equal(t, saved, loaded)
}
