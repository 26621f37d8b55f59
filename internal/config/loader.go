package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"jordanella.com/auto-clicker/internal/cv"
	"jordanella.com/auto-clicker/internal/input"
	"jordanella.com/auto-clicker/internal/logging"
)

const (
	// DefaultConfigFile is read from the working directory when no path is given
	DefaultConfigFile = "Settings.ini"
	// DefaultEnvFile is the dotenv file merged into the process environment
	DefaultEnvFile = ".env"
	// EnvPrefix prefixes every environment override
	EnvPrefix = "AUTO_CLICKER_"
)

// Config holds every setting of the auto-clicker
type Config struct {
	// Matching
	Confidence float64
	Grayscale  bool
	Scales     []float64

	// Pacing
	ScanInterval time.Duration
	ClickDelay   time.Duration

	// Cursor placement check
	Compensation input.Compensation

	// Paths
	TargetsDir string
	LogDir     string
	DBPath     string

	// Logging
	LogClicks bool
	LogLevel  string
}

// NewDefaultConfig creates a config with default values
func NewDefaultConfig() *Config {
	return &Config{
		Confidence:   0.9,
		Grayscale:    true,
		Scales:       []float64{1.0},
		ScanInterval: time.Second,
		ClickDelay:   2 * time.Second,
		Compensation: input.DefaultCompensation(),
		TargetsDir:   "targets",
		LogDir:       "logs",
		DBPath:       "data/journal.db",
		LogClicks:    false,
		LogLevel:     "INFO",
	}
}

// Load builds the configuration from defaults, the INI file, the dotenv
// file and the process environment, later sources winning. Missing files
// are skipped.
func Load(iniPath, envPath string) (*Config, error) {
	config := NewDefaultConfig()

	if err := LoadFromINI(config, iniPath); err != nil {
		return nil, err
	}
	if err := LoadDotEnv(envPath); err != nil {
		return nil, err
	}
	ApplyEnv(config, os.LookupEnv)

	return config, nil
}

// LoadFromINI overlays the [AutoClicker], [Compensation] and [Paths]
// sections of the file at path onto config
func LoadFromINI(config *Config, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}

	section := cfg.Section("AutoClicker")
	config.Confidence = cv.ClampConfidence(section.Key("Confidence").MustFloat64(config.Confidence))
	config.Grayscale = section.Key("Grayscale").MustBool(config.Grayscale)
	if section.HasKey("Scales") {
		config.Scales = ParseScales(section.Key("Scales").String())
	}
	config.ScanInterval = seconds(section.Key("ScanInterval").MustFloat64(config.ScanInterval.Seconds()), config.ScanInterval)
	config.ClickDelay = seconds(section.Key("ClickDelay").MustFloat64(config.ClickDelay.Seconds()), config.ClickDelay)
	config.LogClicks = section.Key("LogClicks").MustBool(config.LogClicks)
	config.LogLevel = section.Key("LogLevel").MustString(config.LogLevel)

	// Compensation tuning
	comp := cfg.Section("Compensation")
	config.Compensation.Tolerance = comp.Key("Tolerance").MustInt(config.Compensation.Tolerance)
	config.Compensation.RatioMin = comp.Key("RatioMin").MustFloat64(config.Compensation.RatioMin)
	config.Compensation.RatioMax = comp.Key("RatioMax").MustFloat64(config.Compensation.RatioMax)
	settleMs := comp.Key("SettleDelayMs").MustInt(int(config.Compensation.SettleDelay / time.Millisecond))
	if settleMs >= 0 {
		config.Compensation.SettleDelay = time.Duration(settleMs) * time.Millisecond
	}

	// Paths
	paths := cfg.Section("Paths")
	config.TargetsDir = paths.Key("TargetsDir").MustString(config.TargetsDir)
	config.LogDir = paths.Key("LogDir").MustString(config.LogDir)
	config.DBPath = paths.Key("DBPath").MustString(config.DBPath)

	return nil
}

// LoadDotEnv copies KEY=VALUE pairs of a dotenv file into the process
// environment. Variables already set are left alone.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{Loose: true, IgnoreInlineComment: true}, path)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	for _, key := range cfg.Section(ini.DefaultSection).Keys() {
		name := strings.TrimSpace(strings.TrimPrefix(key.Name(), "export "))
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, key.Value()); err != nil {
			return fmt.Errorf("failed to set %s: %w", name, err)
		}
	}

	return nil
}

// ApplyEnv overlays AUTO_CLICKER_* variables found by lookup onto config.
// Unset or empty variables are ignored; malformed values keep the
// current setting.
func ApplyEnv(config *Config, lookup func(string) (string, bool)) {
	get := func(name string) (string, bool) {
		raw, ok := lookup(EnvPrefix + name)
		raw = strings.TrimSpace(raw)
		return raw, ok && raw != ""
	}

	if raw, ok := get("CONFIDENCE"); ok {
		config.Confidence = cv.ClampConfidence(parseFloat(raw, config.Confidence))
	}
	if raw, ok := get("GRAYSCALE"); ok {
		config.Grayscale = parseEnvBool(raw)
	}
	if raw, ok := get("SCALES"); ok {
		config.Scales = ParseScales(raw)
	}
	if raw, ok := get("SCAN_INTERVAL"); ok {
		config.ScanInterval = seconds(parseFloat(raw, config.ScanInterval.Seconds()), config.ScanInterval)
	}
	if raw, ok := get("CLICK_DELAY"); ok {
		config.ClickDelay = seconds(parseFloat(raw, config.ClickDelay.Seconds()), config.ClickDelay)
	}
	if raw, ok := get("TARGETS_DIR"); ok {
		config.TargetsDir = raw
	}
	if raw, ok := get("LOG_DIR"); ok {
		config.LogDir = raw
	}
	if raw, ok := get("DB_PATH"); ok {
		config.DBPath = raw
	}
	if raw, ok := get("LOG_CLICKS"); ok {
		config.LogClicks = parseEnvBool(raw)
	}
	if raw, ok := get("LOG_LEVEL"); ok {
		config.LogLevel = raw
	}
}

// Validate checks settings that have no sensible fallback
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TargetsDir) == "" {
		return fmt.Errorf("targets directory is empty")
	}
	if c.Compensation.Tolerance < 0 {
		return fmt.Errorf("compensation tolerance must be >= 0, got %d", c.Compensation.Tolerance)
	}
	if c.Compensation.RatioMin <= 0 || c.Compensation.RatioMin > c.Compensation.RatioMax {
		return fmt.Errorf("invalid compensation ratio bounds [%g, %g]", c.Compensation.RatioMin, c.Compensation.RatioMax)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseScales parses a comma separated scale list. Unparsable entries are
// skipped; the result is normalized and never empty.
func ParseScales(raw string) []float64 {
	var scales []float64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			continue
		}
		scales = append(scales, v)
	}
	return cv.NormalizeScales(scales)
}

// FormatScales renders scales the way ParseScales reads them
func FormatScales(scales []float64) string {
	parts := make([]string, len(scales))
	for i, s := range scales {
		parts[i] = strconv.FormatFloat(s, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// SaveToINI saves configuration to an INI file
func SaveToINI(config *Config, path string) error {
	cfg := ini.Empty()

	section := cfg.Section("AutoClicker")
	section.Key("Confidence").SetValue(strconv.FormatFloat(config.Confidence, 'f', -1, 64))
	section.Key("Grayscale").SetValue(fmt.Sprintf("%t", config.Grayscale))
	section.Key("Scales").SetValue(FormatScales(config.Scales))
	section.Key("ScanInterval").SetValue(strconv.FormatFloat(config.ScanInterval.Seconds(), 'f', -1, 64))
	section.Key("ClickDelay").SetValue(strconv.FormatFloat(config.ClickDelay.Seconds(), 'f', -1, 64))
	section.Key("LogClicks").SetValue(fmt.Sprintf("%t", config.LogClicks))
	section.Key("LogLevel").SetValue(config.LogLevel)

	comp := cfg.Section("Compensation")
	comp.Key("Tolerance").SetValue(strconv.Itoa(config.Compensation.Tolerance))
	comp.Key("RatioMin").SetValue(strconv.FormatFloat(config.Compensation.RatioMin, 'f', -1, 64))
	comp.Key("RatioMax").SetValue(strconv.FormatFloat(config.Compensation.RatioMax, 'f', -1, 64))
	comp.Key("SettleDelayMs").SetValue(strconv.FormatInt(config.Compensation.SettleDelay.Milliseconds(), 10))

	paths := cfg.Section("Paths")
	paths.Key("TargetsDir").SetValue(config.TargetsDir)
	paths.Key("LogDir").SetValue(config.LogDir)
	paths.Key("DBPath").SetValue(config.DBPath)

	return cfg.SaveTo(path)
}

func parseFloat(raw string, fallback float64) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// parseEnvBool treats anything but 0/false/no/off as true
func parseEnvBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "0", "false", "no", "off":
		return false
	}
	return true
}

// maxSeconds is the longest duration time.Duration can hold, in seconds
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

// seconds converts a seconds value to a duration, negatives to zero and
// anything beyond the duration range to the longest duration
func seconds(v float64, fallback time.Duration) time.Duration {
	switch {
	case math.IsNaN(v):
		return fallback
	case v < 0:
		return 0
	case v >= maxSeconds:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(v * float64(time.Second))
}
