package robot

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
)

const DefaultConfigFile = "armctl.json"

// SimAddress selects the in-process simulated arm.
const SimAddress = "sim"

// Config holds the operator station configuration.
type Config struct {
	// Arm is the bridge websocket URL, or "sim".
	Arm string `json:"arm"`

	Tool    string       `json:"tool"`
	Payload string       `json:"payload"`
	Tools   ToolProfiles `json:"tools,omitempty"`

	Multiplier float64 `json:"multiplier,omitempty"`
	Speed      float64 `json:"speed,omitempty"`
	Radius     float64 `json:"radius,omitempty"`

	SequenceDir string `json:"sequence_dir,omitempty"`
	LoadPolicy  string `json:"load_policy,omitempty"`
	// MaxIncludeDepth limits include nesting. nil selects the default,
	// zero disables the limit.
	MaxIncludeDepth *int `json:"max_include_depth,omitempty"`

	Keys     map[string]string `json:"keys,omitempty"`
	SpaceNav string            `json:"spacenav,omitempty"`
	LogLevel string            `json:"log_level,omitempty"`

	Gripper *GripperConfig `json:"gripper,omitempty"`
}

// GripperConfig describes an optional serial-bus gripper used instead of
// the arm's own gripper outputs.
type GripperConfig struct {
	Port        string           `json:"port"`
	Calibration MotorCalibration `json:"calibration"`
}

// DefaultIncludeDepth is used when the config leaves the limit unset.
const DefaultIncludeDepth = 16

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Arm:         SimAddress,
		Tool:        DefaultTool,
		Payload:     DefaultPayload,
		Multiplier:  100,
		Speed:       100,
		Radius:      10,
		SequenceDir: ".",
		LoadPolicy:  "strict",
		LogLevel:    "info",
	}
}

// IncludeDepth returns the effective include nesting limit.
func (c *Config) IncludeDepth() int {
	if c.MaxIncludeDepth == nil {
		return DefaultIncludeDepth
	}
	return *c.MaxIncludeDepth
}

// ToolOffset resolves the configured tool offset profile.
func (c *Config) ToolOffset() (ToolOffset, error) {
	return c.Tools.Offset(c.Tool)
}

// ToolPayload resolves the configured payload profile.
func (c *Config) ToolPayload() (ToolPayload, error) {
	return c.Tools.Payload(c.Payload)
}

// LoadConfigFrom loads configuration from a specific file. Fields missing
// from the file keep their defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, pkgerrors.Wrapf(err, "parse %s", path)
	}
	return cfg, nil
}

// Resolve loads path if it exists, falls back to defaults if it does not,
// and then applies environment overrides.
func Resolve(path string) (*Config, error) {
	cfg, err := LoadConfigFrom(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides settings from ARMCTL_* variables. A .env file in the
// working directory is loaded first if present.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	c.Arm = getEnv("ARMCTL_ARM_ADDRESS", c.Arm)
	c.LogLevel = getEnv("ARMCTL_LOG_LEVEL", c.LogLevel)
	c.SequenceDir = getEnv("ARMCTL_SEQUENCE_DIR", c.SequenceDir)
	c.Multiplier = getEnvAsFloat("ARMCTL_MULTIPLIER", c.Multiplier)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the config file at path exists
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}
