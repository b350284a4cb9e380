// Package config holds run settings backed by Viper.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// ErrInvalidSettings wraps every settings validation failure
var ErrInvalidSettings = errors.New("invalid settings")

// Keys shared by flags, config files and getters
const (
	KeyGraph            = "input.graph"
	KeyBinned           = "input.binned"
	KeyReadType         = "input.read_type"
	KeyAssembler        = "input.assembler"
	KeyOutputDir        = "output.dir"
	KeyPrefix           = "output.prefix"
	KeyMaxIterations    = "algorithm.max_iterations"
	KeyLPVersion        = "algorithm.lp_version"
	KeyLogLevel         = "logging.level"
	KeyTrackAssignments = "analysis.track_assignments"
	KeyTrackingFile     = "analysis.output_file"
)

// LogFileSuffix is appended to the prefix to name the run log
const LogFileSuffix = "classgraph.log"

// Config manages run configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Algorithm parameters
	v.SetDefault(KeyMaxIterations, 20)
	v.SetDefault(KeyLPVersion, 1)

	// Input parameters
	v.SetDefault(KeyReadType, 1)
	v.SetDefault(KeyAssembler, 1)

	// Logging parameters
	v.SetDefault(KeyLogLevel, "info")

	v.SetDefault(KeyTrackAssignments, false)
	v.SetDefault(KeyTrackingFile, "")

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Viper exposes the underlying instance for flag binding
func (c *Config) Viper() *viper.Viper { return c.v }

// Getters for run parameters
func (c *Config) GraphFile() string      { return c.v.GetString(KeyGraph) }
func (c *Config) BinnedFile() string     { return c.v.GetString(KeyBinned) }
func (c *Config) OutputDir() string      { return c.v.GetString(KeyOutputDir) }
func (c *Config) Prefix() string         { return c.v.GetString(KeyPrefix) }
func (c *Config) MaxIterations() int     { return c.v.GetInt(KeyMaxIterations) }
func (c *Config) LPVersion() int         { return c.v.GetInt(KeyLPVersion) }
func (c *Config) ReadType() int          { return c.v.GetInt(KeyReadType) }
func (c *Config) Assembler() int         { return c.v.GetInt(KeyAssembler) }
func (c *Config) LogLevel() string       { return c.v.GetString(KeyLogLevel) }
func (c *Config) TrackAssignments() bool { return c.v.GetBool(KeyTrackAssignments) }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// Settings is a validated snapshot of the configuration
type Settings struct {
	Input struct {
		Graph     string `mapstructure:"graph" validate:"required"`
		Binned    string `mapstructure:"binned" validate:"required"`
		ReadType  int    `mapstructure:"read_type" validate:"oneof=1 2"`
		Assembler int    `mapstructure:"assembler" validate:"oneof=1 2"`
	} `mapstructure:"input"`
	Output struct {
		Dir    string `mapstructure:"dir" validate:"required"`
		Prefix string `mapstructure:"prefix" validate:"required"`
	} `mapstructure:"output"`
	Algorithm struct {
		MaxIterations int `mapstructure:"max_iterations" validate:"gt=0"`
		LPVersion     int `mapstructure:"lp_version" validate:"oneof=1 2"`
	} `mapstructure:"algorithm"`
	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
	Analysis struct {
		TrackAssignments bool   `mapstructure:"track_assignments"`
		OutputFile       string `mapstructure:"output_file"`
	} `mapstructure:"analysis"`
}

var validate = validator.New()

// Settings decodes and validates the current configuration
func (c *Config) Settings() (*Settings, error) {
	var s Settings
	if err := c.v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks required paths and selector values
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("%w: %s fails %q (got %v)", ErrInvalidSettings, fe.Namespace(), fe.Tag()+paramSuffix(fe.Param()), fe.Value())
	}
	return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
}

// LogFile is where the run log is mirrored
func (s *Settings) LogFile() string {
	return filepath.Join(s.Output.Dir, s.Output.Prefix+LogFileSuffix)
}

// TrackingFile defaults to <output>/<prefix>assignments.jsonl
func (s *Settings) TrackingFile() string {
	if s.Analysis.OutputFile != "" {
		return s.Analysis.OutputFile
	}
	return filepath.Join(s.Output.Dir, s.Output.Prefix+"assignments.jsonl")
}

func paramSuffix(param string) string {
	if param == "" {
		return ""
	}
	return "=" + param
}

// CreateLogger creates a zerolog logger based on config. Extra writers,
// such as the run log file, receive JSON lines next to the console output.
func (c *Config) CreateLogger(extra ...io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}}
	writers = append(writers, extra...)

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).With().Timestamp().Str("service", "classgraph").Logger()
}
