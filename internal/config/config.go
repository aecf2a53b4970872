// Package config handles exporter configuration loading and management.
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/Faultbox/modeledge/pkg/encoding"
	"github.com/Faultbox/modeledge/pkg/scene"
	"github.com/Faultbox/modeledge/pkg/wireframe"
)

// Config holds all exporter settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig holds edge extraction settings.
type ExportConfig struct {
	AngleThreshold      float64 `yaml:"angle_threshold"`       // Degrees; <= 0 keeps every edge
	PartitionIndexLimit int     `yaml:"partition_index_limit"` // Meshes above this are split per group
	GroupIndexLimit     int     `yaml:"group_index_limit"`     // Groups above this are dropped
	Workers             int     `yaml:"workers"`               // 0 = one per CPU
	Format              string  `yaml:"format"`                // glb or cbor
}

// InputConfig holds container and text decoding settings.
type InputConfig struct {
	Encrypted    bool   `yaml:"encrypted"`
	TextEncoding string `yaml:"text_encoding"`
}

// OutputConfig holds output file settings.
type OutputConfig struct {
	Dir       string `yaml:"dir"` // Empty = next to the input
	Extension string `yaml:"extension"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			AngleThreshold:      60,
			PartitionIndexLimit: wireframe.DefaultPartitionIndexLimit,
			GroupIndexLimit:     wireframe.DefaultGroupIndexLimit,
			Workers:             0,
			Format:              scene.FormatGLB,
		},
		Input: InputConfig{
			Encrypted:    false,
			TextEncoding: "utf-8",
		},
		Output: OutputConfig{
			Dir:       "",
			Extension: ".edge",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks that settings are usable.
func (c *Config) Validate() error {
	a := c.Export.AngleThreshold
	if math.IsNaN(a) || a > 180 {
		return fmt.Errorf("angle threshold out of range: %v", a)
	}
	if c.Export.PartitionIndexLimit <= 0 {
		return fmt.Errorf("partition index limit must be positive, got %d", c.Export.PartitionIndexLimit)
	}
	if c.Export.GroupIndexLimit <= 0 {
		return fmt.Errorf("group index limit must be positive, got %d", c.Export.GroupIndexLimit)
	}
	if c.Export.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Export.Workers)
	}
	if _, err := scene.ForFormat(c.Export.Format); err != nil {
		return err
	}
	if _, err := encoding.NewDecoder(c.Input.TextEncoding); err != nil {
		return err
	}
	if !strings.HasPrefix(c.Output.Extension, ".") {
		return fmt.Errorf("output extension must start with a dot: %q", c.Output.Extension)
	}
	return nil
}
