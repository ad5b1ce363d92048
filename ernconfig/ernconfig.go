// Package ernconfig loads deployment configuration (security limits,
// streaming defaults, partner preset overrides) and provides the opt-in
// shared cache spec §5 allows across operations.
package ernconfig

import (
	"os"

	"github.com/spf13/viper"

	"github.com/ddexkit/erncore/internal/ernschema"
	"github.com/ddexkit/erncore/preset"
)

// Config is the deployment-level configuration erncore reads once at
// startup (spec §6 "External Interfaces", §9 "Shared-resource policy").
type Config struct {
	MaxBytes                int64  `mapstructure:"max_bytes"`
	MaxDepth                int    `mapstructure:"max_depth"`
	MaxEntityExpansions     int    `mapstructure:"max_entity_expansions"`
	MaxAttributesPerElement int    `mapstructure:"max_attributes_per_element"`
	MaxElementTextBytes     int64  `mapstructure:"max_element_text_bytes"`
	StreamingAutoThreshold  int64  `mapstructure:"streaming_auto_threshold"`
	StreamHighWaterMark     int64  `mapstructure:"stream_high_water_mark"`
	PresetOverridesFile     string `mapstructure:"preset_overrides_file"`
}

// Default returns erncore's built-in defaults (spec §4.1, §4.9), used when
// no config file is supplied.
func Default() Config {
	return Config{
		MaxBytes:                ernschema.MaxBytesDefault,
		MaxDepth:                ernschema.MaxDepthDefault,
		MaxEntityExpansions:     ernschema.MaxEntityExpansionsDefault,
		MaxAttributesPerElement: ernschema.MaxAttributesPerElemDefault,
		MaxElementTextBytes:     ernschema.MaxElementTextBytesDefault,
		StreamingAutoThreshold:  ernschema.StreamingAutoThreshold,
		StreamHighWaterMark:     ernschema.StreamHighWaterMarkDefault,
	}
}

// Load reads a config file (YAML, TOML, or JSON, detected by extension) at
// path, overlaying it onto Default(). An empty path returns Default()
// unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("max_bytes", cfg.MaxBytes)
	v.SetDefault("max_depth", cfg.MaxDepth)
	v.SetDefault("max_entity_expansions", cfg.MaxEntityExpansions)
	v.SetDefault("max_attributes_per_element", cfg.MaxAttributesPerElement)
	v.SetDefault("max_element_text_bytes", cfg.MaxElementTextBytes)
	v.SetDefault("streaming_auto_threshold", cfg.StreamingAutoThreshold)
	v.SetDefault("stream_high_water_mark", cfg.StreamHighWaterMark)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Presets returns the preset registry Load's PresetOverridesFile (if any)
// layers over the built-in table.
func (c Config) Presets() (*preset.Registry, error) {
	if c.PresetOverridesFile == "" {
		return preset.Builtin(), nil
	}
	data, err := os.ReadFile(c.PresetOverridesFile)
	if err != nil {
		return nil, err
	}
	return preset.LoadOverrides(data)
}
