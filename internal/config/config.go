package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pixelform/studio/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Profile  ProfileConfig  `json:"profile"`
	Models   ModelsConfig   `json:"models"`
	Segment  SegmentConfig  `json:"segment"`
	Classify ClassifyConfig `json:"classify"`
	Generate GenerateConfig `json:"generate"`
	Output   OutputConfig   `json:"output"`
}

// ProfileConfig holds the performance profile applied at startup
type ProfileConfig struct {
	Backend      string `json:"backend"`
	Precision    string `json:"precision"`
	MemoryPolicy string `json:"memory_policy"`
}

// ModelsConfig holds model cache settings
type ModelsConfig struct {
	CacheDir string `json:"cache_dir"`
}

// SegmentConfig holds segmentation settings
type SegmentConfig struct {
	Strategy  string  `json:"strategy"`
	Threshold float64 `json:"threshold"`
	Padding   float64 `json:"padding"`
}

// ClassifyConfig holds classifier settings
type ClassifyConfig struct {
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// GenerateConfig holds generation backend settings
type GenerateConfig struct {
	URL   string `json:"url"`
	Model string `json:"model"`
	Style string `json:"style"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format  string `json:"format"`
	Quality int    `json:"quality"`
	Dir     string `json:"dir"`
	Suffix  string `json:"suffix"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Profile: ProfileConfig{
			Backend:      string(types.BackendPortable),
			Precision:    string(types.PrecisionMedium),
			MemoryPolicy: string(types.MemoryBalanced),
		},
		Models: ModelsConfig{
			CacheDir: defaultCacheDir(),
		},
		Segment: SegmentConfig{
			Strategy:  string(types.ModelPortrait),
			Threshold: 0.5,
			Padding:   0.1,
		},
		Classify: ClassifyConfig{
			ConfidenceThreshold: 0.2,
		},
		Generate: GenerateConfig{
			URL:   "http://localhost:11434",
			Model: "",
			Style: "clean commercial look",
		},
		Output: OutputConfig{
			Format:  "png",
			Quality: 90,
			Dir:     "./output",
			Suffix:  "_studio",
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch types.Backend(c.Profile.Backend) {
	case types.BackendGPU, types.BackendPortable, types.BackendExperimental:
	default:
		return fmt.Errorf("profile.backend must be one of gpu, portable, experimental")
	}

	switch types.Precision(c.Profile.Precision) {
	case types.PrecisionHigh, types.PrecisionMedium, types.PrecisionLow:
	default:
		return fmt.Errorf("profile.precision must be one of high, medium, low")
	}

	switch types.MemoryPolicy(c.Profile.MemoryPolicy) {
	case types.MemoryAggressive, types.MemoryBalanced, types.MemoryThroughput:
	default:
		return fmt.Errorf("profile.memory_policy must be one of aggressive, balanced, throughput")
	}

	switch types.ModelKind(c.Segment.Strategy) {
	case types.ModelPortrait, types.ModelObject, types.ModelFast:
	default:
		return fmt.Errorf("segment.strategy must be one of portrait, object, fast")
	}

	if c.Segment.Threshold < 0 || c.Segment.Threshold > 1 {
		return fmt.Errorf("segment.threshold must be between 0 and 1")
	}

	if c.Segment.Padding < 0 || c.Segment.Padding > 1 {
		return fmt.Errorf("segment.padding must be between 0 and 1")
	}

	if c.Classify.ConfidenceThreshold < 0 || c.Classify.ConfidenceThreshold > 1 {
		return fmt.Errorf("classify.confidence_threshold must be between 0 and 1")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

// PerformanceProfile converts the profile section to its typed form.
func (c *Config) PerformanceProfile() types.PerformanceProfile {
	return types.PerformanceProfile{
		Backend:      types.Backend(c.Profile.Backend),
		Precision:    types.Precision(c.Profile.Precision),
		MemoryPolicy: types.MemoryPolicy(c.Profile.MemoryPolicy),
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "product-studio", "config.json")
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./models"
	}
	return filepath.Join(home, ".cache", "product-studio", "models")
}
