package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BTreeMap/PersonaPipe/internal/models"
	"gopkg.in/yaml.v3"
)

// RunFile is the YAML document accepted by the -config flag. All fields are
// optional; absent fields leave the built-in defaults untouched.
type RunFile struct {
	Profile map[string]any `yaml:"profile"`
	Events  []string       `yaml:"events"`
	Config  RunFileConfig  `yaml:"config"`
}

// RunFileConfig holds the configuration overrides a run file may carry.
// Pointer fields distinguish "absent" from zero values.
type RunFileConfig struct {
	Model                   string         `yaml:"model"`
	Temperature             *float64       `yaml:"temperature"`
	MaxTokens               *int           `yaml:"max_tokens"`
	StartDate               string         `yaml:"start_date"`
	EndDate                 string         `yaml:"end_date"`
	DataVolume              map[string]int `yaml:"data_volume"`
	EnabledApps             []string       `yaml:"enabled_apps"`
	OutputDirectory         string         `yaml:"output_directory"`
	CreateSummaryReport     *bool          `yaml:"create_summary_report"`
	IncludeMetadata         *bool          `yaml:"include_metadata"`
	MaxValidationErrors     *int           `yaml:"max_validation_errors"`
	EnableReflection        *bool          `yaml:"enable_reflection"`
	MaxRegenerationAttempts *int           `yaml:"max_regeneration_attempts"`
	UseFallbackSynthesis    *bool          `yaml:"use_fallback_synthesis"`
	Seed                    *int64         `yaml:"seed"`
}

// LoadRunFile reads and decodes a YAML run file.
func LoadRunFile(path string) (*RunFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}
	var rf RunFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse run file: %w", err)
	}
	return &rf, nil
}

// Apply overlays the run file's overrides onto a configuration.
func (rf *RunFile) Apply(cfg *models.Config) error {
	o := rf.Config
	if o.Model != "" {
		cfg.Model = o.Model
	}
	if o.Temperature != nil {
		cfg.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		cfg.MaxTokens = *o.MaxTokens
	}
	if o.StartDate != "" {
		t, err := time.Parse("2006-01-02", o.StartDate)
		if err != nil {
			return fmt.Errorf("invalid start_date: %w", err)
		}
		cfg.StartDate = t
	}
	if o.EndDate != "" {
		t, err := time.Parse("2006-01-02", o.EndDate)
		if err != nil {
			return fmt.Errorf("invalid end_date: %w", err)
		}
		cfg.EndDate = t
	}
	if len(o.DataVolume) > 0 {
		for app, count := range o.DataVolume {
			cfg.DataVolume[models.AppType(app)] = count
		}
	}
	if len(o.EnabledApps) > 0 {
		apps := make([]models.AppType, 0, len(o.EnabledApps))
		for _, app := range o.EnabledApps {
			apps = append(apps, models.AppType(app))
		}
		cfg.EnabledApps = apps
	}
	if o.OutputDirectory != "" {
		cfg.OutputDirectory = o.OutputDirectory
	}
	if o.CreateSummaryReport != nil {
		cfg.CreateSummaryReport = *o.CreateSummaryReport
	}
	if o.IncludeMetadata != nil {
		cfg.IncludeMetadata = *o.IncludeMetadata
	}
	if o.MaxValidationErrors != nil {
		cfg.MaxValidationErrors = *o.MaxValidationErrors
	}
	if o.EnableReflection != nil {
		cfg.EnableReflection = *o.EnableReflection
	}
	if o.MaxRegenerationAttempts != nil {
		cfg.MaxRegenerationAttempts = *o.MaxRegenerationAttempts
	}
	if o.UseFallbackSynthesis != nil {
		cfg.UseFallbackSynthesis = *o.UseFallbackSynthesis
	}
	if o.Seed != nil {
		cfg.Seed = *o.Seed
	}
	return nil
}
