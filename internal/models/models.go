// Package models defines the core data structures for PersonaPipe.
//
// It includes the app taxonomy, run configuration, analysis and result types
// that are shared across modules.
package models

import (
	"errors"
	"fmt"
	"time"
)

// AppType identifies one of the supported synthetic data domains.
type AppType string

const (
	// AppContacts is the address book app.
	AppContacts AppType = "contacts"
	// AppCalendar is the calendar app.
	AppCalendar AppType = "calendar"
	// AppSMS is the messages app.
	AppSMS AppType = "sms"
	// AppEmails is the mail app.
	AppEmails AppType = "emails"
	// AppReminders is the reminders app.
	AppReminders AppType = "reminders"
	// AppNotes is the notes app.
	AppNotes AppType = "notes"
	// AppWallet is the wallet/passes app.
	AppWallet AppType = "wallet"
	// AppAlarms is the clock app alarms.
	AppAlarms AppType = "alarms"
)

// AllApps lists every supported app in a stable order.
var AllApps = []AppType{
	AppContacts, AppCalendar, AppSMS, AppEmails,
	AppReminders, AppNotes, AppWallet, AppAlarms,
}

// dataKeys maps each app to the top-level key of its record collection.
var dataKeys = map[AppType]string{
	AppContacts:  "contacts",
	AppCalendar:  "events",
	AppSMS:       "conversations",
	AppEmails:    "emails",
	AppReminders: "reminders",
	AppNotes:     "notes",
	AppWallet:    "passes",
	AppAlarms:    "alarms",
}

// IsValidApp checks if the given app name is supported.
func IsValidApp(app AppType) bool {
	_, ok := dataKeys[app]
	return ok
}

// DataKeyFor returns the top-level collection key for an app.
// Unknown apps map to their own name.
func DataKeyFor(app AppType) string {
	if key, ok := dataKeys[app]; ok {
		return key
	}
	return string(app)
}

// AppData is one app's generated payload: the data key mapped to an ordered
// sequence of records.
type AppData map[string][]map[string]any

// Entries returns the record collection for the given app, or nil when absent.
func (d AppData) Entries(app AppType) []map[string]any {
	if d == nil {
		return nil
	}
	return d[DataKeyFor(app)]
}

// GeneratedData maps app names to their generated payloads.
type GeneratedData map[AppType]AppData

// Error variables for configuration and input validation.
var (
	ErrMissingAPIKey    = errors.New("API key must be provided via config or OPENAI_API_KEY environment variable")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrUnknownApp       = errors.New("unknown app name")
	ErrNegativeVolume   = errors.New("data volume cannot be negative")
	ErrEmptyProfile     = errors.New("user profile cannot be empty")
	ErrNoEvents         = errors.New("events list cannot be empty")
	ErrEmptyEvent       = errors.New("event cannot be empty")
)

// Config holds all settings for one generation run. It is immutable after
// construction and shared read-only by all workflow stages.
type Config struct {
	// Model configuration
	Model       string  `json:"model" yaml:"model"`
	APIKey      string  `json:"-" yaml:"-"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`

	// Generation time window
	StartDate time.Time `json:"start_date" yaml:"start_date"`
	EndDate   time.Time `json:"end_date" yaml:"end_date"`

	// Data generation
	DataVolume  map[AppType]int `json:"data_volume" yaml:"data_volume"`
	EnabledApps []AppType       `json:"enabled_apps" yaml:"enabled_apps"`

	// Output
	OutputDirectory     string `json:"output_directory" yaml:"output_directory"`
	CreateSummaryReport bool   `json:"create_summary_report" yaml:"create_summary_report"`
	IncludeMetadata     bool   `json:"include_metadata" yaml:"include_metadata"`

	// Validation
	MaxValidationErrors int  `json:"max_validation_errors" yaml:"max_validation_errors"`
	StrictValidation    bool `json:"strict_validation" yaml:"strict_validation"`

	// Quality control
	EnableReflection        bool    `json:"enable_reflection" yaml:"enable_reflection"`
	MinQualityScore         float64 `json:"min_quality_score" yaml:"min_quality_score"`
	MaxRegenerationAttempts int     `json:"max_regeneration_attempts" yaml:"max_regeneration_attempts"`

	// Advanced options
	UseFallbackSynthesis   bool  `json:"use_fallback_synthesis" yaml:"use_fallback_synthesis"`
	PreservePrivacy        bool  `json:"preserve_privacy" yaml:"preserve_privacy"`
	AnonymizeSensitiveData bool  `json:"anonymize_sensitive_data" yaml:"anonymize_sensitive_data"`
	Seed                   int64 `json:"seed" yaml:"seed"`
}

// NewConfig returns a Config populated with defaults matching the
// reference data volumes and a January-May 2024 window.
func NewConfig() Config {
	return Config{
		Model:       "gpt-4o",
		Temperature: 0.7,
		MaxTokens:   4000,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
		DataVolume: map[AppType]int{
			AppContacts:  15,
			AppCalendar:  20,
			AppSMS:       30,
			AppEmails:    25,
			AppReminders: 18,
			AppNotes:     12,
			AppWallet:    8,
			AppAlarms:    10,
		},
		EnabledApps:             append([]AppType(nil), AllApps...),
		OutputDirectory:         "./output",
		CreateSummaryReport:     true,
		IncludeMetadata:         true,
		MaxValidationErrors:     10,
		StrictValidation:        true,
		EnableReflection:        true,
		MinQualityScore:         6.0,
		MaxRegenerationAttempts: 3,
		UseFallbackSynthesis:    true,
		PreservePrivacy:         true,
		AnonymizeSensitiveData:  true,
	}
}

// Validate performs hard validation on the configuration. Any error returned
// here is fatal: the configuration must not be used for a run.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if !c.StartDate.Before(c.EndDate) {
		return ErrInvalidDateRange
	}
	for _, app := range c.EnabledApps {
		if !IsValidApp(app) {
			return fmt.Errorf("%w: %s", ErrUnknownApp, app)
		}
	}
	for app, count := range c.DataVolume {
		if count < 0 {
			return fmt.Errorf("%w: %s has %d", ErrNegativeVolume, app, count)
		}
	}
	return nil
}

// Issues returns non-fatal configuration concerns for callers to review
// before running. An empty slice means the configuration looks sound.
func (c *Config) Issues() []string {
	var issues []string
	if c.APIKey == "" {
		issues = append(issues, "API key is required")
	}
	if !c.StartDate.Before(c.EndDate) {
		issues = append(issues, "start date must be before end date")
	}
	for _, app := range AllApps {
		count, ok := c.DataVolume[app]
		if ok && count < 0 {
			issues = append(issues, fmt.Sprintf("data volume for %s cannot be negative", app))
		}
		if ok && count > 1000 {
			issues = append(issues, fmt.Sprintf("data volume for %s is very high (%d), consider reducing", app, count))
		}
	}
	for _, app := range c.EnabledApps {
		if _, ok := c.DataVolume[app]; !ok {
			issues = append(issues, fmt.Sprintf("no data volume specified for enabled app: %s", app))
		}
	}
	return issues
}

// IsAppEnabled checks if a specific app is enabled.
func (c *Config) IsAppEnabled(app AppType) bool {
	for _, a := range c.EnabledApps {
		if a == app {
			return true
		}
	}
	return false
}

// AppDataCount returns the configured record count for an app, 0 if unset.
func (c *Config) AppDataCount(app AppType) int {
	return c.DataVolume[app]
}

// EnabledAppsWithData returns enabled apps whose configured volume is > 0.
func (c *Config) EnabledAppsWithData() []AppType {
	var apps []AppType
	for _, app := range c.EnabledApps {
		if c.DataVolume[app] > 0 {
			apps = append(apps, app)
		}
	}
	return apps
}

// TimeRangeDays returns the number of days in the configured time window.
func (c *Config) TimeRangeDays() int {
	return int(c.EndDate.Sub(c.StartDate).Hours() / 24)
}

// Redacted returns a serializable view of the configuration with the API key
// masked, for inclusion in output metadata.
func (c *Config) Redacted() map[string]any {
	volumes := make(map[string]int, len(c.DataVolume))
	for app, count := range c.DataVolume {
		volumes[string(app)] = count
	}
	apps := make([]string, 0, len(c.EnabledApps))
	for _, app := range c.EnabledApps {
		apps = append(apps, string(app))
	}
	return map[string]any{
		"model":                     c.Model,
		"api_key":                   "[REDACTED]",
		"temperature":               c.Temperature,
		"max_tokens":                c.MaxTokens,
		"start_date":                c.StartDate.Format(time.RFC3339),
		"end_date":                  c.EndDate.Format(time.RFC3339),
		"data_volume":               volumes,
		"enabled_apps":              apps,
		"output_directory":          c.OutputDirectory,
		"create_summary_report":     c.CreateSummaryReport,
		"include_metadata":          c.IncludeMetadata,
		"max_validation_errors":     c.MaxValidationErrors,
		"strict_validation":         c.StrictValidation,
		"enable_reflection":         c.EnableReflection,
		"min_quality_score":         c.MinQualityScore,
		"max_regeneration_attempts": c.MaxRegenerationAttempts,
		"use_fallback_synthesis":    c.UseFallbackSynthesis,
		"preserve_privacy":          c.PreservePrivacy,
		"anonymize_sensitive_data":  c.AnonymizeSensitiveData,
	}
}
