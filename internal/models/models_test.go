package models

import (
	"errors"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := NewConfig()
	cfg.APIKey = "test-key"
	return cfg
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.Model != "gpt-4o" {
		t.Errorf("expected default model gpt-4o, got %s", cfg.Model)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("expected default temperature 0.7, got %f", cfg.Temperature)
	}
	if cfg.MaxRegenerationAttempts != 3 {
		t.Errorf("expected 3 regeneration attempts, got %d", cfg.MaxRegenerationAttempts)
	}
	if len(cfg.EnabledApps) != len(AllApps) {
		t.Errorf("expected all %d apps enabled, got %d", len(AllApps), len(cfg.EnabledApps))
	}
	for _, app := range AllApps {
		if cfg.DataVolume[app] <= 0 {
			t.Errorf("expected positive default volume for %s", app)
		}
	}
}

func TestConfigValidateMissingAPIKey(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestConfigValidateDateRange(t *testing.T) {
	cfg := validConfig()
	cfg.EndDate = cfg.StartDate.Add(-time.Hour)
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestConfigValidateUnknownApp(t *testing.T) {
	cfg := validConfig()
	cfg.EnabledApps = append(cfg.EnabledApps, AppType("pager"))
	if err := cfg.Validate(); !errors.Is(err, ErrUnknownApp) {
		t.Errorf("expected ErrUnknownApp, got %v", err)
	}
}

func TestConfigValidateNegativeVolume(t *testing.T) {
	cfg := validConfig()
	cfg.DataVolume[AppContacts] = -1
	if err := cfg.Validate(); !errors.Is(err, ErrNegativeVolume) {
		t.Errorf("expected ErrNegativeVolume, got %v", err)
	}
}

func TestConfigIssuesHighVolume(t *testing.T) {
	cfg := validConfig()
	if issues := cfg.Issues(); len(issues) != 0 {
		t.Fatalf("expected no issues for valid config, got %v", issues)
	}
	cfg.DataVolume[AppSMS] = 5000
	issues := cfg.Issues()
	if len(issues) == 0 {
		t.Error("expected a very-high-volume issue")
	}
}

func TestEnabledAppsWithData(t *testing.T) {
	cfg := validConfig()
	cfg.EnabledApps = []AppType{AppContacts, AppAlarms}
	cfg.DataVolume = map[AppType]int{AppContacts: 5, AppAlarms: 0}
	apps := cfg.EnabledAppsWithData()
	if len(apps) != 1 || apps[0] != AppContacts {
		t.Errorf("expected [contacts], got %v", apps)
	}
}

func TestRedactedMasksAPIKey(t *testing.T) {
	cfg := validConfig()
	redacted := cfg.Redacted()
	if redacted["api_key"] != "[REDACTED]" {
		t.Errorf("expected masked api_key, got %v", redacted["api_key"])
	}
	if redacted["model"] != cfg.Model {
		t.Errorf("expected model %s in redacted view, got %v", cfg.Model, redacted["model"])
	}
}

func TestDataKeys(t *testing.T) {
	cases := map[AppType]string{
		AppContacts:  "contacts",
		AppCalendar:  "events",
		AppSMS:       "conversations",
		AppEmails:    "emails",
		AppReminders: "reminders",
		AppNotes:     "notes",
		AppWallet:    "passes",
		AppAlarms:    "alarms",
	}
	for app, want := range cases {
		if got := DataKeyFor(app); got != want {
			t.Errorf("DataKeyFor(%s) = %s, want %s", app, got, want)
		}
	}
	if !IsValidApp(AppContacts) {
		t.Error("contacts should be a valid app")
	}
	if IsValidApp(AppType("pager")) {
		t.Error("pager should not be a valid app")
	}
}

func TestAppDataEntries(t *testing.T) {
	data := AppData{"contacts": []map[string]any{{"id": "c1"}}}
	if got := len(data.Entries(AppContacts)); got != 1 {
		t.Errorf("expected 1 entry, got %d", got)
	}
	if got := data.Entries(AppAlarms); got != nil {
		t.Errorf("expected nil for missing key, got %v", got)
	}
}

func TestTimeRangeDays(t *testing.T) {
	cfg := validConfig()
	cfg.StartDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg.EndDate = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	if got := cfg.TimeRangeDays(); got != 30 {
		t.Errorf("expected 30 days, got %d", got)
	}
}
