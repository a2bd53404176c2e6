package output

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BTreeMap/PersonaPipe/internal/models"
)

func testConfig(t *testing.T) models.Config {
	t.Helper()
	cfg := models.NewConfig()
	cfg.APIKey = "test-key"
	cfg.OutputDirectory = t.TempDir()
	cfg.IncludeMetadata = true
	cfg.CreateSummaryReport = true
	return cfg
}

func testData() models.GeneratedData {
	return models.GeneratedData{
		models.AppContacts: models.AppData{
			"contacts": []map[string]any{
				{"id": "contacts_1", "first_name": "Maya", "last_name": "Lin"},
			},
		},
		models.AppNotes: models.AppData{"notes": []map[string]any{}},
	}
}

func testValidation() map[models.AppType]models.ValidationResult {
	return map[models.AppType]models.ValidationResult{
		models.AppContacts: {IsValid: true, AppName: models.AppContacts, EntryCount: 1},
	}
}

func managerAt(cfg models.Config, stamp time.Time) *Manager {
	m := NewManager(cfg)
	m.now = func() time.Time { return stamp }
	return m
}

func TestSaveWritesArtifacts(t *testing.T) {
	cfg := testConfig(t)
	stamp := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	m := managerAt(cfg, stamp)

	dir, err := m.Save(map[string]any{"age": 30}, []string{"event"},
		models.FallbackAnalysis(), testData(), testValidation(), models.SkippedReflection())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if got := filepath.Base(dir); got != "user_profile_20240601_123000" {
		t.Errorf("unexpected directory name %s", got)
	}

	for _, name := range []string{
		"contacts.json", "metadata.json", "validation_report.json",
		"reflection_report.json", "SUMMARY.md", "README.md",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	// Notes produced no entries, so no notes.json.
	if _, err := os.Stat(filepath.Join(dir, "notes.json")); !os.IsNotExist(err) {
		t.Error("expected no data file for an empty app")
	}

	raw, err := os.ReadFile(filepath.Join(dir, "contacts.json"))
	if err != nil {
		t.Fatalf("read contacts.json: %v", err)
	}
	var payload map[string][]map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("contacts.json is not valid JSON: %v", err)
	}
	if len(payload["contacts"]) != 1 {
		t.Errorf("expected 1 contact in file, got %d", len(payload["contacts"]))
	}
}

func TestSaveHonorsReportToggles(t *testing.T) {
	cfg := testConfig(t)
	cfg.IncludeMetadata = false
	cfg.CreateSummaryReport = false
	m := managerAt(cfg, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))

	dir, err := m.Save(map[string]any{"age": 30}, []string{"event"},
		models.FallbackAnalysis(), testData(), testValidation(), models.SkippedReflection())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "metadata.json")); !os.IsNotExist(err) {
		t.Error("metadata.json written despite IncludeMetadata=false")
	}
	if _, err := os.Stat(filepath.Join(dir, "SUMMARY.md")); !os.IsNotExist(err) {
		t.Error("SUMMARY.md written despite CreateSummaryReport=false")
	}
}

func TestCreateArchive(t *testing.T) {
	cfg := testConfig(t)
	m := managerAt(cfg, time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC))

	dir, err := m.Save(map[string]any{"age": 30}, []string{"event"},
		models.FallbackAnalysis(), testData(), testValidation(), models.SkippedReflection())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	archive, err := m.CreateArchive(dir)
	if err != nil {
		t.Fatalf("CreateArchive failed: %v", err)
	}
	if archive != dir+".zip" {
		t.Errorf("unexpected archive path %s", archive)
	}

	zr, err := zip.OpenReader(archive)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	want := filepath.Base(dir) + "/contacts.json"
	if !names[want] {
		t.Errorf("archive missing %s, has %v", want, names)
	}
}

func TestCleanupOldOutputsKeepsNewest(t *testing.T) {
	cfg := testConfig(t)
	m := NewManager(cfg)

	stamps := []string{"20240601_080000", "20240601_090000", "20240601_100000"}
	for i, stamp := range stamps {
		dir := filepath.Join(cfg.OutputDirectory, outputDirPrefix+stamp)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		// Spread modification times so retention order is deterministic.
		mt := time.Now().Add(time.Duration(i-3) * time.Hour)
		if err := os.Chtimes(dir, mt, mt); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	// A stray non-output directory must survive the sweep.
	other := filepath.Join(cfg.OutputDirectory, "scratch")
	if err := os.MkdirAll(other, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	removed, err := m.CleanupOldOutputs(1)
	if err != nil {
		t.Fatalf("CleanupOldOutputs failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removals, got %d", removed)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDirectory, outputDirPrefix+stamps[2])); err != nil {
		t.Error("newest output directory was removed")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("unrelated directory was removed")
	}
}

func TestCleanupMissingDirectory(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputDirectory = filepath.Join(cfg.OutputDirectory, "never-created")
	m := NewManager(cfg)

	removed, err := m.CleanupOldOutputs(3)
	if err != nil {
		t.Fatalf("expected no error for a missing directory, got %v", err)
	}
	if removed != 0 {
		t.Errorf("expected 0 removals, got %d", removed)
	}
}

func TestOutputSize(t *testing.T) {
	cfg := testConfig(t)
	m := managerAt(cfg, time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC))

	dir, err := m.Save(map[string]any{"age": 30}, []string{"event"},
		models.FallbackAnalysis(), testData(), testValidation(), models.SkippedReflection())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	total, sizes, err := m.OutputSize(dir)
	if err != nil {
		t.Fatalf("OutputSize failed: %v", err)
	}
	if total <= 0 {
		t.Errorf("expected positive total size, got %d", total)
	}
	var sum int64
	for _, size := range sizes {
		sum += size
	}
	if sum != total {
		t.Errorf("per-file sizes sum to %d, total is %d", sum, total)
	}
	if _, ok := sizes["contacts.json"]; !ok {
		t.Errorf("expected contacts.json in size map, got %v", sizes)
	}
}
