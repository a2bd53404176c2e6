// Package output packages a finished run's artifacts into a timestamped
// directory: per-app JSON files, machine-readable reports and a human
// summary, with optional zip archiving and retention sweeps.
package output

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BTreeMap/PersonaPipe/internal/models"
)

const outputDirPrefix = "user_profile_"

// Manager writes run artifacts under the configured output directory.
type Manager struct {
	cfg models.Config
	now func() time.Time
}

// NewManager constructs a Manager bound to one configuration.
func NewManager(cfg models.Config) *Manager {
	return &Manager{cfg: cfg, now: time.Now}
}

// Save writes every artifact for one run and returns the created directory.
// Apps that produced no records get no data file. Reports honor the
// configured metadata and summary toggles.
func (m *Manager) Save(profile map[string]any, events []string, analysis models.AnalysisRecord,
	data models.GeneratedData, validation map[models.AppType]models.ValidationResult,
	reflection models.ReflectionResult) (string, error) {

	stamp := m.now().Format("20060102_150405")
	dir := filepath.Join(m.cfg.OutputDirectory, outputDirPrefix+stamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	written := 0
	for _, app := range models.AllApps {
		appData, ok := data[app]
		if !ok || len(appData.Entries(app)) == 0 {
			continue
		}
		if err := writeJSON(filepath.Join(dir, string(app)+".json"), appData); err != nil {
			return "", err
		}
		written++
	}

	if m.cfg.IncludeMetadata {
		meta := map[string]any{
			"generated_at": m.now().Format(time.RFC3339),
			"config":       m.cfg.Redacted(),
			"profile":      profile,
			"events":       events,
			"analysis":     analysis,
			"apps":         appCounts(data),
		}
		if err := writeJSON(filepath.Join(dir, "metadata.json"), meta); err != nil {
			return "", err
		}
	}

	if err := writeJSON(filepath.Join(dir, "validation_report.json"), validation); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "reflection_report.json"), reflection); err != nil {
		return "", err
	}

	if m.cfg.CreateSummaryReport {
		summary := m.renderSummary(analysis, data, validation, reflection)
		if err := os.WriteFile(filepath.Join(dir, "SUMMARY.md"), []byte(summary), 0o644); err != nil {
			return "", fmt.Errorf("failed to write summary: %w", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(m.renderReadme(data)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write readme: %w", err)
	}

	slog.Info("Output packaged", "path", dir, "app_files", written)
	return dir, nil
}

// CreateArchive zips an output directory next to itself and returns the
// archive path.
func (m *Manager) CreateArchive(dir string) (string, error) {
	archivePath := dir + ".zip"
	f, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(filepath.Join(filepath.Base(dir), rel)))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive output: %w", err)
	}

	slog.Info("Archive created", "path", archivePath)
	return archivePath, nil
}

// CleanupOldOutputs removes all but the keep newest output directories and
// returns how many were deleted.
func (m *Manager) CleanupOldOutputs(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	entries, err := os.ReadDir(m.cfg.OutputDirectory)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read output directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var dirs []candidate
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), outputDirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, candidate{
			path:    filepath.Join(m.cfg.OutputDirectory, entry.Name()),
			modTime: info.ModTime(),
		})
	}
	sort.Slice(dirs, func(a, b int) bool { return dirs[a].modTime.After(dirs[b].modTime) })

	removed := 0
	for i := keep; i < len(dirs); i++ {
		if err := os.RemoveAll(dirs[i].path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", dirs[i].path, err)
		}
		removed++
	}
	if removed > 0 {
		slog.Info("Old outputs removed", "removed", removed, "kept", min(keep, len(dirs)))
	}
	return removed, nil
}

// OutputSize returns total bytes and per-file sizes for an output directory.
func (m *Manager) OutputSize(dir string) (int64, map[string]int64, error) {
	sizes := map[string]int64{}
	var total int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		sizes[rel] = info.Size()
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("failed to measure output: %w", err)
	}
	return total, sizes, nil
}

func (m *Manager) renderSummary(analysis models.AnalysisRecord, data models.GeneratedData,
	validation map[models.AppType]models.ValidationResult, reflection models.ReflectionResult) string {

	var sb strings.Builder
	sb.WriteString("# Generated Data Summary\n\n")
	fmt.Fprintf(&sb, "Generated at: %s\n\n", m.now().Format(time.RFC3339))
	fmt.Fprintf(&sb, "User: %s %s\n\n", analysis.UserIdentity.FirstName, analysis.UserIdentity.LastName)
	fmt.Fprintf(&sb, "Time period: %s to %s\n\n",
		m.cfg.StartDate.Format("2006-01-02"), m.cfg.EndDate.Format("2006-01-02"))

	sb.WriteString("## Data\n\n")
	sb.WriteString("| App | Entries | Valid | Errors |\n")
	sb.WriteString("|-----|---------|-------|--------|\n")
	for _, app := range models.AllApps {
		appData, ok := data[app]
		if !ok {
			continue
		}
		result := validation[app]
		fmt.Fprintf(&sb, "| %s | %d | %t | %d |\n",
			app, len(appData.Entries(app)), result.IsValid, result.TotalErrors)
	}

	sb.WriteString("\n## Quality\n\n")
	fmt.Fprintf(&sb, "Overall: %s\n\n", reflection.OverallQuality)
	if reflection.OverallQuality != models.QualitySkipped {
		fmt.Fprintf(&sb, "- Realism: %d/10\n", reflection.RealismScore)
		fmt.Fprintf(&sb, "- Diversity: %d/10\n", reflection.DiversityScore)
		fmt.Fprintf(&sb, "- Coherence: %d/10\n", reflection.CoherenceScore)
	}
	for _, issue := range reflection.CriticalIssues {
		fmt.Fprintf(&sb, "- Critical: %s\n", issue)
	}
	return sb.String()
}

func (m *Manager) renderReadme(data models.GeneratedData) string {
	var sb strings.Builder
	sb.WriteString("# Output Contents\n\n")
	sb.WriteString("This directory contains synthetic personal data for a fictitious user.\n\n")
	for _, app := range models.AllApps {
		appData, ok := data[app]
		if !ok || len(appData.Entries(app)) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "- `%s.json`: %d %s entries\n", app, len(appData.Entries(app)), models.DataKeyFor(app))
	}
	sb.WriteString("- `metadata.json`: run configuration and inputs\n")
	sb.WriteString("- `validation_report.json`: per-app schema validation results\n")
	sb.WriteString("- `reflection_report.json`: quality assessment\n")
	return sb.String()
}

func appCounts(data models.GeneratedData) map[string]int {
	counts := make(map[string]int, len(data))
	for app, appData := range data {
		counts[string(app)] = len(appData.Entries(app))
	}
	return counts
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
