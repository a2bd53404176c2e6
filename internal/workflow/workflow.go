// Package workflow drives a PersonaPipe run through its state machine:
// profile analysis, per-app generation, schema validation with bounded
// regeneration, quality reflection and output packaging.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/PersonaPipe/internal/flow"
	"github.com/BTreeMap/PersonaPipe/internal/models"
	"github.com/BTreeMap/PersonaPipe/internal/output"
	"github.com/BTreeMap/PersonaPipe/internal/schema"
	"github.com/BTreeMap/PersonaPipe/internal/store"
	"github.com/BTreeMap/PersonaPipe/internal/util"
)

// Run states. Transitions only move forward except for the validation
// stage, which may route back to generation while regeneration attempts
// remain.
const (
	StateAnalyzeProfile = "analyze_profile"
	StateGenerateData   = "generate_data"
	StateValidateData   = "validate_data"
	StateReflectQuality = "reflect_quality"
	StatePackageOutput  = "package_output"
	StateDone           = "done"
)

// RunState is the mutable state of one workflow run. It is owned by a
// single run and never shared between runs.
type RunState struct {
	State      string
	Profile    map[string]any
	Events     []string
	Analysis   models.AnalysisRecord
	Data       models.GeneratedData
	Validation map[models.AppType]models.ValidationResult
	Reflection models.ReflectionResult
	OutputPath string
	Errors     []string

	// Failed marks a run that could not complete its stages, such as a
	// cancelled context. Errors caught inside a stage are recorded without
	// setting it.
	Failed bool

	// Attempts counts regeneration passes taken so far; RegenApps names
	// the apps the next generation pass must redo. Empty RegenApps means
	// a full first pass.
	Attempts  int
	RegenApps []models.AppType
}

func (s *RunState) addError(stage string, err error) {
	msg := fmt.Sprintf("%s: %v", stage, err)
	slog.Error("Workflow stage error", "stage", stage, "error", err)
	s.Errors = append(s.Errors, msg)
}

// Workflow wires the pipeline stages together for repeated runs with one
// configuration.
type Workflow struct {
	cfg       models.Config
	factory   *flow.Factory
	analyzer  *flow.ProfileAnalyzer
	reflector *flow.QualityReflector
	validator *schema.Validator
	packager  *output.Manager
	runs      store.RunStore
}

// Option adjusts optional workflow collaborators.
type Option func(*Workflow)

// WithRunStore records a summary of every completed run in the given store.
func WithRunStore(rs store.RunStore) Option {
	return func(w *Workflow) { w.runs = rs }
}

// NewWorkflow validates the configuration and assembles the pipeline. A nil
// client disables model calls; with fallback synthesis enabled the run still
// produces full template data.
func NewWorkflow(cfg models.Config, client flow.ModelClient, opts ...Option) (*Workflow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	for _, issue := range cfg.Issues() {
		slog.Warn("Configuration issue", "issue", issue)
	}

	w := &Workflow{
		cfg:       cfg,
		factory:   flow.NewFactory(cfg, client),
		analyzer:  flow.NewProfileAnalyzer(cfg, client),
		reflector: flow.NewQualityReflector(cfg, client),
		validator: schema.NewValidator(),
		packager:  output.NewManager(cfg),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run executes the full pipeline for one profile, blocking until done.
func (w *Workflow) Run(profile map[string]any, events []string) models.RunResult {
	return w.RunContext(context.Background(), profile, events)
}

// RunContext executes the full pipeline under the given context. The
// returned result is always usable: stage failures are recorded in the
// Errors list while the run keeps going, and Success only turns false when
// the run cannot complete its stages at all.
func (w *Workflow) RunContext(ctx context.Context, profile map[string]any, events []string) models.RunResult {
	if err := validateInputs(profile, events); err != nil {
		return models.FailedRun(err.Error())
	}

	started := time.Now()
	state := &RunState{
		State:      StateAnalyzeProfile,
		Profile:    profile,
		Events:     events,
		Data:       models.GeneratedData{},
		Validation: map[models.AppType]models.ValidationResult{},
		Errors:     []string{},
	}
	slog.Info("Workflow run starting",
		"apps", len(w.cfg.EnabledAppsWithData()),
		"start_date", w.cfg.StartDate.Format("2006-01-02"),
		"end_date", w.cfg.EndDate.Format("2006-01-02"))

	for state.State != StateDone {
		if err := ctx.Err(); err != nil {
			state.addError(state.State, err)
			state.Failed = true
			break
		}
		switch state.State {
		case StateAnalyzeProfile:
			w.analyze(ctx, state)
			state.State = StateGenerateData
		case StateGenerateData:
			w.generate(ctx, state)
			state.State = StateValidateData
		case StateValidateData:
			w.validate(state)
			if w.shouldRegenerate(state) {
				state.Attempts++
				slog.Info("Regenerating invalid apps",
					"attempt", state.Attempts,
					"apps", state.RegenApps)
				state.State = StateGenerateData
			} else {
				state.State = StateReflectQuality
			}
		case StateReflectQuality:
			w.reflect(ctx, state)
			state.State = StatePackageOutput
		case StatePackageOutput:
			w.packageOutput(state)
			state.State = StateDone
		default:
			state.addError("workflow", fmt.Errorf("unknown state: %s", state.State))
			state.Failed = true
			state.State = StateDone
		}
	}

	result := models.RunResult{
		Success:           !state.Failed,
		OutputPath:        state.OutputPath,
		GeneratedData:     state.Data,
		ValidationResults: state.Validation,
		ReflectionResults: state.Reflection,
		Errors:            state.Errors,
	}
	w.recordRun(started, result)
	slog.Info("Workflow run finished",
		"success", result.Success,
		"output_path", result.OutputPath,
		"errors", len(result.Errors),
		"duration", time.Since(started).Round(time.Millisecond))
	return result
}

// validateInputs rejects runs before any state executes.
func validateInputs(profile map[string]any, events []string) error {
	if len(profile) == 0 {
		return models.ErrEmptyProfile
	}
	if len(events) == 0 {
		return models.ErrNoEvents
	}
	for i, event := range events {
		if event == "" {
			return fmt.Errorf("%w: event %d", models.ErrEmptyEvent, i)
		}
	}
	return nil
}

// analyze runs the profile analysis stage. Failure inside the analyzer
// degrades to the fallback record and is not a run error.
func (w *Workflow) analyze(ctx context.Context, state *RunState) {
	state.Analysis = w.analyzer.Analyze(ctx, state.Profile, state.Events)
}

// generate produces data for every enabled app with a positive volume, or
// only the apps flagged for regeneration on later passes.
func (w *Workflow) generate(ctx context.Context, state *RunState) {
	apps := w.cfg.EnabledAppsWithData()
	if len(state.RegenApps) > 0 {
		apps = state.RegenApps
	}

	for _, app := range apps {
		count := w.cfg.AppDataCount(app)
		if count <= 0 {
			continue
		}
		gen, err := w.factory.Generator(app)
		if err != nil {
			state.addError("generate_data", err)
			continue
		}
		state.Data[app] = gen.Generate(ctx, state.Profile, state.Events, state.Analysis, count)
	}
	state.RegenApps = nil
}

// validate checks every generated collection against its schema.
func (w *Workflow) validate(state *RunState) {
	for app, data := range state.Data {
		state.Validation[app] = w.validator.Validate(app, data)
	}
}

// shouldRegenerate decides whether validation routes back to generation:
// any app with critical errors, or total errors above the configured
// threshold, triggers another pass while attempts remain.
func (w *Workflow) shouldRegenerate(state *RunState) bool {
	if state.Attempts >= w.cfg.MaxRegenerationAttempts {
		if regenCandidates(state.Validation, w.cfg.MaxValidationErrors) != nil {
			slog.Warn("Regeneration attempts exhausted, continuing with current data",
				"attempts", state.Attempts)
		}
		return false
	}

	apps := regenCandidates(state.Validation, w.cfg.MaxValidationErrors)
	if apps == nil {
		return false
	}
	state.RegenApps = apps
	return true
}

// regenCandidates returns the apps that should be regenerated, or nil when
// validation passed. Critical errors always flag their app; when the summed
// error count exceeds maxErrors every app with errors is flagged.
func regenCandidates(validation map[models.AppType]models.ValidationResult, maxErrors int) []models.AppType {
	total := 0
	critical := false
	for _, result := range validation {
		total += result.TotalErrors
		if result.CriticalErrors > 0 {
			critical = true
		}
	}
	if !critical && total <= maxErrors {
		return nil
	}

	var apps []models.AppType
	for _, app := range models.AllApps {
		result, ok := validation[app]
		if !ok {
			continue
		}
		if result.CriticalErrors > 0 || (total > maxErrors && result.TotalErrors > 0) {
			apps = append(apps, app)
		}
	}
	return apps
}

// reflect runs the optional quality reflection stage.
func (w *Workflow) reflect(ctx context.Context, state *RunState) {
	if !w.cfg.EnableReflection {
		state.Reflection = models.SkippedReflection()
		return
	}
	state.Reflection = w.reflector.Reflect(ctx, state.Data, state.Analysis)
}

// packageOutput writes the run's artifacts to disk. A packaging failure is
// a run error, the earlier stages' results are still returned to the caller.
func (w *Workflow) packageOutput(state *RunState) {
	path, err := w.packager.Save(state.Profile, state.Events, state.Analysis,
		state.Data, state.Validation, state.Reflection)
	if err != nil {
		state.addError("package_output", err)
		return
	}
	state.OutputPath = path
}

// recordRun persists a run summary when a store is configured. Store
// failures are logged, never propagated.
func (w *Workflow) recordRun(started time.Time, result models.RunResult) {
	if w.runs == nil {
		return
	}

	counts := make(map[string]int, len(result.GeneratedData))
	apps := make([]string, 0, len(result.GeneratedData))
	for _, app := range models.AllApps {
		data, ok := result.GeneratedData[app]
		if !ok {
			continue
		}
		apps = append(apps, string(app))
		counts[string(app)] = len(data.Entries(app))
	}

	record := store.RunRecord{
		ID:             util.GenerateRunID(),
		StartedAt:      started,
		FinishedAt:     time.Now(),
		Success:        result.Success,
		Apps:           apps,
		EntryCounts:    counts,
		ErrorCount:     len(result.Errors),
		OutputPath:     result.OutputPath,
		OverallQuality: result.ReflectionResults.OverallQuality,
		RealismScore:   result.ReflectionResults.RealismScore,
		DiversityScore: result.ReflectionResults.DiversityScore,
		CoherenceScore: result.ReflectionResults.CoherenceScore,
	}
	if err := w.runs.RecordRun(record); err != nil {
		slog.Warn("Failed to record run", "run_id", record.ID, "error", err)
	}
}
