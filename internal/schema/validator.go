// Package schema validates generated app data against embedded JSON Schema
// documents, one per app.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/BTreeMap/PersonaPipe/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// criticalPatterns mark a validation error as critical when any of them
// appears in the error message (case-insensitive). Critical errors drive the
// workflow's regeneration decision.
var criticalPatterns = []string{"required", "type", "format", "additionalproperties"}

// Validator validates app record collections against their JSON schemas.
// Schemas are compiled lazily and memoized per app name.
type Validator struct {
	mu       sync.Mutex
	compiled map[models.AppType]*jsonschema.Schema
}

// NewValidator creates a Validator backed by the embedded schema documents.
func NewValidator() *Validator {
	return &Validator{compiled: make(map[models.AppType]*jsonschema.Schema)}
}

// Has reports whether a schema document exists for the given app.
func (v *Validator) Has(app models.AppType) bool {
	_, err := schemaFS.ReadFile(schemaPath(app))
	return err == nil
}

// Apps returns the app names with an available schema, sorted.
func (v *Validator) Apps() []models.AppType {
	var apps []models.AppType
	for _, app := range models.AllApps {
		if v.Has(app) {
			apps = append(apps, app)
		}
	}
	return apps
}

// Validate checks one app's record collection against its schema. Validation
// stops at the first violation: at most one error is reported per pass. The
// method never panics; schema loading problems surface as an invalid result
// with a single critical error.
func (v *Validator) Validate(app models.AppType, data models.AppData) models.ValidationResult {
	slog.Debug("Schema validation started", "app", app)

	sch, err := v.load(app)
	if err != nil {
		slog.Error("Schema load failed", "app", app, "error", err)
		return invalidResult(app, fmt.Sprintf("unexpected validation error in %s: %v", app, err), true)
	}

	doc, err := roundTrip(data)
	if err != nil {
		slog.Error("Schema validation marshal failed", "app", app, "error", err)
		return invalidResult(app, fmt.Sprintf("unexpected validation error in %s: %v", app, err), true)
	}

	if err := sch.Validate(doc); err != nil {
		msg := fmt.Sprintf("validation error in %s: %s", app, violationMessage(err))
		slog.Warn("Schema validation failed", "app", app, "error", msg)
		return invalidResult(app, msg, isCritical(msg))
	}

	entries := len(data.Entries(app))
	slog.Debug("Schema validation passed", "app", app, "entries", entries)
	return models.ValidationResult{
		IsValid:    true,
		AppName:    app,
		EntryCount: entries,
		Errors:     []string{},
		Warnings:   []string{},
	}
}

// load compiles and caches the schema for an app.
func (v *Validator) load(app models.AppType) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if sch, ok := v.compiled[app]; ok {
		return sch, nil
	}

	raw, err := schemaFS.ReadFile(schemaPath(app))
	if err != nil {
		return nil, fmt.Errorf("schema file not found for %s: %w", app, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON in schema for %s: %w", app, err)
	}

	c := jsonschema.NewCompiler()
	resource := string(app) + ".json"
	if err := c.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("add schema resource for %s: %w", app, err)
	}
	sch, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", app, err)
	}

	v.compiled[app] = sch
	slog.Debug("Schema compiled and cached", "app", app)
	return sch, nil
}

// Info summarizes a schema document.
type Info struct {
	AppName        models.AppType `json:"app_name"`
	Title          string         `json:"schema_title"`
	Draft          string         `json:"schema_version"`
	RequiredFields []string       `json:"required_fields"`
	OptionalFields []string       `json:"optional_fields"`
}

// SchemaInfo returns title, draft and field listing for an app's schema.
func (v *Validator) SchemaInfo(app models.AppType) (Info, error) {
	raw, err := schemaFS.ReadFile(schemaPath(app))
	if err != nil {
		return Info{}, fmt.Errorf("schema file not found for %s: %w", app, err)
	}

	var sch struct {
		Title      string `json:"title"`
		Schema     string `json:"$schema"`
		Properties map[string]struct {
			Items struct {
				Required   []string                   `json:"required"`
				Properties map[string]json.RawMessage `json:"properties"`
			} `json:"items"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(raw, &sch); err != nil {
		return Info{}, fmt.Errorf("invalid JSON in schema for %s: %w", app, err)
	}

	info := Info{AppName: app, Title: sch.Title, Draft: sch.Schema}
	for collection, prop := range sch.Properties {
		required := make(map[string]bool, len(prop.Items.Required))
		for _, field := range prop.Items.Required {
			required[field] = true
			info.RequiredFields = append(info.RequiredFields, collection+"."+field)
		}
		for field := range prop.Items.Properties {
			if !required[field] {
				info.OptionalFields = append(info.OptionalFields, collection+"."+field)
			}
		}
	}
	return info, nil
}

func schemaPath(app models.AppType) string {
	return "schemas/" + string(app) + ".json"
}

// roundTrip converts in-memory data to the JSON value types the validator
// expects.
func roundTrip(data models.AppData) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal for schema validation: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal for schema validation: %w", err)
	}
	return doc, nil
}

// violationMessage renders the first leaf violation, prefixed with the
// failing schema keyword so error classification can match on it.
func violationMessage(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	leaf := firstLeaf(ve)
	keyword := strings.Join(leaf.ErrorKind.KeywordPath(), "/")
	location := "/" + strings.Join(leaf.InstanceLocation, "/")
	return fmt.Sprintf("%s failed at %s: %v", keyword, location, leaf.ErrorKind)
}

// firstLeaf walks the cause tree to the first leaf validation error.
func firstLeaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// isCritical classifies an error message against the critical patterns.
func isCritical(msg string) bool {
	lower := strings.ToLower(msg)
	for _, pattern := range criticalPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func invalidResult(app models.AppType, msg string, critical bool) models.ValidationResult {
	criticalCount := 0
	if critical {
		criticalCount = 1
	}
	return models.ValidationResult{
		IsValid:        false,
		AppName:        app,
		EntryCount:     0,
		Errors:         []string{msg},
		Warnings:       []string{},
		TotalErrors:    1,
		CriticalErrors: criticalCount,
	}
}
