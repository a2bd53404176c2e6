// Package models defines validation, reflection and run result structures.
package models

// Quality labels assigned by the reflection stage.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
	QualityUnknown   = "unknown"
	QualitySkipped   = "skipped"
)

// ValidationResult records the outcome of validating one app's collection
// against its schema.
type ValidationResult struct {
	IsValid        bool     `json:"is_valid"`
	AppName        AppType  `json:"app_name"`
	EntryCount     int      `json:"entry_count"`
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
	TotalErrors    int      `json:"total_errors"`
	CriticalErrors int      `json:"critical_errors"`
}

// ReflectionResult is the second-pass quality assessment of a full data set.
type ReflectionResult struct {
	OverallQuality       string   `json:"overall_quality"`
	RealismScore         int      `json:"realism_score"`
	DiversityScore       int      `json:"diversity_score"`
	CoherenceScore       int      `json:"coherence_score"`
	Strengths            []string `json:"strengths"`
	Weaknesses           []string `json:"weaknesses"`
	CrossAppConsistency  string   `json:"cross_app_consistency,omitempty"`
	TemporalConsistency  string   `json:"temporal_consistency,omitempty"`
	CharacterConsistency string   `json:"character_consistency,omitempty"`
	Recommendations      []string `json:"recommendations"`
	CriticalIssues       []string `json:"critical_issues"`
}

// SkippedReflection returns the fixed result used when no app produced data
// and the reflection model call is skipped entirely.
func SkippedReflection() ReflectionResult {
	return ReflectionResult{
		OverallQuality:  QualitySkipped,
		Strengths:       []string{},
		Weaknesses:      []string{},
		Recommendations: []string{},
		CriticalIssues:  []string{},
	}
}

// UnknownReflection returns the neutral result substituted when the
// reflection response cannot be parsed.
func UnknownReflection(weaknesses ...string) ReflectionResult {
	if len(weaknesses) == 0 {
		weaknesses = []string{}
	}
	return ReflectionResult{
		OverallQuality:  QualityUnknown,
		RealismScore:    5,
		DiversityScore:  5,
		CoherenceScore:  5,
		Strengths:       []string{},
		Weaknesses:      weaknesses,
		Recommendations: []string{},
		CriticalIssues:  []string{},
	}
}

// RunResult is the caller-facing outcome of one workflow run. On failure all
// collection fields are present but empty rather than omitted.
type RunResult struct {
	Success           bool                          `json:"success"`
	OutputPath        string                        `json:"output_path"`
	GeneratedData     GeneratedData                 `json:"generated_data"`
	ValidationResults map[AppType]ValidationResult  `json:"validation_results"`
	ReflectionResults ReflectionResult              `json:"reflection_results"`
	Errors            []string                      `json:"errors"`
}

// FailedRun builds the substitute result for a run that did not complete.
func FailedRun(errs ...string) RunResult {
	if len(errs) == 0 {
		errs = []string{}
	}
	return RunResult{
		Success:           false,
		OutputPath:        "",
		GeneratedData:     GeneratedData{},
		ValidationResults: map[AppType]ValidationResult{},
		ReflectionResults: UnknownReflection(),
		Errors:            errs,
	}
}
