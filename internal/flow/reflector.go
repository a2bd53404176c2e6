package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/PersonaPipe/internal/models"
)

const (
	reflectionTemperature = 0.2
	reflectionMaxTokens   = 1500
)

// QualityReflector performs the second-pass quality assessment over the full
// generated data set.
type QualityReflector struct {
	cfg    models.Config
	client ModelClient
}

// NewQualityReflector constructs the reflector.
func NewQualityReflector(cfg models.Config, client ModelClient) *QualityReflector {
	return &QualityReflector{cfg: cfg, client: client}
}

// Reflect assesses realism, diversity and coherence of the generated data.
// An empty data set skips the model call entirely; any failure degrades to
// the neutral unknown result.
func (r *QualityReflector) Reflect(ctx context.Context, data models.GeneratedData, analysis models.AnalysisRecord) models.ReflectionResult {
	total := 0
	for _, appData := range data {
		for _, entries := range appData {
			total += len(entries)
		}
	}
	if total == 0 {
		slog.Info("No generated data, skipping reflection")
		return models.SkippedReflection()
	}
	if r.client == nil {
		return models.UnknownReflection("no model client available for reflection")
	}

	prompt := r.buildPrompt(data, analysis)
	resp, err := r.client.Generate(ctx, prompt, reflectionTemperature, reflectionMaxTokens)
	if err != nil {
		slog.Warn("Reflection call failed", "error", err)
		return models.UnknownReflection("reflection model call failed")
	}

	result, err := parseReflection(resp)
	if err != nil {
		slog.Warn("Failed to parse reflection response", "error", err)
		return models.UnknownReflection("reflection response could not be parsed")
	}

	slog.Info("Quality reflection complete",
		"overall_quality", result.OverallQuality,
		"realism", result.RealismScore,
		"diversity", result.DiversityScore,
		"coherence", result.CoherenceScore)
	return result
}

// buildPrompt summarizes the data set per app (counts plus a small sample)
// rather than inlining every record, keeping the prompt inside token limits.
func (r *QualityReflector) buildPrompt(data models.GeneratedData, analysis models.AnalysisRecord) string {
	var sb strings.Builder
	sb.WriteString("Assess the quality of the following generated personal data set for a fictitious user.\n\n")
	fmt.Fprintf(&sb, "USER ANALYSIS:\n%s\n\n", jsonIndent(analysis))
	sb.WriteString("DATA SUMMARY:\n")
	for _, app := range models.AllApps {
		appData, ok := data[app]
		if !ok {
			continue
		}
		entries := appData.Entries(app)
		fmt.Fprintf(&sb, "\n%s (%d entries)", app, len(entries))
		if len(entries) > 0 {
			sample := entries
			if len(sample) > 2 {
				sample = sample[:2]
			}
			fmt.Fprintf(&sb, ", sample:\n%s\n", jsonIndent(sample))
		} else {
			sb.WriteString("\n")
		}
	}
	sb.WriteString(`
Respond with a JSON object in exactly this format:
{
    "overall_quality": "excellent|good|fair|poor",
    "realism_score": 1-10,
    "diversity_score": 1-10,
    "coherence_score": 1-10,
    "strengths": ["..."],
    "weaknesses": ["..."],
    "cross_app_consistency": "...",
    "temporal_consistency": "...",
    "character_consistency": "...",
    "recommendations": ["..."],
    "critical_issues": ["..."]
}

Judge realism of content, diversity across entries, and coherence between apps and with the user analysis.
`)
	return sb.String()
}

func parseReflection(resp string) (models.ReflectionResult, error) {
	start := strings.Index(resp, "{")
	end := strings.LastIndex(resp, "}")
	if start == -1 || end == -1 || end < start {
		return models.ReflectionResult{}, fmt.Errorf("no JSON object in response")
	}

	var result models.ReflectionResult
	if err := json.Unmarshal([]byte(resp[start:end+1]), &result); err != nil {
		return models.ReflectionResult{}, fmt.Errorf("decode reflection: %w", err)
	}
	if result.OverallQuality == "" {
		return models.ReflectionResult{}, fmt.Errorf("reflection response missing overall_quality")
	}
	if result.Strengths == nil {
		result.Strengths = []string{}
	}
	if result.Weaknesses == nil {
		result.Weaknesses = []string{}
	}
	if result.Recommendations == nil {
		result.Recommendations = []string{}
	}
	if result.CriticalIssues == nil {
		result.CriticalIssues = []string{}
	}
	return result, nil
}
