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
	analysisTemperature = 0.3
	analysisMaxTokens   = 2000
)

// ProfileAnalyzer runs the one-shot profile inference that precedes data
// generation. Its output is shared read-only by every generator.
type ProfileAnalyzer struct {
	cfg    models.Config
	client ModelClient
}

// NewProfileAnalyzer constructs the analyzer.
func NewProfileAnalyzer(cfg models.Config, client ModelClient) *ProfileAnalyzer {
	return &ProfileAnalyzer{cfg: cfg, client: client}
}

// Analyze infers identity, characteristics and cross-app relationships from
// the profile and events. Any model or parse failure degrades to the fixed
// fallback analysis, never to an error.
func (a *ProfileAnalyzer) Analyze(ctx context.Context, profile map[string]any, events []string) models.AnalysisRecord {
	if a.client == nil {
		slog.Debug("No model client configured, using fallback analysis")
		return models.FallbackAnalysis()
	}

	prompt := a.buildPrompt(profile, events)
	resp, err := a.client.Generate(ctx, prompt, analysisTemperature, analysisMaxTokens)
	if err != nil {
		slog.Warn("Profile analysis call failed", "error", err)
		return models.FallbackAnalysis()
	}

	record, err := parseAnalysis(resp)
	if err != nil {
		slog.Warn("Failed to parse analysis response", "error", err)
		return models.FallbackAnalysis()
	}

	slog.Info("Profile analysis complete",
		"first_name", record.UserIdentity.FirstName,
		"last_name", record.UserIdentity.LastName)
	return record
}

func (a *ProfileAnalyzer) buildPrompt(profile map[string]any, events []string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following user profile and life events to build a structured understanding of this person.\n\n")
	fmt.Fprintf(&sb, "USER PROFILE:\n%s\n\n", jsonIndent(sortedProfile(profile)))
	sb.WriteString("EVENTS:\n")
	for _, event := range events {
		fmt.Fprintf(&sb, "- %s\n", event)
	}
	fmt.Fprintf(&sb, "\nTIME PERIOD: %s to %s\n\n",
		a.cfg.StartDate.Format("2006-01-02"), a.cfg.EndDate.Format("2006-01-02"))
	sb.WriteString(`Respond with a JSON object in exactly this format:
{
    "user_identity": {
        "first_name": "...",
        "middle_name": "...",
        "last_name": "...",
        "gender": "..."
    },
    "user_characteristics": {
        "lifestyle": "...",
        "communication_patterns": "...",
        "technology_usage": "...",
        "social_connections": "...",
        "professional_context": "..."
    },
    "event_analysis": {
        "event_types": ["..."],
        "recurring_patterns": ["..."],
        "seasonal_activities": ["..."],
        "social_implications": ["..."]
    },
    "app_usage_patterns": {
        "contacts": "...",
        "calendar": "...",
        "sms": "...",
        "emails": "..."
    },
    "data_relationships": {
        "cross_app_connections": "...",
        "event_triggers": "...",
        "timeline_coherence": "..."
    }
}

Invent a plausible full name and gender for the user consistent with the profile.
`)
	return sb.String()
}

// parseAnalysis extracts the first JSON object from the raw response and
// decodes it into an analysis record.
func parseAnalysis(resp string) (models.AnalysisRecord, error) {
	start := strings.Index(resp, "{")
	end := strings.LastIndex(resp, "}")
	if start == -1 || end == -1 || end < start {
		return models.AnalysisRecord{}, fmt.Errorf("no JSON object in response")
	}

	var record models.AnalysisRecord
	if err := json.Unmarshal([]byte(resp[start:end+1]), &record); err != nil {
		return models.AnalysisRecord{}, fmt.Errorf("decode analysis: %w", err)
	}
	if record.UserIdentity.FirstName == "" && record.UserIdentity.LastName == "" {
		return models.AnalysisRecord{}, fmt.Errorf("analysis response missing user identity")
	}
	return record, nil
}
