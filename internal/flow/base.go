package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/BTreeMap/PersonaPipe/internal/models"
)

// timestampFields are backfilled with a realistic in-window timestamp when a
// record carries them present but empty.
var timestampFields = []string{"created_date", "timestamp", "start_datetime"}

// base carries the machinery shared by every generator: prompt construction,
// the model call, response parsing, record cleaning and shortfall top-up.
type base struct {
	app    models.AppType
	cfg    models.Config
	client ModelClient
	rng    *rand.Rand
	faker  *gofakeit.Faker
}

func newBase(app models.AppType, deps Dependencies) base {
	return base{app: app, cfg: deps.Config, client: deps.Client, rng: deps.Rand, faker: deps.Faker}
}

// App returns the app this generator handles.
func (b *base) App() models.AppType { return b.app }

func (b *base) dataKey() string { return models.DataKeyFor(b.app) }

// run executes the shared generation algorithm: prompt the model, parse and
// clean the response, then synthesize any shortfall when fallback synthesis
// is enabled. The returned collection has at most count records, and exactly
// count when fallback synthesis is on.
func (b *base) run(ctx context.Context, profile map[string]any, events []string, analysis models.AnalysisRecord, count int, instructions string, synth func(n int) []map[string]any) models.AppData {
	key := b.dataKey()
	entries := []map[string]any{}

	if count > 0 && b.client != nil {
		prompt := b.buildPrompt(profile, events, analysis, count, instructions)
		resp, err := b.client.Generate(ctx, prompt, b.cfg.Temperature, b.cfg.MaxTokens)
		if err != nil {
			slog.Warn("Model generation failed", "app", b.app, "error", err)
		} else {
			entries = b.cleanEntries(b.parseResponse(resp))
		}
	}

	if len(entries) < count && b.cfg.UseFallbackSynthesis {
		shortfall := count - len(entries)
		slog.Debug("Synthesizing fallback records", "app", b.app, "shortfall", shortfall)
		entries = append(entries, synth(shortfall)...)
	}
	if len(entries) > count {
		entries = entries[:count]
	}

	slog.Info("Generation finished", "app", b.app, "requested", count, "produced", len(entries))
	return models.AppData{key: entries}
}

// buildPrompt assembles the natural-language generation prompt for this app.
func (b *base) buildPrompt(profile map[string]any, events []string, analysis models.AnalysisRecord, count int, instructions string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate realistic %s data for the following user profile and events.\n\n", b.dataKey())
	fmt.Fprintf(&sb, "USER PROFILE:\n%s\n\n", jsonIndent(sortedProfile(profile)))
	sb.WriteString("EVENTS:\n")
	for _, event := range events {
		fmt.Fprintf(&sb, "- %s\n", event)
	}
	fmt.Fprintf(&sb, "\nANALYSIS:\n%s\n\n", jsonIndent(analysis))
	fmt.Fprintf(&sb, "TIME PERIOD: %s to %s\n\n",
		b.cfg.StartDate.Format("2006-01-02"), b.cfg.EndDate.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Generate %d realistic %s entries that:\n", count, b.dataKey())
	sb.WriteString("1. Reflect the user's personality and lifestyle\n")
	sb.WriteString("2. Connect logically to the provided events\n")
	sb.WriteString("3. Show natural patterns and relationships\n")
	sb.WriteString("4. Include appropriate timestamps within the time period\n")
	sb.WriteString("5. Feel authentic and human-like\n\n")
	sb.WriteString(instructions)
	return sb.String()
}

// parseResponse extracts the first balanced-looking JSON object from the raw
// model output (first '{' to last '}') and decodes it. Any parse failure
// substitutes an empty collection.
func (b *base) parseResponse(resp string) models.AppData {
	start := strings.Index(resp, "{")
	end := strings.LastIndex(resp, "}")
	if start == -1 || end == -1 || end < start {
		slog.Warn("No JSON object found in model response", "app", b.app)
		return models.AppData{b.dataKey(): []map[string]any{}}
	}

	var data models.AppData
	if err := json.Unmarshal([]byte(resp[start:end+1]), &data); err != nil {
		slog.Warn("Failed to decode model response", "app", b.app, "error", err)
		return models.AppData{b.dataKey(): []map[string]any{}}
	}
	return data
}

// cleanEntries ensures every returned record has a unique identifier and
// backfills empty timestamp fields with an in-window value.
func (b *base) cleanEntries(data models.AppData) []map[string]any {
	raw, ok := data[b.dataKey()]
	if !ok {
		slog.Warn("Model response missing data key", "app", b.app, "key", b.dataKey())
		return []map[string]any{}
	}

	cleaned := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if entry == nil {
			continue
		}
		if id, ok := entry["id"].(string); !ok || id == "" {
			entry["id"] = b.newID()
		}
		for _, field := range timestampFields {
			if val, present := entry[field]; present {
				if s, isStr := val.(string); !isStr || s == "" {
					entry[field] = b.randomTimestamp()
				}
			}
		}
		cleaned = append(cleaned, entry)
	}
	return cleaned
}

// newID generates a unique record identifier for this app.
func (b *base) newID() string {
	return string(b.app) + "_" + uuid.NewString()
}

// randomTimestamp returns an RFC 3339 timestamp uniformly drawn from the
// configured generation window.
func (b *base) randomTimestamp() string {
	return b.randomTime().Format(time.RFC3339)
}

func (b *base) randomTime() time.Time {
	window := b.cfg.EndDate.Sub(b.cfg.StartDate)
	if window <= 0 {
		return b.cfg.StartDate
	}
	return b.cfg.StartDate.Add(time.Duration(b.rng.Int64N(int64(window))))
}

// randomDay returns midnight of a uniformly drawn day inside the window.
func (b *base) randomDay() time.Time {
	t := b.randomTime()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func jsonIndent(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

// sortedProfile renders the profile with stable key order so prompts are
// reproducible for identical inputs.
func sortedProfile(profile map[string]any) map[string]any {
	keys := make([]string, 0, len(profile))
	for k := range profile {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(profile))
	for _, k := range keys {
		out[k] = profile[k]
	}
	return out
}

// profileString fetches a lower-cased string attribute from the profile.
func profileString(profile map[string]any, key string) string {
	if v, ok := profile[key].(string); ok {
		return strings.ToLower(v)
	}
	return ""
}

// profileInt fetches an integer attribute from the profile, tolerating the
// float64 values JSON decoding produces.
func profileInt(profile map[string]any, key string, fallback int) int {
	switch v := profile[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}
