package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/BTreeMap/PersonaPipe/internal/models"
)

// fakeModel is a scripted ModelClient.
type fakeModel struct {
	resp  string
	err   error
	calls int
}

func (f *fakeModel) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	f.calls++
	return f.resp, f.err
}

func testConfig(seed int64) models.Config {
	cfg := models.NewConfig()
	cfg.APIKey = "test-key"
	cfg.Seed = seed
	cfg.UseFallbackSynthesis = true
	return cfg
}

func testDeps(cfg models.Config, client ModelClient) Dependencies {
	return Dependencies{
		Config: cfg,
		Client: client,
		Rand:   rand.New(rand.NewPCG(1, 2)),
		Faker:  gofakeit.NewFaker(rand.NewPCG(1, 2), false),
	}
}

func testProfile() map[string]any {
	return map[string]any{
		"age":        34,
		"occupation": "Product Manager",
		"lifestyle":  "active, social",
	}
}

func testEvents() []string {
	return []string{"Planning a birthday dinner", "Quarterly review at work"}
}

func TestRegistryCoversAllApps(t *testing.T) {
	for _, app := range models.AllApps {
		if _, ok := Get(app); !ok {
			t.Errorf("no generator registered for %s", app)
		}
	}
	if got := len(Apps()); got != len(models.AllApps) {
		t.Errorf("expected %d registered apps, got %d", len(models.AllApps), got)
	}
}

func TestFactoryUnknownApp(t *testing.T) {
	f := NewFactory(testConfig(1), nil)
	if _, err := f.Generator(models.AppType("pager")); err == nil {
		t.Error("expected error for unregistered app")
	}
}

func TestFactoryMemoizesInstances(t *testing.T) {
	f := NewFactory(testConfig(1), nil)
	first, err := f.Generator(models.AppContacts)
	if err != nil {
		t.Fatalf("Generator failed: %v", err)
	}
	second, _ := f.Generator(models.AppContacts)
	if first != second {
		t.Error("expected the same generator instance on repeat lookups")
	}
}

func TestFallbackProducesExactCount(t *testing.T) {
	f := NewFactory(testConfig(7), nil)
	for _, app := range models.AllApps {
		gen, err := f.Generator(app)
		if err != nil {
			t.Fatalf("Generator(%s) failed: %v", app, err)
		}
		data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 5)
		if got := len(data.Entries(app)); got != 5 {
			t.Errorf("%s: expected 5 entries, got %d", app, got)
		}
	}
}

func TestFallbackIDsAreUnique(t *testing.T) {
	f := NewFactory(testConfig(7), nil)
	seen := map[string]bool{}
	for _, app := range models.AllApps {
		gen, _ := f.Generator(app)
		data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 8)
		for _, entry := range data.Entries(app) {
			id, _ := entry["id"].(string)
			if id == "" {
				if id, _ = entry["conversation_id"].(string); id == "" {
					t.Fatalf("%s: entry missing identifier: %v", app, entry)
				}
			}
			if seen[id] {
				t.Errorf("duplicate identifier %s", id)
			}
			seen[id] = true
		}
	}
}

func TestFallbackTimestampsInsideWindow(t *testing.T) {
	cfg := testConfig(3)
	f := NewFactory(cfg, nil)
	gen, _ := f.Generator(models.AppContacts)
	data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 10)

	for _, entry := range data.Entries(models.AppContacts) {
		raw, _ := entry["created_date"].(string)
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			t.Fatalf("unparseable created_date %q: %v", raw, err)
		}
		if ts.Before(cfg.StartDate) || ts.After(cfg.EndDate) {
			t.Errorf("created_date %s outside window %s..%s", ts, cfg.StartDate, cfg.EndDate)
		}
	}
}

func TestFallbackDeterministicWithSeed(t *testing.T) {
	for _, app := range models.AllApps {
		a, _ := NewFactory(testConfig(99), nil).Generator(app)
		b, _ := NewFactory(testConfig(99), nil).Generator(app)

		first := a.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 6)
		second := b.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 6)

		// IDs are uuid-backed, so compare everything except identifiers.
		if normalize(t, app, first) != normalize(t, app, second) {
			t.Errorf("%s: same seed produced different fallback data", app)
		}
	}
}

// normalize renders generated data as JSON with identifier fields blanked.
func normalize(t *testing.T, app models.AppType, data models.AppData) string {
	t.Helper()
	entries := data.Entries(app)
	for _, entry := range entries {
		stripIDs(entry)
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return string(raw)
}

func stripIDs(entry map[string]any) {
	delete(entry, "id")
	delete(entry, "conversation_id")
	if msgs, ok := entry["messages"].([]map[string]any); ok {
		for _, m := range msgs {
			delete(m, "id")
		}
	}
}

func TestContactsRelationshipValues(t *testing.T) {
	valid := map[string]bool{"family": true, "friend": true, "colleague": true, "acquaintance": true, "business": true}
	f := NewFactory(testConfig(5), nil)
	gen, _ := f.Generator(models.AppContacts)
	data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 20)
	for _, entry := range data.Entries(models.AppContacts) {
		rel, _ := entry["relationship"].(string)
		if !valid[rel] {
			t.Errorf("unexpected relationship %q", rel)
		}
	}
}

func TestNurseGetsEarlyShiftAlarm(t *testing.T) {
	f := NewFactory(testConfig(11), nil)
	gen, _ := f.Generator(models.AppAlarms)
	profile := map[string]any{"age": 35, "occupation": "Registered Nurse", "lifestyle": "busy"}
	data := gen.Generate(context.Background(), profile, testEvents(), models.FallbackAnalysis(), 10)

	found := false
	for _, entry := range data.Entries(models.AppAlarms) {
		category, _ := entry["category"].(string)
		if category != "work" {
			continue
		}
		clock, _ := entry["time"].(string)
		ts, err := time.Parse("15:04", clock)
		if err != nil {
			t.Fatalf("unparseable alarm time %q: %v", clock, err)
		}
		low, _ := time.Parse("15:04", "05:00")
		high, _ := time.Parse("15:04", "06:30")
		if !ts.Before(low) && !ts.After(high) {
			found = true
		}
	}
	if !found {
		t.Error("expected a work alarm between 05:00 and 06:30 for a nurse")
	}
}

func TestSMSGroupSizes(t *testing.T) {
	f := NewFactory(testConfig(21), nil)
	gen, _ := f.Generator(models.AppSMS)
	data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 40)

	for _, conv := range data.Entries(models.AppSMS) {
		participants, _ := conv["participants"].([]map[string]any)
		msgs, _ := conv["messages"].([]map[string]any)
		switch n := len(participants); {
		case n == 2:
			if len(msgs) < 3 || len(msgs) > 15 {
				t.Errorf("individual thread with %d messages, want 3..15", len(msgs))
			}
		case n >= 4 && n <= 7:
			if len(msgs) < 5 || len(msgs) > 20 {
				t.Errorf("group thread with %d messages, want 5..20", len(msgs))
			}
		default:
			t.Errorf("unexpected participant count %d", n)
		}
	}
}

func TestSMSIndividualThreadsAlternate(t *testing.T) {
	f := NewFactory(testConfig(13), nil)
	gen, _ := f.Generator(models.AppSMS)
	data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 40)

	for _, conv := range data.Entries(models.AppSMS) {
		participants, _ := conv["participants"].([]map[string]any)
		if len(participants) != 2 {
			continue
		}
		msgs, _ := conv["messages"].([]map[string]any)
		for i := 1; i < len(msgs); i++ {
			prev, _ := msgs[i-1]["is_from_user"].(bool)
			cur, _ := msgs[i]["is_from_user"].(bool)
			if prev == cur {
				t.Fatalf("individual thread has consecutive messages from the same side at %d", i)
			}
		}
	}
}

func TestAlarmsCarryUsageStatistics(t *testing.T) {
	f := NewFactory(testConfig(17), nil)
	gen, _ := f.Generator(models.AppAlarms)
	data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 20)

	for _, entry := range data.Entries(models.AppAlarms) {
		stats, ok := entry["statistics"].(map[string]any)
		if !ok {
			t.Fatalf("alarm missing statistics: %v", entry)
		}
		triggered, _ := stats["times_triggered"].(int)
		snoozed, _ := stats["times_snoozed"].(int)
		enabled, _ := entry["enabled"].(bool)
		if enabled {
			if triggered < 10 || triggered > 100 {
				t.Errorf("enabled alarm times_triggered %d, want 10..100", triggered)
			}
			if snoozed > triggered {
				t.Errorf("times_snoozed %d exceeds times_triggered %d", snoozed, triggered)
			}
		} else {
			if triggered > 5 {
				t.Errorf("disabled alarm times_triggered %d, want at most 5", triggered)
			}
			if snoozed > 2 {
				t.Errorf("disabled alarm times_snoozed %d, want at most 2", snoozed)
			}
		}
	}
}

func TestAlarmSnoozeAndScheduleShapes(t *testing.T) {
	validDuration := map[int]bool{5: true, 9: true, 10: true, 15: true}
	validMax := map[int]bool{1: true, 2: true, 3: true, 5: true}
	validDay := map[string]bool{}
	for _, d := range everyDay {
		validDay[d] = true
	}

	f := NewFactory(testConfig(19), nil)
	gen, _ := f.Generator(models.AppAlarms)
	data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 20)

	var sawOnce, sawCustom bool
	for _, entry := range data.Entries(models.AppAlarms) {
		snooze, _ := entry["snooze"].(map[string]any)
		if on, _ := snooze["enabled"].(bool); on {
			if d, _ := snooze["duration_minutes"].(int); !validDuration[d] {
				t.Errorf("unexpected snooze duration %d", d)
			}
			if m, _ := snooze["max_snoozes"].(int); !validMax[m] {
				t.Errorf("unexpected max_snoozes %d", m)
			}
		} else if _, present := snooze["duration_minutes"]; present {
			t.Error("disabled snooze should not carry a duration")
		}

		schedule, _ := entry["repeat_schedule"].(map[string]any)
		freq, _ := schedule["frequency"].(string)
		days, _ := schedule["days_of_week"].([]string)
		recurring, _ := schedule["is_recurring"].(bool)
		switch freq {
		case "once":
			sawOnce = true
			if recurring || len(days) != 0 {
				t.Errorf("one-off alarm must not recur: %v", schedule)
			}
		case "custom":
			sawCustom = true
			if len(days) < 2 || len(days) > 5 {
				t.Errorf("custom schedule with %d days, want 2..5", len(days))
			}
			for _, d := range days {
				if !validDay[d] {
					t.Errorf("unexpected day %q in custom schedule", d)
				}
			}
		case "daily", "weekdays", "weekends":
			if !recurring {
				t.Errorf("%s alarm should recur", freq)
			}
		default:
			t.Errorf("unexpected frequency %q", freq)
		}
	}
	if !sawOnce || !sawCustom {
		t.Errorf("expected both once and custom schedules, got once=%v custom=%v", sawOnce, sawCustom)
	}
}

func TestWalletFieldsMatchPassType(t *testing.T) {
	keys := map[string][2]string{
		"boarding_pass": {"flight", "gate"},
		"event_ticket":  {"event", "seat"},
		"store_card":    {"points", "since"},
		"membership":    {"level", "expires"},
		"coupon":        {"discount", "expires"},
	}

	f := NewFactory(testConfig(23), nil)
	gen, _ := f.Generator(models.AppWallet)
	data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 25)

	for _, entry := range data.Entries(models.AppWallet) {
		passType, _ := entry["type"].(string)
		want, ok := keys[passType]
		if !ok {
			t.Fatalf("unexpected pass type %q", passType)
		}
		primary, _ := entry["primary_fields"].([]map[string]any)
		secondary, _ := entry["secondary_fields"].([]map[string]any)
		if len(primary) != 1 || len(secondary) != 1 {
			t.Fatalf("%s: expected one primary and one secondary field, got %d/%d", passType, len(primary), len(secondary))
		}
		if key, _ := primary[0]["key"].(string); key != want[0] {
			t.Errorf("%s: primary key %q, want %q", passType, key, want[0])
		}
		if key, _ := secondary[0]["key"].(string); key != want[1] {
			t.Errorf("%s: secondary key %q, want %q", passType, key, want[1])
		}
		if passType == "boarding_pass" {
			if val, _ := primary[0]["value"].(string); !strings.HasPrefix(val, "AA") {
				t.Errorf("boarding pass flight value %q lacks airline prefix", val)
			}
		}
	}
}

func TestSocialAfternoonEventsFallOnWeekends(t *testing.T) {
	cfg := testConfig(29)
	f := NewFactory(cfg, nil)
	gen, _ := f.Generator(models.AppCalendar)
	data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 60)

	for _, entry := range data.Entries(models.AppCalendar) {
		start, err := time.Parse(time.RFC3339, entry["start_datetime"].(string))
		if err != nil {
			t.Fatalf("unparseable start_datetime: %v", err)
		}
		end, err := time.Parse(time.RFC3339, entry["end_datetime"].(string))
		if err != nil {
			t.Fatalf("unparseable end_datetime: %v", err)
		}
		if end.After(cfg.EndDate) {
			t.Errorf("event ends %s, after window end %s", end, cfg.EndDate)
		}
		if end.Before(start) {
			t.Errorf("event ends %s before it starts %s", end, start)
		}

		category, _ := entry["category"].(string)
		if category != "social" || start.Hour() >= 18 {
			continue
		}
		if wd := start.Weekday(); wd != time.Saturday && wd != time.Sunday {
			t.Errorf("afternoon social event on %s, want a weekend day", wd)
		}
	}
}

func TestRunUsesModelResponse(t *testing.T) {
	entries := make([]map[string]any, 4)
	for i := range entries {
		entries[i] = map[string]any{"id": fmt.Sprintf("contacts_%d", i), "first_name": "A", "last_name": "B"}
	}
	payload, _ := json.Marshal(map[string]any{"contacts": entries})
	client := &fakeModel{resp: "Here you go:\n" + string(payload) + "\nHope that helps!"}

	gen := NewContactsGenerator(testDeps(testConfig(1), client))
	data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 4)

	got := data.Entries(models.AppContacts)
	if len(got) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(got))
	}
	if got[0]["id"] != "contacts_0" {
		t.Errorf("expected model-provided entries, got %v", got[0])
	}
	if client.calls != 1 {
		t.Errorf("expected 1 model call, got %d", client.calls)
	}
}

func TestRunTopsUpShortModelResponse(t *testing.T) {
	payload, _ := json.Marshal(map[string]any{
		"contacts": []map[string]any{{"id": "contacts_only", "first_name": "A", "last_name": "B"}},
	})
	client := &fakeModel{resp: string(payload)}

	gen := NewContactsGenerator(testDeps(testConfig(1), client))
	data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 5)

	if got := len(data.Entries(models.AppContacts)); got != 5 {
		t.Errorf("expected shortfall topped up to 5, got %d", got)
	}
}

func TestRunFallsBackOnModelError(t *testing.T) {
	client := &fakeModel{err: errors.New("model unavailable")}
	gen := NewContactsGenerator(testDeps(testConfig(1), client))
	data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 3)

	if got := len(data.Entries(models.AppContacts)); got != 3 {
		t.Errorf("expected 3 fallback entries, got %d", got)
	}
}

func TestRunWithoutFallbackReturnsEmpty(t *testing.T) {
	cfg := testConfig(1)
	cfg.UseFallbackSynthesis = false
	client := &fakeModel{resp: "not json at all"}

	gen := NewContactsGenerator(testDeps(cfg, client))
	data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 3)

	if got := len(data.Entries(models.AppContacts)); got != 0 {
		t.Errorf("expected empty collection without fallback, got %d", got)
	}
}

func TestCleanEntriesBackfillsIDs(t *testing.T) {
	payload, _ := json.Marshal(map[string]any{
		"contacts": []map[string]any{
			{"first_name": "A", "last_name": "B"},
			{"id": "", "first_name": "C", "last_name": "D"},
		},
	})
	client := &fakeModel{resp: string(payload)}
	gen := NewContactsGenerator(testDeps(testConfig(1), client))
	data := gen.Generate(context.Background(), testProfile(), testEvents(), models.FallbackAnalysis(), 2)

	for _, entry := range data.Entries(models.AppContacts) {
		id, _ := entry["id"].(string)
		if !strings.HasPrefix(id, "contacts_") {
			t.Errorf("expected backfilled contacts_ id, got %q", id)
		}
	}
}

func TestAnalyzerParsesResponse(t *testing.T) {
	resp := `Some preamble {"user_identity": {"first_name": "Dana", "last_name": "Reyes", "gender": "female"},
		"user_characteristics": {"lifestyle": "busy professional"},
		"event_analysis": {"event_types": ["work"]},
		"data_relationships": {"cross_app_connections": "tight"}} trailing`
	analyzer := NewProfileAnalyzer(testConfig(1), &fakeModel{resp: resp})

	record := analyzer.Analyze(context.Background(), testProfile(), testEvents())
	if record.UserIdentity.FirstName != "Dana" || record.UserIdentity.LastName != "Reyes" {
		t.Errorf("unexpected identity: %+v", record.UserIdentity)
	}
}

func TestAnalyzerFallsBack(t *testing.T) {
	cases := map[string]*fakeModel{
		"model error":  {err: errors.New("down")},
		"no json":      {resp: "I cannot help with that."},
		"empty object": {resp: "{}"},
		"invalid json": {resp: "{broken"},
	}
	for name, client := range cases {
		analyzer := NewProfileAnalyzer(testConfig(1), client)
		record := analyzer.Analyze(context.Background(), testProfile(), testEvents())
		if record.UserIdentity.FirstName != "Alex" || record.UserIdentity.LastName != "Smith" {
			t.Errorf("%s: expected fallback identity, got %+v", name, record.UserIdentity)
		}
	}
}

func TestReflectorSkipsEmptyData(t *testing.T) {
	client := &fakeModel{resp: "{}"}
	reflector := NewQualityReflector(testConfig(1), client)

	result := reflector.Reflect(context.Background(), models.GeneratedData{}, models.FallbackAnalysis())
	if result.OverallQuality != models.QualitySkipped {
		t.Errorf("expected skipped quality, got %s", result.OverallQuality)
	}
	if client.calls != 0 {
		t.Errorf("expected no model call for empty data, got %d", client.calls)
	}
}

func TestReflectorUnknownOnBadResponse(t *testing.T) {
	client := &fakeModel{resp: "not json"}
	reflector := NewQualityReflector(testConfig(1), client)
	data := models.GeneratedData{
		models.AppContacts: models.AppData{"contacts": []map[string]any{{"id": "c1"}}},
	}

	result := reflector.Reflect(context.Background(), data, models.FallbackAnalysis())
	if result.OverallQuality != models.QualityUnknown {
		t.Errorf("expected unknown quality, got %s", result.OverallQuality)
	}
	if result.RealismScore != 5 {
		t.Errorf("expected neutral realism score 5, got %d", result.RealismScore)
	}
}

func TestReflectorParsesResponse(t *testing.T) {
	resp := `{"overall_quality": "good", "realism_score": 8, "diversity_score": 7,
		"coherence_score": 9, "strengths": ["varied"], "weaknesses": [],
		"recommendations": [], "critical_issues": []}`
	reflector := NewQualityReflector(testConfig(1), &fakeModel{resp: resp})
	data := models.GeneratedData{
		models.AppContacts: models.AppData{"contacts": []map[string]any{{"id": "c1"}}},
	}

	result := reflector.Reflect(context.Background(), data, models.FallbackAnalysis())
	if result.OverallQuality != models.QualityGood || result.RealismScore != 8 {
		t.Errorf("unexpected reflection result: %+v", result)
	}
}
