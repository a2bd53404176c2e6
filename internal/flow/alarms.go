package flow

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/BTreeMap/PersonaPipe/internal/models"
)

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
var everyDay = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// alarmTemplate describes one candidate alarm before randomization. The
// priority tag drives snooze behavior and usage statistics.
type alarmTemplate struct {
	label     string
	hours     []int
	minutes   []int
	days      []string
	frequency string
	category  string
	sound     string
	priority  string
}

var songAlarmNames = []string{
	"Here Comes the Sun", "Lovely Day", "Three Little Birds", "Walking on Sunshine",
}

var soundTypeWeights = []weightedOption{
	{"built_in", 0.7},
	{"song", 0.2},
	{"custom", 0.1},
}

// AlarmsGenerator produces alarm entries.
type AlarmsGenerator struct {
	base
}

// NewAlarmsGenerator constructs the alarms generator.
func NewAlarmsGenerator(deps Dependencies) Generator {
	return &AlarmsGenerator{base: newBase(models.AppAlarms, deps)}
}

// Generate produces count alarm records.
func (g *AlarmsGenerator) Generate(ctx context.Context, profile map[string]any, events []string, analysis models.AnalysisRecord, count int) models.AppData {
	return g.run(ctx, profile, events, analysis, count, alarmsInstructions, func(n int) []map[string]any {
		return g.synthesize(profile, n)
	})
}

const alarmsInstructions = `Please generate alarm data in the following JSON format:
{
    "alarms": [
        {
            "id": "unique_identifier",
            "label": "Alarm label",
            "time": "HH:MM",
            "enabled": true,
            "repeat_schedule": {
                "is_recurring": true,
                "frequency": "daily|weekdays|weekends|custom|once",
                "days_of_week": ["monday", "tuesday"]
            },
            "category": "work|personal|medication|exercise|sleep|other",
            "sound": {"sound_name": "Radar", "sound_type": "built_in", "volume": 0.7, "vibration": true},
            "snooze": {"enabled": true, "duration_minutes": 9, "max_snoozes": 3},
            "next_trigger": "ISO timestamp",
            "created_date": "ISO timestamp"
        }
    ]
}

Create realistic alarms that:
- Relate to the user's occupation, age, and lifestyle
- Use 24-hour HH:MM time format
- Include work alarms matched to the user's schedule
- Mix enabled and disabled alarms
- Include weekend and weekday patterns
`

// synthesize builds count alarms from profile-driven templates. Occupation
// controls the work alarm window, age and lifestyle add medication and
// exercise alarms, and about 75% of alarms are left enabled.
func (g *AlarmsGenerator) synthesize(profile map[string]any, count int) []map[string]any {
	templates := g.templates(profile)

	entries := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		tpl := templates[i%len(templates)]
		hour := pick(g.rng, tpl.hours)
		minute := pick(g.rng, tpl.minutes)
		enabled := chance(g.rng, 0.75)

		days := tpl.days
		switch tpl.frequency {
		case "custom":
			days = g.customDays()
		case "once":
			days = []string{}
		}

		alarm := map[string]any{
			"id":      g.newID(),
			"label":   tpl.label,
			"time":    fmt.Sprintf("%02d:%02d", hour, minute),
			"enabled": enabled,
			"repeat_schedule": map[string]any{
				"is_recurring": tpl.frequency != "once",
				"frequency":    tpl.frequency,
				"days_of_week": days,
			},
			"category":     tpl.category,
			"sound":        g.alarmSound(tpl.sound),
			"snooze":       g.snoozeSettings(tpl.priority),
			"statistics":   g.alarmStatistics(enabled, tpl.priority),
			"created_date": g.randomTimestamp(),
		}
		if enabled && tpl.frequency != "once" {
			alarm["next_trigger"] = g.nextTrigger(hour, minute, days)
		}
		entries = append(entries, alarm)
	}
	return entries
}

// snoozeSettings enables snoozing with probability inverse to priority:
// high-priority alarms are snoozed least. Duration and limit only appear on
// alarms that snooze at all.
func (g *AlarmsGenerator) snoozeSettings(priority string) map[string]any {
	var p float64
	switch priority {
	case "high":
		p = 0.50
	case "medium":
		p = 0.67
	default:
		p = 0.75
	}
	if !chance(g.rng, p) {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled":          true,
		"duration_minutes": pick(g.rng, []int{5, 9, 10, 15}),
		"max_snoozes":      pick(g.rng, []int{1, 2, 3, 5}),
	}
}

// alarmStatistics fabricates usage counters scaled to how often the alarm
// fires: disabled alarms barely register, enabled ones accumulate snoozes at
// a priority-dependent rate.
func (g *AlarmsGenerator) alarmStatistics(enabled bool, priority string) map[string]any {
	if !enabled {
		return map[string]any{
			"times_triggered":      g.rng.IntN(6),
			"times_snoozed":        g.rng.IntN(3),
			"average_snooze_count": 0.0,
			"turned_off_quickly":   g.rng.IntN(4),
		}
	}

	var rate float64
	switch priority {
	case "high":
		rate = 0.1
	case "medium":
		rate = 0.3
	default:
		rate = 0.5
	}
	triggered := 10 + g.rng.IntN(91)
	snoozed := int(float64(triggered) * rate * (0.5 + g.rng.Float64()))
	return map[string]any{
		"times_triggered":      triggered,
		"times_snoozed":        snoozed,
		"average_snooze_count": math.Round(float64(snoozed)/float64(triggered)*10) / 10,
		"turned_off_quickly":   int(float64(triggered) * (0.1 + 0.3*g.rng.Float64())),
	}
}

// alarmSound picks the sound block: mostly the template's built-in tone,
// sometimes a song or a custom recording.
func (g *AlarmsGenerator) alarmSound(builtin string) map[string]any {
	soundType := pickWeighted(g.rng, soundTypeWeights)
	name := builtin
	switch soundType {
	case "song":
		name = pick(g.rng, songAlarmNames)
	case "custom":
		name = "Custom Recording"
	}
	return map[string]any{
		"sound_name": name,
		"sound_type": soundType,
		"volume":     math.Round((0.4+0.6*g.rng.Float64())*100) / 100,
		"vibration":  chance(g.rng, 0.8),
	}
}

// customDays draws a 2-5 day subset of the week, kept in week order.
func (g *AlarmsGenerator) customDays() []string {
	k := 2 + g.rng.IntN(4)
	idx := g.rng.Perm(len(everyDay))[:k]
	sort.Ints(idx)
	days := make([]string, 0, k)
	for _, i := range idx {
		days = append(days, everyDay[i])
	}
	return days
}

// templates assembles the candidate alarms for this profile. The work
// alarm window shifts with occupation, age and lifestyle add medication
// and exercise alarms.
func (g *AlarmsGenerator) templates(profile map[string]any) []alarmTemplate {
	occupation := profileString(profile, "occupation")
	lifestyle := profileString(profile, "lifestyle")
	age := profileInt(profile, "age", 30)

	templates := []alarmTemplate{
		{
			label:     "Wake Up",
			hours:     []int{6, 7},
			minutes:   []int{0, 15, 30, 45},
			days:      weekdays,
			frequency: "weekdays",
			category:  "personal",
			sound:     "Radar",
			priority:  "medium",
		},
		{
			label:     "Weekend Morning",
			hours:     []int{8, 9},
			minutes:   []int{0, 30},
			days:      []string{"saturday", "sunday"},
			frequency: "weekends",
			category:  "personal",
			sound:     "Chimes",
			priority:  "low",
		},
		{
			label:     "Appointment",
			hours:     []int{7, 8, 9},
			minutes:   []int{0, 15, 30, 45},
			frequency: "once",
			category:  "other",
			sound:     "Chimes",
			priority:  "low",
		},
	}

	templates = append(templates, g.workTemplate(occupation))

	if age > 40 || strings.Contains(lifestyle, "health") || strings.Contains(occupation, "health") {
		templates = append(templates, alarmTemplate{
			label:     "Take Medication",
			hours:     []int{8, 20},
			minutes:   []int{0},
			days:      everyDay,
			frequency: "daily",
			category:  "medication",
			sound:     "Bells",
			priority:  "high",
		})
	}

	if strings.Contains(lifestyle, "active") || strings.Contains(lifestyle, "fit") || strings.Contains(lifestyle, "gym") {
		templates = append(templates, alarmTemplate{
			label:     "Morning Workout",
			hours:     []int{6},
			minutes:   []int{0, 30},
			frequency: "custom",
			category:  "exercise",
			sound:     "Energy",
			priority:  "medium",
		})
	}

	return templates
}

// workTemplate maps occupation to a work alarm window. Shift work starts
// before dawn, teaching starts early, everything else gets a standard
// office window.
func (g *AlarmsGenerator) workTemplate(occupation string) alarmTemplate {
	switch {
	case strings.Contains(occupation, "nurse") || strings.Contains(occupation, "doctor") || strings.Contains(occupation, "medical"):
		return alarmTemplate{
			label:     "Early Shift",
			hours:     []int{5, 6},
			minutes:   []int{30},
			days:      weekdays,
			frequency: "weekdays",
			category:  "work",
			sound:     "Alarm",
			priority:  "high",
		}
	case strings.Contains(occupation, "teacher") || strings.Contains(occupation, "professor"):
		return alarmTemplate{
			label:     "School Day",
			hours:     []int{6},
			minutes:   []int{0, 15, 30, 45},
			days:      weekdays,
			frequency: "weekdays",
			category:  "work",
			sound:     "Alarm",
			priority:  "high",
		}
	default:
		return alarmTemplate{
			label:     "Work Alarm",
			hours:     []int{7, 8},
			minutes:   []int{0, 15, 30},
			days:      weekdays,
			frequency: "weekdays",
			category:  "work",
			sound:     "Alarm",
			priority:  "high",
		}
	}
}

// nextTrigger scans the 7 days after the generation window for the first
// day matching the repeat schedule at the alarm time.
func (g *AlarmsGenerator) nextTrigger(hour, minute int, days []string) string {
	scheduled := make(map[string]bool, len(days))
	for _, d := range days {
		scheduled[d] = true
	}
	start := g.cfg.EndDate.AddDate(0, 0, 1)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		if scheduled[strings.ToLower(day.Weekday().String())] {
			t := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
			return t.Format(time.RFC3339)
		}
	}
	return ""
}

func init() {
	Register(models.AppAlarms, NewAlarmsGenerator)
}
