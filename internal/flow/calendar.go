package flow

import (
	"context"
	"strings"
	"time"

	"github.com/BTreeMap/PersonaPipe/internal/models"
)

var eventCategoryWeights = []weightedOption{
	{"work", 0.40},
	{"personal", 0.25},
	{"social", 0.15},
	{"health", 0.10},
	{"family", 0.10},
}

var workEventTitles = []string{
	"Team Meeting", "Project Review", "Client Call", "Stand-up",
	"Training Session", "Conference Call", "Performance Review",
	"All Hands Meeting", "Planning Session", "Code Review",
}

var personalEventTitles = []string{
	"Dentist Appointment", "Grocery Shopping", "Gym Session",
	"Hair Appointment", "Car Service", "Home Repair",
	"Personal Time", "Reading", "Meditation", "Workout",
}

var socialEventTitles = []string{
	"Coffee with Friend", "Dinner Party", "Movie Night",
	"Birthday Party", "Happy Hour", "Game Night",
	"Concert", "Art Gallery", "Festival", "Networking Event",
}

// CalendarGenerator produces calendar events.
type CalendarGenerator struct {
	base
}

// NewCalendarGenerator constructs the calendar generator.
func NewCalendarGenerator(deps Dependencies) Generator {
	return &CalendarGenerator{base: newBase(models.AppCalendar, deps)}
}

// Generate produces count calendar event records.
func (g *CalendarGenerator) Generate(ctx context.Context, profile map[string]any, events []string, analysis models.AnalysisRecord, count int) models.AppData {
	return g.run(ctx, profile, events, analysis, count, calendarInstructions, g.synthesize)
}

const calendarInstructions = `Please generate calendar events data in the following JSON format:
{
    "events": [
        {
            "id": "unique_identifier",
            "title": "Event Title",
            "description": "Event description",
            "start_datetime": "ISO timestamp",
            "end_datetime": "ISO timestamp",
            "all_day": false,
            "location": {"name": "Location Name", "latitude": 37.7749, "longitude": -122.4194},
            "attendees": [{"name": "Attendee Name", "email": "attendee@example.com", "status": "accepted|declined|tentative|pending"}],
            "calendar_name": "Calendar Name",
            "category": "work|personal|health|travel|social|family|education|other",
            "priority": "low|normal|high",
            "reminder": {"enabled": true, "minutes_before": 15},
            "recurrence": {"frequency": "daily|weekly|monthly|yearly", "interval": 1, "end_date": "YYYY-MM-DD", "days_of_week": ["monday"]},
            "created_date": "ISO timestamp",
            "modified_date": "ISO timestamp"
        }
    ]
}

Create realistic events that:
- Relate to the provided events and user profile
- Include both one-time and recurring events
- Have appropriate durations and timing
- Include relevant attendees and locations
- Mix different categories and priorities
- Show realistic calendar usage patterns
`

// synthesize builds count template events. Start times and durations follow
// category-specific windows; attendees only appear on work and social
// events; 20% of events carry a recurrence block.
func (g *CalendarGenerator) synthesize(count int) []map[string]any {
	entries := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		category := pickWeighted(g.rng, eventCategoryWeights)
		title := g.eventTitle(category)

		start := g.eventStart(category)
		end := start.Add(g.eventDuration(category))
		if end.After(g.cfg.EndDate) {
			end = g.cfg.EndDate
		}

		event := map[string]any{
			"id":             g.newID(),
			"title":          title,
			"description":    g.eventDescription(title, category),
			"start_datetime": start.Format(time.RFC3339),
			"end_datetime":   end.Format(time.RFC3339),
			"all_day":        false,
			"location":       g.eventLocation(category),
			"attendees":      g.eventAttendees(category),
			"calendar_name":  calendarNameFor(category),
			"category":       category,
			"priority":       g.eventPriority(category),
			"reminder": map[string]any{
				"enabled":        true,
				"minutes_before": g.reminderMinutes(category),
			},
			"created_date":  g.randomTimestamp(),
			"modified_date": g.randomTimestamp(),
		}

		if chance(g.rng, 0.2) {
			event["recurrence"] = g.eventRecurrence(category)
		}

		entries = append(entries, event)
	}
	return entries
}

func (g *CalendarGenerator) eventTitle(category string) string {
	switch category {
	case "work":
		return pick(g.rng, workEventTitles)
	case "personal":
		return pick(g.rng, personalEventTitles)
	case "social":
		return pick(g.rng, socialEventTitles)
	case "health":
		return "Health Event"
	default:
		return "Family Event"
	}
}

// eventStart draws a start time whose hour window depends on the category:
// work stays inside 9-17, social is evening-biased with a weekend-afternoon
// alternative.
func (g *CalendarGenerator) eventStart(category string) time.Time {
	day := g.randomDay()
	var hour, minute int
	switch category {
	case "work":
		hour = 9 + g.rng.IntN(9)
		minute = pick(g.rng, []int{0, 15, 30, 45})
	case "social":
		if chance(g.rng, 0.7) {
			hour = 18 + g.rng.IntN(5)
		} else {
			day = g.weekendDay()
			hour = 12 + g.rng.IntN(6)
		}
		minute = pick(g.rng, []int{0, 30})
	default:
		hour = 8 + g.rng.IntN(13)
		minute = pick(g.rng, []int{0, 15, 30, 45})
	}
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// weekendDay draws a day inside the window and advances it to the next
// Saturday or Sunday, stepping back a week if that overshoots the window.
func (g *CalendarGenerator) weekendDay() time.Time {
	day := g.randomDay()
	for day.Weekday() != time.Saturday && day.Weekday() != time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	if !day.Before(g.cfg.EndDate) {
		day = day.AddDate(0, 0, -7)
	}
	return day
}

func (g *CalendarGenerator) eventDuration(category string) time.Duration {
	var hours float64
	switch category {
	case "work":
		hours = pick(g.rng, []float64{0.5, 1.0, 1.5, 2.0})
	case "social":
		hours = pick(g.rng, []float64{2.0, 3.0, 4.0})
	default:
		hours = pick(g.rng, []float64{0.5, 1.0, 1.5})
	}
	return time.Duration(hours * float64(time.Hour))
}

func (g *CalendarGenerator) eventDescription(title, category string) string {
	switch category {
	case "work":
		return "Work-related " + strings.ToLower(title)
	case "personal":
		return "Personal appointment: " + title
	case "social":
		return "Social gathering: " + title
	case "health":
		return "Health and wellness: " + title
	default:
		return "Family event: " + title
	}
}

func (g *CalendarGenerator) eventLocation(category string) map[string]any {
	switch category {
	case "work":
		return map[string]any{"name": "Office - " + g.faker.Company(), "latitude": 37.7749, "longitude": -122.4194}
	case "social":
		return map[string]any{"name": g.faker.Company() + " Restaurant", "latitude": 37.7849, "longitude": -122.4094}
	default:
		return map[string]any{"name": g.faker.Street() + ", " + g.faker.City()}
	}
}

// eventAttendees yields 2-6 attendees for work, 1-4 for social, none
// otherwise.
func (g *CalendarGenerator) eventAttendees(category string) []map[string]any {
	var n int
	switch category {
	case "work":
		n = 2 + g.rng.IntN(5)
	case "social":
		n = 1 + g.rng.IntN(4)
	default:
		return []map[string]any{}
	}

	attendees := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		attendees = append(attendees, map[string]any{
			"name":   g.faker.Name(),
			"email":  g.faker.Email(),
			"status": pick(g.rng, []string{"accepted", "pending", "tentative"}),
		})
	}
	return attendees
}

func calendarNameFor(category string) string {
	switch category {
	case "work":
		return "Work"
	case "health":
		return "Health"
	case "family":
		return "Family"
	default:
		return "Personal"
	}
}

func (g *CalendarGenerator) eventPriority(category string) string {
	if category == "work" {
		return pick(g.rng, []string{"normal", "high"})
	}
	return pick(g.rng, []string{"low", "normal"})
}

func (g *CalendarGenerator) reminderMinutes(category string) int {
	if category == "work" {
		return pick(g.rng, []int{15, 30})
	}
	return pick(g.rng, []int{15, 60, 1440})
}

func (g *CalendarGenerator) eventRecurrence(category string) map[string]any {
	if category == "work" {
		return map[string]any{
			"frequency":    "weekly",
			"interval":     1,
			"days_of_week": []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
			"end_date":     g.cfg.EndDate.AddDate(0, 0, 30).Format("2006-01-02"),
		}
	}
	return map[string]any{
		"frequency": pick(g.rng, []string{"weekly", "monthly"}),
		"interval":  1,
		"end_date":  g.cfg.EndDate.AddDate(0, 0, 60).Format("2006-01-02"),
	}
}

func init() {
	Register(models.AppCalendar, NewCalendarGenerator)
}
