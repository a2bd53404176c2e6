package flow

import (
	"context"
	"time"

	"github.com/BTreeMap/PersonaPipe/internal/models"
)

var reminderCategories = []string{"personal", "shopping", "health", "work"}

var reminderTitles = map[string][]string{
	"personal": {
		"Pay rent", "Call plumber", "Renew car registration",
		"Water the plants", "Take out recycling", "Schedule dentist appointment",
	},
	"shopping": {
		"Buy groceries", "Pick up prescription", "Order birthday gift",
		"Get printer paper", "Buy new running shoes",
	},
	"health": {
		"Take vitamins", "Morning run", "Drink more water",
		"Annual physical checkup", "Refill medication",
	},
	"work": {
		"Submit expense report", "Prepare slides for Monday",
		"Review pull requests", "Send weekly status update", "Book conference room",
	},
}

// RemindersGenerator produces reminder entries.
type RemindersGenerator struct {
	base
}

// NewRemindersGenerator constructs the reminders generator.
func NewRemindersGenerator(deps Dependencies) Generator {
	return &RemindersGenerator{base: newBase(models.AppReminders, deps)}
}

// Generate produces count reminder records.
func (g *RemindersGenerator) Generate(ctx context.Context, profile map[string]any, events []string, analysis models.AnalysisRecord, count int) models.AppData {
	return g.run(ctx, profile, events, analysis, count, remindersInstructions, g.synthesize)
}

const remindersInstructions = `Please generate reminders data in the following JSON format:
{
    "reminders": [
        {
            "id": "unique_identifier",
            "title": "Reminder title",
            "notes": "Additional details",
            "due_date": "ISO timestamp",
            "completed": false,
            "completion_date": "ISO timestamp (only for completed items)",
            "priority": "low|medium|high",
            "list_name": "List Name",
            "category": "personal|shopping|health|work",
            "flagged": false,
            "created_date": "ISO timestamp"
        }
    ]
}

Create realistic reminders that:
- Relate to the provided events and user profile
- Mix completed and pending items
- Cover everyday tasks, shopping, health, and work
- Use appropriate priorities and due dates
- Include completion_date only for completed items
`

// synthesize builds count template reminders. Completed items get a
// completion_date, pending ones omit the field.
func (g *RemindersGenerator) synthesize(count int) []map[string]any {
	entries := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		category := pick(g.rng, reminderCategories)
		completed := chance(g.rng, 0.4)
		due := g.randomTime()

		reminder := map[string]any{
			"id":           g.newID(),
			"title":        pick(g.rng, reminderTitles[category]),
			"notes":        "",
			"due_date":     due.Format(time.RFC3339),
			"completed":    completed,
			"priority":     pick(g.rng, []string{"low", "medium", "high"}),
			"list_name":    listNameFor(category),
			"category":     category,
			"flagged":      chance(g.rng, 0.15),
			"created_date": g.randomTimestamp(),
		}
		if completed {
			reminder["completion_date"] = due.Add(-time.Duration(1+g.rng.IntN(48)) * time.Hour).Format(time.RFC3339)
		}
		entries = append(entries, reminder)
	}
	return entries
}

func listNameFor(category string) string {
	switch category {
	case "shopping":
		return "Shopping"
	case "health":
		return "Health"
	case "work":
		return "Work"
	default:
		return "Reminders"
	}
}

func init() {
	Register(models.AppReminders, NewRemindersGenerator)
}
