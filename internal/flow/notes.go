package flow

import (
	"context"
	"fmt"

	"github.com/BTreeMap/PersonaPipe/internal/models"
)

var noteCategories = []string{"ideas", "personal", "shopping", "work"}

var noteTitles = map[string][]string{
	"ideas": {
		"App idea: meal planner", "Gift ideas", "Weekend project ideas",
		"Books to read", "Places to visit",
	},
	"personal": {
		"Thoughts on today", "Reflections", "Morning pages",
		"Things I'm grateful for",
	},
	"shopping": {
		"Grocery list", "Hardware store run", "Party supplies",
		"Camping trip packing list",
	},
	"work": {
		"Team sync notes", "1:1 with manager", "Planning meeting notes",
		"Client call summary",
	},
}

var noteBodies = map[string][]string{
	"ideas": {
		"- Could sync with calendar\n- Needs offline mode\n- Check what competitors do",
		"1. Something handmade\n2. Concert tickets\n3. A weekend trip",
	},
	"personal": {
		"Busy day but productive. The morning walk helped clear my head before the big meeting.",
		"Feeling good about the progress this week. Need to remember to slow down on weekends.",
	},
	"work": {
		"Action items:\n- Follow up with design by Friday\n- Draft the proposal\n- Schedule next review",
		"Key decisions: moving the launch to next month, adding one more round of testing.",
	},
}

var shoppingChecklistItems = []string{
	"Milk", "Eggs", "Bread", "Coffee", "Apples", "Chicken",
	"Pasta", "Tomatoes", "Cheese", "Yogurt", "Spinach", "Rice",
}

// NotesGenerator produces note entries.
type NotesGenerator struct {
	base
}

// NewNotesGenerator constructs the notes generator.
func NewNotesGenerator(deps Dependencies) Generator {
	return &NotesGenerator{base: newBase(models.AppNotes, deps)}
}

// Generate produces count note records.
func (g *NotesGenerator) Generate(ctx context.Context, profile map[string]any, events []string, analysis models.AnalysisRecord, count int) models.AppData {
	return g.run(ctx, profile, events, analysis, count, notesInstructions, g.synthesize)
}

const notesInstructions = `Please generate notes data in the following JSON format:
{
    "notes": [
        {
            "id": "unique_identifier",
            "title": "Note title",
            "content": "Note body text",
            "category": "personal|work|ideas|shopping",
            "folder": "Folder Name",
            "pinned": false,
            "tags": ["tag"],
            "checklist": {"is_checklist": true, "items": [{"id": "item_1", "text": "Item", "completed": false}]},
            "created_date": "ISO timestamp",
            "modified_date": "ISO timestamp"
        }
    ]
}

Create realistic notes that:
- Relate to the provided events and user profile
- Mix quick lists, journal entries, and meeting notes
- Use checklists for shopping notes
- Vary length and formatting naturally
`

// synthesize builds count template notes. Shopping notes carry a checklist
// instead of body text.
func (g *NotesGenerator) synthesize(count int) []map[string]any {
	entries := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		category := pick(g.rng, noteCategories)

		note := map[string]any{
			"id":            g.newID(),
			"title":         pick(g.rng, noteTitles[category]),
			"category":      category,
			"folder":        folderFor(category),
			"pinned":        chance(g.rng, 0.15),
			"created_date":  g.randomTimestamp(),
			"modified_date": g.randomTimestamp(),
		}

		if category == "shopping" {
			n := 4 + g.rng.IntN(6)
			items := make([]map[string]any, 0, n)
			for j := 0; j < n; j++ {
				items = append(items, map[string]any{
					"id":        fmt.Sprintf("item_%d", j+1),
					"text":      pick(g.rng, shoppingChecklistItems),
					"completed": chance(g.rng, 0.3),
				})
			}
			note["checklist"] = map[string]any{"is_checklist": true, "items": items}
			note["content"] = "Shopping list"
		} else {
			note["content"] = pick(g.rng, noteBodies[category])
		}

		entries = append(entries, note)
	}
	return entries
}

func folderFor(category string) string {
	switch category {
	case "personal":
		return "Journal"
	case "work":
		return "Work"
	case "shopping":
		return "Lists"
	default:
		return "Notes"
	}
}

func init() {
	Register(models.AppNotes, NewNotesGenerator)
}
