package flow

import (
	"context"
	"fmt"

	"github.com/BTreeMap/PersonaPipe/internal/models"
)

// relationshipWeights drives the fallback mix of contact relationships.
var relationshipWeights = []weightedOption{
	{"friend", 0.40},
	{"colleague", 0.30},
	{"family", 0.15},
	{"acquaintance", 0.10},
	{"business", 0.05},
}

// ContactsGenerator produces address book entries.
type ContactsGenerator struct {
	base
}

// NewContactsGenerator constructs the contacts generator.
func NewContactsGenerator(deps Dependencies) Generator {
	return &ContactsGenerator{base: newBase(models.AppContacts, deps)}
}

// Generate produces count contact records.
func (g *ContactsGenerator) Generate(ctx context.Context, profile map[string]any, events []string, analysis models.AnalysisRecord, count int) models.AppData {
	return g.run(ctx, profile, events, analysis, count, contactsInstructions, g.synthesize)
}

const contactsInstructions = `Please generate contacts data in the following JSON format:
{
    "contacts": [
        {
            "id": "unique_identifier",
            "first_name": "string",
            "last_name": "string",
            "display_name": "string",
            "phone_numbers": [{"label": "mobile|home|work|main|other", "number": "+1234567890"}],
            "email_addresses": [{"label": "home|work|other", "email": "email@example.com"}],
            "addresses": [{"label": "home|work|other", "street": "123 Main St", "city": "City", "state": "State", "postal_code": "12345", "country": "Country"}],
            "organization": "Company Name",
            "job_title": "Job Title",
            "birthday": "YYYY-MM-DD",
            "notes": "Additional notes",
            "relationship": "family|friend|colleague|acquaintance|business|other",
            "created_date": "ISO timestamp"
        }
    ]
}

Include diverse relationship types and ensure contacts relate to the events and user profile.
Mix of complete and partial contact information to be realistic.
Include family, friends, colleagues, and professional contacts as appropriate.
`

// synthesize builds count template contacts with the weighted relationship
// mix. Family and friends get a home address 30% of the time; colleagues get
// a secondary work phone 50% of the time.
func (g *ContactsGenerator) synthesize(count int) []map[string]any {
	contacts := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		relationship := pickWeighted(g.rng, relationshipWeights)
		first, last := g.faker.FirstName(), g.faker.LastName()

		emailLabel := "work"
		if relationship == "friend" || relationship == "family" {
			emailLabel = "home"
		}

		contact := map[string]any{
			"id":           g.newID(),
			"first_name":   first,
			"last_name":    last,
			"display_name": first + " " + last,
			"phone_numbers": []map[string]any{
				{"label": "mobile", "number": g.faker.Phone()},
			},
			"email_addresses": []map[string]any{
				{"label": emailLabel, "email": g.faker.Email()},
			},
			"addresses":    []map[string]any{},
			"organization": "",
			"job_title":    "",
			"birthday":     g.randomBirthday(),
			"notes":        "",
			"relationship": relationship,
			"created_date": g.randomTimestamp(),
		}

		if relationship == "colleague" || relationship == "business" {
			contact["organization"] = g.faker.Company()
			contact["job_title"] = g.faker.JobTitle()
		}

		if (relationship == "family" || relationship == "friend") && chance(g.rng, 0.3) {
			contact["addresses"] = []map[string]any{{
				"label":       "home",
				"street":      g.faker.Street(),
				"city":        g.faker.City(),
				"state":       g.faker.StateAbr(),
				"postal_code": g.faker.Zip(),
				"country":     "United States",
			}}
		}

		if relationship == "colleague" && chance(g.rng, 0.5) {
			contact["phone_numbers"] = append(contact["phone_numbers"].([]map[string]any),
				map[string]any{"label": "work", "number": g.faker.Phone()})
		}

		contacts = append(contacts, contact)
	}
	return contacts
}

// randomBirthday yields a date of birth for an adult between 18 and 80.
func (g *ContactsGenerator) randomBirthday() string {
	age := 18 + g.rng.IntN(63)
	birthYear := g.cfg.StartDate.Year() - age
	month := 1 + g.rng.IntN(12)
	day := 1 + g.rng.IntN(28)
	return fmt.Sprintf("%04d-%02d-%02d", birthYear, month, day)
}

func init() {
	Register(models.AppContacts, NewContactsGenerator)
}
