package flow

import (
	"context"

	"github.com/BTreeMap/PersonaPipe/internal/models"
)

var emailCategories = []string{"work", "personal", "promotional", "social"}

var emailSubjects = map[string][]string{
	"work": {
		"Meeting follow-up", "Q2 project timeline", "Budget review notes",
		"Re: Client proposal", "Team offsite planning", "Status update",
	},
	"personal": {
		"Weekend plans?", "Photos from the trip", "Happy birthday!",
		"Catching up", "Dinner next week", "Recipe you asked about",
	},
	"promotional": {
		"Your order has shipped", "15% off this weekend only", "Your receipt",
		"New arrivals you might like", "Your statement is ready",
	},
	"social": {
		"You have a new connection request", "Someone commented on your photo",
		"Your friend shared an album", "Event invitation: Saturday BBQ",
	},
}

var emailBodies = map[string][]string{
	"work": {
		"Hi,\n\nFollowing up on our conversation earlier. I've attached the notes from the meeting. Let me know if I missed anything.\n\nBest regards",
		"Hello,\n\nThe updated timeline is ready for review. Please take a look before Thursday's sync.\n\nThanks",
	},
	"personal": {
		"Hey!\n\nIt's been too long. Are you free this weekend? Would love to catch up over coffee.\n\nTalk soon",
		"Hi,\n\nHere are the photos I promised. The trip was amazing, we should plan one together sometime.\n\nCheers",
	},
	"promotional": {
		"Your order is on its way and should arrive within 3-5 business days. Track your package using the link below.",
		"This weekend only: 15% off everything in store and online. Use the code at checkout.",
	},
	"social": {
		"You have a new connection request waiting. Visit your profile to respond.",
		"Your friend invited you to an event this Saturday. RSVP to let them know you're coming.",
	},
}

// EmailsGenerator produces email messages.
type EmailsGenerator struct {
	base
}

// NewEmailsGenerator constructs the emails generator.
func NewEmailsGenerator(deps Dependencies) Generator {
	return &EmailsGenerator{base: newBase(models.AppEmails, deps)}
}

// Generate produces count email records.
func (g *EmailsGenerator) Generate(ctx context.Context, profile map[string]any, events []string, analysis models.AnalysisRecord, count int) models.AppData {
	return g.run(ctx, profile, events, analysis, count, emailsInstructions, g.synthesize)
}

const emailsInstructions = `Please generate email data in the following JSON format:
{
    "emails": [
        {
            "id": "unique_identifier",
            "subject": "Email subject line",
            "from": {"name": "Sender Name", "email": "sender@example.com"},
            "to": [{"name": "Recipient Name", "email": "recipient@example.com"}],
            "cc": [],
            "body": {"text": "Email body text", "html": ""},
            "timestamp": "ISO timestamp",
            "is_sent": false,
            "is_read": true,
            "is_starred": false,
            "folder": "inbox|sent|archive",
            "category": "work|personal|promotional|social",
            "attachments": []
        }
    ]
}

Create realistic emails that:
- Relate to the provided events and user profile
- Mix sent and received messages
- Cover multiple categories (work, personal, promotional, social)
- Use appropriate tone and formatting per category
- Include realistic sender and recipient addresses
`

// synthesize builds count template emails, split evenly between sent and
// received across the category set.
func (g *EmailsGenerator) synthesize(count int) []map[string]any {
	userName := g.faker.Name()
	userEmail := g.faker.Email()

	entries := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		category := pick(g.rng, emailCategories)
		isSent := chance(g.rng, 0.5)

		other := map[string]any{
			"name":  g.faker.Name(),
			"email": g.faker.Email(),
		}
		self := map[string]any{"name": userName, "email": userEmail}

		from, to, folder := other, self, "inbox"
		if isSent {
			from, to, folder = self, other, "sent"
		}

		entries = append(entries, map[string]any{
			"id":         g.newID(),
			"subject":    pick(g.rng, emailSubjects[category]),
			"from":       from,
			"to":         []map[string]any{to},
			"cc":         []map[string]any{},
			"body":       map[string]any{"text": pick(g.rng, emailBodies[category])},
			"timestamp":  g.randomTimestamp(),
			"is_sent":    isSent,
			"is_read":    isSent || chance(g.rng, 0.8),
			"is_starred": chance(g.rng, 0.1),
			"folder":     folder,
			"category":   category,
		})
	}
	return entries
}

func init() {
	Register(models.AppEmails, NewEmailsGenerator)
}
