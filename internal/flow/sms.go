package flow

import (
	"context"
	"sort"
	"time"

	"github.com/BTreeMap/PersonaPipe/internal/models"
)

var conversationTypeWeights = []weightedOption{
	{"friend", 0.40},
	{"family", 0.30},
	{"work", 0.20},
	{"group", 0.10},
}

var familyMessages = []string{
	"Hey, how are you doing?",
	"Don't forget dinner on Sunday!",
	"Can you pick up milk on your way home?",
	"Love you!",
	"Call me when you get a chance",
	"Did you see the photos I sent?",
}

var friendMessages = []string{
	"Want to grab coffee this weekend?",
	"Did you watch the game last night?",
	"That was so funny lol",
	"Are we still on for Friday?",
	"You have to see this",
	"Long time no talk, how have you been?",
}

var workMessages = []string{
	"Running 10 minutes late to the meeting",
	"Can you send me that report?",
	"Great job on the presentation today",
	"Are you free for a quick call?",
	"The client approved the proposal",
	"Meeting moved to 3pm",
}

var groupMessages = []string{
	"Who's in for Saturday?",
	"I'll bring the snacks",
	"Count me in!",
	"What time works for everyone?",
	"Sorry, can't make it this time",
	"That place was great, we should go back",
}

// SMSGenerator produces text message conversations.
type SMSGenerator struct {
	base
}

// NewSMSGenerator constructs the sms generator.
func NewSMSGenerator(deps Dependencies) Generator {
	return &SMSGenerator{base: newBase(models.AppSMS, deps)}
}

// Generate produces count sms conversations.
func (g *SMSGenerator) Generate(ctx context.Context, profile map[string]any, events []string, analysis models.AnalysisRecord, count int) models.AppData {
	return g.run(ctx, profile, events, analysis, count, smsInstructions, g.synthesize)
}

const smsInstructions = `Please generate SMS conversation data in the following JSON format:
{
    "conversations": [
        {
            "conversation_id": "unique_identifier",
            "participants": [{"phone_number": "+1234567890", "contact_name": "Contact Name"}],
            "messages": [
                {
                    "id": "message_identifier",
                    "sender_phone": "+1234567890",
                    "is_from_user": true,
                    "content": "Message text",
                    "timestamp": "ISO timestamp",
                    "message_type": "text|image|video|audio",
                    "delivery_status": "sent|delivered|read",
                    "read_receipt": true,
                    "attachments": [{"type": "image|video|audio", "filename": "photo.jpg"}],
                    "group_info": {"is_group": false, "group_name": null}
                }
            ]
        }
    ]
}

Create realistic conversations that:
- Relate to the provided events and user profile
- Mix individual and group conversations
- Show natural back-and-forth exchanges
- Use casual, realistic texting language
- Include timestamps in chronological order within each conversation
- Occasionally include attachments
`

// synthesize builds count template conversations. Groups get 3-6
// participants and 5-20 messages, individual threads get 3-15 alternating
// messages, and roughly 10% of messages carry an attachment.
func (g *SMSGenerator) synthesize(count int) []map[string]any {
	userPhone := g.faker.Phone()
	entries := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		convType := pickWeighted(g.rng, conversationTypeWeights)
		isGroup := convType == "group"

		participants := []map[string]any{
			{"phone_number": userPhone, "contact_name": "Me"},
		}
		var others int
		if isGroup {
			others = 3 + g.rng.IntN(4)
		} else {
			others = 1
		}
		otherPhones := make([]string, 0, others)
		for j := 0; j < others; j++ {
			phone := g.faker.Phone()
			otherPhones = append(otherPhones, phone)
			participants = append(participants, map[string]any{
				"phone_number": phone,
				"contact_name": g.faker.Name(),
			})
		}

		var msgCount int
		if isGroup {
			msgCount = 5 + g.rng.IntN(16)
		} else {
			msgCount = 3 + g.rng.IntN(13)
		}

		var groupName string
		if isGroup {
			groupName = pick(g.rng, []string{"Weekend Crew", "Family Chat", "Book Club", "Hiking Group", "Game Night"})
		}

		entries = append(entries, map[string]any{
			"conversation_id": g.newID(),
			"participants":    participants,
			"messages":        g.messages(convType, userPhone, otherPhones, msgCount, isGroup, groupName),
		})
	}
	return entries
}

func (g *SMSGenerator) messages(convType, userPhone string, otherPhones []string, n int, isGroup bool, groupName string) []map[string]any {
	bank := messageBankFor(convType)

	// Draw timestamps first and sort so each thread reads in order.
	times := make([]time.Time, n)
	for i := range times {
		times[i] = g.randomTime()
	}
	sort.Slice(times, func(a, b int) bool { return times[a].Before(times[b]) })

	// Individual threads alternate strictly between the user and the other
	// side; groups rotate through every participant including the user. A
	// random offset varies who opens the thread.
	start := g.rng.IntN(len(otherPhones) + 1)

	msgs := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		turn := (i + start) % (len(otherPhones) + 1)
		fromUser := turn == len(otherPhones)
		sender := userPhone
		if !fromUser {
			sender = otherPhones[turn]
		}
		msg := map[string]any{
			"id":              g.newID(),
			"sender_phone":    sender,
			"is_from_user":    fromUser,
			"content":         pick(g.rng, bank),
			"timestamp":       times[i].Format(time.RFC3339),
			"message_type":    "text",
			"delivery_status": "read",
			"read_receipt":    true,
		}
		if isGroup {
			msg["group_info"] = map[string]any{"is_group": true, "group_name": groupName}
		}
		if chance(g.rng, 0.1) {
			msg["attachments"] = []map[string]any{
				{"type": pick(g.rng, []string{"image", "video", "audio"}), "filename": pick(g.rng, []string{"photo.jpg", "clip.mp4", "voice.m4a"})},
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func messageBankFor(convType string) []string {
	switch convType {
	case "family":
		return familyMessages
	case "work":
		return workMessages
	case "group":
		return groupMessages
	default:
		return friendMessages
	}
}

func init() {
	Register(models.AppSMS, NewSMSGenerator)
}
