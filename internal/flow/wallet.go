package flow

import (
	"context"
	"fmt"

	"github.com/BTreeMap/PersonaPipe/internal/models"
)

var passTypes = []string{"boarding_pass", "event_ticket", "coupon", "store_card", "membership"}

var passOrganizations = map[string][]string{
	"boarding_pass": {"Pacific Air", "Skyline Airways", "Coastal Airlines"},
	"event_ticket":  {"City Arena", "Grand Theater", "Riverside Stadium"},
	"coupon":        {"Fresh Market", "Urban Outfitter Co", "Home Essentials"},
	"store_card":    {"Daily Grind Coffee", "Corner Bookstore", "Green Grocer"},
	"membership":    {"City Fitness", "Public Library", "Art Museum"},
}

var passNames = map[string][]string{
	"boarding_pass": {"Flight to Seattle", "Flight to Denver", "Flight to Austin"},
	"event_ticket":  {"Concert Admission", "Basketball Game", "Theater Night"},
	"coupon":        {"15% Off Purchase", "Buy One Get One", "$10 Off $50"},
	"store_card":    {"Rewards Card", "Loyalty Card", "Store Credit"},
	"membership":    {"Annual Membership", "Monthly Pass", "Member Card"},
}

// WalletGenerator produces wallet passes.
type WalletGenerator struct {
	base
}

// NewWalletGenerator constructs the wallet generator.
func NewWalletGenerator(deps Dependencies) Generator {
	return &WalletGenerator{base: newBase(models.AppWallet, deps)}
}

// Generate produces count wallet pass records.
func (g *WalletGenerator) Generate(ctx context.Context, profile map[string]any, events []string, analysis models.AnalysisRecord, count int) models.AppData {
	return g.run(ctx, profile, events, analysis, count, walletInstructions, g.synthesize)
}

const walletInstructions = `Please generate wallet pass data in the following JSON format:
{
    "passes": [
        {
            "id": "unique_identifier",
            "type": "boarding_pass|event_ticket|coupon|store_card|membership",
            "organization_name": "Issuing Organization",
            "pass_name": "Pass Display Name",
            "description": "Pass details",
            "barcode": {"format": "PKBarcodeFormatQR", "message": "123456", "message_encoding": "iso-8859-1"},
            "background_color": "#1a73e8",
            "foreground_color": "#ffffff",
            "primary_fields": [{"label": "Field", "value": "Value", "key": "field_key"}],
            "secondary_fields": [{"label": "Field", "value": "Value", "key": "field_key"}],
            "voided": false,
            "created_date": "ISO timestamp"
        }
    ]
}

Create realistic passes that:
- Relate to the provided events and user profile
- Cover multiple pass types (travel, events, coupons, loyalty, memberships)
- Use plausible organization and pass names
- Include barcodes and expiration dates where appropriate
`

// synthesize builds count template passes drawn from per-type organization
// and name banks, each with a 6-digit barcode and type-specific field sets.
func (g *WalletGenerator) synthesize(count int) []map[string]any {
	entries := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		passType := pick(g.rng, passTypes)
		org := pick(g.rng, passOrganizations[passType])

		entries = append(entries, map[string]any{
			"id":                g.newID(),
			"type":              passType,
			"organization_name": org,
			"pass_name":         pick(g.rng, passNames[passType]),
			"description":       passDescription(passType),
			"barcode": map[string]any{
				"format":           pick(g.rng, []string{"PKBarcodeFormatQR", "PKBarcodeFormatPDF417"}),
				"message":          fmt.Sprintf("%06d", g.rng.IntN(1000000)),
				"message_encoding": "iso-8859-1",
			},
			"background_color": g.faker.HexColor(),
			"foreground_color": "#ffffff",
			"primary_fields":   []map[string]any{g.primaryField(passType)},
			"secondary_fields": []map[string]any{g.secondaryField(passType)},
			"voided":           chance(g.rng, 0.2),
			"created_date":     g.randomTimestamp(),
		})
	}
	return entries
}

// primaryField yields the headline field for a pass type: flight number for
// boarding passes, point balance for store cards, tier for memberships.
func (g *WalletGenerator) primaryField(passType string) map[string]any {
	switch passType {
	case "boarding_pass":
		return map[string]any{"label": "Flight", "value": fmt.Sprintf("AA%d", 100+g.rng.IntN(900)), "key": "flight"}
	case "event_ticket":
		return map[string]any{"label": "Event", "value": "Concert", "key": "event"}
	case "store_card":
		return map[string]any{"label": "Points", "value": fmt.Sprintf("%d", 100+g.rng.IntN(4901)), "key": "points"}
	case "membership":
		return map[string]any{"label": "Member", "value": pick(g.rng, []string{"Silver", "Gold", "Platinum"}), "key": "level"}
	default:
		return map[string]any{"label": "Discount", "value": "20% OFF", "key": "discount"}
	}
}

// secondaryField yields the supporting field for a pass type.
func (g *WalletGenerator) secondaryField(passType string) map[string]any {
	switch passType {
	case "boarding_pass":
		gate := fmt.Sprintf("%c%d", 'A'+rune(g.rng.IntN(4)), 1+g.rng.IntN(30))
		return map[string]any{"label": "Gate", "value": gate, "key": "gate"}
	case "event_ticket":
		return map[string]any{"label": "Seat", "value": fmt.Sprintf("Row %d", 1+g.rng.IntN(20)), "key": "seat"}
	case "store_card":
		since := g.cfg.StartDate.Year() - (1 + g.rng.IntN(5))
		return map[string]any{"label": "Member Since", "value": fmt.Sprintf("%d", since), "key": "since"}
	case "membership":
		return map[string]any{"label": "Expires", "value": fmt.Sprintf("%d-12-31", g.cfg.EndDate.Year()+1), "key": "expires"}
	default:
		return map[string]any{"label": "Expires", "value": fmt.Sprintf("%d-12-31", g.cfg.EndDate.Year()), "key": "expires"}
	}
}

func passDescription(passType string) string {
	switch passType {
	case "boarding_pass":
		return "Mobile boarding pass, present at the gate"
	case "event_ticket":
		return "Admission ticket, scan at entry"
	case "coupon":
		return "Show at checkout to redeem"
	case "store_card":
		return "Earn points with every purchase"
	default:
		return "Member benefits and access"
	}
}

func init() {
	Register(models.AppWallet, NewWalletGenerator)
}
