// Package fallback answers chat messages from a static product fact
// sheet when retrieval finds no sufficiently relevant workspace content.
package fallback

// factSheetVersion identifies the canonical fact sheet revision carried
// in this build. Bump when the copy below changes.
const factSheetVersion = "2025-07"

// Mode selects the fallback voice.
type Mode string

const (
	// ModeDemo serves unauthenticated traffic on the public demo bot.
	ModeDemo Mode = "demo"

	// ModeFallback serves an authenticated workspace whose knowledge
	// base had no matching content.
	ModeFallback Mode = "fallback"
)

// factSheet is the canonical product description the generator is allowed
// to answer from. Everything outside it is off limits.
const factSheet = `TruLyBot is a customer-support chatbot platform for small businesses.

Positioning:
- Businesses upload their own documents (FAQs, policies, product docs) to
  form a private knowledge base; the bot answers end-user questions from
  that knowledge base only.
- One lightweight embeddable chat widget, a lead inbox, and simple
  usage-based plans.

Features:
- Document upload with automatic chunking and semantic search.
- Embeddable chat widget with per-plan customization (bot name, welcome
  message, accent color, logo, theme, custom CSS).
- Automatic lead capture from conversations (email, phone, intent).
- Monthly usage quotas per workspace.

Pricing summary:
- Free tier with limited monthly conversations.
- Basic, Pro and Ultra paid tiers; a one-time free trial unlocks Ultra
  features for its duration.

Style limits:
- Answer in at most four short sentences.
- Be factual and friendly; never invent features, integrations, prices
  or guarantees that are not listed above.
- If asked about something outside this sheet, say you don't have that
  information and suggest contacting support.`

// disallowedClaims lists capability keywords the product does not have.
// When generated text mentions one, the generator appends a corrective
// clarification instead of discarding the answer (detect-and-patch; a
// regeneration round trip would double latency and cost).
var disallowedClaims = []string{
	"phone support",
	"voice call",
	"whatsapp",
	"slack integration",
	"sms",
	"fine-tune",
	"fine-tuning",
	"train your own model",
	"zapier",
	"live agent",
	"human handoff",
}

// clarification is appended when a disallowed claim is detected.
const clarification = "\n\nTo clarify: TruLyBot currently supports website chat only. " +
	"For the accurate feature list, please see the pricing page or contact support."
