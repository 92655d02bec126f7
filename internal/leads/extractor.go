package leads

import (
	"regexp"
	"strings"
)

// Signals is the result of scanning one message for contact intent.
type Signals struct {
	Email           string
	Phone           string
	IntentKeywords  []string
	FollowUpRequest bool
}

// Any reports whether the message carried any lead signal at all.
func (s Signals) Any() bool {
	return s.Email != "" || s.Phone != "" || len(s.IntentKeywords) > 0 || s.FollowUpRequest
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// Phone patterns are tried in order; the first match with at least 10
// digits after stripping wins. They are deliberately not merged into one
// expression so the more specific shapes take precedence.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+\d[\d\s\-().]{8,}\d`),
	regexp.MustCompile(`\(\d{3}\)\s?\d{3}[-\s]?\d{4}`),
	regexp.MustCompile(`\d{3}-\d{3}-\d{4}`),
}

// intentVocabulary is the fixed keyword list. Matches are reported in
// this order, not input order, and capped at maxIntentKeywords.
var intentVocabulary = []string{
	"pricing", "price", "plan", "trial", "subscribe", "subscription",
	"integration", "integrate", "support", "cost", "billing", "upgrade",
	"quote", "demo", "purchase", "buy",
}

const maxIntentKeywords = 8

var followUpCues = []string{
	"follow up", "contact", "reach out", "get back", "share your",
}

var nonDigit = regexp.MustCompile(`\D`)

// Extract scans text for lead signals. Pure function, no I/O.
func Extract(text string) Signals {
	var s Signals
	if text == "" {
		return s
	}
	lower := strings.ToLower(text)

	if m := emailPattern.FindString(text); m != "" {
		s.Email = m
	}

	for _, p := range phonePatterns {
		m := p.FindString(text)
		if m == "" {
			continue
		}
		if len(nonDigit.ReplaceAllString(m, "")) >= 10 {
			s.Phone = strings.TrimSpace(m)
			break
		}
	}

	for _, kw := range intentVocabulary {
		if len(s.IntentKeywords) >= maxIntentKeywords {
			break
		}
		if strings.Contains(lower, kw) {
			s.IntentKeywords = append(s.IntentKeywords, kw)
		}
	}

	if strings.Contains(lower, "email") || strings.Contains(lower, "phone") {
		for _, cue := range followUpCues {
			if strings.Contains(lower, cue) {
				s.FollowUpRequest = true
				break
			}
		}
	}

	return s
}

var (
	namePattern    = regexp.MustCompile(`(?i)my name is\s+([A-Za-z][A-Za-z'\-]*(?: [A-Za-z][A-Za-z'\-]*)?)`)
	companyPattern = regexp.MustCompile(`\b(?:at|from) ([A-Z][A-Za-z0-9&\-]*(?: [A-Z][A-Za-z0-9&\-]*)?)`)
)

// connector words that trail a two-word heuristic capture.
var trailingStopwords = map[string]bool{
	"and": true, "i": true, "at": true, "from": true, "the": true,
}

// nameStopwords rejects heuristic matches that are really intent
// vocabulary ("from pricing", "at support").
var nameStopwords = map[string]bool{
	"pricing": true, "price": true, "support": true, "billing": true,
	"trial": true, "plan": true, "cost": true, "demo": true,
	"the": true, "a": true, "an": true, "my": true, "your": true,
}

// GuessName extracts a name from conversation text as a fallback when
// none was supplied explicitly.
func GuessName(text string) string {
	m := namePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	name := trimTrailingStopword(strings.TrimSpace(m[1]))
	if name == "" || nameStopwords[strings.ToLower(strings.Fields(name)[0])] {
		return ""
	}
	return name
}

// GuessCompany extracts a company name from "at X" / "from X" phrasing.
func GuessCompany(text string) string {
	m := companyPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	company := trimTrailingStopword(strings.TrimSpace(m[1]))
	if company == "" || nameStopwords[strings.ToLower(strings.Fields(company)[0])] {
		return ""
	}
	return company
}

func trimTrailingStopword(s string) string {
	words := strings.Fields(s)
	for len(words) > 0 && trailingStopwords[strings.ToLower(words[len(words)-1])] {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}
