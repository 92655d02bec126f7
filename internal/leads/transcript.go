package leads

import "encoding/json"

// TruncateTranscript bounds a conversation window for storage: keep the
// most recent maxTurns, then drop oldest turns until the JSON encoding
// fits maxChars. Bounded memory, not a perfect log.
func TruncateTranscript(turns []Turn, maxTurns, maxChars int) []Turn {
	if maxTurns <= 0 || maxChars <= 0 {
		return nil
	}
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	for len(turns) > 0 {
		encoded, err := json.Marshal(turns)
		if err != nil {
			return nil
		}
		if len(encoded) <= maxChars {
			break
		}
		turns = turns[1:]
	}
	return turns
}

// EncodeTranscript serializes a truncated window for the Lead row.
func EncodeTranscript(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}
	encoded, err := json.Marshal(turns)
	if err != nil {
		return ""
	}
	return string(encoded)
}
