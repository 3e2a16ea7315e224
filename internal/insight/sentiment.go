package insight

import "strings"

// Lexicons for the derived caller-sentiment score. Deliberately small and
// deterministic: the contract is only that more distress maps to a more
// negative score in [-1, 1].
var (
	distressTerms = []string{
		"not working", "broken", "crash", "crashes", "crashed", "error",
		"failed", "failing", "frustrated", "angry", "annoyed", "terrible",
		"awful", "useless", "worst", "again", "still", "urgent", "unacceptable",
		"cancel", "refund",
	}
	reliefTerms = []string{
		"fixed", "solved", "resolved", "working", "great", "excellent",
		"perfect", "thank", "thanks", "awesome", "helpful", "good",
	}
)

// SentimentScore derives a caller sentiment in [-1, 1] from the transcript.
// Only caller turns (lines with the "User:" prefix) are scored; agent
// utterances would otherwise drown the signal with canned positivity.
func SentimentScore(transcript []string) float64 {
	var distress, relief int
	for _, line := range transcript {
		if !strings.HasPrefix(line, "User:") {
			continue
		}
		lower := strings.ToLower(line)
		for _, term := range distressTerms {
			distress += strings.Count(lower, term)
		}
		for _, term := range reliefTerms {
			relief += strings.Count(lower, term)
		}
	}

	total := distress + relief
	if total == 0 {
		return 0
	}
	// Additive smoothing keeps the score strictly inside [-1, 1] and makes
	// repeated distress terms push it progressively lower instead of
	// saturating on the first hit.
	return float64(relief-distress) / float64(total+2)
}
