package dialogue

import "strings"

// RuleTableVersion identifies the closure vocabulary below. Bump when the
// phrase list changes so calls can be correlated with the rules that decided
// them.
const RuleTableVersion = 1

// Detector decides whether a caller utterance signals that the problem is
// solved. Matching is case-insensitive substring over a fixed vocabulary,
// plus exact-match bare affirmatives. There is deliberately no negation
// handling: "not fixed" matches "fixed" and reads as resolved. That gap is
// documented and tested rather than patched.
type Detector struct {
	phrases      []string
	affirmatives []string
}

// NewDetector returns the current rule table.
func NewDetector() *Detector {
	return &Detector{
		phrases: []string{
			"fixed", "solved", "resolved", "working",
			"great", "excellent", "perfect", "thank you", "thanks",
			"yes it works", "yes that worked", "problem solved", "all good",
			"thats it", "that did it", "successful",
		},
		affirmatives: []string{"yes", "yep", "yeah", "yup"},
	}
}

// Detect reports whether the utterance contains a resolution phrase.
// First match wins.
func (d *Detector) Detect(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return false
	}
	for _, phrase := range d.phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	for _, word := range d.affirmatives {
		if lower == word {
			return true
		}
	}
	return false
}
