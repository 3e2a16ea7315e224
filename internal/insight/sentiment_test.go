package insight

import "testing"

func TestSentimentScoreRangeAndMonotonicity(t *testing.T) {
	calm := []string{
		"User: my screen looks odd",
		"AI: have you restarted?",
	}
	annoyed := []string{
		"User: the app crashed with an error",
		"AI: let me help",
	}
	furious := []string{
		"User: this is broken and useless, worst app ever, still failing",
		"AI: I'm sorry to hear that",
		"User: I am frustrated and angry, cancel my account",
	}
	happy := []string{
		"User: it's fixed, thank you, works great",
	}

	sCalm := SentimentScore(calm)
	sAnnoyed := SentimentScore(annoyed)
	sFurious := SentimentScore(furious)
	sHappy := SentimentScore(happy)

	for name, s := range map[string]float64{"calm": sCalm, "annoyed": sAnnoyed, "furious": sFurious, "happy": sHappy} {
		if s < -1 || s > 1 {
			t.Fatalf("%s sentiment %v outside [-1, 1]", name, s)
		}
	}
	if !(sFurious < sAnnoyed) {
		t.Fatalf("more distress should score lower: furious=%v annoyed=%v", sFurious, sAnnoyed)
	}
	if !(sAnnoyed < sCalm) {
		t.Fatalf("distress should score below neutral: annoyed=%v calm=%v", sAnnoyed, sCalm)
	}
	if !(sHappy > 0) {
		t.Fatalf("relief-heavy transcript should score positive, got %v", sHappy)
	}
}

func TestSentimentScoreIgnoresAgentTurns(t *testing.T) {
	transcript := []string{
		"AI: excellent, perfect, great, that worked",
		"User: still broken",
	}
	if s := SentimentScore(transcript); s >= 0 {
		t.Fatalf("agent positivity leaked into the score: %v", s)
	}
}

func TestSentimentScoreNeutralDefault(t *testing.T) {
	if s := SentimentScore([]string{"User: hello there"}); s != 0 {
		t.Fatalf("no lexicon hits should score 0, got %v", s)
	}
	if s := SentimentScore(nil); s != 0 {
		t.Fatalf("empty transcript should score 0, got %v", s)
	}
}
