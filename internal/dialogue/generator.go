package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/savir/supportline/internal/provider"
)

// FallbackUtterance is spoken whenever the generative collaborator fails or
// times out, so the state machine never stalls on it.
const FallbackUtterance = "I'm sorry, I encountered a technical issue. Could you tell me more about what you're seeing?"

// FallbackInsight stands in when the insight summary cannot be generated.
const FallbackInsight = "Review this call transcript manually; automatic summarization was unavailable."

const transcriptContextTurns = 3

// Generator produces the next agent utterance from the problem statement and
// the transcript so far. It degrades to fixed utterances instead of
// returning errors.
type Generator struct {
	provider provider.Provider
	log      *logrus.Logger
}

func NewGenerator(p provider.Provider, log *logrus.Logger) *Generator {
	return &Generator{provider: p, log: log}
}

// OpeningQuestion asks the first diagnostic question for a freshly stated
// problem.
func (g *Generator) OpeningQuestion(ctx context.Context, problem string) string {
	prompt := fmt.Sprintf(
		"The user has this problem: %s. Ask a specific troubleshooting question to help diagnose the issue.",
		problem,
	)
	return g.generate(ctx, prompt, "")
}

// NextQuestion continues an in-flight troubleshooting dialogue.
func (g *Generator) NextQuestion(ctx context.Context, problem, userResponse string, transcript []string) string {
	prompt := fmt.Sprintf(
		"User response: %s. Continue troubleshooting the original problem: %s",
		userResponse, problem,
	)
	return g.generate(ctx, prompt, recentContext(transcript))
}

// InsightSummary condenses a finished call into one actionable sentence for
// the analytics payload.
func (g *Generator) InsightSummary(ctx context.Context, transcript []string) string {
	prompt := fmt.Sprintf(
		"Never use commas only 1 sentence. Analyze the following conversation and provide what the company should do:\n%s",
		strings.Join(transcript, "\n"),
	)
	out, err := g.provider.Generate(ctx, prompt, "")
	if err != nil || strings.TrimSpace(out) == "" {
		if err != nil {
			g.log.WithError(err).Warn("insight generation failed, using fallback")
		}
		return FallbackInsight
	}
	return strings.TrimSpace(out)
}

func (g *Generator) generate(ctx context.Context, prompt, contextText string) string {
	out, err := g.provider.Generate(ctx, prompt, contextText)
	if err != nil || strings.TrimSpace(out) == "" {
		if err != nil {
			g.log.WithError(err).Warn("dialogue generation failed, using fallback")
		}
		return FallbackUtterance
	}
	return strings.TrimSpace(out)
}

func recentContext(transcript []string) string {
	if len(transcript) == 0 {
		return ""
	}
	start := len(transcript) - transcriptContextTurns
	if start < 0 {
		start = 0
	}
	return "Previous conversation: " + strings.Join(transcript[start:], " | ")
}
