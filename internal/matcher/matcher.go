package matcher

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/savir/supportline/internal/provider"
	"github.com/savir/supportline/internal/ticket"
)

// Matcher classifies a free-text problem against the knowledge base: embed,
// rank the top-K stored tickets by cosine similarity, and compare the best
// score to the confidence threshold.
type Matcher struct {
	provider  provider.Provider
	store     ticket.Store
	topK      int
	threshold float64
	log       *logrus.Logger
}

// Result is one classification outcome.
type Result struct {
	Matches        []ticket.Match
	HighConfidence bool
}

func New(p provider.Provider, store ticket.Store, topK int, threshold float64, log *logrus.Logger) *Matcher {
	if topK <= 0 {
		topK = 5
	}
	return &Matcher{
		provider:  p,
		store:     store,
		topK:      topK,
		threshold: threshold,
		log:       log,
	}
}

// Match ranks stored tickets against the problem description. Embedding or
// index failures degrade to an empty match list so the call falls through to
// interactive troubleshooting instead of failing.
func (m *Matcher) Match(ctx context.Context, problem string) Result {
	embedding, err := m.provider.Embed(ctx, problem)
	if err != nil {
		m.log.WithError(err).Warn("problem embedding failed, degrading to troubleshooting")
		return Result{}
	}

	matches, err := m.store.TopK(ctx, embedding, m.topK)
	if err != nil {
		m.log.WithError(err).Warn("similarity lookup failed, degrading to troubleshooting")
		return Result{}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return Result{
		Matches:        matches,
		HighConfidence: len(matches) > 0 && matches[0].Score >= m.threshold,
	}
}

// Best returns the top-ranked match, valid only when Matches is non-empty.
func (r Result) Best() ticket.Match {
	return r.Matches[0]
}
