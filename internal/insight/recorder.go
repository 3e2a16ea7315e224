package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savir/supportline/internal/dialogue"
	"github.com/savir/supportline/internal/observability"
)

// Summary is what the engine hands over when a call reaches a terminal
// state or is torn down with a non-empty transcript.
type Summary struct {
	CallID     string
	Phone      string
	Transcript []string
	Solved     bool
}

// Payload is the analytics collaborator's wire format.
type Payload struct {
	Phone      string  `json:"phone"`
	Transcript string  `json:"transcript"`
	Sentiment  float64 `json:"sentiment"`
	Insight    string  `json:"insight"`
	Solved     bool    `json:"solved"`
}

// Recorder submits call insights to the downstream analytics collaborator.
// Best-effort by contract: failures are logged and counted, never retried,
// and never surfaced to the caller.
type Recorder struct {
	generator *dialogue.Generator
	client    *http.Client
	url       string
	timeout   time.Duration
	log       *logrus.Logger
	metrics   *observability.Metrics
}

func NewRecorder(gen *dialogue.Generator, url string, timeout time.Duration, log *logrus.Logger, metrics *observability.Metrics) *Recorder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Recorder{
		generator: gen,
		client:    &http.Client{Timeout: timeout},
		url:       strings.TrimSpace(url),
		timeout:   timeout,
		log:       log,
		metrics:   metrics,
	}
}

// Record computes sentiment, generates the one-line insight, and POSTs the
// payload. Safe to call from a detached goroutine; it carries its own
// deadline and never panics on collaborator failure.
func (r *Recorder) Record(ctx context.Context, sum Summary) {
	if len(sum.Transcript) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payload := Payload{
		Phone:      sum.Phone,
		Transcript: strings.Join(sum.Transcript, " | "),
		Sentiment:  SentimentScore(sum.Transcript),
		Insight:    r.generator.InsightSummary(ctx, sum.Transcript),
		Solved:     sum.Solved,
	}

	if r.url == "" {
		r.metrics.InsightPosts.WithLabelValues("skipped").Inc()
		r.log.WithFields(logrus.Fields{
			"call_id": sum.CallID,
			"solved":  sum.Solved,
		}).Debug("analytics collaborator not configured, insight dropped")
		return
	}

	if err := r.post(ctx, payload); err != nil {
		r.metrics.InsightPosts.WithLabelValues("error").Inc()
		r.log.WithError(err).WithField("call_id", sum.CallID).Warn("insight submission failed")
		return
	}
	r.metrics.InsightPosts.WithLabelValues("ok").Inc()
}

func (r *Recorder) post(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal insight payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build insight request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post insight: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("analytics collaborator returned %d", resp.StatusCode)
	}
	return nil
}
