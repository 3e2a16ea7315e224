package insight

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/savir/supportline/internal/dialogue"
	"github.com/savir/supportline/internal/logger"
	"github.com/savir/supportline/internal/observability"
)

type cannedProvider struct {
	insight string
	err     error
}

func (p *cannedProvider) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("not used")
}

func (p *cannedProvider) Generate(context.Context, string, string) (string, error) {
	return p.insight, p.err
}

func testMetrics(t *testing.T) *observability.Metrics {
	t.Helper()
	return observability.NewMetricsWith(prometheus.NewRegistry(), "test_insight")
}

func TestRecorderPostsPayload(t *testing.T) {
	var got Payload
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gen := dialogue.NewGenerator(&cannedProvider{insight: "Ship a fix for the crash on open"}, logger.New())
	rec := NewRecorder(gen, srv.URL, time.Second, logger.New(), testMetrics(t))

	rec.Record(context.Background(), Summary{
		CallID:     "CA1",
		Phone:      "+15550001111",
		Transcript: []string{"User: app crashes when opening", "AI: try updating", "User: yes it works, thanks"},
		Solved:     true,
	})

	if calls.Load() != 1 {
		t.Fatalf("analytics endpoint hit %d times, want 1", calls.Load())
	}
	if got.Phone != "+15550001111" {
		t.Fatalf("payload phone = %q", got.Phone)
	}
	if !got.Solved {
		t.Fatalf("payload solved = false, want true")
	}
	if got.Insight != "Ship a fix for the crash on open" {
		t.Fatalf("payload insight = %q", got.Insight)
	}
	if got.Transcript != "User: app crashes when opening | AI: try updating | User: yes it works, thanks" {
		t.Fatalf("payload transcript = %q", got.Transcript)
	}
	if got.Sentiment < -1 || got.Sentiment > 1 {
		t.Fatalf("payload sentiment %v outside [-1, 1]", got.Sentiment)
	}
}

func TestRecorderSwallowsCollaboratorFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gen := dialogue.NewGenerator(&cannedProvider{insight: "x"}, logger.New())
	rec := NewRecorder(gen, srv.URL, time.Second, logger.New(), testMetrics(t))

	// Must not panic or block; failure is logged and counted only.
	rec.Record(context.Background(), Summary{CallID: "CA2", Transcript: []string{"User: hi"}})
}

func TestRecorderSkipsEmptyTranscript(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	gen := dialogue.NewGenerator(&cannedProvider{insight: "x"}, logger.New())
	rec := NewRecorder(gen, srv.URL, time.Second, logger.New(), testMetrics(t))

	rec.Record(context.Background(), Summary{CallID: "CA3"})
	if calls.Load() != 0 {
		t.Fatalf("empty transcript should not be submitted")
	}
}

func TestRecorderUsesInsightFallback(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	gen := dialogue.NewGenerator(&cannedProvider{err: errors.New("provider down")}, logger.New())
	rec := NewRecorder(gen, srv.URL, time.Second, logger.New(), testMetrics(t))

	rec.Record(context.Background(), Summary{CallID: "CA4", Transcript: []string{"User: hello"}})
	if got.Insight != dialogue.FallbackInsight {
		t.Fatalf("insight = %q, want fallback", got.Insight)
	}
}
