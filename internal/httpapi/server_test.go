package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/savir/supportline/internal/call"
	"github.com/savir/supportline/internal/config"
	"github.com/savir/supportline/internal/dialogue"
	"github.com/savir/supportline/internal/escalation"
	"github.com/savir/supportline/internal/insight"
	"github.com/savir/supportline/internal/logger"
	"github.com/savir/supportline/internal/matcher"
	"github.com/savir/supportline/internal/observability"
	"github.com/savir/supportline/internal/provider"
	"github.com/savir/supportline/internal/ticket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logger.New()
	cfg := config.Config{
		AllowAnyOrigin:        true,
		SearchTopK:            5,
		SimilarityThreshold:   0.8,
		MaxTroubleshootRounds: 5,
	}

	prov := provider.NewMockProvider(64)
	tickets := ticket.NewInMemoryStore()
	metrics := observability.NewMetricsWith(prometheus.NewRegistry(), "test_httpapi")
	gen := dialogue.NewGenerator(prov, log)

	eng := call.NewEngine(
		call.NewRegistry(5*time.Minute, log),
		matcher.New(prov, tickets, cfg.SearchTopK, cfg.SimilarityThreshold, log),
		gen,
		dialogue.NewDetector(),
		escalation.NewInMemoryStore(),
		insight.NewRecorder(gen, "", time.Second, log, metrics),
		call.NewHub(),
		metrics,
		log,
		cfg.MaxTroubleshootRounds,
	)

	srv := httptest.NewServer(New(cfg, eng, tickets, prov, metrics, log).Router())
	t.Cleanup(srv.Close)
	return srv
}

func postWebhook(t *testing.T, srv *httptest.Server, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return buf.String()
}

func TestVoiceWebhookGreetsAndGathers(t *testing.T) {
	srv := newTestServer(t)

	resp := postWebhook(t, srv, "/voice", url.Values{"CallSid": {"CA100"}, "From": {"+15550001111"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/xml") {
		t.Fatalf("content type = %q, want text/xml", ct)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, "<Gather") {
		t.Fatalf("twiml %q missing gather", body)
	}
	if !strings.Contains(body, "describe the problem") {
		t.Fatalf("twiml %q missing greeting", body)
	}
}

func TestGatherResolutionHangsUp(t *testing.T) {
	srv := newTestServer(t)
	postWebhook(t, srv, "/voice", url.Values{"CallSid": {"CA100"}}).Body.Close()
	postWebhook(t, srv, "/gather", url.Values{
		"CallSid": {"CA100"}, "SpeechResult": {"my app keeps crashing"},
	}).Body.Close()

	resp := postWebhook(t, srv, "/gather", url.Values{
		"CallSid": {"CA100"}, "SpeechResult": {"yes it works now"},
	})
	body := readBody(t, resp)
	if strings.Contains(body, "<Gather") {
		t.Fatalf("resolved call twiml %q must not gather again", body)
	}
	if !strings.Contains(body, "<Hangup") {
		t.Fatalf("twiml %q missing hangup", body)
	}
	if !strings.Contains(body, "glad I could help") {
		t.Fatalf("twiml %q missing resolution farewell", body)
	}
}

func TestHangupCallbackReturnsNoContent(t *testing.T) {
	srv := newTestServer(t)
	postWebhook(t, srv, "/voice", url.Values{"CallSid": {"CA100"}}).Body.Close()

	resp := postWebhook(t, srv, "/hangup", url.Values{"CallSid": {"CA100"}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
}

func TestCreateTicketThenSearchFindsIt(t *testing.T) {
	srv := newTestServer(t)

	createBody, _ := json.Marshal(map[string]string{
		"problem":  "Can't login to the app",
		"solution": "Reset your password using the forgot password link",
	})
	resp, err := http.Post(srv.URL+"/v1/tickets", "application/json", bytes.NewReader(createBody))
	if err != nil {
		t.Fatalf("POST /v1/tickets: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", resp.StatusCode, readBody(t, resp))
	}
	var created ticket.Record
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decoding created ticket: %v", err)
	}
	resp.Body.Close()
	if created.ID == "" {
		t.Fatal("created ticket has no id")
	}

	searchBody, _ := json.Marshal(map[string]any{"query": "Can't login to the app", "k": 3})
	resp, err = http.Post(srv.URL+"/v1/tickets/search", "application/json", bytes.NewReader(searchBody))
	if err != nil {
		t.Fatalf("POST /v1/tickets/search: %v", err)
	}
	var result searchTicketsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decoding search response: %v", err)
	}
	resp.Body.Close()

	if len(result.Matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(result.Matches))
	}
	if result.Matches[0].Record.ID != created.ID {
		t.Fatalf("matched ticket %q, want %q", result.Matches[0].Record.ID, created.ID)
	}
	if result.Matches[0].Score < 0.99 {
		t.Fatalf("identical query scored %f, want ~1", result.Matches[0].Score)
	}
}

func TestCreateTicketRejectsMissingFields(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"problem": "only a problem"})
	resp, err := http.Post(srv.URL+"/v1/tickets", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/tickets: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if er.Code != "missing_fields" {
		t.Fatalf("error code = %q, want missing_fields", er.Code)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"query": "   "})
	resp, err := http.Post(srv.URL+"/v1/tickets/search", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/tickets/search: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestEventsWSStreamsCallTurns(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/calls/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing events ws: %v", err)
	}
	defer conn.Close()

	postWebhook(t, srv, "/voice", url.Values{"CallSid": {"CA100"}, "From": {"+15550001111"}}).Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev call.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if ev.CallID != "CA100" {
		t.Fatalf("event call id = %q, want CA100", ev.CallID)
	}
	if ev.Speaker != call.SpeakerAgent || !strings.Contains(ev.Text, "describe the problem") {
		t.Fatalf("event = %+v, want the agent greeting", ev)
	}
}
