package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/savir/supportline/internal/call"
	"github.com/savir/supportline/internal/config"
	"github.com/savir/supportline/internal/observability"
	"github.com/savir/supportline/internal/provider"
	"github.com/savir/supportline/internal/telephony"
	"github.com/savir/supportline/internal/ticket"
)

type Server struct {
	cfg      config.Config
	engine   *call.Engine
	renderer telephony.Renderer
	tickets  ticket.Store
	provider provider.Provider
	metrics  *observability.Metrics
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func New(
	cfg config.Config,
	engine *call.Engine,
	tickets ticket.Store,
	p provider.Provider,
	metrics *observability.Metrics,
	log *logrus.Logger,
) *Server {
	return &Server{
		cfg:      cfg,
		engine:   engine,
		renderer: telephony.NewRenderer("/gather"),
		tickets:  tickets,
		provider: p,
		metrics:  metrics,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser clients may observe live calls
				// unless the operator explicitly opens it up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/voice", s.handleVoice)
	r.Post("/gather", s.handleGather)
	r.Post("/hangup", s.handleHangup)

	r.Post("/v1/tickets", s.handleCreateTicket)
	r.Post("/v1/tickets/search", s.handleSearchTickets)
	r.Get("/v1/calls/events/ws", s.handleEventsWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ready",
		"active_calls": s.engine.Registry().Count(),
	})
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	s.respondTwiML(w, s.engine.HandleTurn(r.Context(), telephony.StartEvent(r)))
}

func (s *Server) handleGather(w http.ResponseWriter, r *http.Request) {
	s.respondTwiML(w, s.engine.HandleTurn(r.Context(), telephony.GatherEvent(r)))
}

// handleHangup accepts the gateway's status callback. The caller is already
// gone, so the body is empty and always 204.
func (s *Server) handleHangup(w http.ResponseWriter, r *http.Request) {
	s.engine.HandleTurn(r.Context(), telephony.HangupEvent(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondTwiML(w http.ResponseWriter, resp call.Response) {
	doc, err := s.renderer.Render(resp)
	if err != nil {
		s.log.WithError(err).Error("twiml rendering failed")
		respondError(w, http.StatusInternalServerError, "twiml_render_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

type createTicketRequest struct {
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	req.Problem = strings.TrimSpace(req.Problem)
	req.Solution = strings.TrimSpace(req.Solution)
	if req.Problem == "" || req.Solution == "" {
		respondError(w, http.StatusBadRequest, "missing_fields", "problem and solution are required")
		return
	}

	embedding, err := s.provider.Embed(r.Context(), req.Problem)
	if err != nil {
		s.metrics.ProviderErrors.WithLabelValues("embed").Inc()
		respondError(w, http.StatusBadGateway, "embedding_failed", err.Error())
		return
	}

	rec, err := s.tickets.Add(r.Context(), ticket.Record{
		Problem:   req.Problem,
		Solution:  req.Solution,
		Embedding: embedding,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ticket_store_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

type searchTicketsRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type searchTicketsResponse struct {
	Matches []ticket.Match `json:"matches"`
}

func (s *Server) handleSearchTickets(w http.ResponseWriter, r *http.Request) {
	var req searchTicketsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "missing_query", "query is required")
		return
	}
	if req.K <= 0 {
		req.K = s.cfg.SearchTopK
	}

	embedding, err := s.provider.Embed(r.Context(), req.Query)
	if err != nil {
		s.metrics.ProviderErrors.WithLabelValues("embed").Inc()
		respondError(w, http.StatusBadGateway, "embedding_failed", err.Error())
		return
	}

	matches, err := s.tickets.TopK(r.Context(), embedding, req.K)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ticket_store_failed", err.Error())
		return
	}
	if matches == nil {
		matches = []ticket.Match{}
	}
	respondJSON(w, http.StatusOK, searchTicketsResponse{Matches: matches})
}

// handleEventsWS streams live call events to an operator dashboard. Slow
// consumers miss events rather than stalling calls; the hub drops on a full
// buffer.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := s.engine.Hub().Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	// Read pump: we never expect client frames, but reading is the only way
	// to notice the peer going away.
	go func() {
		defer stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
