package call

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savir/supportline/internal/dialogue"
	"github.com/savir/supportline/internal/escalation"
	"github.com/savir/supportline/internal/insight"
	"github.com/savir/supportline/internal/matcher"
	"github.com/savir/supportline/internal/observability"
)

// TurnKind classifies an inbound telephony event.
type TurnKind int

const (
	TurnStart TurnKind = iota
	TurnSpeech
	TurnNoInput
	TurnHangup
)

// TurnEvent is one normalized inbound event for a call.
type TurnEvent struct {
	CallID string
	Phone  string
	Speech string
	Kind   TurnKind
}

const (
	greetingUtterance = "Hello! Thank you for calling our support line. " +
		"Please describe the problem you are experiencing."
	resolvedUtterance = "I'm glad I could help resolve your issue! " +
		"Thank you for calling. Have a great day!"
	escalatedUtterance = "I understand this issue requires further attention. " +
		"I'm escalating your case to our specialist team who will contact you shortly. " +
		"Thank you for your patience."
	finalCheckQuestion = "Before I connect you with a specialist, let me check one more time: " +
		"is your problem resolved now?"
	noInputFarewell = "I didn't hear anything. Thank you for calling. Goodbye!"
	panicApology    = "I'm sorry, we ran into a technical problem on our end. " +
		"Please call back and we'll pick up from there. Goodbye!"

	matchOfferTemplate = "I found a similar issue that was resolved before. " +
		"The problem was: %s. The solution that worked was: %s. " +
		"Did this solution help resolve your issue?"
)

// Engine drives the per-call conversation protocol. All decisions for one
// call happen under that call's session lock; the engine itself is safe for
// concurrent use across calls.
type Engine struct {
	registry    *Registry
	matcher     *matcher.Matcher
	generator   *dialogue.Generator
	detector    *dialogue.Detector
	escalations escalation.Store
	recorder    *insight.Recorder
	hub         *Hub
	metrics     *observability.Metrics
	log         *logrus.Logger
	maxRounds   int
}

func NewEngine(
	registry *Registry,
	m *matcher.Matcher,
	gen *dialogue.Generator,
	det *dialogue.Detector,
	esc escalation.Store,
	rec *insight.Recorder,
	hub *Hub,
	metrics *observability.Metrics,
	log *logrus.Logger,
	maxRounds int,
) *Engine {
	if maxRounds <= 0 {
		maxRounds = 5
	}
	e := &Engine{
		registry:    registry,
		matcher:     m,
		generator:   gen,
		detector:    det,
		escalations: esc,
		recorder:    rec,
		hub:         hub,
		metrics:     metrics,
		log:         log,
		maxRounds:   maxRounds,
	}
	registry.SetExpireHook(e.onExpire)
	return e
}

// HandleTurn processes one inbound event and returns what the caller should
// hear next. It never returns an error: any internal fault becomes a spoken
// apology and the call ends.
func (e *Engine) HandleTurn(ctx context.Context, ev TurnEvent) (resp Response) {
	started := time.Now()
	defer func() {
		e.metrics.ObserveTurnLatency(time.Since(started))
		if rec := recover(); rec != nil {
			e.log.WithFields(logrus.Fields{"call_id": ev.CallID, "panic": rec}).
				Error("turn handling panicked")
			e.teardownByID(ev.CallID, false)
			resp = Terminal(panicApology)
		}
	}()

	switch ev.Kind {
	case TurnStart:
		return e.handleStart(ev)
	case TurnSpeech:
		return e.handleSpeech(ctx, ev)
	case TurnNoInput:
		return e.handleNoInput(ctx, ev)
	case TurnHangup:
		e.teardownByID(ev.CallID, false)
		return Terminal("")
	default:
		return Terminal(panicApology)
	}
}

func (e *Engine) handleStart(ev TurnEvent) Response {
	s := e.registry.GetOrCreate(ev.CallID)
	s.lock()
	if ev.Phone != "" {
		s.PhoneNumber = ev.Phone
	}
	s.touch()
	s.appendTurn(SpeakerAgent, greetingUtterance)
	e.publish(s, SpeakerAgent, greetingUtterance)
	s.unlock()

	e.metrics.ActiveCalls.Set(float64(e.registry.Count()))
	e.log.WithFields(logrus.Fields{"call_id": ev.CallID, "phone": ev.Phone}).
		Info("call started")
	return Prompt(greetingUtterance)
}

func (e *Engine) handleSpeech(ctx context.Context, ev TurnEvent) Response {
	s := e.registry.GetOrCreate(ev.CallID)
	s.lock()
	defer s.unlock()

	if s.closed || s.State.Terminal() {
		return Terminal(resolvedUtterance)
	}
	if ev.Phone != "" && s.PhoneNumber == "" {
		s.PhoneNumber = ev.Phone
	}
	s.touch()
	s.appendTurn(SpeakerCaller, ev.Speech)
	e.publish(s, SpeakerCaller, ev.Speech)

	switch s.State {
	case StateInitial:
		return e.classifyProblem(ctx, s, ev.Speech)
	case StateTroubleshooting:
		return e.troubleshoot(ctx, s, ev.Speech)
	case StateFinalCheck:
		return e.finalCheck(ctx, s, ev.Speech)
	default:
		return Terminal(panicApology)
	}
}

// classifyProblem handles the caller's first problem statement: search the
// knowledge base and either offer the best prior solution or open an
// interactive troubleshooting dialogue.
func (e *Engine) classifyProblem(ctx context.Context, s *Session, problem string) Response {
	s.InitialProblem = problem

	res := e.matcher.Match(ctx, problem)
	var text string
	switch {
	case res.HighConfidence:
		best := res.Best().Record
		s.SuggestedSolution = best.Solution
		text = fmt.Sprintf(matchOfferTemplate, best.Problem, best.Solution)
		e.metrics.MatcherQueries.WithLabelValues("high").Inc()
	case len(res.Matches) > 0:
		text = e.generator.OpeningQuestion(ctx, problem)
		e.metrics.MatcherQueries.WithLabelValues("low").Inc()
	default:
		text = e.generator.OpeningQuestion(ctx, problem)
		e.metrics.MatcherQueries.WithLabelValues("none").Inc()
	}

	s.State = StateTroubleshooting
	s.appendTurn(SpeakerAgent, text)
	e.publish(s, SpeakerAgent, text)
	return Prompt(text)
}

func (e *Engine) troubleshoot(ctx context.Context, s *Session, speech string) Response {
	if e.detector.Detect(speech) {
		return e.resolve(s)
	}

	s.TroubleshootRounds++
	if s.TroubleshootRounds >= e.maxRounds {
		s.State = StateFinalCheck
		s.appendTurn(SpeakerAgent, finalCheckQuestion)
		e.publish(s, SpeakerAgent, finalCheckQuestion)
		return Prompt(finalCheckQuestion)
	}

	text := e.generator.NextQuestion(ctx, s.InitialProblem, speech, s.transcriptLines())
	s.appendTurn(SpeakerAgent, text)
	e.publish(s, SpeakerAgent, text)
	return Prompt(text)
}

func (e *Engine) finalCheck(ctx context.Context, s *Session, speech string) Response {
	if e.detector.Detect(speech) {
		return e.resolve(s)
	}
	return e.escalate(ctx, s)
}

// resolve finishes the call in the resolved state. Caller holds the
// session lock.
func (e *Engine) resolve(s *Session) Response {
	s.State = StateResolved
	s.Resolved = true
	s.appendTurn(SpeakerAgent, resolvedUtterance)
	e.publish(s, SpeakerAgent, resolvedUtterance)
	e.finish(s, "resolved")
	return Terminal(resolvedUtterance)
}

// escalate finishes the call in the escalated state and persists the record
// for human follow-up. Persistence failure is logged, not spoken: the caller
// still hears the handoff. Caller holds the session lock.
func (e *Engine) escalate(ctx context.Context, s *Session) Response {
	s.State = StateEscalated
	rec := escalation.Record{
		CallID:     s.ID,
		Problem:    s.InitialProblem,
		Transcript: s.transcriptLines(),
		Status:     escalation.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.escalations.Upsert(ctx, rec); err != nil {
		e.log.WithError(err).WithField("call_id", s.ID).
			Error("failed to persist escalation record")
	}
	s.appendTurn(SpeakerAgent, escalatedUtterance)
	e.publish(s, SpeakerAgent, escalatedUtterance)
	e.finish(s, "escalated")
	return Terminal(escalatedUtterance)
}

func (e *Engine) handleNoInput(ctx context.Context, ev TurnEvent) Response {
	s, ok := e.registry.Peek(ev.CallID)
	if !ok {
		return Terminal(noInputFarewell)
	}
	s.lock()
	if s.closed || s.State.Terminal() {
		s.unlock()
		return Terminal(noInputFarewell)
	}
	// Silence at the final check counts as a non-confirmation.
	if s.State == StateFinalCheck {
		defer s.unlock()
		return e.escalate(ctx, s)
	}
	s.appendTurn(SpeakerAgent, noInputFarewell)
	e.publish(s, SpeakerAgent, noInputFarewell)
	e.finish(s, "no_input")
	s.unlock()
	return Terminal(noInputFarewell)
}

// finish closes the session, schedules the insight submission, and drops the
// session from the registry. Caller holds the session lock.
func (e *Engine) finish(s *Session, outcome string) {
	s.closed = true
	e.metrics.CallOutcomes.WithLabelValues(outcome).Inc()
	e.recordInsight(s)
	e.registry.Remove(s.ID)
	e.metrics.ActiveCalls.Set(float64(e.registry.Count()))
	e.log.WithFields(logrus.Fields{
		"call_id": s.ID,
		"outcome": outcome,
		"rounds":  s.TroubleshootRounds,
	}).Info("call finished")
}

// teardownByID handles hangups and internal faults: freeze the session
// where it is and submit whatever transcript exists.
func (e *Engine) teardownByID(callID string, resolved bool) {
	s, ok := e.registry.Peek(callID)
	if !ok {
		return
	}
	s.lock()
	if s.closed {
		s.unlock()
		return
	}
	s.closed = true
	if resolved {
		s.Resolved = true
	}
	e.metrics.CallOutcomes.WithLabelValues("hangup").Inc()
	e.recordInsight(s)
	s.unlock()

	e.registry.Remove(callID)
	e.metrics.ActiveCalls.Set(float64(e.registry.Count()))
	e.log.WithField("call_id", callID).Info("call torn down")
}

// onExpire is the registry janitor hook: an abandoned call still yields its
// insight before the session is forgotten.
func (e *Engine) onExpire(s *Session) {
	s.lock()
	e.metrics.CallOutcomes.WithLabelValues("expired").Inc()
	e.recordInsight(s)
	s.unlock()
	e.metrics.ActiveCalls.Set(float64(e.registry.Count()))
}

// recordInsight hands the transcript to the analytics recorder off the
// response path. Caller holds the session lock; the snapshot is taken before
// the goroutine starts so the detached work never touches the session.
func (e *Engine) recordInsight(s *Session) {
	sum := insight.Summary{
		CallID:     s.ID,
		Phone:      s.PhoneNumber,
		Transcript: s.transcriptLines(),
		Solved:     s.Resolved,
	}
	if len(sum.Transcript) == 0 {
		return
	}
	go e.recorder.Record(context.Background(), sum)
}

// publish emits one live event for observers. Caller holds the session lock;
// Hub delivery is non-blocking so this never stalls a turn.
func (e *Engine) publish(s *Session, speaker Speaker, text string) {
	if e.hub == nil {
		return
	}
	e.hub.Publish(Event{
		CallID:  s.ID,
		State:   s.State,
		Speaker: speaker,
		Text:    text,
		At:      time.Now().UTC(),
	})
}

// Registry exposes the engine's session registry for read-side surfaces.
func (e *Engine) Registry() *Registry { return e.registry }

// Hub exposes the live event hub for websocket subscribers.
func (e *Engine) Hub() *Hub { return e.hub }
