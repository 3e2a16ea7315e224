// Package telephony adapts Twilio voice webhooks to engine turn events and
// renders engine responses back to TwiML. All protocol decisions live in the
// call package; this one only translates.
package telephony

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/savir/supportline/internal/call"
)

func formValues(r *http.Request) (callID, phone, speech string) {
	callID = strings.TrimSpace(r.FormValue("CallSid"))
	if callID == "" {
		// Synthesize an id so a malformed webhook still gets a coherent,
		// if short-lived, session.
		callID = uuid.NewString()
	}
	phone = strings.TrimSpace(r.FormValue("From"))
	speech = strings.TrimSpace(r.FormValue("SpeechResult"))
	return callID, phone, speech
}

// StartEvent maps the initial /voice webhook to a call-start turn.
func StartEvent(r *http.Request) call.TurnEvent {
	callID, phone, _ := formValues(r)
	return call.TurnEvent{CallID: callID, Phone: phone, Kind: call.TurnStart}
}

// GatherEvent maps a /gather webhook to a speech turn, or a no-input turn
// when Twilio posted back without a transcription.
func GatherEvent(r *http.Request) call.TurnEvent {
	callID, phone, speech := formValues(r)
	if speech == "" {
		return call.TurnEvent{CallID: callID, Phone: phone, Kind: call.TurnNoInput}
	}
	return call.TurnEvent{CallID: callID, Phone: phone, Speech: speech, Kind: call.TurnSpeech}
}

// HangupEvent maps a status-callback hangup to a teardown turn.
func HangupEvent(r *http.Request) call.TurnEvent {
	callID, phone, _ := formValues(r)
	return call.TurnEvent{CallID: callID, Phone: phone, Kind: call.TurnHangup}
}
