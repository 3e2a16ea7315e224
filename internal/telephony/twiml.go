package telephony

import (
	"github.com/twilio/twilio-go/twiml"

	"github.com/savir/supportline/internal/call"
)

const (
	gatherTimeout       = "15"
	gatherSpeechTimeout = "5"
	noInputFallthrough  = "I didn't receive any input. Thank you for calling. Goodbye!"
)

// Renderer turns engine responses into TwiML documents.
type Renderer struct {
	// GatherAction is the webhook path Twilio posts transcribed speech to.
	GatherAction string
}

func NewRenderer(gatherAction string) Renderer {
	if gatherAction == "" {
		gatherAction = "/gather"
	}
	return Renderer{GatherAction: gatherAction}
}

// Render produces the TwiML for one engine response: a prompt speaks and
// gathers the next utterance, a terminal response speaks and hangs up.
func (r Renderer) Render(resp call.Response) (string, error) {
	switch resp.Kind {
	case call.KindPrompt:
		gather := &twiml.VoiceGather{
			Input:         "speech",
			Action:        r.GatherAction,
			Method:        "POST",
			Timeout:       gatherTimeout,
			SpeechTimeout: gatherSpeechTimeout,
			InnerElements: []twiml.Element{
				&twiml.VoiceSay{Message: resp.Text},
			},
		}
		// Twilio falls through here only when the gather never posts back.
		return twiml.Voice([]twiml.Element{
			gather,
			&twiml.VoiceSay{Message: noInputFallthrough},
			&twiml.VoiceHangup{},
		})
	default:
		elements := []twiml.Element{}
		if resp.Text != "" {
			elements = append(elements, &twiml.VoiceSay{Message: resp.Text})
		}
		elements = append(elements, &twiml.VoiceHangup{})
		return twiml.Voice(elements)
	}
}
