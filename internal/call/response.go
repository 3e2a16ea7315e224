package call

// ResponseKind tells the transport whether to keep listening or hang up.
type ResponseKind int

const (
	// KindPrompt speaks the text and gathers the caller's next utterance.
	KindPrompt ResponseKind = iota
	// KindTerminal speaks the text and ends the call.
	KindTerminal
)

// Response is the engine's answer to one inbound turn.
type Response struct {
	Kind ResponseKind
	Text string
}

func Prompt(text string) Response   { return Response{Kind: KindPrompt, Text: text} }
func Terminal(text string) Response { return Response{Kind: KindTerminal, Text: text} }
