package dispatch

import (
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/config"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/gate"
)

// Default messages when a gate blocks or stops without saying why.
const (
	DefaultBlockReason = "Gate failed"
	DefaultStopMessage = "Gate stopped execution"
)

// Outcome is what the dispatcher does after a gate.
type Outcome struct {
	// Continue is false when dispatch ends here.
	Continue bool

	// Context is carried into the accumulated context.
	Context string

	BlockReason string
	StopMessage string

	// ChainedGate is queued next when the action named a gate.
	ChainedGate string
}

// ResolveAction applies an on_pass/on_fail token to a gate result.
// Tokens other than CONTINUE, BLOCK and STOP name the next gate to run.
func ResolveAction(token string, res *gate.Result) Outcome {
	if res == nil {
		res = &gate.Result{}
	}

	switch token {
	case config.ActionContinue:
		return Outcome{Continue: true, Context: res.AdditionalContext}

	case config.ActionBlock:
		reason := res.Reason
		if reason == "" {
			reason = DefaultBlockReason
		}
		return Outcome{BlockReason: reason}

	case config.ActionStop:
		msg := res.Message
		if msg == "" {
			msg = DefaultStopMessage
		}
		return Outcome{StopMessage: msg}

	default:
		return Outcome{Continue: true, Context: res.AdditionalContext, ChainedGate: token}
	}
}
