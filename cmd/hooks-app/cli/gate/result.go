// Package gate executes configured gates: shell commands, gates borrowed
// from sibling plugins and built-in gates compiled into the binary.
package gate

// DecisionBlock is the only decision value a gate may return.
const DecisionBlock = "block"

// Result is what a gate reports back to the dispatcher.
type Result struct {
	// AdditionalContext is appended to the context returned to the host.
	AdditionalContext string `json:"additionalContext,omitempty"`

	// Decision is "block" to fail the gate.
	Decision string `json:"decision,omitempty"`

	// Reason accompanies a block decision.
	Reason string `json:"reason,omitempty"`

	// Continue set to false stops the host.
	Continue *bool `json:"continue,omitempty"`

	// Message accompanies a stop.
	Message string `json:"message,omitempty"`
}

// Passed reports whether a built-in gate's result counts as a pass: no
// block decision and continue not explicitly false.
func (r *Result) Passed() bool {
	if r == nil {
		return true
	}
	return r.Decision == "" && (r.Continue == nil || *r.Continue)
}

// Block builds a failing result with the given reason.
func Block(reason string) *Result {
	return &Result{Decision: DecisionBlock, Reason: reason}
}

// Stop builds a result that halts the host with message.
func Stop(message string) *Result {
	f := false
	return &Result{Continue: &f, Message: message}
}

// Context builds a passing result carrying text.
func Context(text string) *Result {
	return &Result{AdditionalContext: text}
}
