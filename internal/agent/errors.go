package agent

import "errors"

// Tool execution failure classes. All three are recovered locally: the
// failure is recorded as an invocation and fed back to the model as an
// error payload, never raised out of the reasoning loop.
var (
	ErrUnknownTool       = errors.New("unknown tool")
	ErrInvalidParameters = errors.New("invalid tool parameters")
	ErrToolTimeout       = errors.New("tool execution timeout")
)

// FallbackMessage is returned when the iteration budget is exhausted
// without the model producing a final answer.
const FallbackMessage = "I apologize, I'm having trouble processing that request at the moment. Could you rephrase or try something simpler?"
