package stream

// Event names, in the order a client may observe them. Every session emits
// meta, zero or more tokens, exactly one of result/error, then done.
const (
	EventMeta   = "meta"
	EventToken  = "token"
	EventResult = "result"
	EventError  = "error"
	EventDone   = "done"
)

// Event is one client-visible stream event. Data is JSON-marshaled by the
// transport; done carries an empty object.
type Event struct {
	Name string
	Data any
}

// MetaPayload carries the durable session identifier, emitted first.
type MetaPayload struct {
	SessionID string `json:"session_id"`
}

// TokenPayload carries one decoded line of model output.
type TokenPayload struct {
	Chunk string `json:"chunk"`
}

// ErrorPayload is the terminal error event body.
type ErrorPayload struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Sink delivers events to the client. Implementations must preserve send
// order; a Send error means the client can no longer be reached.
type Sink interface {
	Send(e Event) error
}
