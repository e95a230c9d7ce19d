package ws

import (
	"encoding/json"

	"auction-node/internal/domain"
)

// Request is one RPC call over a websocket session. Origin is the public
// identity of the node whose client initiated the mutation; it is empty on
// client-originated calls and stamped on peer replication traffic.
type Request struct {
	ID      string          `json:"id"`
	Action  domain.Action   `json:"action"`
	Origin  string          `json:"origin,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

type Response struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorPayload   `json:"error,omitempty"`
}

type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// responseError converts a wire error back into the domain taxonomy so the
// caller sees the same kind the remote handler produced.
func responseError(payload *ErrorPayload) error {
	if payload == nil {
		return domain.NewError(domain.KindMalformedRequest, "response carried no error detail")
	}
	return domain.NewError(domain.ErrorKind(payload.Kind), "%s", payload.Message)
}

// internalError labels failures that are not part of the caller-facing
// taxonomy, such as a storage error inside a handler.
const internalError = "InternalError"

// errorPayload renders any error for the wire, preserving taxonomy kinds.
func errorPayload(err error) *ErrorPayload {
	if kind := domain.KindOf(err); kind != "" {
		return &ErrorPayload{Kind: string(kind), Message: err.Error()}
	}
	return &ErrorPayload{Kind: internalError, Message: err.Error()}
}
