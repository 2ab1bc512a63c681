package websocket

import "encoding/json"

// Envelope message types.
const (
	TypePing        = "ping"
	TypePong        = "pong"
	TypeAck         = "ack"
	TypeError       = "error"
	TypeEventUpdate = "event_update"
	TypeInboxUpdate = "inbox_update"
)

// Error details sent back to clients in error envelopes.
const (
	DetailInvalidJSON    = "invalid_json"
	DetailInvalidMessage = "invalid_message"
	DetailUnknownType    = "unknown_type"
	DetailInternalError  = "internal_error"
)

// Envelope is the wire format for every message in both directions:
// a type tag plus a free-form JSON object payload.
type Envelope struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Decode parses an inbound frame in two stages. Malformed JSON yields
// DetailInvalidJSON; well-formed JSON that is not an object with a
// string "type" (and an optional object "payload") yields
// DetailInvalidMessage. A missing payload defaults to an empty object.
func Decode(data []byte) (Envelope, string) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, DetailInvalidJSON
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return Envelope{}, DetailInvalidMessage
	}

	msgType, ok := obj["type"].(string)
	if !ok || msgType == "" {
		return Envelope{}, DetailInvalidMessage
	}

	payload := map[string]any{}
	if rawPayload, exists := obj["payload"]; exists {
		payload, ok = rawPayload.(map[string]any)
		if !ok {
			return Envelope{}, DetailInvalidMessage
		}
	}

	return Envelope{Type: msgType, Payload: payload}, ""
}

// Marshal encodes the envelope for the wire.
func (e Envelope) Marshal() ([]byte, error) {
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	return json.Marshal(e)
}

// NewPong builds the reply to a client ping.
func NewPong() Envelope {
	return Envelope{Type: TypePong, Payload: map[string]any{}}
}

// NewAck acknowledges a successfully processed message.
func NewAck(receivedType string) Envelope {
	return Envelope{Type: TypeAck, Payload: map[string]any{
		"received_type": receivedType,
		"status":        "ok",
	}}
}

// NewError builds an error envelope with a machine-readable detail.
func NewError(detail string) Envelope {
	return Envelope{Type: TypeError, Payload: map[string]any{"detail": detail}}
}
