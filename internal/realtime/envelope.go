package realtime

import "encoding/json"

// Outbound event types.
const (
	TypePong             = "pong"
	TypeError            = "error"
	TypeTyping           = "typing"
	TypeNewMessage       = "new_message"
	TypeMessageEdited    = "message_edited"
	TypeMessageDeleted   = "message_deleted"
	TypeMessagesRead     = "messages_read"
	TypeReaction         = "reaction"
	TypeNewMatch         = "new_match"
	TypeNewLike          = "new_like"
	TypeNotification     = "notification"
	TypeCallIncoming     = "call_incoming"
	TypeCallAnswered     = "call_answered"
	TypeCallRejected     = "call_rejected"
	TypeCallEnded        = "call_ended"
	TypeWebRTCSignal     = "webrtc_signal"
	TypeIcebreakerAnswer = "icebreaker_answer"
	TypeGiftReceived     = "gift_received"
)

// Inbound types.
const (
	InPing         = "ping"
	InTyping       = "typing"
	InWebRTCSignal = "webrtc_signal"
)

// Event is a flat {type, ...} envelope.
type Event map[string]any

// NewEvent copies fields into an envelope of the given type.
func NewEvent(typ string, fields map[string]any) Event {
	ev := make(Event, len(fields)+1)
	for k, v := range fields {
		ev[k] = v
	}
	ev["type"] = typ
	return ev
}

// Type returns the envelope type or "".
func (e Event) Type() string {
	t, _ := e["type"].(string)
	return t
}

// Inbound is a frame received from a client.
type Inbound struct {
	Type       string          `json:"type"`
	MatchID    string          `json:"match_id,omitempty"`
	IsTyping   bool            `json:"is_typing,omitempty"`
	CallID     string          `json:"call_id,omitempty"`
	SignalType string          `json:"signal_type,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}
