package websocket

import (
	"encoding/json"

	"github.com/isdelr/goodcontent-auth/internal/models"
	"github.com/rs/zerolog/log"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

const (
	ActionEvent = "event"
	ActionError = "error"
)

// NewEventMessage encodes an audit event for listeners.
func NewEventMessage(event models.Event) []byte {
	return encode(Message{Action: ActionEvent, Payload: event})
}

// NewErrorMessage encodes an error notice for a single client.
func NewErrorMessage(text string) []byte {
	return encode(Message{Action: ActionError, Payload: map[string]string{"error": text}})
}

func encode(msg Message) []byte {
	b, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("action", msg.Action).Msg("Failed to encode websocket message")
		return nil
	}
	return b
}
