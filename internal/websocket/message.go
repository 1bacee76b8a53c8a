package websocket

import (
	"encoding/json"
	"time"

	"postline-server/internal/domain"
)

type MessageType string

const (
	TypePostCreated MessageType = domain.EventPostCreated
	TypePostUpdated MessageType = domain.EventPostUpdated
	TypePostDeleted MessageType = domain.EventPostDeleted
	TypeWelcome     MessageType = "welcome"
	TypeError       MessageType = "error"
	TypePing        MessageType = "ping"
	TypePong        MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type WelcomePayload struct {
	ClientID      string `json:"client_id"`
	Authenticated bool   `json:"authenticated"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
