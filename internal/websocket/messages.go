package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/satriahrh/morsenet/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeMorse   MessageType = "morse"
	MessageTypeRelay   MessageType = "relay"
	MessageTypeWelcome MessageType = "welcome"
	MessageTypePing    MessageType = "ping"
	MessageTypePong    MessageType = "pong"
	MessageTypeError   MessageType = "error"
)

// Error codes carried by ErrorMessage
const (
	ErrorCodeInvalidMessage     = "invalid_message"
	ErrorCodeUnsupportedPayload = "unsupported_payload"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type" validate:"required"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id,omitempty"`
}

// MorseMessage carries Morse text typed by a browser peer
type MorseMessage struct {
	BaseMessage
	Morse string `json:"morse" validate:"required"`
}

// RelayMessage is a decoded message delivered to a peer
type RelayMessage struct {
	BaseMessage
	SenderID string `json:"sender_id"`
	Morse    string `json:"morse"`
	Text     string `json:"text"`
}

// WelcomeMessage tells a new peer its handle
type WelcomeMessage struct {
	BaseMessage
	PeerID string `json:"peer_id"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct {
	maxMorseLength int
}

// NewMessageValidator creates a new message validator. maxMorseLength <= 0
// leaves the Morse length unbounded.
func NewMessageValidator(maxMorseLength int) *MessageValidator {
	return &MessageValidator{maxMorseLength: maxMorseLength}
}

// ValidateMessage validates an incoming text message. Anything that is not a
// JSON object is taken as raw Morse text.
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	trimmed := bytes.TrimSpace(messageBytes)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty message")
	}
	if trimmed[0] != '{' {
		msg := &MorseMessage{
			BaseMessage: BaseMessage{Type: MessageTypeMorse, Timestamp: now()},
			Morse:       string(trimmed),
		}
		if err := v.validateMorse(msg); err != nil {
			return nil, err
		}
		return msg, nil
	}

	// First parse as base message to get type
	var base BaseMessage
	if err := json.Unmarshal(trimmed, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeMorse:
		var msg MorseMessage
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return nil, fmt.Errorf("invalid morse message: %w", err)
		}
		if msg.Timestamp == "" {
			msg.Timestamp = now()
		}
		if err := v.validateMorse(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	case "":
		return nil, fmt.Errorf("type is required")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func (v *MessageValidator) validateMorse(msg *MorseMessage) error {
	if strings.TrimSpace(msg.Morse) == "" {
		return fmt.Errorf("morse is required")
	}
	if v.maxMorseLength > 0 && len(msg.Morse) > v.maxMorseLength {
		return fmt.Errorf("morse exceeds %d bytes", v.maxMorseLength)
	}
	return nil
}

func now() string {
	return time.Now().Format(time.RFC3339)
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeError,
			Timestamp: now(),
		},
		Code:    code,
		Message: message,
		Details: details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypePong,
			Timestamp: now(),
		},
		Data: data,
	}
}

// CreateRelayMessage wraps a delivery for a browser peer
func CreateRelayMessage(d entities.Delivery) *RelayMessage {
	at := d.At
	if at.IsZero() {
		at = time.Now()
	}
	return &RelayMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeRelay,
			Timestamp: at.Format(time.RFC3339),
		},
		SenderID: d.SenderID,
		Morse:    d.Morse,
		Text:     d.Text,
	}
}

// CreateWelcomeMessage announces the peer handle assigned on connect
func CreateWelcomeMessage(peerID string) *WelcomeMessage {
	return &WelcomeMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeWelcome,
			Timestamp: now(),
		},
		PeerID: peerID,
	}
}
