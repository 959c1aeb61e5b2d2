package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/satriahrh/morsenet/domain/entities"
)

func TestMessageValidator_ValidateMorse(t *testing.T) {
	validator := NewMessageValidator(16)

	tests := []struct {
		name      string
		message   string
		wantMorse string
		wantErr   bool
	}{
		{
			name:      "json envelope",
			message:   `{"type": "morse", "morse": "... --- ..."}`,
			wantMorse: "... --- ...",
		},
		{
			name:      "raw morse text",
			message:   ".... ..",
			wantMorse: ".... ..",
		},
		{
			name:      "raw text is trimmed",
			message:   "  .-  \n",
			wantMorse: ".-",
		},
		{
			name:    "missing morse",
			message: `{"type": "morse"}`,
			wantErr: true,
		},
		{
			name:    "blank morse",
			message: `{"type": "morse", "morse": "   "}`,
			wantErr: true,
		},
		{
			name:    "too long",
			message: strings.Repeat(".", 17),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.ValidateMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			msg, ok := result.(*MorseMessage)
			if !ok {
				t.Fatalf("Expected *MorseMessage, got %T", result)
			}
			if msg.Morse != tt.wantMorse {
				t.Errorf("Expected morse %q, got %q", tt.wantMorse, msg.Morse)
			}
			if msg.Type != MessageTypeMorse {
				t.Errorf("Expected type %s, got %s", MessageTypeMorse, msg.Type)
			}
			if msg.Timestamp == "" {
				t.Error("Expected timestamp to be filled in")
			}
		})
	}
}

func TestMessageValidator_ValidatePing(t *testing.T) {
	validator := NewMessageValidator(0)

	message := `{
		"type": "ping",
		"data": "test-ping"
	}`

	result, err := validator.ValidateMessage([]byte(message))
	if err != nil {
		t.Fatalf("ValidateMessage() error = %v", err)
	}

	pingMsg, ok := result.(*PingMessage)
	if !ok {
		t.Fatalf("Expected *PingMessage, got %T", result)
	}

	if pingMsg.Data != "test-ping" {
		t.Errorf("Expected data 'test-ping', got '%s'", pingMsg.Data)
	}
}

func TestMessageValidator_InvalidJSON(t *testing.T) {
	validator := NewMessageValidator(0)

	invalidMessages := []string{
		`{invalid json}`,
		`{"type": "morse", "morse":}`,
		``,
		`   `,
		`{"type": }`,
		`{"morse": "..."}`,
	}

	for i, msg := range invalidMessages {
		t.Run(fmt.Sprintf("invalid_json_%d", i), func(t *testing.T) {
			_, err := validator.ValidateMessage([]byte(msg))
			if err == nil {
				t.Errorf("Expected error for invalid message, got nil")
			}
		})
	}
}

func TestMessageValidator_UnsupportedMessageType(t *testing.T) {
	validator := NewMessageValidator(0)

	// peers may not inject relay envelopes
	for _, message := range []string{
		`{"type": "unsupported_type", "data": "some data"}`,
		`{"type": "relay", "text": "SOS"}`,
	} {
		if _, err := validator.ValidateMessage([]byte(message)); err == nil {
			t.Errorf("Expected error for %s, got nil", message)
		}
	}
}

func TestCreateErrorMessage(t *testing.T) {
	errorMsg := CreateErrorMessage(ErrorCodeInvalidMessage, "Test error message", "Test error details")

	if errorMsg.Type != MessageTypeError {
		t.Errorf("Expected type %s, got %s", MessageTypeError, errorMsg.Type)
	}
	if errorMsg.Code != ErrorCodeInvalidMessage {
		t.Errorf("Expected code %s, got %s", ErrorCodeInvalidMessage, errorMsg.Code)
	}
	if errorMsg.Details != "Test error details" {
		t.Errorf("Expected details, got %s", errorMsg.Details)
	}

	// Verify timestamp is recent
	timestamp, err := time.Parse(time.RFC3339, errorMsg.Timestamp)
	if err != nil {
		t.Errorf("Invalid timestamp format: %v", err)
	}
	if time.Since(timestamp) > 2*time.Second {
		t.Errorf("Timestamp is not recent: %s", errorMsg.Timestamp)
	}
}

func TestCreatePongMessage(t *testing.T) {
	pongMsg := CreatePongMessage("test-pong-data")

	if pongMsg.Type != MessageTypePong {
		t.Errorf("Expected type %s, got %s", MessageTypePong, pongMsg.Type)
	}
	if pongMsg.Data != "test-pong-data" {
		t.Errorf("Expected data test-pong-data, got %s", pongMsg.Data)
	}
}

func TestCreateRelayMessage(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := CreateRelayMessage(entities.Delivery{SenderID: "peer-1", Morse: "... --- ...", Text: "SOS", At: at})

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal message: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	want := map[string]string{
		"type":      "relay",
		"timestamp": "2024-05-01T12:00:00Z",
		"sender_id": "peer-1",
		"morse":     "... --- ...",
		"text":      "SOS",
	}
	for key, value := range want {
		if result[key] != value {
			t.Errorf("Expected %s=%q, got %v", key, value, result[key])
		}
	}
}

func BenchmarkMessageValidation(b *testing.B) {
	validator := NewMessageValidator(0)
	message := []byte(`{"type": "morse", "morse": ".... . .-.. .-.. --- / .-- --- .-. .-.. -.."}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = validator.ValidateMessage(message)
	}
}
