package api

import (
	"time"

	"github.com/satriahrh/morsenet/domain/morse"
)

// HealthResponse is returned by the health check
type HealthResponse struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	InstanceID string `json:"instance_id"`
	Peers      int    `json:"peers"`
}

// PeerResponse describes one connected peer
type PeerResponse struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	Transport   string    `json:"transport"`
	ConnectedAt time.Time `json:"connected_at"`
}

// PeersResponse lists the connected peers
type PeersResponse struct {
	Count int            `json:"count"`
	Peers []PeerResponse `json:"peers"`
}

// DecodeRequest represents the request payload for decoding Morse text
type DecodeRequest struct {
	Morse string `json:"morse" validate:"required"`
	// Mode overrides the relay's decode mode: "lenient" or "strict"
	Mode string `json:"mode,omitempty"`
}

// DecodeResponse represents the decoded text
type DecodeResponse struct {
	Morse string `json:"morse"`
	Text  string `json:"text"`
	Mode  string `json:"mode"`
}

// EncodeRequest represents the request payload for encoding plain text
type EncodeRequest struct {
	Text string `json:"text" validate:"required"`
}

// EncodeResponse represents the encoded Morse text
type EncodeResponse struct {
	Text  string `json:"text"`
	Morse string `json:"morse"`
}

// TableResponse is the code table
type TableResponse struct {
	Entries []morse.Entry `json:"entries"`
}

// ShutdownResponse acknowledges an operator shutdown request
type ShutdownResponse struct {
	Status   string `json:"status"`
	Operator string `json:"operator"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
