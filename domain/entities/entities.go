package entities

import (
	"errors"
	"time"
)

// Transport identifies how a peer reached the relay
type Transport string

const (
	TransportTCP       Transport = "tcp"
	TransportWebSocket Transport = "websocket"
)

// PeerInfo describes one connected peer
type PeerInfo struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	Transport   Transport `json:"transport"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Delivery is one decoded message fanned out to peers
type Delivery struct {
	SenderID string    `json:"sender_id,omitempty"`
	Morse    string    `json:"morse"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}

// RelayedMessage is the envelope exchanged between relay instances
type RelayedMessage struct {
	InstanceID string    `json:"instance_id"`
	SenderID   string    `json:"sender_id"`
	Morse      string    `json:"morse"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
}

// Delivery converts the envelope into a local delivery
func (m RelayedMessage) Delivery() Delivery {
	return Delivery{
		SenderID: m.SenderID,
		Morse:    m.Morse,
		Text:     m.Text,
		At:       m.SentAt,
	}
}

func (p *PeerInfo) Validate() error {
	if p.ID == "" {
		return errors.New("peer id is required")
	}
	if p.Transport != TransportTCP && p.Transport != TransportWebSocket {
		return errors.New("invalid transport")
	}
	return nil
}

func (m *RelayedMessage) Validate() error {
	if m.InstanceID == "" {
		return errors.New("instance_id is required")
	}
	if m.Morse == "" && m.Text == "" {
		return errors.New("message is empty")
	}
	return nil
}
