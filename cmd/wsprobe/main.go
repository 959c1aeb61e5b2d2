package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/satriahrh/morsenet/internal/websocket"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "relay WebSocket endpoint")
	morse := flag.String("morse", "... --- ...", "Morse to send once connected")
	wait := flag.Duration("wait", 5*time.Second, "how long to listen for relayed messages")
	flag.Parse()

	if err := probe(*url, *morse, *wait); err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(1)
	}
}

func probe(url, morse string, wait time.Duration) error {
	fmt.Printf("Connecting to: %s\n", url)
	conn, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	var welcome websocket.WelcomeMessage
	if err := readEnvelope(conn, time.Now().Add(wait), &welcome); err != nil {
		return fmt.Errorf("no welcome: %w", err)
	}
	fmt.Printf("✓ Connected as peer %s\n", welcome.PeerID)

	if err := conn.WriteJSON(map[string]string{"type": "ping", "data": "probe"}); err != nil {
		return fmt.Errorf("failed to send ping: %w", err)
	}

	if morse != "" {
		msg := websocket.MorseMessage{
			BaseMessage: websocket.BaseMessage{Type: websocket.MessageTypeMorse},
			Morse:       morse,
		}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("failed to send morse: %w", err)
		}
		fmt.Printf("✓ Sent %q\n", morse)
	}

	deadline := time.Now().Add(wait)
	for {
		var raw map[string]interface{}
		if err := readEnvelope(conn, deadline, &raw); err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				fmt.Println("✓ Done listening")
				return nil
			}
			return err
		}
		switch websocket.MessageType(fmt.Sprint(raw["type"])) {
		case websocket.MessageTypePong:
			fmt.Println("✓ Received pong")
		case websocket.MessageTypeRelay:
			fmt.Printf("<< %v (%v) from %v\n", raw["text"], raw["morse"], raw["sender_id"])
		case websocket.MessageTypeError:
			fmt.Printf("!! %v: %v\n", raw["error_code"], raw["message"])
		default:
			fmt.Printf("?? %v\n", raw)
		}
	}
}

func readEnvelope(conn *gorilla.Conn, deadline time.Time, v interface{}) error {
	if err := conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
