package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/morsenet/domain/entities"
	"github.com/satriahrh/morsenet/internal/framing"
	"github.com/satriahrh/morsenet/internal/registry"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Outbound queue per browser peer.
	sendQueueSize = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// FrameHandler consumes Morse frames sent by peers
type FrameHandler interface {
	HandleFrame(ctx context.Context, origin entities.PeerInfo, frame []byte) string
}

// Gateway admits browser peers into the relay's broadcast domain
type Gateway struct {
	registry     *registry.Registry
	handler      FrameHandler
	validator    *MessageValidator
	maxFrameSize int
	logger       *zap.Logger
}

// NewGateway creates a WebSocket gateway sharing reg with the TCP relay
func NewGateway(reg *registry.Registry, handler FrameHandler, maxFrameSize int, logger *zap.Logger) *Gateway {
	if maxFrameSize <= 0 {
		maxFrameSize = framing.DefaultMaxFrameSize
	}
	return &Gateway{
		registry:     reg,
		handler:      handler,
		validator:    NewMessageValidator(maxFrameSize),
		maxFrameSize: maxFrameSize,
		logger:       logger,
	}
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.CloseMessage
	Type    int
	Payload []byte
}

// Client is a browser peer. It satisfies registry.Peer.
type Client struct {
	gateway *Gateway

	// The websocket connection.
	conn *websocket.Conn

	info entities.PeerInfo

	// Buffered channel of outbound messages.
	send chan WriteData
	done chan struct{}

	closeOnce sync.Once

	logger *zap.Logger
}

// HandleWebSocket upgrades the request and registers the new peer
func (g *Gateway) HandleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		g.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	id := uuid.NewString()
	client := &Client{
		gateway: g,
		conn:    conn,
		info: entities.PeerInfo{
			ID:          id,
			RemoteAddr:  conn.RemoteAddr().String(),
			Transport:   entities.TransportWebSocket,
			ConnectedAt: time.Now(),
		},
		send:   make(chan WriteData, sendQueueSize),
		done:   make(chan struct{}),
		logger: g.logger.With(zap.String("peerID", id), zap.String("remoteAddr", conn.RemoteAddr().String())),
	}

	if err := g.registry.Register(client); err != nil {
		client.logger.Error("Failed to register peer", zap.Error(err))
		conn.Close()
		return nil
	}
	client.logger.Info("WebSocket peer connected")

	client.enqueueJSON(CreateWelcomeMessage(id))

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

func (c *Client) ID() string {
	return c.info.ID
}

func (c *Client) Info() entities.PeerInfo {
	return c.info
}

// Send queues a relayed message. It never blocks.
func (c *Client) Send(d entities.Delivery) error {
	payload, err := json.Marshal(CreateRelayMessage(d))
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return registry.ErrPeerClosed
	default:
	}

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
		return nil
	case <-c.done:
		return registry.ErrPeerClosed
	default:
		return registry.ErrSendQueueFull
	}
}

// Close tears the connection down. It is safe to call more than once.
func (c *Client) Close() error {
	err := registry.ErrPeerClosed
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) enqueueJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to encode message", zap.Error(err))
		return
	}
	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Send queue full, dropping control message")
	}
}

// readPump pumps messages from the websocket connection to the relay.
func (c *Client) readPump() {
	defer func() {
		c.gateway.registry.Unregister(c.ID())
		c.Close()
		c.logger.Info("WebSocket peer disconnected")
	}()

	c.conn.SetReadLimit(int64(c.gateway.maxFrameSize) + 1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.enqueueJSON(CreateErrorMessage(ErrorCodeUnsupportedPayload, "binary messages are not supported", ""))
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// processMessage dispatches one text message from the browser
func (c *Client) processMessage(message []byte) {
	msg, err := c.gateway.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Debug("Rejected message", zap.Error(err))
		c.enqueueJSON(CreateErrorMessage(ErrorCodeInvalidMessage, "message rejected", err.Error()))
		return
	}

	switch m := msg.(type) {
	case *MorseMessage:
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		c.gateway.handler.HandleFrame(ctx, c.info, []byte(m.Morse))
	case *PingMessage:
		c.enqueueJSON(CreatePongMessage(m.Data))
	}
}

// writePump pumps messages from the relay to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Warn("Failed to write message", zap.Error(err))
				c.gateway.registry.Unregister(c.ID())
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.gateway.registry.Unregister(c.ID())
				return
			}
		}
	}
}
