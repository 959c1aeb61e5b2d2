package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/morsenet/domain/morse"
	"github.com/satriahrh/morsenet/internal/auth"
	"github.com/satriahrh/morsenet/internal/registry"
	"github.com/satriahrh/morsenet/internal/websocket"
)

const serviceName = "morse-relay"

// Dependencies are the relay components exposed over HTTP
type Dependencies struct {
	Registry   *registry.Registry
	Codec      *morse.Codec
	Gateway    *websocket.Gateway
	Issuer     *auth.Issuer
	InstanceID string
	// Shutdown is invoked by an authorized admin request
	Shutdown func()
	Logger   *zap.Logger
}

type handler struct {
	Dependencies
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	h := &handler{Dependencies: deps}

	// Health check
	e.GET("/health", h.health)

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.GET("/peers", h.listPeers)

	v1.POST("/morse/decode", h.decode)
	v1.POST("/morse/encode", h.encode)
	v1.GET("/morse/table", h.table)

	admin := v1.Group("/admin", h.requireOperator)
	admin.POST("/shutdown", h.shutdown)

	// WebSocket peers join the relay unauthenticated, like TCP peers
	if deps.Gateway != nil {
		e.GET("/ws", deps.Gateway.HandleWebSocket)
	}
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:     "ok",
		Service:    serviceName,
		InstanceID: h.InstanceID,
		Peers:      h.Registry.Len(),
	})
}

func (h *handler) listPeers(c echo.Context) error {
	infos := h.Registry.Infos()
	peers := make([]PeerResponse, 0, len(infos))
	for _, info := range infos {
		peers = append(peers, PeerResponse{
			ID:          info.ID,
			RemoteAddr:  info.RemoteAddr,
			Transport:   string(info.Transport),
			ConnectedAt: info.ConnectedAt,
		})
	}
	return c.JSON(http.StatusOK, PeersResponse{Count: len(peers), Peers: peers})
}

func (h *handler) decode(c echo.Context) error {
	var req DecodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	codec := h.Codec
	if req.Mode != "" {
		mode, err := morse.ParseDecodeMode(req.Mode)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_mode",
				Message: err.Error(),
			})
		}
		codec = morse.NewCodec(mode)
	}

	return c.JSON(http.StatusOK, DecodeResponse{
		Morse: req.Morse,
		Text:  codec.Decode(req.Morse),
		Mode:  string(codec.Mode()),
	})
}

func (h *handler) encode(c echo.Context) error {
	var req EncodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	encoded, err := h.Codec.Encode(req.Text)
	if err != nil {
		if errors.Is(err, morse.ErrUnencodable) {
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error:   "unencodable",
				Message: err.Error(),
			})
		}
		return err
	}

	return c.JSON(http.StatusOK, EncodeResponse{Text: req.Text, Morse: encoded})
}

func (h *handler) table(c echo.Context) error {
	return c.JSON(http.StatusOK, TableResponse{Entries: morse.Entries()})
}

// requireOperator checks the Bearer token. Admin routes are unavailable
// when no operator secret is configured.
func (h *handler) requireOperator(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.Issuer == nil || !h.Issuer.Enabled() {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "admin_disabled",
				Message: "Operator endpoints are disabled",
			})
		}

		// Extract JWT token from Authorization header only
		var token string
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if token == "" {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "missing_token",
				Message: "JWT token is required in Authorization header",
			})
		}

		claims, err := h.Issuer.ValidateToken(token)
		if err != nil {
			h.Logger.Warn("Admin request rejected: invalid token", zap.Error(err))
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_token",
				Message: "Invalid or expired JWT token",
			})
		}

		c.Set("operator", claims.Operator)
		return next(c)
	}
}

func (h *handler) shutdown(c echo.Context) error {
	operator, _ := c.Get("operator").(string)
	h.Logger.Info("Shutdown requested", zap.String("operator", operator))

	if h.Shutdown != nil {
		h.Shutdown()
	}
	return c.JSON(http.StatusAccepted, ShutdownResponse{Status: "shutting_down", Operator: operator})
}
