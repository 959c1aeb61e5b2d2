package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/satriahrh/morsenet/domain/entities"
	"github.com/satriahrh/morsenet/domain/morse"
	"github.com/satriahrh/morsenet/internal/auth"
	"github.com/satriahrh/morsenet/internal/registry"
)

type idlePeer struct {
	info entities.PeerInfo
}

func (p *idlePeer) ID() string { return p.info.ID }
func (p *idlePeer) Info() entities.PeerInfo { return p.info }
func (p *idlePeer) Send(entities.Delivery) error { return nil }
func (p *idlePeer) Close() error { return nil }

type testServer struct {
	e        *echo.Echo
	reg      *registry.Registry
	issuer   *auth.Issuer
	shutdown atomic.Int32
}

func setupTestServer(t *testing.T, secret string) *testServer {
	t.Helper()

	ts := &testServer{
		e:      echo.New(),
		reg:    registry.New(),
		issuer: auth.NewIssuer(secret, time.Minute),
	}
	InitRoutes(ts.e, Dependencies{
		Registry:   ts.reg,
		Codec:      morse.NewCodec(morse.Lenient),
		Issuer:     ts.issuer,
		InstanceID: "relay-test",
		Shutdown:   func() { ts.shutdown.Add(1) },
		Logger:     zap.NewNop(),
	})
	return ts
}

func (ts *testServer) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthAndPeers(t *testing.T) {
	ts := setupTestServer(t, "")
	require.NoError(t, ts.reg.Register(&idlePeer{info: entities.PeerInfo{
		ID:         "peer-1",
		RemoteAddr: "10.0.0.2:5000",
		Transport:  entities.TransportTCP,
	}}))

	rec := ts.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	decodeBody(t, rec, &health)
	assert.Equal(t, HealthResponse{Status: "ok", Service: serviceName, InstanceID: "relay-test", Peers: 1}, health)

	rec = ts.do(http.MethodGet, "/api/v1/peers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var peers PeersResponse
	decodeBody(t, rec, &peers)
	require.Equal(t, 1, peers.Count)
	assert.Equal(t, "peer-1", peers.Peers[0].ID)
	assert.Equal(t, "tcp", peers.Peers[0].Transport)
	assert.Equal(t, "10.0.0.2:5000", peers.Peers[0].RemoteAddr)
}

func TestDecode(t *testing.T) {
	ts := setupTestServer(t, "")

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantText string
		wantMode string
	}{
		{"relay default mode", `{"morse":".... . .-.. .-.. --- / .-- --- .-. .-.. -.."}`, http.StatusOK, "HELLO WORLD", "lenient"},
		{"unknown token lenient", `{"morse":"... ....... ..."}`, http.StatusOK, "SS", "lenient"},
		{"unknown token strict", `{"morse":"... ....... ...","mode":"strict"}`, http.StatusOK, "S_S", "strict"},
		{"empty morse", `{"morse":""}`, http.StatusOK, "", "lenient"},
		{"bad mode", `{"morse":"...","mode":"loud"}`, http.StatusBadRequest, "", ""},
		{"bad json", `{"morse":`, http.StatusBadRequest, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/v1/morse/decode", tt.body, nil)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			var resp DecodeResponse
			decodeBody(t, rec, &resp)
			assert.Equal(t, tt.wantText, resp.Text)
			assert.Equal(t, tt.wantMode, resp.Mode)
		})
	}
}

func TestEncodeAndTable(t *testing.T) {
	ts := setupTestServer(t, "")

	rec := ts.do(http.MethodPost, "/api/v1/morse/encode", `{"text":"sos help"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp EncodeResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "... --- ... / .... . .-.. .--.", resp.Morse)

	rec = ts.do(http.MethodPost, "/api/v1/morse/encode", `{"text":"naïve"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/morse/table", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var table TableResponse
	decodeBody(t, rec, &table)
	assert.Equal(t, morse.Entries(), table.Entries)
}

func TestAdminShutdown(t *testing.T) {
	t.Run("disabled without secret", func(t *testing.T) {
		ts := setupTestServer(t, "")
		rec := ts.do(http.MethodPost, "/api/v1/admin/shutdown", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, int32(0), ts.shutdown.Load())
	})

	t.Run("missing token", func(t *testing.T) {
		ts := setupTestServer(t, "s3cret")
		rec := ts.do(http.MethodPost, "/api/v1/admin/shutdown", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, int32(0), ts.shutdown.Load())
	})

	t.Run("foreign token", func(t *testing.T) {
		ts := setupTestServer(t, "s3cret")
		token, _, err := auth.NewIssuer("other", time.Minute).GenerateOperatorToken("mallory")
		require.NoError(t, err)

		rec := ts.do(http.MethodPost, "/api/v1/admin/shutdown", "", map[string]string{
			echo.HeaderAuthorization: "Bearer " + token,
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, int32(0), ts.shutdown.Load())
	})

	t.Run("operator token", func(t *testing.T) {
		ts := setupTestServer(t, "s3cret")
		token, _, err := ts.issuer.GenerateOperatorToken("alice")
		require.NoError(t, err)

		rec := ts.do(http.MethodPost, "/api/v1/admin/shutdown", "", map[string]string{
			echo.HeaderAuthorization: "Bearer " + token,
		})
		require.Equal(t, http.StatusAccepted, rec.Code)
		var resp ShutdownResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "alice", resp.Operator)
		assert.Equal(t, int32(1), ts.shutdown.Load())
	})
}
