package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSession struct {
	shot    []byte
	shotErr error
	url     string
	title   string
}

func (s *stubSession) Screenshot() ([]byte, error) { return s.shot, s.shotErr }

func (s *stubSession) Status() (string, string) { return s.url, s.title }

func newTestServer() (*Server, *httptest.Server) {
	srv := New(":0", zap.NewNop())
	srv.framePeriod = 5 * time.Millisecond
	return srv, httptest.NewServer(srv.router)
}

func TestStatusWithoutSessionIsUnavailable(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStatusReportsAttachedSession(t *testing.T) {
	srv, ts := newTestServer()
	defer ts.Close()

	srv.Attach(&stubSession{url: "https://m.apuestas.example/#/Home", title: "Apuestas"})

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)

	data := body.Data.(map[string]interface{})
	assert.Equal(t, "https://m.apuestas.example/#/Home", data["url"])
	assert.Equal(t, "Apuestas", data["title"])
}

func TestScreenshotIsBase64Encoded(t *testing.T) {
	srv, ts := newTestServer()
	defer ts.Close()

	raw := []byte{0x89, 'P', 'N', 'G'}
	srv.Attach(&stubSession{shot: raw})

	resp, err := http.Get(ts.URL + "/api/screenshot")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.Success)

	img := body.Data.(map[string]interface{})["image"].(string)
	decoded, err := base64.StdEncoding.DecodeString(img)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestScreenshotFailurePropagates(t *testing.T) {
	srv, ts := newTestServer()
	defer ts.Close()

	srv.Attach(&stubSession{shotErr: errors.New("page is closed")})

	resp, err := http.Get(ts.URL + "/api/screenshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestWebSocketStreamsFramesUntilDetach(t *testing.T) {
	srv, ts := newTestServer()
	defer ts.Close()

	srv.Attach(&stubSession{shot: []byte{1, 2, 3}})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var frame response
	require.NoError(t, conn.ReadJSON(&frame))
	assert.True(t, frame.Success)
	assert.Equal(t, "frame", frame.Message)

	srv.Detach()

	// The stream terminates with a final non-success message.
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var msg response
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("connection dropped before the session-ended message: %v", err)
		}
		if !msg.Success {
			assert.Equal(t, "session ended", msg.Message)
			break
		}
	}
}
