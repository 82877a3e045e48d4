package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestURLFor(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{in: "https://api.example.com", want: "wss://api.example.com/ws"},
		{in: "https://api.example.com/v1/", want: "wss://api.example.com/v1/ws"},
		{in: "http://host?x=1", want: "ws://host/ws"},
		{in: "ftp://host", wantErr: true},
		{in: "nohost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := URLFor(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// echoServer upgrades /ws and echoes every payload back prefixed with "echo:".
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, append([]byte("echo:"), data...)); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDialer_RoundTrip(t *testing.T) {
	srv := echoServer(t)
	d, err := NewDialer(srv.URL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(d.URL(), "ws://"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := d.Dial(ctx)
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage([]byte(`{"type":"initial"}`)))
	data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `echo:{"type":"initial"}`, string(data))

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	_, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestDialer_ServerCloses(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "restart")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
	}))
	defer srv.Close()

	d, err := NewDialer(srv.URL)
	require.NoError(t, err)

	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, IsNormalClose(err))
}

func TestDialer_Refused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	d, err := NewDialer(srv.URL)
	require.NoError(t, err)

	_, err = d.Dial(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
