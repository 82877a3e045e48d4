// Package ws provides the persistent connection adapter over WebSocket.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Dialer and Conn implement the interfaces.
var (
	_ driven.Dialer = (*Dialer)(nil)
	_ driven.Conn   = (*Conn)(nil)
)

// Default configuration values.
const (
	DefaultPath             = "/ws"
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
)

// Dialer opens WebSocket connections to the backend.
type Dialer struct {
	url          string
	dialer       *websocket.Dialer
	header       http.Header
	writeTimeout time.Duration
}

// NewDialer derives the WebSocket URL from the backend base URL.
// http becomes ws and https becomes wss; the path gets /ws appended.
func NewDialer(baseURL string) (*Dialer, error) {
	wsURL, err := URLFor(baseURL)
	if err != nil {
		return nil, err
	}

	return &Dialer{
		url: wsURL,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
		header:       http.Header{},
		writeTimeout: DefaultWriteTimeout,
	}, nil
}

// URLFor returns the WebSocket endpoint for a backend base URL.
func URLFor(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: base url %q", domain.ErrInvalidInput, baseURL)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidInput, u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + DefaultPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// URL returns the endpoint this dialer connects to.
func (d *Dialer) URL() string {
	return d.url
}

// Dial opens a new connection.
func (d *Dialer) Dial(ctx context.Context) (driven.Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, d.url, d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to websocket: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("failed to connect to websocket: %w", err)
	}

	return &Conn{
		ws:           conn,
		writeTimeout: d.writeTimeout,
	}, nil
}

// Conn is one open WebSocket connection.
type Conn struct {
	ws           *websocket.Conn
	writeMu      sync.Mutex
	closeOnce    sync.Once
	closeErr     error
	writeTimeout time.Duration
}

// ReadMessage blocks until the next payload arrives.
func (c *Conn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// WriteMessage sends one text payload.
func (c *Conn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and closes the underlying connection.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()

		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

// IsNormalClose reports whether err is a clean close initiated by either side.
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
