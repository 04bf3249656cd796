package push

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ErrUnauthorized is returned by WebSocketDialer when the server refuses the
// upgrade because the session is not valid.
var ErrUnauthorized = errors.New("push: unauthorized")

// WebSocketDialer dials the dashboard's websocket endpoint. It shares the
// REST client's cookie jar so the session cookie goes along.
type WebSocketDialer struct {
	URL              string
	Jar              http.CookieJar
	HandshakeTimeout time.Duration
	// ReadTimeout closes a connection that has been silent for this long.
	// Server pings reset the deadline. Zero disables it.
	ReadTimeout time.Duration
	TLSConfig   *tls.Config
}

func (d *WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
		Jar:              d.Jar,
		TLSClientConfig:  d.TLSConfig,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}

	c, resp, err := dialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("dial %s: %w", d.URL, ErrUnauthorized)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}

	wc := &wsConn{c: c, readTimeout: d.ReadTimeout}
	if wc.readTimeout > 0 {
		c.SetPingHandler(func(data string) error {
			_ = c.SetReadDeadline(time.Now().Add(wc.readTimeout))
			err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
			if errors.Is(err, websocket.ErrCloseSent) {
				return nil
			}
			return err
		})
	}
	return wc, nil
}

type wsConn struct {
	c           *websocket.Conn
	readTimeout time.Duration
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	for {
		if w.readTimeout > 0 {
			if err := w.c.SetReadDeadline(time.Now().Add(w.readTimeout)); err != nil {
				return nil, err
			}
		}
		mt, data, err := w.c.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (w *wsConn) Close() error {
	_ = w.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return w.c.Close()
}
