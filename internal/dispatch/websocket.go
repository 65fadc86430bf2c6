// internal/dispatch/websocket.go
package dispatch

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
)

const closeGrace = time.Second

// WebsocketLink sends each command as a single text frame on a fresh
// connection to the car's websocket server.
type WebsocketLink struct {
	URL    string
	Dialer *websocket.Dialer
}

func NewWebsocketLink(url string) *WebsocketLink {
	return &WebsocketLink{URL: url, Dialer: websocket.DefaultDialer}
}

func (l *WebsocketLink) Send(ctx context.Context, cmd byte) error {
	conn, resp, err := l.Dialer.DialContext(ctx, l.URL, nil)
	if err != nil {
		if resp != nil {
			return errors.Wrapf(err, "dialing %s (status %d)", l.URL, resp.StatusCode)
		}
		return errors.Wrapf(err, "dialing %s", l.URL)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte{cmd}); err != nil {
		return errors.Wrapf(err, "writing command %q", cmd)
	}

	// Best effort close handshake; the command is already on the wire.
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGrace))
	return nil
}
