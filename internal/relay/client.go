package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Publish connects to a hub at url, sends msg and disconnects. token, when
// set, is sent as a bearer token.
//
// For insertPrompt it waits for the hub's delivered reply and returns how
// many overlays received the content. Other message types return 0.
func Publish(ctx context.Context, url, token string, msg Message) (int, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return 0, fmt.Errorf("relay: dialing %s: %s: %w", url, resp.Status, err)
		}
		return 0, fmt.Errorf("relay: dialing %s: %w", url, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)

	var hello Message
	if err := conn.ReadJSON(&hello); err != nil {
		return 0, fmt.Errorf("relay: reading greeting: %w", err)
	}
	if hello.Type != TypeConnected {
		return 0, fmt.Errorf("relay: unexpected greeting %q", hello.Type)
	}

	if err := conn.WriteJSON(msg); err != nil {
		return 0, fmt.Errorf("relay: sending %s: %w", msg.Type, err)
	}

	recipients := 0
	if msg.Type == TypeInsertPrompt {
		if recipients, err = awaitDelivered(conn); err != nil {
			return 0, err
		}
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return recipients, nil
}

// awaitDelivered reads until the hub acknowledges an insertPrompt. Other
// broadcasts (storageChanged) arriving first are skipped.
func awaitDelivered(conn *websocket.Conn) (int, error) {
	for {
		var reply Message
		if err := conn.ReadJSON(&reply); err != nil {
			return 0, fmt.Errorf("relay: waiting for delivery report: %w", err)
		}
		switch reply.Type {
		case TypeDelivered:
			return reply.Recipients, nil
		case TypeError:
			return 0, errors.New("relay: hub rejected message: " + reply.Message)
		}
	}
}
