package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/autotrack/domain"
)

// MsgTypeCycleReport is the message type the dashboard receives
const MsgTypeCycleReport = "cycle_report"

// WSMessage is the envelope pushed to the dashboard
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// WebSocket pushes the report as JSON to a dashboard endpoint.
// Each report uses its own short-lived connection.
type WebSocket struct {
	URL          string
	WriteTimeout time.Duration
	Dialer       *websocket.Dialer
}

func NewWebSocket(url string) *WebSocket {
	return &WebSocket{
		URL:          url,
		WriteTimeout: 10 * time.Second,
		Dialer:       websocket.DefaultDialer,
	}
}

func (w *WebSocket) Notify(ctx context.Context, report *domain.CycleReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}
	msg, err := json.Marshal(WSMessage{Type: MsgTypeCycleReport, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal message failed: %w", err)
	}

	conn, resp, err := w.Dialer.DialContext(ctx, w.URL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial failed: status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(w.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("websocket write failed: %w", err)
	}
	return conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
