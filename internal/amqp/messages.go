package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"financas/internal/core"

	"github.com/google/uuid"
)

// AlertPayload is the wire form of a single budget alert.
type AlertPayload struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Category  string    `json:"category,omitempty"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	CreatedAt time.Time `json:"created_at"`
}

// AlertBatchMessage carries every alert raised for one month by a single
// evaluation. Consumers use MessageID to drop redeliveries.
type AlertBatchMessage struct {
	MessageID string         `json:"message_id"`
	Month     string         `json:"month"`
	Alerts    []AlertPayload `json:"alerts"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewAlertBatchMessage builds a message for the month's alerts
func NewAlertBatchMessage(m core.Month, alerts []core.Alert) *AlertBatchMessage {
	payload := make([]AlertPayload, 0, len(alerts))
	for _, a := range alerts {
		payload = append(payload, AlertPayload{
			ID:        a.ID,
			Type:      string(a.Type),
			Severity:  string(a.Severity),
			Category:  a.Category,
			Message:   a.Message,
			Value:     a.Value,
			Threshold: a.Threshold,
			CreatedAt: a.CreatedAt,
		})
	}
	return &AlertBatchMessage{
		MessageID: uuid.NewString(),
		Month:     m.String(),
		Alerts:    payload,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *AlertBatchMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CoreAlerts converts the payload back into domain alerts.
func (m *AlertBatchMessage) CoreAlerts() ([]core.Alert, error) {
	month, err := core.ParseMonth(m.Month)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", m.MessageID, err)
	}
	out := make([]core.Alert, 0, len(m.Alerts))
	for _, p := range m.Alerts {
		out = append(out, core.Alert{
			ID:        p.ID,
			Type:      core.AlertType(p.Type),
			Severity:  core.Severity(p.Severity),
			Category:  p.Category,
			Message:   p.Message,
			Value:     p.Value,
			Threshold: p.Threshold,
			Month:     month,
			CreatedAt: p.CreatedAt,
		})
	}
	return out, nil
}

// AlertBatchMessageFromJSON creates a message from JSON bytes
func AlertBatchMessageFromJSON(data []byte) (*AlertBatchMessage, error) {
	var msg AlertBatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.MessageID == "" {
		return nil, fmt.Errorf("missing message_id")
	}
	return &msg, nil
}
