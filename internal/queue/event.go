// Package queue carries reservation events over RabbitMQ: a publisher used
// by the HTTP server and a consumer run by the worker.
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/property-reservation/internal/model"
)

// Message is the JSON body of a reservation event on the wire.
type Message struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Kind          string `json:"kind"`
	ReservationID uint64 `json:"reservation_id"`
	PropertyID    string `json:"property_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Status        string `json:"status,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// NewMessage converts ev to its wire form with a fresh message ID.
func NewMessage(ev model.ReservationEvent) Message {
	return Message{
		ID:            uuid.NewString(),
		Type:          string(ev.Type),
		Kind:          string(ev.Kind),
		ReservationID: ev.ReservationID,
		PropertyID:    ev.PropertyID,
		StartDate:     ev.Range.Start.Format(model.DateLayout),
		EndDate:       ev.Range.End.Format(model.DateLayout),
		Status:        string(ev.Status),
		OccurredAt:    ev.OccurredAt.UTC().Format(time.RFC3339),
	}
}

// FormatLine renders m as a single human-friendly log line.
func FormatLine(m Message) string {
	line := fmt.Sprintf("[%s] %s | id=%s | %s_id=%d | property=%q | range=%s/%s",
		m.OccurredAt, m.Type, m.ID, m.Kind, m.ReservationID, m.PropertyID, m.StartDate, m.EndDate)
	if m.Status != "" {
		line += " | status=" + m.Status
	}
	return line + "\n"
}
