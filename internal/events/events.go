// AngelaMos | 2026
// events.go

package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeGenerationCompleted = "generation.completed"
	TypeGenerationRefunded  = "generation.refunded"
	TypeCreditsProvisioned  = "credits.provisioned"
)

type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	UserID     string         `json:"user_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

func New(eventType, userID string, data map[string]any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher delivers domain events. Callers treat delivery as best-effort
// and never fail a request because of it.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

var (
	_ Publisher = Noop{}
	_ Publisher = (*AMQPPublisher)(nil)
)
