// Package broadcast emits draw events toward external delivery channels.
// Delivery itself (websockets, chat bots, dashboards) is out of scope; this
// package only publishes.
package broadcast

import (
	"context"
	"time"

	"github.com/okian/spindle/internal/domain/catalog"
	"github.com/okian/spindle/pkg/logger"
)

// Event describes a notable draw.
type Event struct {
	UserID   string       `json:"user_id"`
	CaseID   string       `json:"case_id"`
	ItemID   string       `json:"item_id"`
	ItemName string       `json:"item_name"`
	Tier     catalog.Tier `json:"tier"`
	Value    int64        `json:"value"`
	At       time.Time    `json:"at"`
}

// Emitter publishes draw events. Publish failures degrade announcements
// only; they never affect the draw outcome.
type Emitter interface {
	Publish(ctx context.Context, e Event) error
}

// LogEmitter writes events to the structured log. Default when no realtime
// backend is configured.
type LogEmitter struct {
	logger logger.Logger
}

// NewLogEmitter creates a log-only emitter.
func NewLogEmitter() *LogEmitter {
	return &LogEmitter{logger: logger.Get().Named("broadcast")}
}

// Publish logs the event.
func (e *LogEmitter) Publish(ctx context.Context, ev Event) error {
	e.logger.Info(ctx, "draw announced",
		logger.String("user_id", ev.UserID),
		logger.String("case_id", ev.CaseID),
		logger.String("item", ev.ItemName),
		logger.String("tier", string(ev.Tier)),
		logger.Int64("value", ev.Value),
	)
	return nil
}
