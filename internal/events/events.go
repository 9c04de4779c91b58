// Package events publishes booking lifecycle notifications to a broker.
// Publishing happens after commit; a failed publish never undoes a booking.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const Source = "tix-booking"

const (
	TypeBookingCreated  = "booking.created"
	TypeBookingPaid     = "booking.paid"
	TypeBookingFailed   = "booking.failed"
	TypeTicketCheckedIn = "ticket.checked_in"
)

// Event is a CloudEvents-shaped envelope.
type Event struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Source string          `json:"source"`
	Time   time.Time       `json:"time"`
	Data   json.RawMessage `json:"data"`

	// Key orders events of one aggregate on partitioned brokers.
	Key string `json:"-"`
}

func New(typ, key string, data any) (Event, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("events.New: %w", err)
	}

	return Event{
		ID:     uuid.NewString(),
		Type:   typ,
		Source: Source,
		Time:   time.Now().UTC(),
		Data:   b,
		Key:    key,
	}, nil
}

type BookingCreated struct {
	BookingID     uuid.UUID `json:"booking_id"`
	UserID        int64     `json:"user_id"`
	EventID       int64     `json:"event_id"`
	TotalCents    int64     `json:"total_cents"`
	DiscountCents int64     `json:"discount_cents"`
	Tickets       int       `json:"tickets"`
}

type BookingStatusChanged struct {
	BookingID uuid.UUID `json:"booking_id"`
	EventID   int64     `json:"event_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
}

type TicketCheckedIn struct {
	Code      string    `json:"code"`
	BookingID uuid.UUID `json:"booking_id"`
	EventID   int64     `json:"event_id"`
	UsedAt    time.Time `json:"used_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the log instead of a broker.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.log.DebugContext(ctx, "event",
		slog.String("type", e.Type),
		slog.String("id", e.ID),
		slog.String("key", e.Key),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Emit builds and publishes one event, logging instead of returning errors.
func Emit(ctx context.Context, p Publisher, log *slog.Logger, typ, key string, data any) {
	if p == nil {
		return
	}

	e, err := New(typ, key, data)
	if err == nil {
		err = p.Publish(ctx, e)
	}
	if err != nil && log != nil {
		log.WarnContext(ctx, "publish event",
			slog.String("type", typ),
			slog.String("key", key),
			slog.Any("err", err),
		)
	}
}
