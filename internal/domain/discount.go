package domain

import (
	"time"

	"github.com/google/uuid"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type DiscountStatus string

const (
	DiscountActive   DiscountStatus = "active"
	DiscountInactive DiscountStatus = "inactive"
)

type Discount struct {
	ID        int64
	EventID   int64
	Code      string
	Type      DiscountType
	Value     int64 // percent 1..100 or a fixed amount in cents
	MaxUsage  int
	UsedCount int
	Status    DiscountStatus
}

// Amount returns the discount applied to subtotalCents. Percentages are
// rounded down and the result never exceeds the subtotal.
func (d Discount) Amount(subtotalCents int64) int64 {
	if subtotalCents <= 0 || d.Value <= 0 {
		return 0
	}

	var amount int64
	switch d.Type {
	case DiscountPercentage:
		// floor(subtotal*pct/100) without the intermediate product
		pct := min(d.Value, 100)
		amount = subtotalCents/100*pct + subtotalCents%100*pct/100
	case DiscountFixed:
		amount = d.Value
	}

	if amount > subtotalCents {
		amount = subtotalCents
	}

	return amount
}

// Redemption is the token returned by a successful discount redemption.
type Redemption struct {
	ID         uuid.UUID
	DiscountID int64
	UserID     int64
	BookingID  *uuid.UUID
	UsedAt     time.Time
}

// DiscountReversal is the audit record written when a committed usage is undone.
type DiscountReversal struct {
	DiscountID int64
	UserID     int64
	BookingID  uuid.UUID
	Reason     string
	ReversedAt time.Time
}
