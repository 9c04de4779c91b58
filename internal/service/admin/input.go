package admin

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/kirinyoku/tix-booking/internal/domain"
)

type UserInput struct {
	Email string          `json:"email"`
	Role  domain.UserRole `json:"role"`
}

func (in *UserInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Email, validation.Required, validation.Length(3, 255)),
		validation.Field(&in.Role, validation.Required, validation.In(domain.RoleAttendee, domain.RoleOrganizer)),
	)
}

type EventInput struct {
	OrganizerID int64              `json:"organizer_id"`
	Title       string             `json:"title"`
	Location    string             `json:"location"`
	StartsAt    time.Time          `json:"starts_at"`
	Status      domain.EventStatus `json:"status"`
}

func (in *EventInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.OrganizerID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Location, validation.Length(0, 200)),
		validation.Field(&in.StartsAt, validation.Required),
		validation.Field(&in.Status, validation.In(
			domain.EventDraft, domain.EventPublished, domain.EventCancelled, domain.EventCompleted,
		)),
	)
}

type TicketTypeInput struct {
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCapacity  int    `json:"total_capacity"`
}

func (in *TicketTypeInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.UnitPriceCents, validation.Min(int64(0)), validation.Max(domain.MaxUnitPriceCents)),
		validation.Field(&in.TotalCapacity, validation.Required, validation.Min(1)),
	)
}

type SeatInput struct {
	Row        string `json:"row"`
	SeatNumber string `json:"seat_number"`
}

func (in SeatInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Row, validation.Required, validation.Length(1, 10)),
		validation.Field(&in.SeatNumber, validation.Required, validation.Length(1, 10)),
	)
}

type DiscountInput struct {
	Code     string                `json:"code"`
	Type     domain.DiscountType   `json:"type"`
	Value    int64                 `json:"value"`
	MaxUsage int                   `json:"max_usage"`
	Status   domain.DiscountStatus `json:"status"`
}

func (in *DiscountInput) Validate() error {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))

	maxValue := int64(1 << 40)
	if in.Type == domain.DiscountPercentage {
		maxValue = 100
	}

	return validation.ValidateStruct(in,
		validation.Field(&in.Code, validation.Required, validation.Length(1, 64)),
		validation.Field(&in.Type, validation.Required, validation.In(domain.DiscountPercentage, domain.DiscountFixed)),
		validation.Field(&in.Value, validation.Required, validation.Min(int64(1)), validation.Max(maxValue)),
		validation.Field(&in.MaxUsage, validation.Required, validation.Min(1)),
		validation.Field(&in.Status, validation.In(domain.DiscountActive, domain.DiscountInactive)),
	)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
