package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/events"
	"github.com/kirinyoku/tix-booking/internal/repository"
	redisrepo "github.com/kirinyoku/tix-booking/internal/repository/redis"
)

type Store interface {
	GetTicket(ctx context.Context, code string) (*domain.AttendeeTicket, error)
	RedeemTicket(ctx context.Context, code string, now time.Time) (*domain.AttendeeTicket, error)
	ExpireTicket(ctx context.Context, code string) (*domain.AttendeeTicket, error)
	CreateAttendee(ctx context.Context, a domain.Attendee) (*domain.Attendee, error)
	GetAttendee(ctx context.Context, id int64) (*domain.Attendee, error)
	UpdateAttendee(ctx context.Context, id int64, p domain.AttendeePatch, now time.Time) (*domain.Attendee, error)
	ListAttendees(ctx context.Context, eventID int64) ([]domain.Attendee, error)
}

type Service struct {
	store Store
	cache *redisrepo.Cache
	pub   events.Publisher
	log   *slog.Logger
	now   func() time.Time
}

func New(store Store, cache *redisrepo.Cache, pub events.Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		store: store,
		cache: cache,
		pub:   pub,
		log:   log,
		now:   time.Now,
	}
}

// CheckIn redeems a ticket code at the door.
//
// Parameters:
//   - ctx: request-scoped context.
//   - code: the ticket code printed on the attendee ticket.
//
// Returns:
//   - *domain.AttendeeTicket: the ticket, now used.
//   - error: checkin.ErrTicketNotFound if no ticket carries the code.
//   - error: domain.AlreadyRedeemedError if the ticket is used or expired.
//   - error: checkin.ErrPaymentPending if the booking is not paid.
func (s *Service) CheckIn(ctx context.Context, code string) (*domain.AttendeeTicket, error) {
	const op = "service.checkin.CheckIn"

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrTicketNotFound)
	}

	t, err := s.store.RedeemTicket(ctx, code, s.now().UTC())
	if err != nil {
		err = ticketErr(err)
		if errors.Is(err, domain.ErrAlreadyRedeemed) || errors.Is(err, ErrPaymentPending) {
			s.log.InfoContext(ctx, "check-in rejected",
				slog.String("code", code),
				slog.Any("err", err),
			)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	events.Emit(ctx, s.pub, s.log, events.TypeTicketCheckedIn, t.BookingID.String(), events.TicketCheckedIn{
		Code:      t.Code,
		BookingID: t.BookingID,
		EventID:   t.EventID,
		UsedAt:    *t.UsedAt,
	})

	return t, nil
}

// Expire voids a valid ticket.
func (s *Service) Expire(ctx context.Context, code string) (*domain.AttendeeTicket, error) {
	const op = "service.checkin.Expire"

	t, err := s.store.ExpireTicket(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ticketErr(err))
	}

	return t, nil
}

func (s *Service) GetTicket(ctx context.Context, code string) (*domain.AttendeeTicket, error) {
	const op = "service.checkin.GetTicket"

	t, err := s.store.GetTicket(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ticketErr(err))
	}

	return t, nil
}

func ticketErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrTicketNotFound
	case errors.Is(err, repository.ErrNotPaid):
		return ErrPaymentPending
	}
	return err
}

// RegisterAttendee adds a user to the attendee list of an event in the
// pending state.
func (s *Service) RegisterAttendee(ctx context.Context, eventID, userID int64) (*domain.Attendee, error) {
	const op = "service.checkin.RegisterAttendee"

	a, err := s.store.CreateAttendee(ctx, domain.Attendee{
		EventID:       eventID,
		UserID:        userID,
		CheckInStatus: domain.CheckInPending,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, fmt.Errorf("%s: %w", op, ErrAttendeeExists)
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrEventOrUserAbsent)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, eventID)

	return a, nil
}

// UpdateAttendee applies a check-in status change. Entering checked_in
// stamps the time unless the patch carries one; leaving it clears the time.
//
// Returns:
//   - *domain.Attendee: the updated attendee.
//   - error: checkin.ErrAttendeeNotFound, checkin.ErrInvalidStatus or
//     domain.ErrInvalidTransition.
func (s *Service) UpdateAttendee(ctx context.Context, id int64, p domain.AttendeePatch) (*domain.Attendee, error) {
	const op = "service.checkin.UpdateAttendee"

	if p.Status != nil && !p.Status.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}

	a, err := s.store.UpdateAttendee(ctx, id, p, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAttendeeNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, a.EventID)

	return a, nil
}

func (s *Service) GetAttendee(ctx context.Context, id int64) (*domain.Attendee, error) {
	const op = "service.checkin.GetAttendee"

	a, err := s.store.GetAttendee(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAttendeeNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

func (s *Service) ListAttendees(ctx context.Context, eventID int64) ([]domain.Attendee, error) {
	const op = "service.checkin.ListAttendees"

	out, err := s.store.ListAttendees(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Service) invalidate(ctx context.Context, eventID int64) {
	if err := s.cache.Del(ctx, redisrepo.KeyEventAttendeeStats(eventID)); err != nil {
		s.log.WarnContext(ctx, "invalidate cache",
			slog.Int64("event_id", eventID),
			slog.Any("err", err),
		)
	}
}
