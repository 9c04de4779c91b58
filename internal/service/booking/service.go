package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/events"
	"github.com/kirinyoku/tix-booking/internal/repository"
	redisrepo "github.com/kirinyoku/tix-booking/internal/repository/redis"
	"github.com/kirinyoku/tix-booking/internal/uow"
)

type Config struct {
	HoldTTL         time.Duration
	MaxCodeAttempts int
}

type Service struct {
	repos Repos
	codes CodeIssuer
	cache *redisrepo.Cache
	pub   events.Publisher
	log   *slog.Logger
	cfg   Config
	now   func() time.Time
}

func New(
	repos Repos,
	codes CodeIssuer,
	cache *redisrepo.Cache,
	pub events.Publisher,
	log *slog.Logger,
	cfg Config,
) *Service {
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 30 * time.Second
	}

	if cfg.MaxCodeAttempts <= 0 {
		cfg.MaxCodeAttempts = 5
	}

	if log == nil {
		log = slog.Default()
	}

	return &Service{
		repos: repos,
		codes: codes,
		cache: cache,
		pub:   pub,
		log:   log,
		cfg:   cfg,
		now:   time.Now,
	}
}

type line struct {
	item        LineItem
	ticketType  domain.TicketType
	reservation uuid.UUID
}

// Purchase books every line item of req for one user, applying an optional
// discount code, as a single all-or-nothing step.
//
// Parameters:
//   - ctx: request-scoped context; cancelling it unwinds every acquired hold.
//   - req: the purchase request.
//
// Returns:
//   - *domain.Booking: the pending booking with details and tickets.
//   - error: booking.ErrInvalidRequest, ErrUserNotFound, ErrEventNotFound,
//     ErrEventNotSellable or TicketTypeMismatchError when validation fails.
//   - error: InsufficientInventoryError or SeatUnavailableError on contention.
//   - error: ErrDiscountInvalid, ErrDiscountExhausted, ErrDiscountAlreadyUsed.
//   - error: ErrPurchaseFailed on persistence failure, ErrInvariantViolation
//     when the store reports corrupted state.
func (s *Service) Purchase(ctx context.Context, req PurchaseRequest) (*domain.Booking, error) {
	const op = "service.booking.Purchase"

	req.DiscountCode = strings.TrimSpace(req.DiscountCode)

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lines, err := s.validateCatalog(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var booking *domain.Booking

	err = uow.Do(ctx, func(ctx context.Context, sc *uow.Scope) error {
		for i := range lines {
			id, err := s.reserve(ctx, req.EventID, lines[i].item)
			if err != nil {
				return err
			}

			sc.Acquired(func(ctx context.Context) error {
				return s.repos.Inventory.Release(ctx, id)
			})
			lines[i].reservation = id
		}

		var (
			discount   *domain.Discount
			redemption *domain.Redemption
		)
		if req.DiscountCode != "" {
			d, r, err := s.redeem(ctx, req)
			if err != nil {
				return err
			}

			sc.Acquired(func(ctx context.Context) error {
				return s.repos.Ledger.Cancel(ctx, r.ID)
			})
			discount, redemption = d, r
		}

		draft, err := s.draft(req, lines, discount, redemption)
		if err != nil {
			return err
		}

		b, err := s.create(ctx, draft)
		if err != nil {
			return err
		}
		booking = b

		sc.After(func(ctx context.Context) {
			s.invalidate(ctx, b.EventID, ticketTypeIDs(lines)...)
			events.Emit(ctx, s.pub, s.log, events.TypeBookingCreated, b.ID.String(), events.BookingCreated{
				BookingID:     b.ID,
				UserID:        b.UserID,
				EventID:       b.EventID,
				TotalCents:    b.TotalCents,
				DiscountCents: b.DiscountCents,
				Tickets:       len(b.Tickets),
			})
		})

		return nil
	})
	if err != nil {
		s.logOutcome(ctx, op, req, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.InfoContext(ctx, "booking created",
		slog.String("booking_id", booking.ID.String()),
		slog.Int64("user_id", booking.UserID),
		slog.Int64("event_id", booking.EventID),
		slog.Int64("total_cents", booking.TotalCents),
	)

	return booking, nil
}

func (s *Service) validateCatalog(ctx context.Context, req PurchaseRequest) ([]line, error) {
	ok, err := s.repos.Catalog.UserExists(ctx, req.UserID)
	if err != nil {
		return nil, errors.Join(ErrPurchaseFailed, err)
	}
	if !ok {
		return nil, ErrUserNotFound
	}

	ev, err := s.repos.Catalog.GetEvent(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, errors.Join(ErrPurchaseFailed, err)
	}
	if !ev.Status.Sellable() {
		return nil, ErrEventNotSellable
	}

	lines := make([]line, 0, len(req.Items))
	for _, item := range req.Items {
		tt, err := s.repos.Catalog.GetTicketType(ctx, item.TicketTypeID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, TicketTypeMismatchError{TicketTypeID: item.TicketTypeID, EventID: req.EventID}
			}
			return nil, errors.Join(ErrPurchaseFailed, err)
		}
		if tt.EventID != req.EventID {
			return nil, TicketTypeMismatchError{TicketTypeID: item.TicketTypeID, EventID: req.EventID}
		}

		lines = append(lines, line{item: item, ticketType: *tt})
	}

	return lines, nil
}

func (s *Service) reserve(ctx context.Context, eventID int64, item LineItem) (uuid.UUID, error) {
	res, err := s.repos.Inventory.Reserve(ctx, domain.ReserveRequest{
		EventID:      eventID,
		TicketTypeID: item.TicketTypeID,
		Quantity:     item.Quantity,
		SeatIDs:      item.SeatIDs,
		TTL:          s.cfg.HoldTTL,
	})
	if err == nil {
		return res.ID, nil
	}

	var seatsErr repository.SeatsUnavailableError
	switch {
	case errors.As(err, &seatsErr) && len(seatsErr.SeatIDs) > 0:
		return uuid.Nil, SeatUnavailableError{SeatMapID: seatsErr.SeatIDs[0], SeatIDs: seatsErr.SeatIDs}
	case errors.Is(err, repository.ErrSeatsUnavailable):
		return uuid.Nil, SeatUnavailableError{SeatIDs: item.SeatIDs}
	case errors.Is(err, repository.ErrInsufficientInventory):
		return uuid.Nil, InsufficientInventoryError{TicketTypeID: item.TicketTypeID, Requested: item.Quantity}
	case errors.Is(err, repository.ErrNotFound):
		return uuid.Nil, TicketTypeMismatchError{TicketTypeID: item.TicketTypeID, EventID: eventID}
	case errors.Is(err, repository.ErrInvariantViolation):
		return uuid.Nil, errors.Join(ErrInvariantViolation, err)
	}

	return uuid.Nil, errors.Join(ErrPurchaseFailed, err)
}

func (s *Service) redeem(ctx context.Context, req PurchaseRequest) (*domain.Discount, *domain.Redemption, error) {
	d, err := s.repos.Catalog.GetDiscountByCode(ctx, req.EventID, req.DiscountCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrDiscountInvalid
		}
		return nil, nil, errors.Join(ErrPurchaseFailed, err)
	}
	if d.Status != domain.DiscountActive {
		return nil, nil, ErrDiscountInvalid
	}

	r, err := s.repos.Ledger.TryRedeem(ctx, req.UserID, d.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDiscountAlreadyUsed):
			return nil, nil, ErrDiscountAlreadyUsed
		case errors.Is(err, repository.ErrDiscountExhausted):
			return nil, nil, ErrDiscountExhausted
		case errors.Is(err, repository.ErrDiscountInactive), errors.Is(err, repository.ErrNotFound):
			return nil, nil, ErrDiscountInvalid
		}
		return nil, nil, errors.Join(ErrPurchaseFailed, err)
	}

	return d, r, nil
}

// draft prices the purchase from the snapshot unit prices. Seated items get
// one detail per seat; unseated items get one detail with the full quantity.
// Codes are left empty. A subtotal outside the int64 range is an invariant
// violation.
func (s *Service) draft(
	req PurchaseRequest,
	lines []line,
	discount *domain.Discount,
	redemption *domain.Redemption,
) (domain.BookingDraft, error) {
	b := domain.Booking{
		ID:            uuid.New(),
		UserID:        req.UserID,
		EventID:       req.EventID,
		PaymentStatus: domain.PaymentPending,
		CreatedAt:     s.now().UTC(),
	}

	reservations := make([]uuid.UUID, 0, len(lines))
	var priceErr error

	for _, l := range lines {
		reservations = append(reservations, l.reservation)

		addDetail := func(seatID *int64, qty int) {
			d := domain.BookingDetail{
				ID:             uuid.New(),
				BookingID:      b.ID,
				TicketTypeID:   l.ticketType.ID,
				SeatMapID:      seatID,
				UnitPriceCents: l.ticketType.UnitPriceCents,
				Quantity:       qty,
			}
			b.Details = append(b.Details, d)

			line, err := d.LineTotal()
			if err == nil {
				b.SubtotalCents, err = domain.AddCents(b.SubtotalCents, line)
			}
			if err != nil && priceErr == nil {
				priceErr = fmt.Errorf("ticket type %d: %w", d.TicketTypeID, err)
			}

			for range qty {
				b.Tickets = append(b.Tickets, domain.AttendeeTicket{
					BookingID:       b.ID,
					BookingDetailID: d.ID,
					TicketTypeID:    d.TicketTypeID,
					EventID:         b.EventID,
					UserID:          b.UserID,
					Status:          domain.TicketValid,
				})
			}
		}

		if len(l.item.SeatIDs) == 0 {
			addDetail(nil, l.item.Quantity)
			continue
		}
		for _, seatID := range l.item.SeatIDs {
			id := seatID
			addDetail(&id, 1)
		}
	}

	if priceErr != nil {
		return domain.BookingDraft{}, errors.Join(ErrInvariantViolation, priceErr)
	}

	if discount != nil {
		id := discount.ID
		b.DiscountID = &id
		b.DiscountCents = discount.Amount(b.SubtotalCents)
	}
	b.TotalCents = b.SubtotalCents - b.DiscountCents

	draft := domain.BookingDraft{Booking: b, ReservationIDs: reservations}
	if redemption != nil {
		id := redemption.ID
		draft.RedemptionID = &id
	}

	return draft, nil
}

// create issues fresh codes and persists the draft, reissuing every code
// when the store reports a collision.
func (s *Service) create(ctx context.Context, draft domain.BookingDraft) (*domain.Booking, error) {
	for attempt := 1; attempt <= s.cfg.MaxCodeAttempts; attempt++ {
		if err := s.assignCodes(&draft.Booking); err != nil {
			return nil, errors.Join(ErrPurchaseFailed, err)
		}

		b, err := s.repos.Bookings.Create(ctx, draft)
		if err == nil {
			return b, nil
		}

		switch {
		case errors.Is(err, repository.ErrCodeCollision):
			s.log.InfoContext(ctx, "code collision, reissuing codes",
				slog.String("booking_id", draft.Booking.ID.String()),
				slog.Int("attempt", attempt),
			)
			continue
		case errors.Is(err, repository.ErrInvariantViolation):
			return nil, errors.Join(ErrInvariantViolation, err)
		}

		return nil, errors.Join(ErrPurchaseFailed, err)
	}

	return nil, fmt.Errorf("%w: no unique codes after %d attempts", ErrInvariantViolation, s.cfg.MaxCodeAttempts)
}

func (s *Service) assignCodes(b *domain.Booking) error {
	qr, err := s.codes.IssueBookingCode()
	if err != nil {
		return err
	}
	b.QRCode = qr

	for i := range b.Tickets {
		code, err := s.codes.IssueTicketCode()
		if err != nil {
			return err
		}
		b.Tickets[i].Code = code
	}

	return nil
}

// GetBooking returns a booking with its details and tickets.
func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.GetBooking"

	b, err := s.repos.Bookings.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// MarkPaid moves a pending booking to paid. Repeating it on a paid booking
// returns the booking unchanged.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.MarkPaid"

	cur, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cur.PaymentStatus == domain.PaymentPaid {
		return cur, nil
	}

	b, err := s.repos.Bookings.MarkPaid(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.transitionErr(err))
	}

	s.invalidate(ctx, b.EventID)
	events.Emit(ctx, s.pub, s.log, events.TypeBookingPaid, b.ID.String(), events.BookingStatusChanged{
		BookingID: b.ID,
		EventID:   b.EventID,
		Status:    string(b.PaymentStatus),
	})

	return b, nil
}

// MarkFailed moves a pending booking to failed and gives everything it held
// back: capacity, seats and the discount usage. Its tickets expire.
func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*domain.Booking, error) {
	const op = "service.booking.MarkFailed"

	cur, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cur.PaymentStatus == domain.PaymentFailed {
		return cur, nil
	}

	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "payment failed"
	}

	b, err := s.repos.Bookings.MarkFailed(ctx, id, reason)
	if err != nil {
		err = s.transitionErr(err)
		if errors.Is(err, ErrInvariantViolation) {
			s.log.ErrorContext(ctx, "mark failed",
				slog.String("booking_id", id.String()),
				slog.Bool("invariant", true),
				slog.Any("err", err),
			)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ttIDs := make([]int64, 0, len(b.Details))
	for _, d := range b.Details {
		ttIDs = append(ttIDs, d.TicketTypeID)
	}

	s.invalidate(ctx, b.EventID, ttIDs...)
	events.Emit(ctx, s.pub, s.log, events.TypeBookingFailed, b.ID.String(), events.BookingStatusChanged{
		BookingID: b.ID,
		EventID:   b.EventID,
		Status:    string(b.PaymentStatus),
		Reason:    reason,
	})

	return b, nil
}

func (s *Service) transitionErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrBookingNotFound
	case errors.Is(err, repository.ErrInvalidState):
		return ErrInvalidPaymentTransition
	case errors.Is(err, repository.ErrInvariantViolation):
		return errors.Join(ErrInvariantViolation, err)
	}
	return err
}

// ExpireReservations releases every pending lease past its expiry.
//
// Returns:
//   - int64: the number of released leases.
//   - error: if the sweep fails.
func (s *Service) ExpireReservations(ctx context.Context) (int64, error) {
	const op = "service.booking.ExpireReservations"

	n, err := s.repos.Inventory.ExpireReservations(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func (s *Service) invalidate(ctx context.Context, eventID int64, ticketTypeIDs ...int64) {
	if err := s.cache.InvalidateEvent(ctx, eventID, ticketTypeIDs...); err != nil {
		s.log.WarnContext(ctx, "invalidate cache",
			slog.Int64("event_id", eventID),
			slog.Any("err", err),
		)
	}
}

func (s *Service) logOutcome(ctx context.Context, op string, req PurchaseRequest, err error) {
	attrs := []any{
		slog.String("op", op),
		slog.Int64("user_id", req.UserID),
		slog.Int64("event_id", req.EventID),
		slog.Any("err", err),
	}

	switch {
	case errors.Is(err, ErrInvariantViolation):
		s.log.ErrorContext(ctx, "purchase", append(attrs, slog.Bool("invariant", true))...)
	case errors.Is(err, ErrPurchaseFailed):
		s.log.ErrorContext(ctx, "purchase", attrs...)
	default:
		s.log.InfoContext(ctx, "purchase rejected", attrs...)
	}
}

func ticketTypeIDs(lines []line) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ticketType.ID)
	}
	return ids
}
