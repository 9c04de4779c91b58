package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

func (s *Store) TryRedeem(ctx context.Context, userID, discountID int64) (*domain.Redemption, error) {
	const op = "memory.Store.TryRedeem"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	e, ok := s.discountEntry(discountID)
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.d.Status != domain.DiscountActive {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrDiscountInactive)
	}

	if _, used := e.usages[userID]; used {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrDiscountAlreadyUsed)
	}

	if e.d.UsedCount >= e.d.MaxUsage {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrDiscountExhausted)
	}

	r := &domain.Redemption{
		ID:         uuid.New(),
		DiscountID: discountID,
		UserID:     userID,
		UsedAt:     s.now(),
	}

	e.usages[userID] = r
	e.d.UsedCount++

	s.regMu.Lock()
	s.redemptions[r.ID] = discountID
	s.regMu.Unlock()

	out := *r
	return &out, nil
}

// Cancel drops a usage that has not been linked to a booking. Unknown
// redemptions are a no-op.
func (s *Store) Cancel(ctx context.Context, redemptionID uuid.UUID) error {
	const op = "memory.Store.Cancel"

	s.regMu.RLock()
	discountID, ok := s.redemptions[redemptionID]
	s.regMu.RUnlock()
	if !ok {
		return nil
	}

	e, ok := s.discountEntry(discountID)
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for userID, r := range e.usages {
		if r.ID != redemptionID {
			continue
		}
		if r.BookingID != nil {
			return fmt.Errorf("%s:%w", op, repository.ErrInvalidState)
		}
		delete(e.usages, userID)
		e.d.UsedCount--
		break
	}

	s.regMu.Lock()
	delete(s.redemptions, redemptionID)
	s.regMu.Unlock()

	return nil
}

// Reversals returns the audit trail of undone discount usages.
func (s *Store) Reversals(ctx context.Context, discountID int64) ([]domain.DiscountReversal, error) {
	s.bookMu.RLock()
	defer s.bookMu.RUnlock()

	var out []domain.DiscountReversal
	for _, r := range s.reversals {
		if r.DiscountID == discountID {
			out = append(out, r)
		}
	}

	return out, nil
}
