package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPatch       = errors.New("invalid patch")
	ErrCapacityBelowSold  = errors.New("capacity below sold and held tickets")
	ErrInvalidEventStatus = errors.New("invalid event status")
)

// TicketTypePatch enumerates the mutable fields of a ticket type.
type TicketTypePatch struct {
	Name           *string
	UnitPriceCents *int64
	TotalCapacity  *int
}

func (p TicketTypePatch) Empty() bool {
	return p.Name == nil && p.UnitPriceCents == nil && p.TotalCapacity == nil
}

// Apply returns the ticket type after the patch. A capacity change shifts
// remaining capacity by the same delta, so tickets already sold or held stay
// accounted for; a change that would leave remaining capacity negative is
// rejected. Price changes never touch existing booking details.
func (t TicketType) Apply(p TicketTypePatch) (TicketType, error) {
	out := t

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return t, fmt.Errorf("%w: name is empty", ErrInvalidPatch)
		}
		out.Name = name
	}

	if p.UnitPriceCents != nil {
		if *p.UnitPriceCents < 0 || *p.UnitPriceCents > MaxUnitPriceCents {
			return t, fmt.Errorf("%w: price out of range", ErrInvalidPatch)
		}
		out.UnitPriceCents = *p.UnitPriceCents
	}

	if p.TotalCapacity != nil {
		if *p.TotalCapacity < 0 {
			return t, fmt.Errorf("%w: negative capacity", ErrInvalidPatch)
		}

		delta := *p.TotalCapacity - t.TotalCapacity
		if t.RemainingCapacity+delta < 0 {
			return t, fmt.Errorf(
				"%w: %d taken, requested total %d",
				ErrCapacityBelowSold, t.TotalCapacity-t.RemainingCapacity, *p.TotalCapacity,
			)
		}

		out.TotalCapacity = *p.TotalCapacity
		out.RemainingCapacity = t.RemainingCapacity + delta
	}

	return out, nil
}
