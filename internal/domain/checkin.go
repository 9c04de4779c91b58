package domain

import (
	"errors"
	"fmt"
	"time"
)

type CheckInStatus string

const (
	CheckInPending   CheckInStatus = "pending"
	CheckedIn        CheckInStatus = "checked_in"
	CheckInCancelled CheckInStatus = "cancelled"
	CheckInNoShow    CheckInStatus = "no_show"
)

var (
	ErrInvalidTransition = errors.New("invalid check-in transition")
	ErrAlreadyRedeemed   = errors.New("ticket already redeemed")
)

var attendeeTransitions = map[CheckInStatus][]CheckInStatus{
	CheckInPending: {CheckedIn, CheckInCancelled, CheckInNoShow},
	CheckedIn:      {CheckInPending},
}

func (s CheckInStatus) Valid() bool {
	switch s {
	case CheckInPending, CheckedIn, CheckInCancelled, CheckInNoShow:
		return true
	}
	return false
}

func (s CheckInStatus) CanTransitionTo(next CheckInStatus) bool {
	for _, allowed := range attendeeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AttendeePatch enumerates the mutable fields of an attendee.
type AttendeePatch struct {
	Status      *CheckInStatus
	CheckInTime *time.Time
}

// Apply returns the attendee after the patch. Entering checked_in stamps the
// check-in time (now unless supplied); leaving checked_in clears it.
func (a Attendee) Apply(p AttendeePatch, now time.Time) (Attendee, error) {
	next := a.CheckInStatus
	if p.Status != nil {
		next = *p.Status
	}

	if !next.Valid() {
		return a, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}

	if next != a.CheckInStatus && !a.CheckInStatus.CanTransitionTo(next) {
		return a, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.CheckInStatus, next)
	}

	if next != CheckedIn && p.CheckInTime != nil {
		return a, fmt.Errorf("%w: check-in time requires status %s", ErrInvalidTransition, CheckedIn)
	}

	out := a
	out.CheckInStatus = next

	switch {
	case next == CheckedIn && p.CheckInTime != nil:
		t := *p.CheckInTime
		out.CheckInTime = &t
	case next == CheckedIn && a.CheckInStatus != CheckedIn:
		t := now
		out.CheckInTime = &t
	case next != CheckedIn:
		out.CheckInTime = nil
	}

	return out, nil
}

type AlreadyRedeemedError struct {
	Code   string
	Status TicketStatus
}

func (e AlreadyRedeemedError) Error() string {
	return fmt.Sprintf("ticket %s already %s", e.Code, e.Status)
}

func (e AlreadyRedeemedError) Is(target error) bool {
	return target == ErrAlreadyRedeemed
}

// Redeem moves a valid ticket to used. Used and expired tickets are terminal.
func (t AttendeeTicket) Redeem(now time.Time) (AttendeeTicket, error) {
	if t.Status.Terminal() {
		return t, AlreadyRedeemedError{Code: t.Code, Status: t.Status}
	}

	out := t
	out.Status = TicketUsed
	out.UsedAt = &now

	return out, nil
}

// Expire moves a valid ticket to expired.
func (t AttendeeTicket) Expire() (AttendeeTicket, error) {
	if t.Status.Terminal() {
		return t, AlreadyRedeemedError{Code: t.Code, Status: t.Status}
	}

	out := t
	out.Status = TicketExpired

	return out, nil
}
