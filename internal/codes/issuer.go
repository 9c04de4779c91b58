package codes

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

const (
	BookingPrefix = "BK-"
	TicketPrefix  = "TK-"
)

// Issuer produces opaque random codes for bookings and attendee tickets.
// Codes carry 122 random bits and no ordering, so adjacent codes cannot be
// guessed. Uniqueness is enforced by the store; callers retry on collision.
type Issuer struct {
	mu  sync.Mutex
	rnd io.Reader
}

func NewIssuer() *Issuer {
	return &Issuer{rnd: rand.Reader}
}

// NewIssuerFromReader draws randomness from r. It is meant for tests that
// need reproducible or colliding codes.
func NewIssuerFromReader(r io.Reader) *Issuer {
	return &Issuer{rnd: r}
}

func (i *Issuer) IssueBookingCode() (string, error) {
	return i.issue(BookingPrefix)
}

func (i *Issuer) IssueTicketCode() (string, error) {
	return i.issue(TicketPrefix)
}

func (i *Issuer) issue(prefix string) (string, error) {
	const op = "codes.Issuer.issue"

	i.mu.Lock()
	id, err := uuid.NewRandomFromReader(i.rnd)
	i.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	return prefix + hex.EncodeToString(id[:]), nil
}
