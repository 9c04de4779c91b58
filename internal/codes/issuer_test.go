package codes

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_Format(t *testing.T) {
	i := NewIssuer()

	b, err := i.IssueBookingCode()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(b, BookingPrefix))
	assert.Len(t, b, len(BookingPrefix)+32)

	tk, err := i.IssueTicketCode()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tk, TicketPrefix))
}

func TestIssuer_Unique(t *testing.T) {
	i := NewIssuer()

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
		wg   sync.WaitGroup
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 250; n++ {
				c, err := i.IssueTicketCode()
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				seen[c] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 2000)
}

func TestIssuer_FromReader(t *testing.T) {
	chunk := bytes.Repeat([]byte{0xab}, 16)

	a, err := NewIssuerFromReader(bytes.NewReader(chunk)).IssueBookingCode()
	require.NoError(t, err)
	b, err := NewIssuerFromReader(bytes.NewReader(chunk)).IssueBookingCode()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = NewIssuerFromReader(bytes.NewReader(nil)).IssueTicketCode()
	assert.Error(t, err)
}
