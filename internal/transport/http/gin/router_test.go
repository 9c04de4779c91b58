package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/events"
	"github.com/kirinyoku/tix-booking/internal/repository/memory"
	redisrepo "github.com/kirinyoku/tix-booking/internal/repository/redis"
	"github.com/kirinyoku/tix-booking/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type harness struct {
	router       *gin.Engine
	store        *memory.Store
	userID       int64
	organizerID  int64
	eventID      int64
	ticketTypeID int64
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	store := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	organizerID, err := store.CreateUser(ctx, domain.User{Email: "org@example.com", Role: domain.RoleOrganizer})
	require.NoError(t, err)
	userID, err := store.CreateUser(ctx, domain.User{Email: "fan@example.com", Role: domain.RoleAttendee})
	require.NoError(t, err)
	eventID, err := store.CreateEvent(ctx, domain.Event{
		OrganizerID: organizerID,
		Title:       "Concert",
		StartsAt:    time.Now().Add(48 * time.Hour),
		Status:      domain.EventPublished,
	})
	require.NoError(t, err)
	ttID, err := store.CreateTicketType(ctx, domain.TicketType{
		EventID:        eventID,
		Name:           "GA",
		UnitPriceCents: 2000,
		TotalCapacity:  5,
	})
	require.NoError(t, err)

	svcs := service.NewServices(service.MemoryBackend(store), nil, events.NewLogPublisher(log), log, service.Config{})

	return &harness{
		router:       NewRouter(svcs, opts, log),
		store:        store,
		userID:       userID,
		organizerID:  organizerID,
		eventID:      eventID,
		ticketTypeID: ttID,
	}
}

func (h *harness) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) purchaseBody(qty int) gin.H {
	return gin.H{
		"user_id":  h.userID,
		"event_id": h.eventID,
		"items":    []gin.H{{"ticket_type_id": h.ticketTypeID, "quantity": qty}},
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func token(t *testing.T, userID int64, role domain.UserRole) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func TestPurchasePayCheckIn(t *testing.T) {
	h := newHarness(t, Options{})

	w := h.do(t, http.MethodPost, "/bookings", h.purchaseBody(2), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b := decode[domain.Booking](t, w)
	assert.Equal(t, int64(4000), b.TotalCents)
	assert.Equal(t, domain.PaymentPending, b.PaymentStatus)
	require.Len(t, b.Tickets, 2)

	w = h.do(t, http.MethodGet, "/bookings/"+b.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodPost, "/checkin", gin.H{"code": b.Tickets[0].Code}, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "unpaid booking")

	w = h.do(t, http.MethodPost, "/bookings/"+b.ID.String()+"/paid", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.PaymentPaid, decode[domain.Booking](t, w).PaymentStatus)

	w = h.do(t, http.MethodPost, "/checkin", gin.H{"code": b.Tickets[0].Code}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.TicketUsed, decode[domain.AttendeeTicket](t, w).Status)

	w = h.do(t, http.MethodPost, "/checkin", gin.H{"code": b.Tickets[0].Code}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, http.MethodPost, "/bookings/"+b.ID.String()+"/failed", gin.H{"reason": "chargeback"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPurchaseErrors(t *testing.T) {
	h := newHarness(t, Options{})

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"malformed", gin.H{"items": "nope"}, http.StatusBadRequest},
		{"no user", gin.H{"event_id": h.eventID, "items": []gin.H{{"ticket_type_id": h.ticketTypeID, "quantity": 1}}}, http.StatusBadRequest},
		{"too many", h.purchaseBody(6), http.StatusConflict},
		{"unknown event", gin.H{
			"user_id":  h.userID,
			"event_id": 9999,
			"items":    []gin.H{{"ticket_type_id": h.ticketTypeID, "quantity": 1}},
		}, http.StatusNotFound},
		{"bad discount", gin.H{
			"user_id":       h.userID,
			"event_id":      h.eventID,
			"items":         []gin.H{{"ticket_type_id": h.ticketTypeID, "quantity": 1}},
			"discount_code": "NOPE",
		}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(t, http.MethodPost, "/bookings", tt.body, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w := h.do(t, http.MethodGet, "/bookings/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodGet, "/bookings/00000000-0000-0000-0000-000000000001", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	tt, err := h.store.GetTicketType(context.Background(), h.ticketTypeID)
	require.NoError(t, err)
	assert.Equal(t, 5, tt.RemainingCapacity)
}

func TestInsufficientInventoryDetails(t *testing.T) {
	h := newHarness(t, Options{})

	w := h.do(t, http.MethodPost, "/bookings", h.purchaseBody(6), nil)
	require.Equal(t, http.StatusConflict, w.Code)

	resp := decode[struct {
		Error   string         `json:"error"`
		Details map[string]any `json:"details"`
	}](t, w)
	assert.Equal(t, "insufficient inventory", resp.Error)
	assert.EqualValues(t, h.ticketTypeID, resp.Details["ticket_type_id"])
	assert.EqualValues(t, 6, resp.Details["requested"])
}

func TestIdempotentPurchase(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := newHarness(t, Options{Idempotency: redisrepo.NewIdempotencyStore(rdb, time.Hour)})
	headers := map[string]string{"Idempotency-Key": "abc-123"}

	first := h.do(t, http.MethodPost, "/bookings", h.purchaseBody(1), headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Equal(t, "abc-123", first.Header().Get("Idempotency-Key"))

	second := h.do(t, http.MethodPost, "/bookings", h.purchaseBody(1), headers)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, decode[domain.Booking](t, first).ID, decode[domain.Booking](t, second).ID)

	tt, err := h.store.GetTicketType(context.Background(), h.ticketTypeID)
	require.NoError(t, err)
	assert.Equal(t, 4, tt.RemainingCapacity)

	// same key, different payload
	reused := h.do(t, http.MethodPost, "/bookings", h.purchaseBody(2), headers)
	assert.Equal(t, http.StatusUnprocessableEntity, reused.Code, reused.Body.String())

	tt, err = h.store.GetTicketType(context.Background(), h.ticketTypeID)
	require.NoError(t, err)
	assert.Equal(t, 4, tt.RemainingCapacity)

	// a failed attempt releases the key so the client can retry
	failed := h.do(t, http.MethodPost, "/bookings", h.purchaseBody(9), map[string]string{"Idempotency-Key": "big"})
	require.Equal(t, http.StatusConflict, failed.Code)
	assert.False(t, mr.Exists(redisrepo.KeyIdemPurchase(h.userID, "big")))
}

func TestIdempotencyKeyInFlight(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	idem := redisrepo.NewIdempotencyStore(rdb, time.Hour)
	h := newHarness(t, Options{Idempotency: idem})

	inFlight := PurchaseRequest{
		UserID:  h.userID,
		EventID: h.eventID,
		Items:   []LineItemRequest{{TicketTypeID: h.ticketTypeID, Quantity: 1}},
	}
	entry, err := idem.Begin(context.Background(), redisrepo.KeyIdemPurchase(h.userID, "busy"),
		requestFingerprint(inFlight.toService()), time.Minute)
	require.NoError(t, err)
	require.Equal(t, redisrepo.IdemAcquired, entry.State)

	w := h.do(t, http.MethodPost, "/bookings", h.purchaseBody(1), map[string]string{"Idempotency-Key": "busy"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := newHarness(t, Options{Limiter: redisrepo.NewSlidingWindowLimiter(rdb, 1, time.Minute)})

	w := h.do(t, http.MethodPost, "/bookings", h.purchaseBody(1), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(t, http.MethodPost, "/bookings", h.purchaseBody(1), nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestStatsETag(t *testing.T) {
	h := newHarness(t, Options{})

	w := h.do(t, http.MethodPost, "/bookings", h.purchaseBody(2), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	path := "/events/" + strconv.FormatInt(h.eventID, 10) + "/stats"
	w = h.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[domain.EventStats](t, w)
	assert.Equal(t, 5, st.TotalTickets)
	assert.Equal(t, 2, st.TotalSold)
	assert.Equal(t, 3, st.TotalRemaining)
	assert.Equal(t, int64(4000), st.GrossRevenueCents)

	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	w = h.do(t, http.MethodGet, path, nil, map[string]string{"If-None-Match": tag})
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = h.do(t, http.MethodGet, "/events/9999/stats", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	h := newHarness(t, Options{})
	eventPath := "/admin/events/" + strconv.FormatInt(h.eventID, 10)

	w := h.do(t, http.MethodPost, "/admin/events", gin.H{
		"organizer_id": h.organizerID,
		"title":        "Meetup",
		"starts_at":    time.Now().Add(time.Hour).Format(time.RFC3339),
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(t, http.MethodPost, eventPath+"/ticket-types", gin.H{
		"name": "VIP", "unit_price_cents": 5000, "total_capacity": 2,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	vip := decode[IDResponse](t, w).ID

	w = h.do(t, http.MethodPost, eventPath+"/seats", gin.H{
		"seats": []gin.H{{"row": "A", "seat_number": "1"}, {"row": "A", "seat_number": "2"}},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[CreateSeatsResponse](t, w).Created)

	w = h.do(t, http.MethodPost, eventPath+"/discounts", gin.H{
		"code": "half", "type": "percentage", "value": 50, "max_usage": 1,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(t, http.MethodPost, eventPath+"/discounts", gin.H{
		"code": "HALF", "type": "percentage", "value": 10, "max_usage": 1,
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, http.MethodPost, "/bookings", gin.H{
		"user_id":       h.userID,
		"event_id":      h.eventID,
		"items":         []gin.H{{"ticket_type_id": vip, "quantity": 1}},
		"discount_code": "half",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, int64(2500), decode[domain.Booking](t, w).TotalCents)

	ttPath := "/admin/ticket-types/" + strconv.FormatInt(vip, 10)
	w = h.do(t, http.MethodPatch, ttPath, gin.H{"total_capacity": 0}, nil)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = h.do(t, http.MethodDelete, ttPath, nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, http.MethodPatch, eventPath+"/status", gin.H{"status": "cancelled"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodPost, "/bookings", h.purchaseBody(1), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, eventPath+"/attendees", gin.H{"user_id": h.userID}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	att := decode[domain.Attendee](t, w)

	w = h.do(t, http.MethodPatch, "/admin/attendees/"+strconv.FormatInt(att.ID, 10), gin.H{"check_in_status": "checked_in"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, http.MethodPatch, "/admin/attendees/"+strconv.FormatInt(att.ID, 10), gin.H{"check_in_status": "no_show"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, http.MethodGet, "/events/"+strconv.FormatInt(h.eventID, 10)+"/attendees/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[domain.AttendeeStats](t, w).CheckedIn)
}

func TestJWTAuth(t *testing.T) {
	h := newHarness(t, Options{JWTSecret: testSecret})

	body := gin.H{
		"event_id": h.eventID,
		"items":    []gin.H{{"ticket_type_id": h.ticketTypeID, "quantity": 1}},
	}

	w := h.do(t, http.MethodPost, "/bookings", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodPost, "/bookings", body, map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	fan := map[string]string{"Authorization": token(t, h.userID, domain.RoleAttendee)}
	w = h.do(t, http.MethodPost, "/bookings", body, fan)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, h.userID, decode[domain.Booking](t, w).UserID)

	body["user_id"] = h.organizerID
	w = h.do(t, http.MethodPost, "/bookings", body, fan)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodPost, "/admin/users", gin.H{"email": "x@example.com", "role": "attendee"}, fan)
	assert.Equal(t, http.StatusForbidden, w.Code)

	org := map[string]string{"Authorization": token(t, h.organizerID, domain.RoleOrganizer)}
	w = h.do(t, http.MethodPost, "/admin/users", gin.H{"email": "x@example.com", "role": "attendee"}, org)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// public reads stay open
	w = h.do(t, http.MethodGet, "/events/"+strconv.FormatInt(h.eventID, 10)+"/stats", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentAndDoorRoutesRequireOrganizer(t *testing.T) {
	h := newHarness(t, Options{JWTSecret: testSecret})

	otherID, err := h.store.CreateUser(context.Background(), domain.User{Email: "other@example.com", Role: domain.RoleAttendee})
	require.NoError(t, err)

	fan := map[string]string{"Authorization": token(t, h.userID, domain.RoleAttendee)}
	other := map[string]string{"Authorization": token(t, otherID, domain.RoleAttendee)}
	org := map[string]string{"Authorization": token(t, h.organizerID, domain.RoleOrganizer)}

	w := h.do(t, http.MethodPost, "/bookings", h.purchaseBody(1), fan)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b := decode[domain.Booking](t, w)
	code := b.Tickets[0].Code

	for _, caller := range []map[string]string{fan, other} {
		for _, path := range []string{
			"/bookings/" + b.ID.String() + "/paid",
			"/bookings/" + b.ID.String() + "/failed",
			"/tickets/" + code + "/expire",
		} {
			w = h.do(t, http.MethodPost, path, nil, caller)
			assert.Equal(t, http.StatusForbidden, w.Code, path)
		}
		w = h.do(t, http.MethodPost, "/checkin", gin.H{"code": code}, caller)
		assert.Equal(t, http.StatusForbidden, w.Code)
	}

	w = h.do(t, http.MethodGet, "/bookings/"+b.ID.String(), nil, fan)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.PaymentPending, decode[domain.Booking](t, w).PaymentStatus)

	w = h.do(t, http.MethodGet, "/tickets/"+code, nil, other)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = h.do(t, http.MethodGet, "/tickets/"+code, nil, fan)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.TicketValid, decode[domain.AttendeeTicket](t, w).Status)

	w = h.do(t, http.MethodPost, "/bookings/"+b.ID.String()+"/paid", nil, org)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, http.MethodPost, "/checkin", gin.H{"code": code}, org)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.TicketUsed, decode[domain.AttendeeTicket](t, w).Status)
}
