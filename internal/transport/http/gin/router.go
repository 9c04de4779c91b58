package httpgin

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/tix-booking/internal/domain"
	redisrepo "github.com/kirinyoku/tix-booking/internal/repository/redis"
	"github.com/kirinyoku/tix-booking/internal/service"
	"github.com/kirinyoku/tix-booking/internal/service/admin"
	"github.com/kirinyoku/tix-booking/internal/service/booking"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Options struct {
	Idempotency *redisrepo.IdempotencyStore
	Limiter     *redisrepo.SlidingWindowLimiter
	// JWTSecret enables bearer authentication when set. Admin routes then
	// require the organizer role.
	JWTSecret string
}

func NewRouter(
	svcs *service.Services,
	opts Options,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public read API
	r.GET("/events/:id/stats", handleEventStats(svcs))
	r.GET("/events/:id/seats", handleListEventSeats(svcs))
	r.GET("/events/:id/attendees/stats", handleAttendeeStats(svcs))
	r.GET("/ticket-types/:id/stats", handleTicketTypeStats(svcs))

	var authn []gin.HandlerFunc
	if opts.JWTSecret != "" {
		authn = append(authn, JWTAuth(opts.JWTSecret))
	}

	// organizer-only when auth is on: payment callbacks, door scans, admin
	staffMW := append([]gin.HandlerFunc{}, authn...)
	if opts.JWTSecret != "" {
		staffMW = append(staffMW, RequireRole(domain.RoleOrganizer))
	}

	api := r.Group("/", authn...)
	{
		api.POST("/bookings", RateLimit(opts.Limiter, logger), handlePurchase(svcs, opts.Idempotency))
		api.GET("/bookings/:id", handleGetBooking(svcs))
		api.GET("/tickets/:code", handleGetTicket(svcs))
	}

	staff := r.Group("/", staffMW...)
	{
		staff.POST("/bookings/:id/paid", handleMarkPaid(svcs))
		staff.POST("/bookings/:id/failed", handleMarkFailed(svcs))
		staff.POST("/checkin", handleCheckIn(svcs))
		staff.POST("/tickets/:code/expire", handleExpireTicket(svcs))
	}

	adm := r.Group("/admin", staffMW...)
	{
		adm.POST("/users", handleCreateUser(svcs))
		adm.POST("/events", handleCreateEvent(svcs))
		adm.PATCH("/events/:id/status", handleSetEventStatus(svcs))
		adm.POST("/events/:id/ticket-types", handleCreateTicketType(svcs))
		adm.PATCH("/ticket-types/:id", handleUpdateTicketType(svcs))
		adm.DELETE("/ticket-types/:id", handleDeleteTicketType(svcs))
		adm.POST("/events/:id/seats", handleCreateSeats(svcs))
		adm.POST("/events/:id/discounts", handleCreateDiscount(svcs))
		adm.POST("/events/:id/attendees", handleRegisterAttendee(svcs))
		adm.GET("/events/:id/attendees", handleListAttendees(svcs))
		adm.PATCH("/attendees/:id", handleUpdateAttendee(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Purchase tickets (idempotent)
// @Param    req body  PurchaseRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.Booking
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "sold out / seat taken / discount used / idem in progress"
// @Failure  422 {object} ErrorResponse "idempotency key reused with another payload"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Failure  503 {object} ErrorResponse "retry later"
// @Router   /bookings [post]
func handlePurchase(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PurchaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if uid, ok := callerID(c); ok {
			if req.UserID == 0 {
				req.UserID = uid
			}
			role, _ := c.Get(ctxRole)
			if req.UserID != uid && role != domain.RoleOrganizer {
				c.JSON(http.StatusForbidden, ErrorResponse{Error: "cannot purchase for another user"})
				return
			}
		}
		if req.UserID <= 0 {
			badRequest(c, "user_id is required")
			return
		}

		svcReq := req.toService()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey, fingerprint string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemPurchase(req.UserID, idemKey)
			fingerprint = requestFingerprint(svcReq)

			entry, err := idem.Begin(c.Request.Context(), idemStorageKey, fingerprint, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !entry.Matches(fingerprint) {
				c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "idempotency key reused with a different request"})
				return
			}

			switch entry.State {
			case redisrepo.IdemDone:
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(entry.Payload))
				return
			case redisrepo.IdemInFlight:
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		b, err := svcs.Booking.Purchase(c.Request.Context(), svcReq)
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Abort(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" {
			payload, _ := json.Marshal(b)
			_ = idem.Complete(c.Request.Context(), idemStorageKey, fingerprint, string(payload))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, b)
	}
}

// requestFingerprint identifies a purchase by its resolved content, so the
// same payload hashes the same regardless of JSON field order.
func requestFingerprint(req booking.PurchaseRequest) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// canView allows the owner and organizers. Without auth everyone may view.
func canView(c *gin.Context, ownerID int64) bool {
	uid, ok := callerID(c)
	if !ok || uid == ownerID {
		return true
	}
	role, _ := c.Get(ctxRole)
	return role == domain.RoleOrganizer
}

// @Summary  Get booking with details and tickets
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} domain.Booking
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Booking.GetBooking(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		if !canView(c, b.UserID) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Mark booking paid
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} domain.Booking
// @Failure  409 {object} ErrorResponse
// @Failure  403 {object} ErrorResponse "organizer role required"
// @Security BearerAuth
// @Router   /bookings/{id}/paid [post]
func handleMarkPaid(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Booking.MarkPaid(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Mark booking failed and release its inventory
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Param    req body  MarkFailedRequest false "payload"
// @Success  200 {object} domain.Booking
// @Failure  409 {object} ErrorResponse
// @Failure  403 {object} ErrorResponse "organizer role required"
// @Security BearerAuth
// @Router   /bookings/{id}/failed [post]
func handleMarkFailed(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req MarkFailedRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err.Error())
				return
			}
		}
		b, err := svcs.Booking.MarkFailed(c.Request.Context(), id, req.Reason)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Check in a ticket
// @Param    req body  CheckInRequest true "payload"
// @Success  200 {object} domain.AttendeeTicket
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "already redeemed / payment pending"
// @Failure  403 {object} ErrorResponse "organizer role required"
// @Security BearerAuth
// @Router   /checkin [post]
func handleCheckIn(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckInRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		t, err := svcs.CheckIn.CheckIn(c.Request.Context(), req.Code)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// @Summary  Get ticket
// @Param    code  path  string  true  "Ticket code"
// @Success  200 {object} domain.AttendeeTicket
// @Router   /tickets/{code} [get]
func handleGetTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := svcs.CheckIn.GetTicket(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondErr(c, err)
			return
		}
		if !canView(c, t.UserID) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// @Summary  Expire ticket
// @Param    code  path  string  true  "Ticket code"
// @Success  200 {object} domain.AttendeeTicket
// @Failure  403 {object} ErrorResponse "organizer role required"
// @Security BearerAuth
// @Router   /tickets/{code}/expire [post]
func handleExpireTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := svcs.CheckIn.Expire(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// @Summary  Event ticket statistics
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  domain.EventStats
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id}/stats [get]
func handleEventStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		st, err := svcs.Query.EventStats(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, st, "public, max-age=15", true)
	}
}

// @Summary  Ticket type statistics
// @Param    id  path  int  true  "Ticket type ID"
// @Success  200  {object}  domain.TicketTypeStats
// @Router   /ticket-types/{id}/stats [get]
func handleTicketTypeStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		st, err := svcs.Query.TicketTypeStats(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, st, "public, max-age=15", true)
	}
}

// @Summary  Attendee statistics
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  domain.AttendeeStats
// @Router   /events/{id}/attendees/stats [get]
func handleAttendeeStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		st, err := svcs.Query.AttendeeStats(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, st, "public, max-age=15", true)
	}
}

// @Summary  List event seats
// @Param    id     path   int     true  "Event ID"
// @Param    only   query  string  false "available"
// @Param    limit  query  int     false "page size"
// @Param    offset query  int     false "offset"
// @Success  200  {array}   domain.SeatMap
// @Router   /events/{id}/seats [get]
func handleListEventSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		onlyAvailable := c.Query("only") == "available" || c.Query("only_available") == "true"
		limit := parseIntDefault(c.Query("limit"), 100)
		offset := parseIntDefault(c.Query("offset"), 0)

		seats, err := svcs.Query.ListEventSeats(c.Request.Context(), eventID, onlyAvailable, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		if seats == nil {
			seats = []domain.SeatMap{}
		}
		writeJSONWithCache(c, http.StatusOK, seats, "public, max-age=5", true)
	}
}

// @Summary  Create user
// @Param    req body  CreateUserRequest true "payload"
// @Success  201 {object} IDResponse
// @Router   /admin/users [post]
func handleCreateUser(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := svcs.Admin.CreateUser(c.Request.Context(), admin.UserInput{
			Email: req.Email,
			Role:  domain.UserRole(req.Role),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, IDResponse{ID: id})
	}
}

// @Summary  Create event
// @Param    req body  CreateEventRequest true "payload"
// @Success  201 {object} IDResponse
// @Router   /admin/events [post]
func handleCreateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		starts, err := parseRFC3339(req.StartsAt)
		if err != nil {
			badRequest(c, "invalid starts_at (RFC3339)")
			return
		}
		if uid, ok := callerID(c); ok && req.OrganizerID == 0 {
			req.OrganizerID = uid
		}
		id, err := svcs.Admin.CreateEvent(c.Request.Context(), admin.EventInput{
			OrganizerID: req.OrganizerID,
			Title:       req.Title,
			Location:    req.Location,
			StartsAt:    starts,
			Status:      domain.EventStatus(req.Status),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, IDResponse{ID: id})
	}
}

// @Summary  Change event status
// @Param    id  path  int  true  "Event ID"
// @Param    req body  SetEventStatusRequest true "payload"
// @Success  200 {object} domain.Event
// @Router   /admin/events/{id}/status [patch]
func handleSetEventStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req SetEventStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		ev, err := svcs.Admin.SetEventStatus(c.Request.Context(), eventID, domain.EventStatus(req.Status))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ev)
	}
}

// @Summary  Create ticket type
// @Param    id  path  int  true  "Event ID"
// @Param    req body  CreateTicketTypeRequest true "payload"
// @Success  201 {object} IDResponse
// @Router   /admin/events/{id}/ticket-types [post]
func handleCreateTicketType(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CreateTicketTypeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := svcs.Admin.CreateTicketType(c.Request.Context(), eventID, admin.TicketTypeInput{
			Name:           req.Name,
			UnitPriceCents: req.UnitPriceCents,
			TotalCapacity:  req.TotalCapacity,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, IDResponse{ID: id})
	}
}

// @Summary  Update ticket type
// @Param    id  path  int  true  "Ticket type ID"
// @Param    req body  UpdateTicketTypeRequest true "payload"
// @Success  200 {object} domain.TicketType
// @Failure  409 {object} ErrorResponse "capacity below sold"
// @Router   /admin/ticket-types/{id} [patch]
func handleUpdateTicketType(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateTicketTypeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		tt, err := svcs.Admin.UpdateTicketType(c.Request.Context(), id, req.toPatch())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, tt)
	}
}

// @Summary  Delete ticket type
// @Param    id  path  int  true  "Ticket type ID"
// @Success  204
// @Failure  409 {object} ErrorResponse "in use"
// @Router   /admin/ticket-types/{id} [delete]
func handleDeleteTicketType(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Admin.DeleteTicketType(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Create seats
// @Param    id  path  int  true  "Event ID"
// @Param    req body  CreateSeatsRequest true "payload"
// @Success  201 {object} CreateSeatsResponse
// @Router   /admin/events/{id}/seats [post]
func handleCreateSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CreateSeatsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		ids, err := svcs.Admin.CreateSeats(c.Request.Context(), eventID, req.Seats)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateSeatsResponse{Created: len(ids), SeatIDs: ids})
	}
}

// @Summary  Create discount code
// @Param    id  path  int  true  "Event ID"
// @Param    req body  CreateDiscountRequest true "payload"
// @Success  201 {object} IDResponse
// @Failure  409 {object} ErrorResponse "code exists"
// @Router   /admin/events/{id}/discounts [post]
func handleCreateDiscount(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CreateDiscountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := svcs.Admin.CreateDiscount(c.Request.Context(), eventID, admin.DiscountInput{
			Code:     req.Code,
			Type:     domain.DiscountType(req.Type),
			Value:    req.Value,
			MaxUsage: req.MaxUsage,
			Status:   domain.DiscountStatus(req.Status),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, IDResponse{ID: id})
	}
}

// @Summary  Register attendee
// @Param    id  path  int  true  "Event ID"
// @Param    req body  RegisterAttendeeRequest true "payload"
// @Success  201 {object} domain.Attendee
// @Router   /admin/events/{id}/attendees [post]
func handleRegisterAttendee(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req RegisterAttendeeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		a, err := svcs.CheckIn.RegisterAttendee(c.Request.Context(), eventID, req.UserID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}

// @Summary  List attendees
// @Param    id  path  int  true  "Event ID"
// @Success  200 {array} domain.Attendee
// @Router   /admin/events/{id}/attendees [get]
func handleListAttendees(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		list, err := svcs.CheckIn.ListAttendees(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		if list == nil {
			list = []domain.Attendee{}
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Update attendee check-in status
// @Param    id  path  int  true  "Attendee ID"
// @Param    req body  UpdateAttendeeRequest true "payload"
// @Success  200 {object} domain.Attendee
// @Failure  409 {object} ErrorResponse "invalid transition"
// @Router   /admin/attendees/{id} [patch]
func handleUpdateAttendee(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateAttendeeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		a, err := svcs.CheckIn.UpdateAttendee(c.Request.Context(), id, req.toPatch())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
