package httpgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/service/admin"
	"github.com/kirinyoku/tix-booking/internal/service/booking"
	"github.com/kirinyoku/tix-booking/internal/service/checkin"
	"github.com/kirinyoku/tix-booking/internal/service/query"
)

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	_ = c.Error(err)

	var seatErr booking.SeatUnavailableError
	var invErr booking.InsufficientInventoryError

	switch {
	// checked first: a violation may be joined with any other error
	case errors.Is(err, booking.ErrInvariantViolation):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return

	// booking service
	case errors.Is(err, booking.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, booking.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	case errors.Is(err, booking.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
		return
	case errors.Is(err, booking.ErrEventNotSellable):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "event is not on sale"})
		return
	case errors.Is(err, booking.ErrTicketTypeMismatch):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "ticket type does not belong to event"})
		return
	case errors.As(err, &invErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "insufficient inventory",
			Details: gin.H{"ticket_type_id": invErr.TicketTypeID, "requested": invErr.Requested},
		})
		return
	case errors.As(err, &seatErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "seat unavailable",
			Details: gin.H{"seat_id": seatErr.SeatMapID, "seat_ids": seatErr.SeatIDs},
		})
		return
	case errors.Is(err, booking.ErrInsufficientInventory):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "insufficient inventory"})
		return
	case errors.Is(err, booking.ErrSeatUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "seat unavailable"})
		return
	case errors.Is(err, booking.ErrDiscountInvalid):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "discount code invalid"})
		return
	case errors.Is(err, booking.ErrDiscountExhausted):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "discount code exhausted"})
		return
	case errors.Is(err, booking.ErrDiscountAlreadyUsed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "discount code already used"})
		return
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
		return
	case errors.Is(err, booking.ErrInvalidPaymentTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "invalid payment transition"})
		return
	case errors.Is(err, booking.ErrPurchaseFailed):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "purchase failed, retry later"})
		return

	// check-in service
	case errors.Is(err, checkin.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
		return
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, checkin.ErrPaymentPending):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "booking is not paid"})
		return
	case errors.Is(err, checkin.ErrAttendeeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "attendee not found"})
		return
	case errors.Is(err, checkin.ErrAttendeeExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "attendee exists"})
		return
	case errors.Is(err, checkin.ErrEventOrUserAbsent):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event or user not found"})
		return
	case errors.Is(err, checkin.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid check-in status"})
		return
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "invalid check-in transition"})
		return

	// query service
	case errors.Is(err, query.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
		return
	case errors.Is(err, query.ErrTicketTypeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket type not found"})
		return

	// admin service
	case errors.Is(err, admin.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, admin.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
		return
	case errors.Is(err, admin.ErrTicketTypeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket type not found"})
		return
	case errors.Is(err, admin.ErrTicketTypeInUse):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "ticket type in use"})
		return
	case errors.Is(err, admin.ErrCapacityBelowSold):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "capacity below sold and held tickets"})
		return
	case errors.Is(err, admin.ErrDiscountConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "discount conflict"})
		return
	case errors.Is(err, admin.ErrUserConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "user conflict"})
		return
	}

	c.Header("Retry-After", "1")
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "service unavailable"})
}
