package redisrepo

import "fmt"

const ns = "tixbooking:v1"

func KeyEventStats(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:stats", ns, eventID)
}

func KeyEventAttendeeStats(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:attendees", ns, eventID)
}

func KeyTicketTypeStats(ticketTypeID int64) string {
	return fmt.Sprintf("%s:ticket-type:%d:stats", ns, ticketTypeID)
}

func KeyIdemPurchase(userID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:purchase:%d:%s", ns, userID, idemKey)
}

func KeyRateLimit(suffix string) string {
	return fmt.Sprintf("%s:rl:%s", ns, suffix)
}
