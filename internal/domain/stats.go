package domain

type TicketTypeStats struct {
	TicketTypeID    int64   `json:"ticket_type_id"`
	EventID         int64   `json:"event_id"`
	Name            string  `json:"name"`
	UnitPriceCents  int64   `json:"unit_price_cents"`
	TotalCapacity   int     `json:"total_quantity"`
	Sold            int     `json:"sold_quantity"`
	Held            int     `json:"held_quantity"`
	Remaining       int     `json:"remaining_quantity"`
	SalesPercentage float64 `json:"sales_percentage"`
	RevenueCents    int64   `json:"revenue_cents"`
	OnSale          bool    `json:"is_on_sale"`
}

type EventStats struct {
	EventID           int64             `json:"event_id"`
	TotalTickets      int               `json:"total_tickets"`
	TotalSold         int               `json:"total_sold"`
	TotalHeld         int               `json:"total_held"`
	TotalRemaining    int               `json:"total_remaining"`
	GrossRevenueCents int64             `json:"gross_revenue_cents"`
	NetRevenueCents   int64             `json:"net_revenue_cents"`
	SalesPercentage   float64           `json:"overall_sales_percentage"`
	TicketTypes       []TicketTypeStats `json:"ticket_statuses"`
}

type AttendeeStats struct {
	EventID     int64   `json:"event_id"`
	Total       int     `json:"total_attendees"`
	CheckedIn   int     `json:"checked_in"`
	Pending     int     `json:"pending"`
	Cancelled   int     `json:"cancelled"`
	NoShow      int     `json:"no_show"`
	CheckInRate float64 `json:"check_in_rate"`
}

// TicketSales is the committed, non-failed quantity and gross revenue of one
// ticket type, read from booking details.
type TicketSales struct {
	TicketTypeID int64
	Quantity     int
	RevenueCents int64
}

// Percentage returns part/total*100 rounded to two decimals.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(int64(float64(part)/float64(total)*10000+0.5)) / 100
}
