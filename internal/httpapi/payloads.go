package httpapi

import (
	"encoding/json"
	"time"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
)

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type bookingRequest struct {
	UnitID      string          `json:"unit_id"`
	Start       *time.Time      `json:"start"`
	End         *time.Time      `json:"end"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Granularity string          `json:"granularity"`
	Metadata    json.RawMessage `json:"metadata"`
}

type quoteRequest struct {
	UnitID      string    `json:"unit_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Granularity string    `json:"granularity"`
}

type returnRequest struct {
	ActualReturn *time.Time `json:"actual_return"`
}

type modelRequest struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	HourlyRate int64  `json:"hourly_rate_cents"`
	DailyRate  int64  `json:"daily_rate_cents"`
	SellerID   string `json:"seller_id"`
}

type unitRequest struct {
	ModelID     string `json:"model_id"`
	NumberPlate string `json:"number_plate"`
}

type renterPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type sessionPayload struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Renter    renterPayload `json:"renter"`
}

type modelPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	HourlyRate int64  `json:"hourly_rate_cents"`
	DailyRate  int64  `json:"daily_rate_cents"`
	SellerID   string `json:"seller_id,omitempty"`
}

type unitPayload struct {
	ID          string `json:"id"`
	ModelID     string `json:"model_id"`
	NumberPlate string `json:"number_plate"`
	Available   bool   `json:"available"`
}

type bookingPayload struct {
	ID           string          `json:"id"`
	RenterID     string          `json:"renter_id"`
	UnitID       string          `json:"unit_id"`
	Start        time.Time       `json:"start"`
	End          time.Time       `json:"end"`
	StartDate    string          `json:"start_date,omitempty"`
	EndDate      string          `json:"end_date,omitempty"`
	Granularity  string          `json:"granularity"`
	Basis        string          `json:"basis"`
	Status       string          `json:"status"`
	TotalAmount  int64           `json:"total_amount_cents"`
	Fine         int64           `json:"fine_cents"`
	ActualReturn *time.Time      `json:"actual_return,omitempty"`
	Metadata     json.RawMessage `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
}

type quotePayload struct {
	UnitID      string `json:"unit_id"`
	Granularity string `json:"granularity"`
	AmountCents int64  `json:"amount_cents"`
}

type reconcilePayload struct {
	Corrected []string `json:"corrected_unit_ids"`
}

func newRenterPayload(renter rental.Renter) renterPayload {
	return renterPayload{
		ID:          renter.ID.String(),
		Email:       renter.Email,
		DisplayName: renter.DisplayName,
		Role:        renter.Role,
	}
}

func newModelPayload(model rental.Model) modelPayload {
	return modelPayload{
		ID:         model.ID.String(),
		Name:       model.Name,
		Category:   model.Category,
		HourlyRate: model.Rates.Hourly.Int64(),
		DailyRate:  model.Rates.Daily.Int64(),
		SellerID:   model.SellerID.String(),
	}
}

func newModelPayloads(models []rental.Model) []modelPayload {
	payloads := make([]modelPayload, 0, len(models))
	for _, model := range models {
		payloads = append(payloads, newModelPayload(model))
	}
	return payloads
}

func newUnitPayload(unit rental.Unit) unitPayload {
	return unitPayload{
		ID:          unit.ID.String(),
		ModelID:     unit.ModelID.String(),
		NumberPlate: unit.NumberPlate,
		Available:   unit.Available,
	}
}

func newUnitPayloads(units []rental.Unit) []unitPayload {
	payloads := make([]unitPayload, 0, len(units))
	for _, unit := range units {
		payloads = append(payloads, newUnitPayload(unit))
	}
	return payloads
}

// newBookingPayload reports calendar bookings with an inclusive end date.
func newBookingPayload(booking rental.Booking) bookingPayload {
	payload := bookingPayload{
		ID:           booking.ID.String(),
		RenterID:     booking.RenterID.String(),
		UnitID:       booking.UnitID.String(),
		Start:        booking.Start.UTC(),
		End:          booking.End.UTC(),
		Granularity:  booking.Granularity.String(),
		Basis:        string(booking.Basis),
		Status:       string(booking.Status),
		TotalAmount:  booking.TotalAmount.Int64(),
		Fine:         booking.Fine.Int64(),
		ActualReturn: booking.ActualReturn,
		Metadata:     json.RawMessage(booking.Metadata.String()),
		CreatedAt:    booking.CreatedAt.UTC(),
	}
	if booking.Basis == rental.BasisCalendar {
		payload.StartDate = booking.Start.UTC().Format(rental.DateLayout)
		payload.EndDate = booking.End.UTC().AddDate(0, 0, -1).Format(rental.DateLayout)
	}
	return payload
}

func newBookingPayloads(bookings []rental.Booking) []bookingPayload {
	payloads := make([]bookingPayload, 0, len(bookings))
	for _, booking := range bookings {
		payloads = append(payloads, newBookingPayload(booking))
	}
	return payloads
}

func metadataString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	return string(raw)
}
