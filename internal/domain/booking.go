package domain

import (
	"fmt"
	"math"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentVoid    PaymentStatus = "void"
)

// Listing is a bookable property owned by an owner account. Price is the
// nightly rate in whole dollars.
type Listing struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Title     string    `json:"title"`
	Location  string    `json:"location"`
	Price     int64     `json:"price"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GuestSnapshot is the guest contact info captured at booking time, so the
// booking record stays meaningful even if the account changes later.
type GuestSnapshot struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Booking struct {
	ID         int64         `json:"id"`
	ListingID  int64         `json:"listing_id"`
	GuestID    int64         `json:"guest_id"`
	OwnerID    int64         `json:"owner_id"`
	Guest      GuestSnapshot `json:"guest"`
	CheckIn    time.Time     `json:"check_in"`
	CheckOut   time.Time     `json:"check_out"`
	GuestCount int           `json:"guest_count"`
	Nights     int64         `json:"nights"`
	TotalPrice int64         `json:"total_price"`
	Status     BookingStatus `json:"status"`
	Payment    PaymentStatus `json:"payment_status"`

	// ConfirmationNotified flips to true exactly once, when the guest
	// first views the booking after confirmation.
	ConfirmationNotified bool `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BookingRequest struct {
	ListingID  int64     `json:"listing_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	GuestCount int       `json:"guest_count"`
}

func (r *BookingRequest) Validate() error {
	if r.ListingID <= 0 {
		return fmt.Errorf("listing_id is required")
	}
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() {
		return fmt.Errorf("check_in and check_out are required")
	}
	if !r.CheckIn.Before(r.CheckOut) {
		return fmt.Errorf("check_in must be before check_out")
	}
	if r.GuestCount < 1 {
		return fmt.Errorf("guest_count must be at least 1")
	}
	return nil
}

// QuoteNights prices a stay by elapsed 24h periods, rounded to the nearest
// whole night and never below one.
func QuoteNights(checkIn, checkOut time.Time) int64 {
	hours := math.Abs(checkOut.Sub(checkIn).Hours())
	nights := int64(math.Round(hours / 24))
	if nights < 1 {
		nights = 1
	}
	return nights
}

// Overlaps reports whether [aIn, aOut) intersects [bIn, bOut). Intervals are
// half-open, so a checkout day is a valid check-in day for the next stay.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && aOut.After(bIn)
}

func (b *Booking) CanConfirm() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

func (b *Booking) CanCancel() bool {
	return b.Status != BookingCancelled
}
