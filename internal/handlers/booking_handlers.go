package handlers

import (
	"net/http"

	"github.com/ManoharAnkathi/HUBILO/internal/domain"
)

func (h *Handlers) QuoteBooking(w http.ResponseWriter, r *http.Request) {
	listingID, err := parseQueryID(r, "listing_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "listing_id is required", "BAD_REQUEST")
		return
	}

	checkIn, err := parseDate(r.URL.Query().Get("check_in"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_in date", "BAD_REQUEST")
		return
	}
	checkOut, err := parseDate(r.URL.Query().Get("check_out"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_out date", "BAD_REQUEST")
		return
	}

	quote, err := h.bookings.GetQuote(r.Context(), listingID, checkIn, checkOut)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

type createBookingRequest struct {
	ListingID  int64  `json:"listing_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	GuestCount int    `json:"guest_count"`
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	guest := accountFrom(r.Context())

	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}

	checkIn, err := parseDate(req.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_in date", "BAD_REQUEST")
		return
	}
	checkOut, err := parseDate(req.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_out date", "BAD_REQUEST")
		return
	}

	booking, err := h.bookings.Create(r.Context(), guest, &domain.BookingRequest{
		ListingID:  req.ListingID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		GuestCount: req.GuestCount,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r.Context())

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id", "BAD_REQUEST")
		return
	}

	booking, err := h.bookings.Get(r.Context(), account, id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

func (h *Handlers) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r.Context())

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id", "BAD_REQUEST")
		return
	}

	booking, err := h.bookings.Confirm(r.Context(), account, id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r.Context())

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id", "BAD_REQUEST")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = decodeJSON(r, &req)

	if err := h.bookings.Cancel(r.Context(), account, id, req.Reason); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "booking cancelled"})
}

// ListBookings returns the caller's bookings: placed bookings for guests,
// incoming bookings for owners.
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r.Context())
	limit, offset := parsePagination(r)

	var bookings []*domain.Booking
	var err error
	switch account.Kind {
	case domain.KindOwner:
		bookings, err = h.bookings.ListForOwner(r.Context(), account.ID, limit, offset)
	default:
		bookings, err = h.bookings.ListForGuest(r.Context(), account.ID, limit, offset)
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bookings": bookings,
		"limit":    limit,
		"offset":   offset,
	})
}
