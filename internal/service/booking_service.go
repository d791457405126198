package service

import (
	"context"
	"time"

	"github.com/ManoharAnkathi/HUBILO/internal/domain"
	"github.com/ManoharAnkathi/HUBILO/internal/mailer"
	"github.com/ManoharAnkathi/HUBILO/internal/repository"
	"github.com/ManoharAnkathi/HUBILO/pkg/events"
	"github.com/ManoharAnkathi/HUBILO/pkg/logger"
)

// BookingService owns the reservation lifecycle. The non-overlap invariant
// itself is enforced by the repository inside a transaction; this layer does
// pricing, authorization and notifications.
type BookingService struct {
	bookings repository.BookingRepository
	listings repository.ListingRepository
	accounts repository.AccountRepository
	mail     mailer.Mailer
	bus      events.Publisher
}

func NewBookingService(
	bookings repository.BookingRepository,
	listings repository.ListingRepository,
	accounts repository.AccountRepository,
	mail mailer.Mailer,
	bus events.Publisher,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		listings: listings,
		accounts: accounts,
		mail:     mail,
		bus:      bus,
	}
}

type Quote struct {
	ListingID  int64     `json:"listing_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Nights     int64     `json:"nights"`
	TotalPrice int64     `json:"total_price"`
	Available  bool      `json:"available"`
}

// GetQuote prices a stay and reports advisory availability. The answer can
// go stale; Create re-checks under the listing lock.
func (s *BookingService) GetQuote(ctx context.Context, listingID int64, checkIn, checkOut time.Time) (*Quote, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if listing == nil || !listing.IsActive {
		return nil, domain.ErrNotFound
	}

	available, err := s.bookings.IsAvailable(ctx, listingID, checkIn, checkOut)
	if err != nil {
		return nil, mapStorageErr(err)
	}

	nights := domain.QuoteNights(checkIn, checkOut)
	return &Quote{
		ListingID:  listingID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Nights:     nights,
		TotalPrice: nights * listing.Price,
		Available:  available,
	}, nil
}

// Create places a pending booking for the guest, snapshotting their contact
// info. Fails with ErrConflict if the dates overlap a confirmed booking.
func (s *BookingService) Create(ctx context.Context, guest *domain.Account, req *domain.BookingRequest) (*domain.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	listing, err := s.listings.GetByID(ctx, req.ListingID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if listing == nil || !listing.IsActive {
		return nil, domain.ErrNotFound
	}

	nights := domain.QuoteNights(req.CheckIn, req.CheckOut)
	booking := &domain.Booking{
		ListingID: listing.ID,
		GuestID:   guest.ID,
		OwnerID:   listing.OwnerID,
		Guest: domain.GuestSnapshot{
			Name:  guest.FullName(),
			Email: guest.Email,
			Phone: guest.Phone,
		},
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		GuestCount: req.GuestCount,
		Nights:     nights,
		TotalPrice: nights * listing.Price,
		Status:     domain.BookingPending,
		Payment:    domain.PaymentPending,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, mapStorageErr(err)
	}

	s.publish(ctx, events.BookingCreated, events.BookingCreatedEvent{
		BookingID:  booking.ID,
		ListingID:  booking.ListingID,
		GuestID:    booking.GuestID,
		OwnerID:    booking.OwnerID,
		CheckIn:    booking.CheckIn,
		CheckOut:   booking.CheckOut,
		TotalPrice: booking.TotalPrice,
		CreatedAt:  booking.CreatedAt,
	})

	return booking, nil
}

// Confirm transitions a pending booking to confirmed. Only the listing's
// owner or an admin may confirm. On a fresh confirmation the owner's
// aggregates are bumped; the emails wait for the guest's first view.
func (s *BookingService) Confirm(ctx context.Context, actor *domain.Account, id int64) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	if !canManage(actor, booking.OwnerID) {
		return nil, domain.ErrUnauthorized
	}

	alreadyConfirmed := booking.Status == domain.BookingConfirmed

	booking, err = s.bookings.Confirm(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err)
	}

	if !alreadyConfirmed {
		if err := s.accounts.BumpOwnerTotals(ctx, booking.OwnerID, 1, booking.TotalPrice); err != nil {
			logger.ErrorContext(ctx, "failed to bump owner totals", "error", err, "owner_id", booking.OwnerID)
		}

		s.publish(ctx, events.BookingConfirmed, events.BookingConfirmedEvent{
			BookingID:   booking.ID,
			ListingID:   booking.ListingID,
			OwnerID:     booking.OwnerID,
			TotalPrice:  booking.TotalPrice,
			ConfirmedAt: booking.UpdatedAt,
		})
	}

	return booking, nil
}

// Cancel voids a booking. The guest who placed it, the listing owner and
// admins may cancel; cancelling twice is a no-op error.
func (s *BookingService) Cancel(ctx context.Context, actor *domain.Account, id int64, reason string) error {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return mapStorageErr(err)
	}
	if booking == nil {
		return domain.ErrNotFound
	}
	if !canManage(actor, booking.OwnerID) && !(actor.Kind == domain.KindGuest && actor.ID == booking.GuestID) {
		return domain.ErrUnauthorized
	}
	if !booking.CanCancel() {
		return domain.ErrConflict
	}

	if err := s.bookings.Cancel(ctx, id); err != nil {
		return mapStorageErr(err)
	}

	s.publish(ctx, events.BookingCanceled, events.BookingCanceledEvent{
		BookingID:  booking.ID,
		ListingID:  booking.ListingID,
		Reason:     reason,
		CanceledAt: time.Now(),
	})

	return nil
}

// Get returns a booking visible to the actor. The first time the guest
// views a confirmed booking, the confirmation email to the guest and the
// alert to the owner are both claimed and sent; the claim is a conditional
// update, so exactly one view triggers them.
func (s *BookingService) Get(ctx context.Context, actor *domain.Account, id int64) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	if !canView(actor, booking) {
		return nil, domain.ErrUnauthorized
	}

	if actor.Kind == domain.KindGuest && booking.Status == domain.BookingConfirmed && !booking.ConfirmationNotified {
		claimed, err := s.bookings.ClaimConfirmationNotice(ctx, id)
		if err != nil {
			logger.ErrorContext(ctx, "failed to claim confirmation notice", "error", err, "booking_id", id)
		} else if claimed {
			booking.ConfirmationNotified = true
			s.sendGuestConfirmation(booking)
			s.sendOwnerAlert(booking)
		}
	}

	return booking, nil
}

func (s *BookingService) ListForGuest(ctx context.Context, guestID int64, limit, offset int) ([]*domain.Booking, error) {
	bookings, err := s.bookings.ListByGuest(ctx, guestID, limit, offset)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return bookings, nil
}

func (s *BookingService) ListForOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*domain.Booking, error) {
	bookings, err := s.bookings.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return bookings, nil
}

func canManage(actor *domain.Account, ownerID int64) bool {
	if actor.Kind == domain.KindAdmin {
		return true
	}
	return actor.Kind == domain.KindOwner && actor.ID == ownerID
}

func canView(actor *domain.Account, booking *domain.Booking) bool {
	switch actor.Kind {
	case domain.KindAdmin:
		return true
	case domain.KindOwner:
		return actor.ID == booking.OwnerID
	case domain.KindGuest:
		return actor.ID == booking.GuestID
	default:
		return false
	}
}

func (s *BookingService) sendGuestConfirmation(booking *domain.Booking) {
	summary := s.summary(booking)
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := s.mail.SendBookingConfirmation(sendCtx, summary); err != nil {
			logger.Error("failed to send booking confirmation", "error", err, "booking_id", booking.ID)
		}
	}()
}

func (s *BookingService) sendOwnerAlert(booking *domain.Booking) {
	summary := s.summary(booking)
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		owner, err := s.accounts.FindByID(sendCtx, domain.KindOwner, booking.OwnerID)
		if err != nil || owner == nil {
			logger.Error("failed to load owner for booking alert", "error", err, "owner_id", booking.OwnerID)
			return
		}
		summary.OwnerEmail = owner.Email

		if err := s.mail.SendBookingOwnerAlert(sendCtx, summary); err != nil {
			logger.Error("failed to send booking owner alert", "error", err, "booking_id", booking.ID)
		}
	}()
}

func (s *BookingService) summary(booking *domain.Booking) mailer.BookingSummary {
	summary := mailer.BookingSummary{
		BookingID:  booking.ID,
		GuestName:  booking.Guest.Name,
		GuestEmail: booking.Guest.Email,
		CheckIn:    booking.CheckIn.Format("2006-01-02"),
		CheckOut:   booking.CheckOut.Format("2006-01-02"),
		Nights:     booking.Nights,
		TotalPrice: booking.TotalPrice,
	}
	if listing, err := s.listings.GetByID(context.Background(), booking.ListingID); err == nil && listing != nil {
		summary.ListingTitle = listing.Title
	}
	return summary
}

func (s *BookingService) publish(ctx context.Context, subject string, payload interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, payload); err != nil {
		logger.ErrorContext(ctx, "failed to publish event", "subject", subject, "error", err)
	}
}
