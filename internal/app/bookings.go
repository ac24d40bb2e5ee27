package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

// HotelReader resolves a hotel for pricing and denormalized booking fields.
type HotelReader interface {
	GetHotel(ctx context.Context, id string) (domain.Hotel, error)
}

// BookingService owns the booking lifecycle: create, cancel, list and the
// time-based completion sweep.
type BookingService struct {
	store  domain.DocumentStore
	hotels HotelReader
	now    func() time.Time

	// sweepLimit bounds concurrent store writes during CompleteDue.
	sweepLimit int
}

func NewBookingService(s domain.DocumentStore, h HotelReader) *BookingService {
	return &BookingService{store: s, hotels: h, now: utcNow, sweepLimit: 8}
}

// WithClock replaces the time source. Used by tests and the sweeper.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// Quote prices a prospective stay. An invalid range yields the zero quote and
// no error; callers decide whether to surface it.
func (s *BookingService) Quote(ctx context.Context, hotelID string, checkIn, checkOut time.Time, rooms int) (domain.PriceQuote, error) {
	h, err := s.hotels.GetHotel(ctx, hotelID)
	if err != nil {
		return domain.PriceQuote{}, err
	}
	return domain.Quote(h.NightlyRate, checkIn, checkOut, rooms), nil
}

func (s *BookingService) CreateBooking(ctx context.Context, sess domain.Session, req domain.BookingRequest) (*domain.Booking, error) {
	if err := domain.ValidateBooking(req.CheckIn, req.CheckOut, req.Guests, req.Rooms); err != nil {
		return nil, err
	}
	h, err := s.hotels.GetHotel(ctx, req.HotelID)
	if err != nil {
		return nil, err
	}
	q := domain.Quote(h.NightlyRate, req.CheckIn, req.CheckOut, req.Rooms)

	now := s.now()
	b, err := domain.NewBooking(uuid.NewString(), h, sess.UserID, req, q, now)
	if err != nil {
		return nil, err
	}
	doc, err := domain.NewDocument(b.ID, b.CreatedAt, b)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Create(ctx, domain.CollectionBookings, doc); err != nil {
		log.Error().Err(err).Str("user_id", sess.UserID).Msg("persist booking failed")
		return nil, domain.StoreFailure("create booking", err)
	}

	observability.ObserveBooking(b.Status)
	log.Info().
		Str("booking_id", b.ID).
		Str("reference", b.Reference).
		Str("hotel_id", b.HotelID).
		Str("user_id", b.UserID).
		Int("nights", b.Nights).
		Float64("total", b.TotalCost).
		Msg("booking confirmed")
	return b, nil
}

func (s *BookingService) load(ctx context.Context, id string) (*domain.Booking, error) {
	doc, err := s.store.Get(ctx, domain.CollectionBookings, id)
	if err != nil {
		return nil, domain.StoreFailure("get booking", err)
	}
	b, err := decodeOne[domain.Booking](doc)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CancelBooking cancels a booking owned by sess. Only confirmed bookings whose
// check-in is still ahead can be cancelled.
func (s *BookingService) CancelBooking(ctx context.Context, sess domain.Session, id string) (*domain.Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != sess.UserID {
		return nil, domain.ErrForbidden
	}
	now := s.now()
	if err := b.Cancel(now); err != nil {
		return nil, err
	}
	patch := domain.Patch{"status": b.Status, "cancelledAt": b.CancelledAt, "updatedAt": b.UpdatedAt}
	if err := s.store.Update(ctx, domain.CollectionBookings, b.ID, patch); err != nil {
		log.Error().Err(err).Str("booking_id", b.ID).Msg("cancel booking failed")
		return nil, domain.StoreFailure("cancel booking", err)
	}
	observability.ObserveBooking(b.Status)
	log.Info().Str("booking_id", b.ID).Str("user_id", b.UserID).Msg("booking cancelled")
	return b, nil
}

func byOwner(userID string) domain.DocQuery {
	return domain.DocQuery{Where: []domain.Filter{{Field: "userId", Value: userID}}, Desc: true}
}

// ListBookings returns every booking owned by userID, newest first.
func (s *BookingService) ListBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	docs, err := s.store.Query(ctx, domain.CollectionBookings, byOwner(userID))
	if err != nil {
		return nil, domain.StoreFailure("list bookings", err)
	}
	return decodeAll[domain.Booking](docs)
}

// SubscribeBookings streams the user's bookings, newest first, until cancelled.
// Deliveries carrying a malformed document are logged and skipped.
func (s *BookingService) SubscribeBookings(ctx context.Context, userID string, fn func([]domain.Booking)) (domain.CancelFunc, error) {
	cancel, err := s.store.Subscribe(ctx, domain.CollectionBookings, byOwner(userID), func(docs []domain.Document) {
		bs, err := decodeAll[domain.Booking](docs)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("booking subscription decode failed")
			return
		}
		fn(bs)
	})
	if err != nil {
		return nil, domain.StoreFailure("subscribe bookings", err)
	}
	return cancel, nil
}

// CompleteDue marks every confirmed booking whose check-out has passed as
// completed and returns how many were transitioned.
func (s *BookingService) CompleteDue(ctx context.Context) (int, error) {
	docs, err := s.store.Query(ctx, domain.CollectionBookings, domain.DocQuery{
		Where: []domain.Filter{{Field: "status", Value: string(domain.StatusConfirmed)}},
	})
	if err != nil {
		return 0, domain.StoreFailure("query due bookings", err)
	}

	now := s.now()
	var due []*domain.Booking
	for _, d := range docs {
		b, err := decodeOne[domain.Booking](d)
		if err != nil {
			log.Warn().Err(err).Str("doc_id", d.ID).Msg("skipping malformed booking")
			continue
		}
		if b.CompletionDue(now) {
			due = append(due, &b)
		}
	}
	if len(due) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.sweepLimit)
	for _, b := range due {
		b := b
		g.Go(func() error {
			if err := b.Complete(now); err != nil {
				return err
			}
			patch := domain.Patch{"status": b.Status, "completedAt": b.CompletedAt, "updatedAt": b.UpdatedAt}
			if err := s.store.Update(gctx, domain.CollectionBookings, b.ID, patch); err != nil {
				return fmt.Errorf("complete booking %s: %w", b.ID, err)
			}
			observability.ObserveBooking(b.Status)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, err
		}
		return 0, domain.StoreFailure("complete due bookings", err)
	}
	log.Info().Int("completed", len(due)).Msg("completed due bookings")
	return len(due), nil
}
