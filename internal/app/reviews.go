package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"staybook/internal/domain"
)

type ReviewService struct {
	store  domain.DocumentStore
	hotels HotelReader
	now    func() time.Time
}

func NewReviewService(s domain.DocumentStore, h HotelReader) *ReviewService {
	return &ReviewService{store: s, hotels: h, now: utcNow}
}

func (s *ReviewService) WithClock(now func() time.Time) *ReviewService {
	s.now = now
	return s
}

// CreateReview validates before anything is written; an invalid review never
// reaches the store.
func (s *ReviewService) CreateReview(ctx context.Context, sess domain.Session, hotelID string, rating int, comment string) (domain.Review, error) {
	if err := domain.ValidateReview(rating, comment); err != nil {
		return domain.Review{}, err
	}
	if _, err := s.hotels.GetHotel(ctx, hotelID); err != nil {
		return domain.Review{}, err
	}
	r := domain.Review{
		ID:        uuid.NewString(),
		HotelID:   hotelID,
		UserID:    sess.UserID,
		Author:    sess.DisplayName,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: s.now(),
	}
	doc, err := domain.NewDocument(r.ID, r.CreatedAt, r)
	if err != nil {
		return domain.Review{}, err
	}
	if _, err := s.store.Create(ctx, domain.CollectionReviews, doc); err != nil {
		return domain.Review{}, domain.StoreFailure("create review", err)
	}
	log.Info().Str("review_id", r.ID).Str("hotel_id", hotelID).Int("rating", rating).Msg("review created")
	return r, nil
}

func reviewsBy(field, value string) domain.DocQuery {
	return domain.DocQuery{Where: []domain.Filter{{Field: field, Value: value}}, Desc: true}
}

func (s *ReviewService) list(ctx context.Context, q domain.DocQuery) ([]domain.Review, error) {
	docs, err := s.store.Query(ctx, domain.CollectionReviews, q)
	if err != nil {
		return nil, domain.StoreFailure("list reviews", err)
	}
	return decodeAll[domain.Review](docs)
}

// ListHotelReviews returns the hotel's reviews, newest first.
func (s *ReviewService) ListHotelReviews(ctx context.Context, hotelID string) ([]domain.Review, error) {
	return s.list(ctx, reviewsBy("hotelId", hotelID))
}

// ListUserReviews returns the reviews written by userID, newest first.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID string) ([]domain.Review, error) {
	return s.list(ctx, reviewsBy("userId", userID))
}

// LikeReview increments the like counter. Concurrent likes may race; the
// store keeps the last write.
func (s *ReviewService) LikeReview(ctx context.Context, id string) (domain.Review, error) {
	doc, err := s.store.Get(ctx, domain.CollectionReviews, id)
	if err != nil {
		return domain.Review{}, domain.StoreFailure("get review", err)
	}
	r, err := decodeOne[domain.Review](doc)
	if err != nil {
		return domain.Review{}, err
	}
	r.Likes++
	if err := s.store.Update(ctx, domain.CollectionReviews, id, domain.Patch{"likes": r.Likes}); err != nil {
		return domain.Review{}, domain.StoreFailure("like review", err)
	}
	return r, nil
}

func (s *ReviewService) Summary(ctx context.Context, hotelID string) (domain.ReviewSummary, error) {
	rs, err := s.ListHotelReviews(ctx, hotelID)
	if err != nil {
		return domain.ReviewSummary{}, err
	}
	return domain.Summarize(hotelID, rs), nil
}

func (s *ReviewService) SubscribeHotelReviews(ctx context.Context, hotelID string, fn func([]domain.Review)) (domain.CancelFunc, error) {
	cancel, err := s.store.Subscribe(ctx, domain.CollectionReviews, reviewsBy("hotelId", hotelID), func(docs []domain.Document) {
		rs, err := decodeAll[domain.Review](docs)
		if err != nil {
			log.Error().Err(err).Str("hotel_id", hotelID).Msg("review subscription decode failed")
			return
		}
		fn(rs)
	})
	if err != nil {
		return nil, domain.StoreFailure("subscribe reviews", err)
	}
	return cancel, nil
}
