package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"staybook/internal/domain"
)

type HotelService struct {
	store    domain.DocumentStore
	cache    domain.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewHotelService(s domain.DocumentStore, c domain.Cache, ttl time.Duration) *HotelService {
	return &HotelService{store: s, cache: c, cacheTTL: ttl, now: utcNow}
}

func hotelKey(id string) string { return "hotel:" + id }

func (s *HotelService) GetHotel(ctx context.Context, id string) (domain.Hotel, error) {
	key := hotelKey(id)
	var h domain.Hotel
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &h); ok {
			return h, nil
		}
	}
	doc, err := s.store.Get(ctx, domain.CollectionHotels, id)
	if err != nil {
		return domain.Hotel{}, domain.StoreFailure("get hotel", err)
	}
	if h, err = decodeOne[domain.Hotel](doc); err != nil {
		return domain.Hotel{}, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, h, int(s.cacheTTL.Seconds()))
	}
	return h, nil
}

// ListHotels matches q.Q against name or location (case-insensitive), keeps
// hotels rated at least q.MinRating and orders them by q.Sort.
func (s *HotelService) ListHotels(ctx context.Context, q domain.HotelsQuery) (domain.HotelsPage, error) {
	docs, err := s.store.Query(ctx, domain.CollectionHotels, domain.DocQuery{})
	if err != nil {
		return domain.HotelsPage{}, domain.StoreFailure("list hotels", err)
	}
	all, err := decodeAll[domain.Hotel](docs)
	if err != nil {
		return domain.HotelsPage{}, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Q))
	items := make([]domain.Hotel, 0, len(all))
	for _, h := range all {
		if needle != "" &&
			!strings.Contains(strings.ToLower(h.Name), needle) &&
			!strings.Contains(strings.ToLower(h.Location), needle) {
			continue
		}
		if h.Rating < q.MinRating {
			continue
		}
		items = append(items, h)
	}

	switch q.Sort {
	case domain.SortPriceLow:
		sort.SliceStable(items, func(i, j int) bool { return items[i].NightlyRate < items[j].NightlyRate })
	case domain.SortPriceHigh:
		sort.SliceStable(items, func(i, j int) bool { return items[i].NightlyRate > items[j].NightlyRate })
	case domain.SortRating:
		sort.SliceStable(items, func(i, j int) bool { return items[i].Rating > items[j].Rating })
	}
	return domain.HotelsPage{Items: items, Total: len(items)}, nil
}

// UpsertHotel writes a catalog entry and drops its cached copy.
func (s *HotelService) UpsertHotel(ctx context.Context, h domain.Hotel) error {
	if err := h.Check(); err != nil {
		return err
	}
	now := s.now()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	h.UpdatedAt = now
	doc, err := domain.NewDocument(h.ID, h.CreatedAt, h)
	if err != nil {
		return err
	}
	if _, err := s.store.Create(ctx, domain.CollectionHotels, doc); err != nil {
		return domain.StoreFailure("upsert hotel", err)
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, hotelKey(h.ID)); err != nil {
			log.Warn().Err(err).Str("hotel_id", h.ID).Msg("hotel cache invalidation failed")
		}
	}
	return nil
}
