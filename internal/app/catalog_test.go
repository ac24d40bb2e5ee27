package app_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app"
	"staybook/internal/domain"
	"staybook/internal/storage/memory"
)

const catalogJSON = `[
  {"id": "h1", "name": "Harbor Inn", "location": "Porto", "nightlyRate": 90, "rating": 3.9, "reviewCount": 12, "amenities": ["wifi"]},
  {"id": "h2", "name": "Alpine Lodge", "location": "Zermatt", "nightlyRate": 320, "rating": 4.8, "reviewCount": 40, "amenities": []},
  {"id": "h3", "name": "Free Stay", "location": "Nowhere", "nightlyRate": 0, "rating": 1, "reviewCount": 0, "amenities": []}
]`

func TestImportCatalog(t *testing.T) {
	entries, err := app.ReadCatalog(strings.NewReader(catalogJSON))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	store := memory.New()
	hotels := app.NewHotelService(store, nil, time.Minute)
	res, err := app.ImportCatalog(context.Background(), hotels, entries, 2)
	require.NoError(t, err)
	assert.Equal(t, app.ImportResult{Imported: 2, Failed: 1}, res)

	page, err := hotels.ListHotels(context.Background(), domain.HotelsQuery{Sort: domain.SortPriceLow})
	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2"}, ids(page.Items))
}

func TestReadCatalog_RejectsUnknownFields(t *testing.T) {
	_, err := app.ReadCatalog(strings.NewReader(`[{"id": "h1", "stars": 5}]`))
	assert.Error(t, err)
}

func TestImportCatalog_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hotels := app.NewHotelService(memory.New(), nil, time.Minute)
	entries := []domain.Hotel{{ID: "h1", Name: "A", NightlyRate: 1}}
	_, err := app.ImportCatalog(ctx, hotels, entries, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
