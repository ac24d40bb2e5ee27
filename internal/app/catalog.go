package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"staybook/internal/domain"
)

// ReadCatalog decodes a JSON array of hotels, rejecting unknown fields.
func ReadCatalog(r io.Reader) ([]domain.Hotel, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var hs []domain.Hotel
	if err := dec.Decode(&hs); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return hs, nil
}

// ImportResult counts the outcome of a catalog import.
type ImportResult struct {
	Imported int
	Failed   int
}

// ImportCatalog upserts every hotel with at most workers writes in flight.
// A bad entry is logged and counted; it does not stop the import.
func ImportCatalog(ctx context.Context, hotels *HotelService, entries []domain.Hotel, workers int) (ImportResult, error) {
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg       sync.WaitGroup
		ok, fail atomic.Int64
	)

	for _, h := range entries {
		h := h

		// acquire before launching the goroutine; release inside it
		err := ctx.Err()
		if err == nil {
			err = sem.Acquire(ctx, 1)
		}
		if err != nil {
			wg.Wait()
			return ImportResult{Imported: int(ok.Load()), Failed: int(fail.Load())}, err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if err := hotels.UpsertHotel(ctx, h); err != nil {
				fail.Add(1)
				log.Warn().Str("id", h.ID).Err(err).Msg("import failed")
				return
			}
			ok.Add(1)
			log.Debug().Str("id", h.ID).Msg("import ok")
		}()
	}

	wg.Wait()
	return ImportResult{Imported: int(ok.Load()), Failed: int(fail.Load())}, nil
}
