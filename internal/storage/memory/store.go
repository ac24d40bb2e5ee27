// Package memory is an in-process document store for development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"staybook/internal/domain"
	"staybook/internal/storage"
)

type Store struct {
	mu   sync.RWMutex
	cols map[string]map[string]domain.Document
	subs map[string]map[uuid.UUID]*storage.Watcher
	now  func() time.Time
}

func New() *Store {
	return &Store{
		cols: map[string]map[string]domain.Document{},
		subs: map[string]map[uuid.UUID]*storage.Watcher{},
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used to stamp updates.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Create(ctx context.Context, collection string, doc domain.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	s.mu.Lock()
	col, ok := s.cols[collection]
	if !ok {
		col = map[string]domain.Document{}
		s.cols[collection] = col
	}
	col[doc.ID] = cloneDoc(doc)
	s.mu.Unlock()
	s.notify(collection)
	return doc.ID, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.cols[collection][id]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return cloneDoc(d), nil
}

func (s *Store) Update(ctx context.Context, collection, id string, patch domain.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	d, ok := s.cols[collection][id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	body := map[string]any{}
	if err := json.Unmarshal(d.Body, &body); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	for k, v := range patch {
		body[k] = v
	}
	b, err := json.Marshal(body)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	d.Body = b
	d.UpdatedAt = s.now()
	s.cols[collection][id] = d
	s.mu.Unlock()
	s.notify(collection)
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, q domain.DocQuery) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]domain.Document, 0, len(s.cols[collection]))
	for _, d := range s.cols[collection] {
		if matches(d, q.Where) {
			out = append(out, cloneDoc(d))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if q.Desc {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if q.Desc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) Subscribe(ctx context.Context, collection string, q domain.DocQuery, fn func([]domain.Document)) (domain.CancelFunc, error) {
	w := storage.NewWatcher()
	key := uuid.New()

	s.mu.Lock()
	if s.subs[collection] == nil {
		s.subs[collection] = map[uuid.UUID]*storage.Watcher{}
	}
	s.subs[collection][key] = w
	s.mu.Unlock()

	cancel := func() {
		w.Stop()
		s.mu.Lock()
		delete(s.subs[collection], key)
		s.mu.Unlock()
	}
	go func() {
		w.Run(ctx, collection, func(ctx context.Context) ([]domain.Document, error) {
			return s.Query(ctx, collection, q)
		}, fn)
		cancel()
	}()
	return cancel, nil
}

func (s *Store) notify(collection string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.subs[collection] {
		w.Notify()
	}
}

func matches(d domain.Document, where []domain.Filter) bool {
	if len(where) == 0 {
		return true
	}
	var body map[string]any
	if err := json.Unmarshal(d.Body, &body); err != nil {
		return false
	}
	for _, f := range where {
		v, ok := body[f.Field]
		if !ok || v == nil || fmt.Sprint(v) != f.Value {
			return false
		}
	}
	return true
}

func cloneDoc(d domain.Document) domain.Document {
	d.Body = append(json.RawMessage(nil), d.Body...)
	return d
}
