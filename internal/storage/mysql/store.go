package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
	"staybook/internal/storage"
)

// Notifier fans out "collection changed" signals between processes.
type Notifier interface {
	Publish(ctx context.Context, collection string) error
	Listen(ctx context.Context, collection string, fn func()) (domain.CancelFunc, error)
}

type Store struct {
	db  *sql.DB
	n   Notifier
	now func() time.Time
}

func New(db *sql.DB, n Notifier) *Store {
	return &Store{db: db, n: n, now: func() time.Time { return time.Now().UTC() }}
}

var fieldRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func (s *Store) Create(ctx context.Context, collection string, doc domain.Document) (id string, err error) {
	defer observe("create", collection, time.Now(), &err)
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if _, err = s.db.ExecContext(ctx, insertDocumentSQL,
		collection,
		doc.ID,
		doc.CreatedAt,
		doc.UpdatedAt,
		string(doc.Body),
	); err != nil {
		return "", err
	}
	s.publish(ctx, collection)
	return doc.ID, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (doc domain.Document, err error) {
	defer observe("get", collection, time.Now(), &err)
	row := s.db.QueryRowContext(ctx, getDocumentSQL, collection, id)
	doc, err = scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, domain.ErrNotFound
	}
	return doc, err
}

func (s *Store) Update(ctx context.Context, collection, id string, patch domain.Patch) (err error) {
	defer observe("update", collection, time.Now(), &err)
	b, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	res, err := s.db.ExecContext(ctx, patchDocumentSQL, string(b), s.now(), collection, id)
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows for a no-op patch too, so confirm existence.
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.Get(ctx, collection, id); err != nil {
			return err
		}
	}
	s.publish(ctx, collection)
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, q domain.DocQuery) (out []domain.Document, err error) {
	defer observe("query", collection, time.Now(), &err)
	var sb strings.Builder
	sb.WriteString(selectDocumentsPrefix)
	args := []any{collection}
	for _, f := range q.Where {
		if !fieldRe.MatchString(f.Field) {
			return nil, fmt.Errorf("invalid filter field %q", f.Field)
		}
		sb.WriteString(filterClause)
		args = append(args, "$."+f.Field, f.Value)
	}
	if q.Desc {
		sb.WriteString(orderDesc)
	} else {
		sb.WriteString(orderAsc)
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Subscribe(ctx context.Context, collection string, q domain.DocQuery, fn func([]domain.Document)) (domain.CancelFunc, error) {
	if s.n == nil {
		return nil, errors.New("mysql store: subscriptions need a notifier")
	}
	w := storage.NewWatcher()
	stopListen, err := s.n.Listen(ctx, collection, w.Notify)
	if err != nil {
		return nil, err
	}
	cancel := func() {
		w.Stop()
		stopListen()
	}
	go func() {
		w.Run(ctx, collection, func(ctx context.Context) ([]domain.Document, error) {
			return s.Query(ctx, collection, q)
		}, fn)
		stopListen()
	}()
	return cancel, nil
}

func (s *Store) publish(ctx context.Context, collection string) {
	if s.n == nil {
		return
	}
	if err := s.n.Publish(ctx, collection); err != nil {
		log.Warn().Err(err).Str("collection", collection).Msg("change notification failed")
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (domain.Document, error) {
	var d domain.Document
	var body []byte
	if err := sc.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt, &body); err != nil {
		return domain.Document{}, err
	}
	d.Body = append(json.RawMessage(nil), body...)
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return d, nil
}

func observe(op, collection string, start time.Time, err *error) {
	observability.ObserveStore(op, collection, *err, time.Since(start))
}
