package app

import (
	"time"

	"staybook/internal/domain"
)

// decodeAll decodes every document into T, failing on the first malformed one.
func decodeAll[T any](docs []domain.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := d.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeOne[T any](d domain.Document) (T, error) {
	var v T
	err := d.Decode(&v)
	return v, err
}

func utcNow() time.Time { return time.Now().UTC() }
