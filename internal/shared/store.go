package shared

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"staybook/internal/domain"
	"staybook/internal/storage/memory"
	mysqlstore "staybook/internal/storage/mysql"
)

// OpenStore builds the document store named by cfg.StoreDriver. The returned
// close func releases the underlying connection pool.
func OpenStore(ctx context.Context, cfg Config, n mysqlstore.Notifier) (domain.DocumentStore, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn().Msg("using in-memory document store, data is lost on exit")
		return memory.New(), func() {}, nil
	case "mysql", "":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		log.Info().Msg("database connection ok")
		return mysqlstore.New(db, n), func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}
