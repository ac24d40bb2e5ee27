//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain"
	mysqlstore "staybook/internal/storage/mysql"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest unavailable: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=staybook",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Skipf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "staybook")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func TestStore_MySQL_CreateQueryUpdate(t *testing.T) {
	db := startMySQL(t)
	store := mysqlstore.New(db, nil)
	ctx := context.Background()

	base := time.Date(2024, 11, 1, 10, 0, 0, 0, time.UTC)
	for i, owner := range []string{"u1", "u2", "u1"} {
		b := domain.Booking{
			ID:       fmt.Sprintf("b%d", i),
			UserID:   owner,
			HotelID:  "h1",
			Status:   domain.StatusConfirmed,
			CheckIn:  base.AddDate(0, 1, 0),
			CheckOut: base.AddDate(0, 1, 3),
		}
		doc, err := domain.NewDocument(b.ID, base.Add(time.Duration(i)*time.Hour), b)
		require.NoError(t, err)
		_, err = store.Create(ctx, domain.CollectionBookings, doc)
		require.NoError(t, err)
	}

	docs, err := store.Query(ctx, domain.CollectionBookings, domain.DocQuery{
		Where: []domain.Filter{{Field: "userId", Value: "u1"}},
		Desc:  true,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b2", docs[0].ID)
	assert.Equal(t, "b0", docs[1].ID)

	require.NoError(t, store.Update(ctx, domain.CollectionBookings, "b0", domain.Patch{"status": domain.StatusCancelled}))
	got, err := store.Get(ctx, domain.CollectionBookings, "b0")
	require.NoError(t, err)
	var b domain.Booking
	require.NoError(t, got.Decode(&b))
	assert.Equal(t, domain.StatusCancelled, b.Status)
	assert.Equal(t, "u1", b.UserID)

	_, err = store.Get(ctx, domain.CollectionBookings, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.Update(ctx, domain.CollectionBookings, "missing", domain.Patch{"status": "x"}), domain.ErrNotFound)

	_, err = store.Query(ctx, domain.CollectionBookings, domain.DocQuery{Where: []domain.Filter{{Field: "x') OR 1=1 --", Value: "1"}}})
	assert.Error(t, err)
}
