package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrNotFound = errors.New("key not found")

// KVRepositoryInterface is the durable client-storage abstraction: raw values
// under namespaced string keys.
type KVRepositoryInterface interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// KVRepository stores values in the kv_store table of a postgres (pgx) or
// sqlite database.
type KVRepository struct {
	db      *sql.DB
	numeric bool // $1 placeholders instead of ?
}

func NewKVRepository(db *sql.DB, driver string) *KVRepository {
	return &KVRepository{db: db, numeric: driver == "pgx" || driver == "postgres"}
}

func (r *KVRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv_store (
			storage_key TEXT PRIMARY KEY,
			payload     TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create kv_store: %w", err)
	}
	return nil
}

func (r *KVRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, r.bind(`SELECT payload FROM kv_store WHERE storage_key = ?`), key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return []byte(payload), nil
}

func (r *KVRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, r.bind(`
		INSERT INTO kv_store (storage_key, payload) VALUES (?, ?)
		ON CONFLICT (storage_key) DO UPDATE SET payload = excluded.payload`), key, string(value))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *KVRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, r.bind(`DELETE FROM kv_store WHERE storage_key = ?`), key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// bind rewrites ? placeholders to $n for postgres.
func (r *KVRepository) bind(q string) string {
	if !r.numeric {
		return q
	}
	var b strings.Builder
	n := 0
	for _, ch := range q {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
