package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/dbx"
)

// changeLogLimit bounds the kv_changes table; older rows are pruned on append.
const changeLogLimit = 500

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kv[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, key string) (*Entry, error) {
	var (
		value     []byte
		expiresAt sql.NullInt64
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT value, expires_at, updated_at FROM kv WHERE key = ?`, key,
	).Scan(&value, &expiresAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kv[%s]: %w", key, err)
	}

	e := &Entry{Key: key, Value: value, UpdatedAt: time.Unix(0, updatedAt)}
	if expiresAt.Valid {
		e.ExpiresAt = time.Unix(0, expiresAt.Int64)
	}
	return e, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	return r.upsert(ctx, key, value, sql.NullInt64{})
}

func (r *SQLiteRepository) SetWithExpiry(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	return r.upsert(ctx, key, value, sql.NullInt64{Int64: expiresAt.UnixNano(), Valid: true})
}

func (r *SQLiteRepository) upsert(ctx context.Context, key string, value []byte, expiresAt sql.NullInt64) error {
	if value == nil {
		value = []byte{}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, key, value, expiresAt, r.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to set kv[%s]: %w", key, err)
	}
	return nil
}

// Delete removes all given keys in one transaction. Missing keys are ignored.
func (r *SQLiteRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, k); err != nil {
				return fmt.Errorf("failed to delete kv[%s]: %w", k, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE substr(key, 1, ?) = ?`, len(prefix), prefix)
	if err != nil {
		return fmt.Errorf("failed to delete kv prefix %q: %w", prefix, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM kv`)
	if err != nil {
		return fmt.Errorf("failed to clear kv: %w", err)
	}
	return nil
}

// List returns every pair whose key starts with prefix; "" lists everything.
func (r *SQLiteRepository) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE substr(key, 1, ?) = ?`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list kv: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan kv row: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kv rows: %w", err)
	}
	return result, nil
}

// AppendChange records a change-set and prunes the log to changeLogLimit rows.
func (r *SQLiteRepository) AppendChange(ctx context.Context, origin string, keys []string) (int64, error) {
	var seq int64
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO kv_changes (origin, keys, created_at) VALUES (?, ?, ?)`,
			origin, strings.Join(keys, "\n"), r.now().UnixNano())
		if err != nil {
			return err
		}
		if seq, err = res.LastInsertId(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM kv_changes WHERE seq <= ?`, seq-changeLogLimit)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to append change: %w", err)
	}
	return seq, nil
}

func (r *SQLiteRepository) ChangesSince(ctx context.Context, seq int64) ([]Change, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, origin, keys FROM kv_changes WHERE seq > ? ORDER BY seq`, seq)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var (
			c    Change
			keys string
		)
		if err := rows.Scan(&c.Seq, &c.Origin, &keys); err != nil {
			return nil, fmt.Errorf("failed to scan change row: %w", err)
		}
		if keys != "" {
			c.Keys = strings.Split(keys, "\n")
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate change rows: %w", err)
	}
	return changes, nil
}

func (r *SQLiteRepository) LastChangeSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM kv_changes`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read change sequence: %w", err)
	}
	return seq.Int64, nil
}
