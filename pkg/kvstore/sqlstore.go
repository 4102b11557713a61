package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"encore.dev/storage/sqldb"
)

// SQLStore is a Store backed by a single key-value table in an Encore
// managed Postgres database, grounded on invalidation/audit.go's use of
// sqldb.Database and its CREATE-TABLE-IF-NOT-EXISTS bootstrap. It backs
// the two actors whose state is worth surviving a process restart:
// chainhooks' webhook event log and stacksaccount's nonce store. The
// other actors' caches stay on the in-memory Store, since their entries
// are cheap to repopulate from the upstream on first miss.
type SQLStore struct {
	db    *sqldb.Database
	table string
}

// NewSQLStore returns a Store backed by table in db, creating the table if
// it does not already exist.
func NewSQLStore(ctx context.Context, db *sqldb.Database, table string) (*SQLStore, error) {
	s := &SQLStore{db: db, table: table}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+s.table+` (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			expires_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt *time.Time
	err := s.db.QueryRow(ctx, `
		SELECT value, expires_at FROM `+s.table+` WHERE key = $1
	`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expiresAt != nil && time.Now().After(*expiresAt) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt any
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO `+s.table+` (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET value = $2, expires_at = $3, updated_at = NOW()
	`, key, value, expiresAt)
	return err
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM `+s.table+` WHERE key = $1`, key)
	return err
}

func (s *SQLStore) List(ctx context.Context, prefix, cursor string, limit int) ([]string, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT key FROM `+s.table+`
		WHERE key LIKE $1 AND key > $2 AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY key ASC
		LIMIT $3
	`, likeEscaper.Replace(prefix)+"%", cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, "", err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var nextCursor string
	if len(keys) > limit {
		keys = keys[:limit]
		nextCursor = keys[limit-1]
	}
	return keys, nextCursor, nil
}

// likeEscaper escapes LIKE's wildcard characters so a prefix matches
// literally under Postgres' default backslash escape.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
