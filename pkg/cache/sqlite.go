package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sw33tLie/partscope/pkg/component"
)

// SQLite persists entries in a single table of a SQLite file.
type SQLite struct {
	db  *sql.DB
	Now func() time.Time
}

// OpenSQLite opens (and creates if needed) the cache database at path.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS cache_entries (
  key         TEXT PRIMARY KEY,
  created_at  INTEGER NOT NULL,
  ttl_ns      INTEGER NOT NULL,
  payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_created ON cache_entries(created_at);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db, Now: time.Now}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) Result {
	var (
		createdAt, ttl int64
		payload        string
	)
	err := s.db.QueryRowContext(ctx, "SELECT created_at, ttl_ns, payload FROM cache_entries WHERE key = ?", key).Scan(&createdAt, &ttl, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return miss()
	}
	if err != nil {
		return failed(err)
	}

	created := time.Unix(0, createdAt)
	if s.Now().Sub(created) > time.Duration(ttl) {
		// Conditional so a fresh Put racing with this read survives.
		if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ? AND created_at = ?", key, createdAt); err != nil {
			return failed(err)
		}
		return miss()
	}

	e, err := decode(key, []byte(payload))
	if err != nil {
		return failed(err)
	}
	e.CreatedAt = created
	e.TTL = time.Duration(ttl)
	return hit(e)
}

func (s *SQLite) Put(ctx context.Context, key string, components []component.Component, ttl time.Duration) error {
	ttl = normalizeTTL(ttl)
	now := s.Now()
	payload, err := encode(components, now, ttl)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO cache_entries(key, created_at, ttl_ns, payload) VALUES(?,?,?,?)
ON CONFLICT(key) DO UPDATE SET created_at = excluded.created_at, ttl_ns = excluded.ttl_ns, payload = excluded.payload`,
		key, now.UnixNano(), int64(ttl), string(payload))
	return err
}

// Invalidate uses SQLite's GLOB, which shares shell glob syntax with the
// other backends.
func (s *SQLite) Invalidate(ctx context.Context, pattern string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key GLOB ?", globPattern(pattern))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Purge deletes every expired entry and returns how many were removed.
func (s *SQLite) Purge(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE ? - created_at > ttl_ns", s.Now().UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
