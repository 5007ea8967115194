// Package kvcache provides a durable key-value cache with TTL semantics,
// backed by the application database. A cache miss is never an error.
package kvcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Store is a durable key-value cache with optional expiry.
type Store struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// NewStore creates a new Store over the given database connection.
func NewStore(conn *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		conn:   conn,
		logger: logger.With().Str("component", "kvcache").Logger(),
	}
}

// Get retrieves a value by key. The second return is false on miss or expiry.
// Read errors are logged and reported as a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	var value []byte
	var expiresAt int64

	row := s.conn.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kvcache WHERE key = ?`, key)
	if err := row.Scan(&value, &expiresAt); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return nil, false
	}

	if expiresAt > 0 && time.Now().Unix() >= expiresAt {
		return nil, false
	}

	return value, true
}

// GetJSON retrieves a value and unmarshals it into dest.
func (s *Store) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	value, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(value, dest); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache entry unmarshal failed")
		return false
	}
	return true
}

// Set stores a value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores a value that expires after ttl. A zero ttl never expires.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).Unix()
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO kvcache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	return err
}

// SetJSONWithTTL marshals value and stores it with the given ttl.
func (s *Store) SetJSONWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.SetWithTTL(ctx, key, data, ttl)
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM kvcache WHERE key = ?`, key)
	return err
}

// DeletePrefix removes every key with the given prefix.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM kvcache WHERE key >= ? AND key < ?`, prefix, prefix+"\xff")
	return err
}

// PruneExpired removes all expired entries and returns the count removed.
func (s *Store) PruneExpired(ctx context.Context) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM kvcache WHERE expires_at > 0 AND expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
