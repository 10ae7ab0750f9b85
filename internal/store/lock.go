package store

import (
	"context"
	"database/sql"
	"fmt"
)

// TryAdvisoryLock attempts a non-blocking named lock. Returns true iff
// the lock was acquired. MySQL named locks are held by the session, so
// an acquired lock pins a dedicated connection until ReleaseAdvisoryLock
// runs. Crashed holders release implicitly when their session dies.
func (s *Store) TryAdvisoryLock(ctx context.Context, key string) (bool, error) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	if _, held := s.lockConns[key]; held {
		// Re-entrant acquisition would double-pin the same session;
		// treat it as contention instead.
		return false, nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("store: acquiring lock connection: %w", err)
	}

	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, 0)`, key).Scan(&got); err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("store: acquiring lock %q: %w", key, err)
	}
	// NULL means an error acquiring, 0 means another session holds it.
	if !got.Valid || got.Int64 != 1 {
		_ = conn.Close()
		return false, nil
	}

	s.lockConns[key] = conn
	return true, nil
}

// ReleaseAdvisoryLock releases a lock acquired by TryAdvisoryLock.
// Releasing a lock that is not held is a no-op.
func (s *Store) ReleaseAdvisoryLock(ctx context.Context, key string) error {
	s.lockMu.Lock()
	conn, held := s.lockConns[key]
	delete(s.lockConns, key)
	s.lockMu.Unlock()

	if !held {
		return nil
	}
	defer conn.Close()

	var released sql.NullInt64
	if err := conn.QueryRowContext(ctx, `SELECT RELEASE_LOCK(?)`, key).Scan(&released); err != nil {
		// Closing the connection releases the lock anyway; report the
		// error so callers can log it.
		return fmt.Errorf("store: releasing lock %q: %w", key, err)
	}
	return nil
}
