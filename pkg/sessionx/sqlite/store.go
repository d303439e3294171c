// Package sqlite provides a server-side session store backed by SQLite. The
// browser only carries an opaque session id cookie; session values stay in
// the database.
package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/simpleviewinc/sv-auth-client/pkg/sessionx"
)

// DefaultTTL bounds how long an untouched session survives.
const DefaultTTL = 7 * 24 * time.Hour

// Store keeps session payloads in a sessions table keyed by ULID.
type Store struct {
	// CookieName holds the session id cookie name, defaults to
	// sessionx.DefaultCookieName.
	CookieName string

	// Secure marks the id cookie HTTPS-only.
	Secure bool

	// TTL is the session lifetime, measured from last save.
	TTL time.Duration

	db     *sql.DB
	logger *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewStore opens (or creates) the SQLite database at dsn and applies any
// pending schema migrations.
func NewStore(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		CookieName: sessionx.DefaultCookieName,
		TTL:        DefaultTTL,
		db:         db,
		logger:     logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	if err := s.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close stops the cleanup worker if running and closes the database.
func (s *Store) Close() error {
	s.StopCleanup()
	return s.db.Close()
}

// Load resolves the session id cookie against the sessions table. Missing,
// unknown, and expired ids all yield a fresh session.
func (s *Store) Load(r *http.Request) (*sessionx.Session, error) {
	session := sessionx.New()

	cookie, err := r.Cookie(s.cookieName())
	if err != nil {
		return session, nil
	}

	var payload []byte
	row := s.db.QueryRowContext(r.Context(),
		`SELECT payload FROM sessions WHERE id = ? AND expires_at > ?`,
		cookie.Value, time.Now().Unix(),
	)
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return session, nil
		}
		return nil, err
	}

	if err := session.Decode(payload); err != nil {
		return sessionx.New(), nil
	}

	session.ID = cookie.Value
	return session, nil
}

// Save upserts the session payload and issues the id cookie on first save.
// Empty sessions are removed and their cookie expired.
func (s *Store) Save(w http.ResponseWriter, r *http.Request, session *sessionx.Session) error {
	if !session.Dirty() {
		return nil
	}

	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
	}

	if session.Len() == 0 {
		if session.ID != "" {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, s.cookie("", -1))
		return nil
	}

	payload, err := session.Encode()
	if err != nil {
		return err
	}

	isNew := session.ID == ""
	if isNew {
		session.ID = ulid.Make().String()
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		session.ID, payload, now.Unix(), now.Add(s.ttl()).Unix(),
	)
	if err != nil {
		return err
	}

	if isNew {
		http.SetCookie(w, s.cookie(session.ID, int(s.ttl().Seconds())))
	}
	return nil
}

// Cleanup deletes expired sessions and returns how many were removed.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// StartCleanup runs Cleanup on the given interval until StopCleanup or Close
// is called. Non-blocking; subsequent calls are no-ops.
func (s *Store) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	s.startOnce.Do(func() {
		s.started = true

		go func() {
			defer close(s.doneCh)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					removed, err := s.Cleanup(context.Background())
					if err != nil {
						s.logger.Error("session cleanup failed", "err", err)
						continue
					}
					if removed > 0 {
						s.logger.Info("expired sessions removed", "count", removed)
					}
				case <-s.stopCh:
					return
				}
			}
		}()
	})
}

// StopCleanup stops the cleanup worker and waits for it to finish. Safe to
// call repeatedly, and a no-op when the worker was never started.
func (s *Store) StopCleanup() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	if s.started {
		<-s.doneCh
	}
}

func (s *Store) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName(),
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   s.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Store) cookieName() string {
	if s.CookieName == "" {
		return sessionx.DefaultCookieName
	}
	return s.CookieName
}

func (s *Store) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultTTL
	}
	return s.TTL
}
