// Package sessionx persists per-browser session state across the OAuth2
// redirect round trip.
//
// A Session is a bag of named JSON values. Stores decide where the bag lives:
// the CookieStore seals it into an encrypted cookie, the sqlite subpackage
// keeps it server side behind an opaque session id cookie.
package sessionx

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Session holds arbitrary named values for one browser session.
type Session struct {
	// ID identifies the session in server-side stores. Owned by the store;
	// empty for cookie-embedded sessions.
	ID string

	values map[string]json.RawMessage
	dirty  bool
}

// New returns an empty, unsaved session.
func New() *Session {
	return &Session{values: map[string]json.RawMessage{}}
}

// Get unmarshals the value stored under key into v. The bool reports whether
// the key was present.
func (s *Session) Get(key string, v any) (bool, error) {
	raw, ok := s.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("sessionx: decode %q: %w", key, err)
	}
	return true, nil
}

// Set stores v under key, replacing any previous value.
func (s *Session) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sessionx: encode %q: %w", key, err)
	}
	s.values[key] = raw
	s.dirty = true
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// Len returns the number of stored values.
func (s *Session) Len() int { return len(s.values) }

// Dirty reports whether the session changed since it was loaded. Stores skip
// the write when nothing changed.
func (s *Session) Dirty() bool { return s.dirty }

// Encode serializes the value bag for storage.
func (s *Session) Encode() ([]byte, error) {
	return json.Marshal(s.values)
}

// Decode replaces the value bag with previously encoded data and marks the
// session clean.
func (s *Session) Decode(data []byte) error {
	values := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("sessionx: decode session payload: %w", err)
	}
	s.values = values
	s.dirty = false
	return nil
}

// Store loads and saves sessions on the request/response cycle.
type Store interface {
	// Load returns the session for the request, or a fresh empty session
	// when none exists or the stored one is unreadable.
	Load(r *http.Request) (*Session, error)

	// Save persists the session. Implementations skip unchanged sessions
	// and expire the browser cookie when the session is empty.
	Save(w http.ResponseWriter, r *http.Request, s *Session) error
}
