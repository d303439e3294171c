package sessionx

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultCookieName is used when CookieStore.Name is left empty.
const DefaultCookieName = "session"

var errCookieTooShort = errors.New("sessionx: sealed cookie shorter than nonce")

// CookieStore seals the whole session into a single AES-256-GCM encrypted
// cookie. The sealed format is [12-byte nonce][ciphertext+tag], base64url
// encoded. Suited to the small payloads the OAuth2 handshake stores; larger
// session data belongs in a server-side store.
type CookieStore struct {
	// Name of the cookie, defaults to DefaultCookieName.
	Name string

	// Path scopes the cookie, defaults to "/".
	Path string

	// Secure marks the cookie HTTPS-only. Leave false only for local
	// development.
	Secure bool

	// SameSite defaults to http.SameSiteLaxMode, which still sends the
	// cookie on the top-level redirect back from the identity provider.
	SameSite http.SameSite

	// MaxAge bounds the cookie lifetime. Zero means a browser-session
	// cookie.
	MaxAge time.Duration

	key [32]byte
}

// NewCookieStore derives a 32-byte AES-256 key from secret. The secret must
// be non-empty and shared by every instance serving the same site.
func NewCookieStore(secret []byte) (*CookieStore, error) {
	if len(secret) == 0 {
		return nil, errors.New("sessionx: cookie store secret is required")
	}

	return &CookieStore{
		Name:     DefaultCookieName,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		key:      sha256.Sum256(secret),
	}, nil
}

// Load decrypts the session cookie. A missing cookie, or one sealed under a
// different key, yields a fresh empty session rather than an error; the
// handshake simply starts over.
func (cs *CookieStore) Load(r *http.Request) (*Session, error) {
	session := New()

	cookie, err := r.Cookie(cs.name())
	if err != nil {
		return session, nil
	}

	payload, err := cs.open(cookie.Value)
	if err != nil {
		return session, nil
	}

	if err := session.Decode(payload); err != nil {
		return New(), nil
	}

	return session, nil
}

// Save seals the session back into the cookie. Unchanged sessions are left
// alone so the Set-Cookie header only appears when state actually moved.
func (cs *CookieStore) Save(w http.ResponseWriter, _ *http.Request, s *Session) error {
	if !s.Dirty() {
		return nil
	}

	if s.Len() == 0 {
		http.SetCookie(w, cs.cookie("", -1))
		return nil
	}

	payload, err := s.Encode()
	if err != nil {
		return err
	}

	sealed, err := cs.seal(payload)
	if err != nil {
		return err
	}

	maxAge := 0
	if cs.MaxAge > 0 {
		maxAge = int(cs.MaxAge.Seconds())
	}
	http.SetCookie(w, cs.cookie(sealed, maxAge))
	return nil
}

func (cs *CookieStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     cs.name(),
		Value:    value,
		Path:     cs.path(),
		MaxAge:   maxAge,
		Secure:   cs.Secure,
		HttpOnly: true,
		SameSite: cs.SameSite,
	}
}

func (cs *CookieStore) name() string {
	if cs.Name == "" {
		return DefaultCookieName
	}
	return cs.Name
}

func (cs *CookieStore) path() string {
	if cs.Path == "" {
		return "/"
	}
	return cs.Path
}

func (cs *CookieStore) seal(payload []byte) (string, error) {
	gcm, err := cs.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("sessionx: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, payload, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (cs *CookieStore) open(value string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("sessionx: decode sealed cookie: %w", err)
	}

	gcm, err := cs.aead()
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, errCookieTooShort
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	payload, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("sessionx: open sealed cookie: %w", err)
	}

	return payload, nil
}

func (cs *CookieStore) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(cs.key[:])
	if err != nil {
		return nil, fmt.Errorf("sessionx: create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("sessionx: create GCM: %w", err)
	}

	return gcm, nil
}
