package sqlite_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/simpleviewinc/sv-auth-client/pkg/sessionx"
	"github.com/simpleviewinc/sv-auth-client/pkg/sessionx/sqlite"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "sessions.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	s := sessionx.New()
	require.NoError(t, s.Set("state", "abc123"))

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, nil, s))
	require.NotEmpty(t, s.ID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, s.ID, cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])

	loaded, err := store.Load(req)
	require.NoError(t, err)
	require.Equal(t, s.ID, loaded.ID)

	var state string
	ok, err := loaded.Get("state", &state)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc123", state)
}

func TestStoreUnknownIDYieldsFreshSession(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionx.DefaultCookieName, Value: "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV"})

	loaded, err := store.Load(req)
	require.NoError(t, err)
	require.Zero(t, loaded.Len())
	require.Empty(t, loaded.ID)
}

func TestStoreEmptySessionRemovesRow(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	s := sessionx.New()
	require.NoError(t, s.Set("state", "abc"))

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, nil, s))
	id := s.ID

	s.Delete("state")
	rec = httptest.NewRecorder()
	require.NoError(t, store.Save(rec, nil, s))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Negative(t, cookies[0].MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionx.DefaultCookieName, Value: id})

	loaded, err := store.Load(req)
	require.NoError(t, err)
	require.Zero(t, loaded.Len())
}

func TestStoreCleanup(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	store.TTL = time.Nanosecond

	s := sessionx.New()
	require.NoError(t, s.Set("state", "abc"))
	require.NoError(t, store.Save(httptest.NewRecorder(), nil, s))

	time.Sleep(1100 * time.Millisecond) // expires_at has second resolution

	removed, err := store.Cleanup(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
}
