package authclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// PermissionHeader carries a superuser's request-scoped permission override.
const PermissionHeader = "x-sv-permissionjson"

// DefaultCacheDuration bounds how long a resolved identity may be served
// without a fresh directory fetch.
const DefaultCacheDuration = time.Hour

// Config wires an AuthClient to the remote directory.
type Config struct {
	// Directory resolves tokens remotely. Required.
	Directory Directory

	// CacheDuration is the entry TTL and the sweep interval. Defaults to
	// DefaultCacheDuration.
	CacheDuration time.Duration

	// Metrics instruments the cache when set.
	Metrics *Metrics

	Logger *slog.Logger
}

type cacheEntry struct {
	user    *User
	created time.Time
	hits    int
}

// AuthClient caches token-to-user resolutions. Safe for concurrent use;
// concurrent misses for the same key may both fetch, last write wins.
type AuthClient struct {
	dir     Directory
	ttl     time.Duration
	metrics *Metrics
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]*cacheEntry

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New validates cfg, starts the background sweeper, and returns the client.
// Callers own the sweeper's lifecycle through Close.
func New(cfg Config) (*AuthClient, error) {
	if cfg.Directory == nil {
		return nil, errors.New("authclient: directory is required")
	}
	if cfg.CacheDuration <= 0 {
		cfg.CacheDuration = DefaultCacheDuration
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &AuthClient{
		dir:     cfg.Directory,
		ttl:     cfg.CacheDuration,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		cache:   map[string]*cacheEntry{},
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	go c.sweep()

	return c, nil
}

// GetUserParams identify one token resolution.
type GetUserParams struct {
	Token  string
	AcctID string

	// Headers are the incoming request headers, consulted only for the
	// superuser permission override.
	Headers http.Header
}

// GetUser resolves the token into a User within the given account.
//
// A cached entry is revalidated against the directory before being served;
// revalidation errors propagate, an invalid token must not be answered from
// cache. A stale or aged-out entry is evicted and fetched fresh. A fetch the
// directory rejects at the business level yields (nil, nil): no identity, the
// request is not authorized. Nothing rejected is ever cached.
//
// If the resolved identity is a superuser and Headers carry PermissionHeader,
// the returned User is rebuilt with the override grant and the superuser flag
// cleared. The cached copy is untouched.
func (c *AuthClient) GetUser(ctx context.Context, p GetUserParams) (*User, error) {
	key := p.Token + "_" + p.AcctID

	entry := c.lookup(key)
	if entry != nil {
		result, err := c.dir.CheckTokenCache(ctx, p.Token, p.AcctID, entry.created)
		if err != nil {
			return nil, err
		}

		if result.Success {
			c.recordHit(key)
			return c.applyOverride(entry.user, p.Headers)
		}

		c.evict(key)
	}

	c.metrics.miss()

	result, err := c.dir.CurrentUser(ctx, p.Token, p.AcctID)
	if err != nil {
		return nil, err
	}
	if !result.Success || result.Doc == nil {
		// bad token or wrong account, the request fails without an identity
		c.logger.Debug("user fetch rejected", "acct_id", p.AcctID, "message", result.Message)
		return nil, nil
	}

	user, err := NewUser(*result.Doc)
	if err != nil {
		return nil, err
	}

	c.store(key, user)

	return c.applyOverride(user, p.Headers)
}

// lookup returns the live entry for key, evicting it first when it has aged
// past the cache duration.
func (c *AuthClient) lookup(key string) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok {
		return nil
	}

	if time.Since(entry.created) > c.ttl {
		delete(c.cache, key)
		c.metrics.evict(1)
		c.metrics.setEntries(len(c.cache))
		return nil
	}

	return entry
}

func (c *AuthClient) recordHit(key string) {
	c.mu.Lock()
	if entry, ok := c.cache[key]; ok {
		entry.hits++
	}
	c.mu.Unlock()

	c.metrics.hit()
}

func (c *AuthClient) evict(key string) {
	c.mu.Lock()
	if _, ok := c.cache[key]; ok {
		delete(c.cache, key)
		c.metrics.evict(1)
	}
	c.metrics.setEntries(len(c.cache))
	c.mu.Unlock()
}

func (c *AuthClient) store(key string, user *User) {
	c.mu.Lock()
	c.cache[key] = &cacheEntry{user: user, created: time.Now()}
	c.metrics.setEntries(len(c.cache))
	c.mu.Unlock()
}

// applyOverride rebuilds a superuser identity with the request-supplied grant
// and the superuser flag cleared. The derived User never enters the cache.
func (c *AuthClient) applyOverride(user *User, headers http.Header) (*User, error) {
	if !user.Superuser || headers == nil {
		return user, nil
	}

	override := headers.Get(PermissionHeader)
	if override == "" {
		return user, nil
	}

	doc := user.UserDoc
	doc.Superuser = false
	doc.PermissionJSON = override

	return NewUser(doc)
}

// CacheLength returns the number of cached identities.
func (c *AuthClient) CacheLength() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// ClearCache drops every cached identity. Safe to call at any time.
func (c *AuthClient) ClearCache() {
	c.mu.Lock()
	c.metrics.evict(len(c.cache))
	c.cache = map[string]*cacheEntry{}
	c.metrics.setEntries(0)
	c.mu.Unlock()
}

// Close stops the background sweeper. The cache itself remains usable, but
// aged entries are then only evicted on access.
func (c *AuthClient) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	<-c.doneCh
}

// sweep removes aged entries on a fixed interval so an idle process does not
// hold stale identities indefinitely.
func (c *AuthClient) sweep() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweepOnce(time.Now())
		}
	}
}

func (c *AuthClient) sweepOnce(now time.Time) {
	c.mu.Lock()
	removed := 0
	for key, entry := range c.cache {
		if now.Sub(entry.created) > c.ttl {
			delete(c.cache, key)
			removed++
		}
	}
	if removed > 0 {
		c.metrics.evict(removed)
		c.metrics.setEntries(len(c.cache))
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug("swept aged user cache entries", "removed", removed)
	}
}
