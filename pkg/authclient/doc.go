// Package authclient resolves bearer tokens into cached user identities.
//
// An AuthClient holds a process-wide cache keyed by token and account id.
// Cache hits are revalidated against the remote directory before being
// served; entries found stale, and entries older than the configured cache
// duration, are evicted and fetched fresh. A background sweeper removes aged
// entries between requests and is stopped by Close.
package authclient
