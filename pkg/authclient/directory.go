package authclient

import (
	"context"
	"time"
)

// UserResult is the directory's answer to a user lookup. Success false is a
// business-level rejection (bad token/account pairing), not a transport
// failure.
type UserResult struct {
	Success bool
	Message string
	Doc     *UserDoc
}

// CheckResult is the directory's answer to a cache revalidation probe.
type CheckResult struct {
	Success bool
	Message string
}

// Directory is the remote identity service as the cache consumes it. The
// graph package provides the production implementation.
type Directory interface {
	// CurrentUser fetches the user document the token resolves to within the
	// given account.
	CurrentUser(ctx context.Context, token, acctID string) (*UserResult, error)

	// CheckTokenCache asks whether an identity cached at since is still
	// current. The probe itself requires an authenticated token; a revoked
	// token surfaces as an error here, not a false result.
	CheckTokenCache(ctx context.Context, token, acctID string, since time.Time) (*CheckResult, error)
}
