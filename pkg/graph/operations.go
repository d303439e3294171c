package graph

import (
	"context"
	"time"

	"github.com/simpleviewinc/sv-auth-client/pkg/authclient"
	"github.com/simpleviewinc/sv-auth-client/pkg/permission"
)

const currentUserQuery = `
	query($acct_id: String!) {
		auth {
			current(acct_id: $acct_id) {
				success
				message
				doc {
					id
					sv
					acct_id
					firstname
					lastname
					email
					permissionJson
					auth_user_id {
						type
						value
					}
					active
				}
			}
		}
	}
`

// CurrentUser fetches the user document the token resolves to within acctID.
func (c *Client) CurrentUser(ctx context.Context, token, acctID string) (*authclient.UserResult, error) {
	var data struct {
		Auth struct {
			Current struct {
				Success bool                `json:"success"`
				Message string              `json:"message"`
				Doc     *authclient.UserDoc `json:"doc"`
			} `json:"current"`
		} `json:"auth"`
	}

	err := c.Do(ctx, Request{
		Query:     currentUserQuery,
		Variables: map[string]any{"acct_id": acctID},
		Token:     token,
	}, &data)
	if err != nil {
		return nil, err
	}

	return &authclient.UserResult{
		Success: data.Auth.Current.Success,
		Message: data.Auth.Current.Message,
		Doc:     data.Auth.Current.Doc,
	}, nil
}

const checkTokenCacheQuery = `
	query($date: auth_date!, $acct_id: String!) {
		auth {
			check_token_cache(date: $date, acct_id: $acct_id) {
				success
				message
			}
		}
	}
`

// CheckTokenCache asks whether an identity cached at since is still current.
func (c *Client) CheckTokenCache(ctx context.Context, token, acctID string, since time.Time) (*authclient.CheckResult, error) {
	var data struct {
		Auth struct {
			CheckTokenCache struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			} `json:"check_token_cache"`
		} `json:"auth"`
	}

	err := c.Do(ctx, Request{
		Query: checkTokenCacheQuery,
		Variables: map[string]any{
			"date":    since.UTC().Format(time.RFC3339),
			"acct_id": acctID,
		},
		Token: token,
	}, &data)
	if err != nil {
		return nil, err
	}

	return &authclient.CheckResult{
		Success: data.Auth.CheckTokenCache.Success,
		Message: data.Auth.CheckTokenCache.Message,
	}, nil
}

const objectBindingsQuery = `
	query($acct_id: String!, $filter: admin_object_bindings_mine_filter) {
		admin(acct_id: $acct_id) {
			object_bindings_mine(filter: $filter) {
				success
				message
				permissionObj
			}
		}
	}
`

// BindingsFilter scopes an object-bindings lookup.
type BindingsFilter struct {
	NodeTypes []string `json:"node_types,omitempty"`
	Perms     []string `json:"perms,omitempty"`
}

// BindingsResult carries the caller's own object bindings.
type BindingsResult struct {
	Success bool
	Message string
	Obj     permission.Bindings
}

// ObjectBindingsMine fetches the object bindings held by the token's user,
// optionally narrowed by filter. headers are forwarded to the service.
func (c *Client) ObjectBindingsMine(ctx context.Context, token, acctID string, filter BindingsFilter, headers map[string]string) (*BindingsResult, error) {
	var data struct {
		Admin struct {
			ObjectBindingsMine struct {
				Success       bool                `json:"success"`
				Message       string              `json:"message"`
				PermissionObj permission.Bindings `json:"permissionObj"`
			} `json:"object_bindings_mine"`
		} `json:"admin"`
	}

	err := c.Do(ctx, Request{
		Query: objectBindingsQuery,
		Variables: map[string]any{
			"acct_id": acctID,
			"filter":  filter,
		},
		Token:   token,
		Headers: headers,
	}, &data)
	if err != nil {
		return nil, err
	}

	return &BindingsResult{
		Success: data.Admin.ObjectBindingsMine.Success,
		Message: data.Admin.ObjectBindingsMine.Message,
		Obj:     data.Admin.ObjectBindingsMine.PermissionObj,
	}, nil
}
