package graph_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/simpleviewinc/sv-auth-client/pkg/graph"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	authorization string
	headers       http.Header
	query         string
	variables     map[string]any
}

// graphServer replies with the given body and records what it was asked.
func graphServer(t *testing.T, body string) (*graph.Client, *recordedRequest) {
	t.Helper()

	recorded := &recordedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorded.authorization = r.Header.Get("Authorization")
		recorded.headers = r.Header.Clone()

		var payload struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		recorded.query = payload.Query
		recorded.variables = payload.Variables

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return graph.NewClient(server.URL), recorded
}

func TestDoSendsBearerTokenAndHeaders(t *testing.T) {
	t.Parallel()

	client, recorded := graphServer(t, `{"data":{}}`)

	err := client.Do(context.Background(), graph.Request{
		Query:   `query { auth { current { success } } }`,
		Token:   "token0",
		Headers: map[string]string{"x-sv-object-bindings": "abc"},
	}, nil)
	require.NoError(t, err)

	require.Equal(t, "Bearer token0", recorded.authorization)
	require.Equal(t, "abc", recorded.headers.Get("x-sv-object-bindings"))
}

func TestDoUnwrapsGraphErrors(t *testing.T) {
	t.Parallel()

	client, _ := graphServer(t,
		`{"data":null,"errors":[{"message":"first"},{"message":"second"}]}`)

	err := client.Do(context.Background(), graph.Request{Query: "query {}"}, nil)

	var queryErr *graph.QueryError
	require.ErrorAs(t, err, &queryErr)
	require.Equal(t, []string{"first", "second"}, queryErr.Messages)
	require.Contains(t, err.Error(), "first; second")
}

func TestDoSurfacesHTTPFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	err := graph.NewClient(server.URL).Do(context.Background(), graph.Request{Query: "query {}"}, nil)
	require.ErrorContains(t, err, "status 502")
}

func TestCurrentUser(t *testing.T) {
	t.Parallel()

	client, recorded := graphServer(t, `{
		"data": {
			"auth": {
				"current": {
					"success": true,
					"doc": {
						"id": "u1",
						"acct_id": "acct0",
						"email": "test0@test.com",
						"permissionJson": "{\"cms\":true}",
						"active": true
					}
				}
			}
		}
	}`)

	result, err := client.CurrentUser(context.Background(), "token0", "acct0")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "u1", result.Doc.ID)
	require.Equal(t, `{"cms":true}`, result.Doc.PermissionJSON)

	require.Equal(t, "Bearer token0", recorded.authorization)
	require.Equal(t, "acct0", recorded.variables["acct_id"])
	require.Contains(t, recorded.query, "current(acct_id: $acct_id)")
}

func TestCheckTokenCache(t *testing.T) {
	t.Parallel()

	client, recorded := graphServer(t, `{
		"data": {
			"auth": {
				"check_token_cache": {"success": false, "message": "stale"}
			}
		}
	}`)

	since := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	result, err := client.CheckTokenCache(context.Background(), "token0", "acct0", since)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "stale", result.Message)

	require.Equal(t, "2024-05-01T12:30:00Z", recorded.variables["date"])
	require.Equal(t, "acct0", recorded.variables["acct_id"])
}

func TestObjectBindingsMine(t *testing.T) {
	t.Parallel()

	client, recorded := graphServer(t, `{
		"data": {
			"admin": {
				"object_bindings_mine": {
					"success": true,
					"permissionObj": {
						"cms.items": {"item": ["1", "2"]},
						"cms.nav": true
					}
				}
			}
		}
	}`)

	result, err := client.ObjectBindingsMine(context.Background(), "token0", "acct0",
		graph.BindingsFilter{Perms: []string{"cms.items", "cms.nav"}},
		map[string]string{"x-sv-object-bindings": "abc"})
	require.NoError(t, err)
	require.True(t, result.Success)

	ids := result.Obj.CanIDs("cms.items", "item")
	require.True(t, ids.Granted)
	require.Equal(t, []string{"1", "2"}, ids.IDs)
	require.True(t, result.Obj.CanIDs("cms.nav", "anything").All)

	require.Equal(t, "acct0", recorded.variables["acct_id"])
	require.Equal(t, "abc", recorded.headers.Get("x-sv-object-bindings"))
}
