// Package graph talks GraphQL-over-HTTP to the remote identity service and
// exposes the operations the rest of the library consumes. It implements
// authclient.Directory.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client posts GraphQL documents to a single endpoint.
type Client struct {
	GraphURL   string
	HTTPClient *http.Client
}

// NewClient returns a Client for the given endpoint with a 10 second request
// timeout.
func NewClient(graphURL string) *Client {
	return &Client{
		GraphURL: strings.TrimSuffix(graphURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Request is one GraphQL operation.
type Request struct {
	Query     string
	Variables map[string]any

	// Token is sent as a bearer Authorization header when set.
	Token string

	// Headers are forwarded verbatim, for request-scoped extensions the
	// service reads out of band.
	Headers map[string]string
}

// QueryError is an error the GraphQL layer reported inside a well-formed
// response.
type QueryError struct {
	Messages []string
}

func (e *QueryError) Error() string {
	return "graph: query failed: " + strings.Join(e.Messages, "; ")
}

type graphErr struct {
	Message string `json:"message"`
}

// Do executes the request and decodes the data envelope into out.
func (c *Client) Do(ctx context.Context, gr Request, out any) error {
	body, err := json.Marshal(map[string]any{
		"query":     gr.Query,
		"variables": gr.Variables,
	})
	if err != nil {
		return fmt.Errorf("graph: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.GraphURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("graph: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if gr.Token != "" {
		req.Header.Set("Authorization", "Bearer "+gr.Token)
	}
	for key, value := range gr.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("graph: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graph: request failed with status %d: %s", resp.StatusCode, respBody)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphErr      `json:"errors"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("graph: decode response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		queryErr := &QueryError{}
		for _, e := range envelope.Errors {
			queryErr.Messages = append(queryErr.Messages, e.Message)
		}
		return queryErr
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("graph: decode data: %w", err)
		}
	}

	return nil
}
