package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/homevista/brokerage/client/tokenstore"
)

// envelope mirrors the server's response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// do sends an authenticated request and decodes the data envelope into out.
// A 401 triggers exactly one refresh-and-retry; concurrent 401s share the
// refresh via singleflight. When the refresh fails the session is torn down
// and ErrSessionExpired is returned.
func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	token, hasToken := c.tokens.Get(tokenstore.KeyAccessToken)
	if hasToken {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && hasToken {
		_ = resp.Body.Close()

		if _, err := c.refresh(ctx); err != nil {
			return ErrSessionExpired
		}

		retried, err := rewindRequest(req)
		if err != nil {
			return err
		}
		fresh, ok := c.tokens.Get(tokenstore.KeyAccessToken)
		if !ok {
			return ErrSessionExpired
		}
		retried.Header.Set("Authorization", "Bearer "+fresh)

		resp, err = c.send(ctx, retried)
		if err != nil {
			return err
		}
		// A second 401 does not trigger another refresh.
	}

	return decodeResponse(resp, out)
}

// doPublic sends a request without attaching credentials and without the
// 401-refresh path. Login, refresh, and the other pre-session endpoints use
// it so an auth rejection surfaces as a plain APIError.
func (c *Client) doPublic(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

// send pushes one request through the circuit breaker. 5xx responses count as
// breaker failures and come back as APIErrors with the body already parsed.
func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.httpClient.Do(req.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("http request: %w", err)
		}
		if resp.StatusCode >= 500 {
			return nil, parseResponseError(resp)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// decodeResponse turns a non-2xx response into an APIError and otherwise
// decodes the data envelope into out (which may be nil for empty responses).
func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseResponseError(resp)
	}

	defer func() { _ = resp.Body.Close() }()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Data == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// rewindRequest clones a request with a fresh body for the refresh retry.
func rewindRequest(req *http.Request) (*http.Request, error) {
	retried := req.Clone(req.Context())
	if req.Body == nil || req.GetBody == nil {
		return retried, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	retried.Body = body
	return retried, nil
}

// newJSONRequest builds a request with an optional JSON body. Bodies are
// buffered so the 401-retry path can replay them.
func (c *Client) newJSONRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// getJSON is the authenticated GET shorthand.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newJSONRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// postJSON is the authenticated POST shorthand.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// postPublicJSON posts without credentials.
func (c *Client) postPublicJSON(ctx context.Context, path string, body, out any) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return c.doPublic(ctx, req, out)
}
