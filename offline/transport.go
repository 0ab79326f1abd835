package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/calygofire/calygo"
)

// HTTPTransport sends requests to the sync server. Relative request URLs such
// as "/api/sales" are resolved against the server base URL.
type HTTPTransport struct {
	client *http.Client
	base   *url.URL
}

var _ Transport = (*HTTPTransport)(nil)

func NewHTTPTransport(client *http.Client, serverURL string) (*HTTPTransport, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q: want scheme and host", serverURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{client: client, base: base}, nil
}

// Resolve returns the absolute URL for ref.
func (t *HTTPTransport) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return t.base.ResolveReference(u).String(), nil
}

func (t *HTTPTransport) Send(ctx context.Context, req calygo.PendingRequest) (int, error) {
	return t.Do(ctx, req, nil)
}

// Do sends req and, on a 2xx response with a non-nil out, decodes the JSON
// body into out.
func (t *HTTPTransport) Do(ctx context.Context, req calygo.PendingRequest, out any) (int, error) {
	target, err := t.Resolve(req.URL)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %q: %w", req.URL, err)
	}

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}

	resp, err := t.client.Do(hreq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
		return resp.StatusCode, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
