package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const userAgent = "tankerkoenig-go/1.0"

// Transport performs a single HTTP round trip and returns the response body.
// Implementations must report non-2xx responses and I/O failures as
// *TransportError.
type Transport interface {
	Get(ctx context.Context, url string, query url.Values) ([]byte, error)
	Post(ctx context.Context, url string, form url.Values) ([]byte, error)
}

// HTTPTransport is the net/http backed Transport.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport returns a Transport using client, or a client with
// DefaultTimeout when client is nil.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPTransport{client: client}
}

func (t *HTTPTransport) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: fmt.Errorf("error parsing URL: %w", err)}
	}
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, &TransportError{URL: redactURL(u.String()), Err: fmt.Errorf("error creating request: %w", err)}
	}
	return t.do(req)
}

func (t *HTTPTransport) Post(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: fmt.Errorf("error creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return t.do(req)
}

func (t *HTTPTransport) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", userAgent)
	reqURL := redactURL(req.URL.String())

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: reqURL, Err: fmt.Errorf("error fetching data: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{URL: reqURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: reqURL, Err: fmt.Errorf("error reading response body: %w", err)}
	}
	return body, nil
}
