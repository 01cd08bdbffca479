package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when the requested resource does not exist on
	// the instance.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors,
	// unexpected status codes).
	ErrNetwork = errors.New("network error")
)

// HTTPClient performs single-attempt JSON requests against instance APIs.
// Every request is attempted exactly once; transient failures surface as
// errors and the caller decides how to degrade.
type HTTPClient struct {
	http    *http.Client
	headers map[string]string
}

// NewHTTPClient creates an HTTPClient with a bounded request timeout and
// optional default headers applied to every request.
func NewHTTPClient(headers map[string]string) *HTTPClient {
	return &HTTPClient{
		http:    &http.Client{Timeout: httpTimeout},
		headers: headers,
	}
}

// SetTransport replaces the underlying http.Client. Intended for tests.
func (c *HTTPClient) SetTransport(h *http.Client) { c.http = h }

// GetJSON performs a GET request and decodes the JSON response into v.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, v any) error {
	body, _, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	defer body.Close()
	return decode(body, url, v)
}

// GetJSONHeader is GetJSON but also returns the named response header,
// which REST-shaped backends use to deliver the next-page pointer.
func (c *HTTPClient) GetJSONHeader(ctx context.Context, url, header string, v any) (string, error) {
	body, hdr, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	defer body.Close()
	return hdr.Get(header), decode(body, url, v)
}

// PostJSON performs a POST request with a JSON-encoded payload and decodes
// the JSON response into v. A nil payload sends an empty JSON object, which
// RPC-shaped backends expect.
func (c *HTTPClient) PostJSON(ctx context.Context, url string, payload, v any) error {
	if payload == nil {
		payload = struct{}{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	body, _, err := c.do(ctx, http.MethodPost, url, data)
	if err != nil {
		return err
	}
	defer body.Close()
	return decode(body, url, v)
}

func (c *HTTPClient) do(ctx context.Context, method, url string, payload []byte) (io.ReadCloser, http.Header, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("%w: %s", err, url)
	}
	return resp.Body, resp.Header, nil
}

func decode(body io.Reader, url string, v any) error {
	if err := json.NewDecoder(body).Decode(v); err != nil {
		// Malformed payloads are indistinguishable from transport failures
		// for the caller: both degrade to "this fetch contributed nothing".
		return fmt.Errorf("%w: decoding %s: %v", ErrNetwork, url, err)
	}
	return nil
}

func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
