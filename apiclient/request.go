package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jmcleod/focusflow/apperr"
	"github.com/jmcleod/focusflow/internal/uuid"
)

// Response is a successful API response.
type Response[T any] struct {
	Data      T
	Message   string
	Success   bool
	Status    int
	Header    http.Header
	RequestID string
}

type requestConfig struct {
	header   http.Header
	query    url.Values
	noRetry  bool
	bearer   string
	attempts int
}

// RequestOption adjusts a single call.
type RequestOption func(*requestConfig)

// WithBearer sets the Authorization header.
func WithBearer(token string) RequestOption {
	return func(rc *requestConfig) { rc.bearer = token }
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(rc *requestConfig) { rc.header.Set(key, value) }
}

// WithQuery adds query parameters.
func WithQuery(q url.Values) RequestOption {
	return func(rc *requestConfig) {
		for k, vs := range q {
			for _, v := range vs {
				rc.query.Add(k, v)
			}
		}
	}
}

// WithoutRetry limits the call to a single attempt.
func WithoutRetry() RequestOption {
	return func(rc *requestConfig) { rc.noRetry = true }
}

// Get issues a GET request.
func Get[T any](ctx context.Context, c *Client, endpoint string, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodGet, endpoint, nil, opts...)
}

// Post issues a POST request with body encoded as JSON.
func Post[T any](ctx context.Context, c *Client, endpoint string, body any, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodPost, endpoint, body, opts...)
}

// Put issues a PUT request with body encoded as JSON.
func Put[T any](ctx context.Context, c *Client, endpoint string, body any, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodPut, endpoint, body, opts...)
}

// Patch issues a PATCH request with body encoded as JSON.
func Patch[T any](ctx context.Context, c *Client, endpoint string, body any, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodPatch, endpoint, body, opts...)
}

// Delete issues a DELETE request.
func Delete[T any](ctx context.Context, c *Client, endpoint string, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodDelete, endpoint, nil, opts...)
}

// Do issues a request and decodes a 2xx JSON body into T. A nil body sends
// no payload; a []byte or json.RawMessage body is sent as is. Any failure
// is returned as an *apperr.AppError.
func Do[T any](ctx context.Context, c *Client, method, endpoint string, body any, opts ...RequestOption) (*Response[T], error) {
	rc := requestConfig{header: http.Header{}, query: url.Values{}}
	for _, opt := range opts {
		opt(&rc)
	}
	rc.attempts = c.attempts
	if rc.noRetry {
		rc.attempts = 1
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "Invalid request body", err)
	}

	requestID := uuid.New()
	target := c.url(endpoint, rc.query)
	var last result
	err = c.withRetry(ctx, rc.attempts, func(ctx context.Context, attempt int) *apperr.AppError {
		last = c.attempt(ctx, method, target, payload, &rc, requestID)
		if last.err != nil {
			last.err.With("attempt", attempt)
			c.logger.Debug("request attempt failed",
				slog.String("method", method),
				slog.String("endpoint", endpoint),
				slog.Int("attempt", attempt),
				slog.String("kind", last.err.Kind.String()),
				slog.Int("status", last.err.StatusCode))
		}
		return last.err
	})
	if err != nil {
		ae := apperr.Normalize(err)
		ae.With("method", method).With("endpoint", endpoint).With("requestId", requestID)
		apperr.Log(ctx, c.logger, ae)
		return nil, ae
	}

	resp := &Response[T]{
		Success:   true,
		Status:    last.status,
		Header:    last.header,
		RequestID: requestID,
		Message:   last.message,
	}
	if len(bytes.TrimSpace(last.body)) > 0 {
		if err := json.Unmarshal(last.body, &resp.Data); err != nil {
			ae := apperr.New(apperr.KindUnknown, "Invalid response body", err).
				With("method", method).With("endpoint", endpoint).With("requestId", requestID)
			ae.StatusCode = last.status
			apperr.Log(ctx, c.logger, ae)
			return nil, ae
		}
	}
	return resp, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(body)
	}
}

type result struct {
	status  int
	header  http.Header
	body    []byte
	message string
	err     *apperr.AppError
}

// attempt runs one round trip under the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, method, target string, payload []byte, rc *requestConfig, requestID string) result {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() == nil {
				// Wait refuses up front when the deadline would pass first.
				return result{err: apperr.New(apperr.KindTimeout, "", err)}
			}
			return result{err: apperr.FromTransportError(err)}
		}
	}

	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(actx, method, target, reader)
	if err != nil {
		return result{err: apperr.New(apperr.KindValidation, "Invalid request", err)}
	}
	for k, vs := range rc.header {
		req.Header[k] = vs
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if rc.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+rc.bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return result{err: c.transportError(ctx, actx, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return result{err: c.transportError(ctx, actx, err)}
	}
	if len(data) > maxResponseBytes {
		ae := apperr.New(apperr.KindUnknown, "Response too large", nil)
		ae.StatusCode = resp.StatusCode
		return result{err: ae}
	}

	res := result{status: resp.StatusCode, header: resp.Header, body: data}
	parsed, isJSON := parseBody(data)
	if m, ok := parsed.(map[string]any); ok {
		res.message, _ = m["message"].(string)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return res
	}

	message := errorMessage(parsed)
	if message == "" {
		message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	ae := apperr.FromHTTPStatus(resp.StatusCode, message, nil)
	switch {
	case isJSON:
		ae.With("body", parsed)
	case len(data) > 0:
		ae.With("body", string(data))
	}
	res.err = ae
	return res
}

// transportError classifies a failed round trip. A per-attempt deadline
// expiring while the caller's context is still live is a timeout.
func (c *Client) transportError(parent, attempt context.Context, err error) *apperr.AppError {
	if parent.Err() == nil && errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return apperr.New(apperr.KindTimeout, fmt.Sprintf("Request timed out after %s", c.timeout), err)
	}
	return apperr.FromTransportError(err)
}

func parseBody(data []byte) (any, bool) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return v, true
}

// errorMessage extracts the server's message. ASP.NET problem details put
// it in "title" and field errors under "errors".
func errorMessage(parsed any) string {
	m, ok := parsed.(map[string]any)
	if !ok {
		if s, ok := parsed.(string); ok {
			return strings.TrimSpace(s)
		}
		return ""
	}
	for _, key := range []string{"message", "Message", "error", "title"} {
		if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
