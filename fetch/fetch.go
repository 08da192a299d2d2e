package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	apperrors "tubebrief/errors"
)

// Client is the single HTTP entry point for the whole system. Every request
// carries a hard deadline; when it elapses the in-flight request is aborted
// through context cancellation, not merely abandoned.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	maxBody int64
}

type Config struct {
	// RequestsPerSecond throttles outbound calls. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
	// MaxBodyBytes caps response reads. Zero means the default of 8 MiB.
	MaxBodyBytes int64
}

const defaultMaxBody = 8 << 20

func NewClient(cfg Config) *Client {
	c := &Client{
		// No client-level timeout: deadlines are per-call.
		http:    &http.Client{},
		maxBody: cfg.MaxBodyBytes,
	}
	if c.maxBody == 0 {
		c.maxBody = defaultMaxBody
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// Do executes req bounded by timeout. A lapsed deadline cancels the request
// context, which closes the underlying connection.
func (c *Client) Do(ctx context.Context, req *http.Request, timeout time.Duration) (*http.Response, error) {
	const op = "fetch.Do"

	ctx, cancel := context.WithTimeout(ctx, timeout)
	req = req.WithContext(ctx)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			cancel()
			return nil, apperrors.Timeout(op, err, "rate limiter wait aborted")
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.Timeout(op, err, "request timed out: "+req.URL.Host)
		}
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.URL.Host)
	}

	// The cancel func must outlive the body read; tie it to Body.Close.
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// GetString GETs url and returns the body as a string. Non-2xx responses are
// errors; the body read is size-capped.
func (c *Client) GetString(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (string, error) {
	const op = "fetch.GetString"

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", apperrors.InvalidInput(op, err, "invalid request URL")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(ctx, req, timeout)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return "", errors.Wrap(err, "reading response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Errorf("GET %s: status %d", req.URL.Host, resp.StatusCode)
	}
	return string(body), nil
}

// PostJSON POSTs payload as JSON and decodes the response body into out.
// The raw status and a body snippet are returned for non-2xx responses so
// callers can classify model-level failures.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload, out any, timeout time.Duration) (int, string, error) {
	const op = "fetch.PostJSON"

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, "", apperrors.Internal(op, err, "marshalling request payload")
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", apperrors.InvalidInput(op, err, "invalid request URL")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(ctx, req, timeout)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return resp.StatusCode, "", errors.Wrap(err, "reading response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, string(raw), errors.Errorf("POST %s: status %d", req.URL.Host, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, string(raw), errors.Wrap(err, "decoding response JSON")
		}
	}
	return resp.StatusCode, string(raw), nil
}
