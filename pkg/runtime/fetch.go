package runtime

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

// maxFetchRetries is the number of additional attempts after the first
// failed request when FetchOptions.Retry is set.
const maxFetchRetries = 3

// retryBackoffStep is multiplied by the attempt number between retries.
const retryBackoffStep = 500 * time.Millisecond

// FetchOptions configures a single Fetch call.
type FetchOptions struct {
	Headers map[string]string
	Query   map[string]string

	// Timeout bounds this request. Defaults to 30 seconds.
	Timeout time.Duration

	// Retry enables up to maxFetchRetries additional attempts with
	// linearly increasing backoff on transport failures.
	Retry bool
}

// Response is the uniform result of a Fetch call. Failed fetches are
// represented as a Response carrying a structured error body rather than
// an error value, so plugin logic can use one response-shape check for
// both outcomes.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON parses the response body for ad-hoc field extraction.
func (r *Response) JSON() gjson.Result { return gjson.ParseBytes(r.Body) }

// ErrMsg returns the structured error message for a failed fetch, or
// empty when the response came from the upstream.
func (r *Response) ErrMsg() string {
	res := gjson.GetBytes(r.Body, "s")
	if res.String() != "error" {
		return ""
	}

	return gjson.GetBytes(r.Body, "errmsg").String()
}

// OK reports whether the upstream answered with a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Fetch performs an HTTP GET. Transport failures are retried per opts;
// on exhaustion a structured error Response is returned instead of an
// error. HTTP error statuses from the upstream are returned as-is for
// the plugin to inspect.
func (r *Runtime) Fetch(ctx context.Context, rawURL string, opts FetchOptions) *Response {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	target, err := buildURL(rawURL, opts.Query)
	if err != nil {
		r.log.WithError(err).WithField("url", rawURL).Error("Invalid fetch URL")

		return errorResponse("invalid URL: " + err.Error())
	}

	retries := 0
	if opts.Retry {
		retries = maxFetchRetries
	}

	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			r.log.WithError(lastErr).WithField("attempt", attempt).Warn("HTTP request failed, retrying")

			select {
			case <-ctx.Done():
				return errorResponse("HTTP request cancelled: " + ctx.Err().Error())
			case <-time.After(time.Duration(attempt) * retryBackoffStep):
			}
		}

		resp, err := r.doFetch(ctx, target, opts)
		if err != nil {
			lastErr = err
			continue
		}

		return resp
	}

	r.log.WithError(lastErr).WithField("url", target).Error("HTTP request failed after retries")

	return errorResponse("HTTP request failed: " + lastErr.Error())
}

func (r *Runtime) doFetch(ctx context.Context, target string, opts FetchOptions) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func buildURL(rawURL string, query map[string]string) (string, error) {
	if len(query) == 0 {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, v := range query {
		q.Set(k, v)
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}

// errorResponse builds the structured failure payload plugins check for.
func errorResponse(msg string) *Response {
	body, _ := json.Marshal(map[string]string{"s": "error", "errmsg": msg})

	return &Response{StatusCode: http.StatusInternalServerError, Body: body}
}
