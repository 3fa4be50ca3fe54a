package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/net/publicsuffix"

	"github.com/Sontara444/taskmanager-client/logging"
)

// TokenSource supplies the bearer token attached to every request.
// An empty token means only cookies are sent.
type TokenSource interface {
	Token() string
}

type Options struct {
	// BaseURL is the API root, for example http://localhost:5000/api.
	BaseURL string
	Timeout time.Duration
	Tokens  TokenSource

	BreakerName        string
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration

	// HTTPClient replaces the default client. Its Jar is kept if set.
	HTTPClient *http.Client
}

// Client issues authenticated JSON requests against the backend and
// normalizes every failure into *HTTPError or *NetworkError.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	tokens  TokenSource
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

type response struct {
	status     int
	statusText string
	body       []byte
}

func NewHTTPClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	name := opts.BreakerName
	if name == "" {
		name = "backend-cb"
	}
	maxFailures := opts.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 3
	}
	timeout := opts.BreakerTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	return &Client{
		baseURL: base,
		http:    httpClient,
		breaker: breaker,
		tokens:  opts.Tokens,
	}, nil
}

// countsAsSuccess keeps client errors (4xx) and caller cancellation from
// tripping the breaker. Only unreachable servers and 5xx count.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status < http.StatusInternalServerError
	}
	return false
}

// BaseURL returns a copy of the API root.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Jar exposes the cookie jar so the push channel can reuse session cookies.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// AuthHeader returns the headers that carry credentials other than cookies.
func (c *Client) AuthHeader() http.Header {
	h := http.Header{}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			h.Set("Authorization", "Bearer "+token)
		}
	}
	return h
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Do sends req and decodes a JSON success body into out (when out is non-nil
// and the body is not empty).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	target := c.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}
	rawURL := target.String()

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode request body for %s %s: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, rawURL, body)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", req.Method, req.Path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	for k, v := range c.AuthHeader() {
		httpReq.Header[k] = v
	}

	started := time.Now()
	result, err := c.breaker.Execute(func() (any, error) {
		return c.roundTrip(httpReq)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &NetworkError{Method: req.Method, URL: rawURL, Err: err}
	}
	if err != nil {
		logging.Logger.Debugf("Event ID: HTTP_REQUEST_FAILED, Description: %s %s (request %s) failed after %s: %v", req.Method, rawURL, requestID, time.Since(started), err)
		return err
	}

	resp := result.(*response)
	logging.Logger.Debugf("Event ID: HTTP_REQUEST, Description: %s %s (request %s) -> %d in %s", req.Method, rawURL, requestID, resp.status, time.Since(started))

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &NetworkError{Method: req.Method, URL: rawURL, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) roundTrip(req *http.Request) (*response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, URL: req.URL.String(), Err: fmt.Errorf("read response: %w", err)}
	}

	statusText := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" ")
	if statusText == "" {
		statusText = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Method:     req.Method,
			URL:        req.URL.String(),
			Status:     resp.StatusCode,
			StatusText: statusText,
			Message:    serverMessage(raw, statusText),
			Body:       raw,
		}
	}

	return &response{status: resp.StatusCode, statusText: statusText, body: raw}, nil
}

// serverMessage reads {"message": "..."} from an error body.
func serverMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return fallback
}
