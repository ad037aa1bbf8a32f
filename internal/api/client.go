package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/feedsync/config"
	"github.com/d60-Lab/feedsync/pkg/logger"
	"github.com/d60-Lab/feedsync/pkg/response"
)

const (
	defaultHTTPTimeout    = 15 * time.Second
	defaultConnectTimeout = 5 * time.Second
	defaultTLSTimeout     = 5 * time.Second
	maxErrorBody          = 512
)

// SortNewest orders comments and alarms newest first.
const SortNewest = "registeredAt,DESC"

// TokenSource hands out the bearer token for private calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the REST API under baseURL (".../api/v1"). It never retries.
type Client struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	limiter  *rate.Limiter
	validate *validator.Validate
	log      *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit caps outgoing requests; perSecond <= 0 disables the limiter.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     defaultHTTPClient(defaultHTTPTimeout),
		tokens:   tokens,
		validate: newValidator(),
		log:      logger.Named("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func NewFromConfig(cfg config.APIConfig, tokens TokenSource) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return New(cfg.BaseURL, tokens,
		WithHTTPClient(defaultHTTPClient(timeout)),
		WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	)
}

func defaultHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: defaultConnectTimeout}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultTLSTimeout,
		MaxIdleConnsPerHost: 8,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a request DTO against its validate tags.
func (c *Client) Validate(v any) error {
	err := c.validate.Struct(v)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		fe := fields[0]
		return &ValidationError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()}
	}
	return err
}

type call struct {
	method  string
	path    string
	query   url.Values
	body    any
	private bool
}

// send performs one request and returns the body of a 2xx answer.
func (c *Client) send(ctx context.Context, cl call) ([]byte, error) {
	if cl.body != nil {
		if err := c.Validate(cl.body); err != nil {
			return nil, err
		}
	}

	var auth string
	if cl.private {
		if c.tokens == nil {
			return nil, ErrUnauthorized
		}
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		if tok == "" {
			return nil, ErrUnauthorized
		}
		auth = "Bearer " + tok
	}

	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Method: cl.method, URL: target, Err: err}
		}
	}

	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", cl.path, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return nil, &TransportError{Method: cl.method, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("method", cl.method), zap.String("path", cl.path), zap.Error(err))
		return nil, &TransportError{Method: cl.method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: cl.method, URL: target, Err: err}
	}
	c.log.Debug("request done",
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, data)
	}
	return data, nil
}

func statusError(status int, data []byte) error {
	if be := envelopeError(status, data); be != nil {
		return be
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: status %d", ErrUnauthorized, status)
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &BusinessError{Status: status, Code: fmt.Sprintf("HTTP_%d", status), Message: msg}
}

// envelopeError decodes an ERROR envelope, or returns nil.
func envelopeError(status int, data []byte) *BusinessError {
	var env response.Envelope[response.ErrorResult]
	if err := json.Unmarshal(data, &env); err != nil || env.ResultCode != response.ResultError {
		return nil
	}
	return &BusinessError{Status: status, Code: env.Result.ErrorCode, Message: env.Result.Message}
}

// exec runs a call whose result is not needed.
func (c *Client) exec(ctx context.Context, cl call) error {
	data, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	if be := envelopeError(http.StatusOK, data); be != nil {
		return be
	}
	return nil
}

// result runs a call and decodes the `result` of its envelope.
func result[T any](ctx context.Context, c *Client, cl call) (T, error) {
	var zero T
	data, err := c.send(ctx, cl)
	if err != nil {
		return zero, err
	}
	var env response.Response
	if err := json.Unmarshal(data, &env); err != nil {
		return zero, fmt.Errorf("decode %s: %w", cl.path, err)
	}
	if env.ResultCode == response.ResultError {
		return zero, envelopeError(http.StatusOK, data)
	}
	var out T
	if len(env.Result) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(env.Result, &out); err != nil {
		return zero, fmt.Errorf("decode %s result: %w", cl.path, err)
	}
	return out, nil
}

// bare runs a call whose body is the value itself, without an envelope.
func bare[T any](ctx context.Context, c *Client, cl call) (T, error) {
	var out T
	data, err := c.send(ctx, cl)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", cl.path, err)
	}
	return out, nil
}

func escape(segment string) string { return url.PathEscape(segment) }
