package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Harshitk-cp/actgraph/internal/buildconfig"
	"github.com/Harshitk-cp/actgraph/internal/domain"
)

const (
	// UserIDHeader identifies the calling user to the platform.
	UserIDHeader = "ACT-User-ID"
	// RequestIDHeader carries a per request id for log correlation.
	RequestIDHeader = "X-Request-ID"
)

type Config struct {
	BaseURL        string
	UserID         string
	Timeout        time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	CircuitBreaker bool
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// HTTPTransport talks to the platform over HTTP. It is safe for concurrent
// use. Calls are never retried.
type HTTPTransport struct {
	baseURL    string
	userID     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewHTTPTransport(cfg Config, logger *zap.Logger) (*HTTPTransport, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("transport: base url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("transport: invalid base url %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	t := &HTTPTransport{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userID:     cfg.UserID,
		httpClient: httpClient,
		logger:     logger,
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	if cfg.CircuitBreaker {
		t.breaker = newBreaker(u.Host, logger)
	}
	return t, nil
}

func newBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// Client errors are answers from a healthy server.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var te *domain.TransportError
			return errors.As(err, &te) && te.Status >= 400 && te.Status < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Request sends one request and decodes the response envelope. GET and
// DELETE payloads must be url.Values or nil.
func (t *HTTPTransport) Request(ctx context.Context, method, path string, payload any) (*domain.Envelope, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &domain.TransportError{Method: method, Path: path, Err: err}
		}
	}

	if t.breaker == nil {
		return t.do(ctx, method, path, payload)
	}

	res, err := t.breaker.Execute(func() (interface{}, error) {
		return t.do(ctx, method, path, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &domain.TransportError{Method: method, Path: path, Err: fmt.Errorf("%w: %v", domain.ErrCircuitOpen, err)}
	}
	if err != nil {
		return nil, err
	}
	return res.(*domain.Envelope), nil
}

func (t *HTTPTransport) newRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	target := t.baseURL + "/" + strings.TrimLeft(path, "/")

	var body io.Reader
	switch p := payload.(type) {
	case nil:
	case url.Values:
		if len(p) > 0 {
			target += "?" + p.Encode()
		}
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	if body == nil && (method == http.MethodPost || method == http.MethodPut) {
		body = strings.NewReader("{}")
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildconfig.UserAgent())
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if t.userID != "" {
		req.Header.Set(UserIDHeader, t.userID)
	}
	return req, nil
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, payload any) (*domain.Envelope, error) {
	req, err := t.newRequest(ctx, method, path, payload)
	if err != nil {
		return nil, &domain.TransportError{Method: method, Path: path, Err: err}
	}
	requestID := req.Header.Get(RequestIDHeader)

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.Warn("platform request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, &domain.TransportError{Method: method, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Method: method, Path: path, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	t.logger.Debug("platform request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.TransportError{Method: method, Path: path, Status: resp.StatusCode, Body: respBody}
	}

	env := &domain.Envelope{ResponseCode: resp.StatusCode}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(respBody, env); err != nil {
		return nil, &domain.TransportError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   respBody,
			Err:    fmt.Errorf("unmarshal response envelope: %w", err),
		}
	}
	return env, nil
}
