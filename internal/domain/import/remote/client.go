// Package remote calls the billing-schedule import endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
)

const (
	// DefaultImportPath is appended to the base URL
	DefaultImportPath = "/api/billing-schedules/import"

	// DefaultTimeout for one import call
	DefaultTimeout = 60 * time.Second

	// maxErrorBody bounds how much of a failed response is read
	maxErrorBody = 1 << 20

	tokenTTL = time.Minute
)

var (
	ErrMissingBaseURL = errors.New("remote base URL is required")
	ErrInvalidBody    = errors.New("remote returned an unreadable response")
)

// Config configures the import client
type Config struct {
	BaseURL            string
	ImportPath         string
	Timeout            time.Duration
	RateLimitPerSecond float64 // 0 disables throttling
	Burst              int
	SigningKey         string // HS256 key; empty sends no bearer token
	Issuer             string
	Audience           string
}

// Importer submits an import request and returns the decoded response
type Importer interface {
	Import(ctx context.Context, req model.ImportRequest) (*model.ImportResponse, error)
}

// Error is a non-2xx reply. Message and PageErrors come from the decoded body.
type Error struct {
	StatusCode int
	Message    string
	Pages      []string
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote import failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote import failed with status %d", e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BackendMessage returns the top-level message of the error body
func (e *Error) BackendMessage() string {
	return e.Message
}

// PageErrors returns the page-level messages of the error body
func (e *Error) PageErrors() []string {
	return e.Pages
}

// Client is the HTTP implementation of Importer
type Client struct {
	config  Config
	url     string
	http    *http.Client
	limiter *rate.Limiter
	tracer  trace.Tracer
	logger  *slog.Logger
}

// NewClient creates an import client
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	if config.ImportPath == "" {
		config.ImportPath = DefaultImportPath
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	var limiter *rate.Limiter
	if config.RateLimitPerSecond > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimitPerSecond), burst)
	}

	return &Client{
		config:  config,
		url:     strings.TrimRight(config.BaseURL, "/") + "/" + strings.TrimLeft(config.ImportPath, "/"),
		http:    &http.Client{Timeout: config.Timeout},
		limiter: limiter,
		tracer:  otel.Tracer("schedule-importer/remote"),
		logger:  logger,
	}, nil
}

// WithHTTPClient replaces the underlying HTTP client
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// Import posts the request. Exactly one call is made; nothing is retried.
func (c *Client) Import(ctx context.Context, req model.ImportRequest) (*model.ImportResponse, error) {
	ctx, span := c.tracer.Start(ctx, "remote.Import", trace.WithAttributes(
		attribute.String("import.mode", string(req.Mode())),
		attribute.Int("import.payload_bytes", len(req.CanonicalPayload)),
	))
	defer span.End()

	resp, err := c.do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("import.created", resp.CreatedCount),
		attribute.Int("import.updated", resp.UpdatedCount),
		attribute.Int("import.failed", resp.FailedCount),
		attribute.Bool("import.async", resp.IsAsync),
	)
	return resp, nil
}

func (c *Client) do(ctx context.Context, req model.ImportRequest) (*model.ImportResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal import request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create import request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	if c.config.SigningKey != "" {
		token, err := c.serviceToken()
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send import request: %w", err)
	}
	defer httpResp.Body.Close()

	c.logger.Debug("remote import responded",
		slog.Int("status", httpResp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, decodeErrorBody(httpResp.StatusCode, body)
	}

	var out model.ImportResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if out.Errors == nil {
		out.Errors = []model.ResponseError{}
	}
	return &out, nil
}

func (c *Client) serviceToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		ID:        uuid.NewString(),
	}
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.config.SigningKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return token, nil
}

type messageBody struct {
	Message    string `json:"message"`
	PageErrors []struct {
		Message string `json:"message"`
	} `json:"pageErrors"`
}

type pageError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// decodeErrorBody reads either {message, pageErrors} or [{message, errorCode}]
func decodeErrorBody(status int, body []byte) *Error {
	e := &Error{StatusCode: status}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return e
	}

	if trimmed[0] == '[' {
		var pages []pageError
		if err := json.Unmarshal(trimmed, &pages); err != nil {
			e.Err = fmt.Errorf("%w: %v", ErrInvalidBody, err)
			return e
		}
		for _, p := range pages {
			if p.Message != "" {
				e.Pages = append(e.Pages, p.Message)
			}
		}
		return e
	}

	var mb messageBody
	if err := json.Unmarshal(trimmed, &mb); err != nil {
		e.Err = fmt.Errorf("%w: %v", ErrInvalidBody, err)
		return e
	}
	e.Message = mb.Message
	for _, p := range mb.PageErrors {
		if p.Message != "" {
			e.Pages = append(e.Pages, p.Message)
		}
	}
	return e
}
