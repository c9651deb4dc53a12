package envi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"smart_envi/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Defaults and bounds for the client tunables. The vendor's real rate-limit
// behavior is undocumented, so all of these stay configurable.
const (
	DefaultBaseURL           = "https://app-apis.enviliving.com/apis/v1"
	DefaultTimeout           = 15 * time.Second
	DefaultMaxRetries        = 3
	DefaultInitialRetryDelay = 1 * time.Second
	DefaultMaxRetryDelay     = 30 * time.Second
	DefaultExpiryBuffer      = 5 * time.Minute

	MinTimeout = 5 * time.Second
	MaxTimeout = 60 * time.Second

	// Fallback token lifetime when neither the JWT exp claim nor expires_in
	// is usable.
	defaultTokenTTL = 365 * 24 * time.Hour
)

// Vendor endpoint paths, relative to the base URL.
const (
	endpointLogin        = "auth/login"
	endpointDeviceList   = "device/list"
	endpointDevice       = "device/%s"
	endpointDeviceUpdate = "device/update-temperature/%s"
	endpointScheduleList = "schedule/list"
	endpointScheduleAdd  = "schedule/add"
	endpointSchedule     = "schedule/%d"
)

// Constant markers the login endpoint expects.
const (
	loginType     = 1
	clientType    = "homeassistant"
	userAgent     = "SmartEnviBridge/1.0"
	statusSuccess = "success"
)

const maxBodyBytes = 1 << 20 // 1 MB

// Config carries the credentials and tunables for a Client. Zero values fall
// back to the defaults above; out-of-range timeouts are clamped.
type Config struct {
	BaseURL           string
	Username          string
	Password          string
	Timeout           time.Duration
	MaxRetries        int
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
	ExpiryBuffer      time.Duration
}

// Client provides authenticated, retry-safe access to the Envi cloud API.
// Token lifecycle and transient-failure recovery are hidden from callers;
// every public operation funnels through request.
type Client struct {
	httpClient *http.Client
	log        *logger.Logger

	baseURL  string
	username string
	password string

	maxRetries        int
	initialRetryDelay time.Duration
	maxRetryDelay     time.Duration
	expiryBuffer      time.Duration

	// mu is the single-flight guard for the token: at most one login is in
	// flight per client; everyone else blocks and re-checks behind it.
	mu           sync.Mutex
	token        string
	tokenExpires time.Time
}

// NewClient builds a client from cfg, clamping out-of-range tunables.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Get(logger.InfoLevel)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Timeout < MinTimeout {
		cfg.Timeout = MinTimeout
	}
	if cfg.Timeout > MaxTimeout {
		cfg.Timeout = MaxTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.InitialRetryDelay <= 0 {
		cfg.InitialRetryDelay = DefaultInitialRetryDelay
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if cfg.ExpiryBuffer <= 0 {
		cfg.ExpiryBuffer = DefaultExpiryBuffer
	}
	return &Client{
		httpClient:        &http.Client{Timeout: cfg.Timeout},
		log:               log,
		baseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		username:          cfg.Username,
		password:          cfg.Password,
		maxRetries:        cfg.MaxRetries,
		initialRetryDelay: cfg.InitialRetryDelay,
		maxRetryDelay:     cfg.MaxRetryDelay,
		expiryBuffer:      cfg.ExpiryBuffer,
	}
}

// envelope is the common vendor response wrapper. Some endpoints carry their
// own success/failure marker in status, distinct from the HTTP status.
type envelope struct {
	Status string          `json:"status"`
	Msg    string          `json:"msg"`
	Code   any             `json:"msgCode"`
	Data   json.RawMessage `json:"data"`
}

func (e envelope) code() string {
	if e.Code == nil {
		return ""
	}
	return fmt.Sprint(e.Code)
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	LoginType  int    `json:"login_type"`
	DeviceID   string `json:"device_id"`
	DeviceType string `json:"device_type"`
}

type loginData struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// Authenticate logs in with the stored credentials and replaces the bearer
// token. Safe to call concurrently; callers racing on an expiring token share
// one login attempt.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

// authenticateLocked performs one login attempt. Callers must hold c.mu.
// Token and expiry are replaced together, and only after a fully parsed
// success; a failed attempt leaves a previously valid token intact.
func (c *Client) authenticateLocked(ctx context.Context) error {
	// A fresh installation id per attempt avoids server-side session
	// collisions between bridge instances.
	installID := fmt.Sprintf("envi_%d_%s", time.Now().Unix(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])

	body, err := json.Marshal(loginRequest{
		Username:   c.username,
		Password:   c.password,
		LoginType:  loginType,
		DeviceID:   installID,
		DeviceType: clientType,
	})
	if err != nil {
		return &AuthError{Reason: "encode login payload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpointLogin, bytes.NewReader(body))
	if err != nil {
		return &AuthError{Reason: "build login request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.log.Debugw("envi_login_attempt", "device_id", installID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AuthError{Reason: "login request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &AuthError{Reason: "read login response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &AuthError{Reason: fmt.Sprintf("login failed (HTTP %d)", resp.StatusCode)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &AuthError{Reason: "invalid login response", Err: err}
	}
	if env.Status != statusSuccess {
		msg := env.Msg
		if msg == "" {
			msg = "unknown error"
		}
		return &AuthError{Reason: "login rejected: " + msg}
	}

	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return &AuthError{Reason: "invalid login data", Err: err}
	}
	if data.Token == "" {
		return &AuthError{Reason: "login response missing token"}
	}

	expiry, ok := tokenExpiry(data.Token)
	switch {
	case ok:
		// embedded claim wins
	case data.ExpiresIn > 0:
		expiry = time.Now().Add(time.Duration(data.ExpiresIn) * time.Second)
	default:
		expiry = time.Now().Add(defaultTokenTTL)
	}

	c.token = data.Token
	c.tokenExpires = expiry
	c.log.Infow("envi_login_ok", "token_valid_until", expiry.UTC().Format(time.RFC3339))
	return nil
}

// tokenExpiry extracts the expiry claim from the vendor bearer token. The
// token is not verified here; only its exp claim is read.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ensureToken returns a token valid for at least the expiry buffer, logging
// in first when the stored one is absent or about to lapse. The mutex makes
// the refresh single-flight: concurrent callers that observed a stale token
// block here and re-check once the first caller has refreshed it.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !time.Now().Before(c.tokenExpires.Add(-c.expiryBuffer)) {
		if err := c.authenticateLocked(ctx); err != nil {
			return "", err
		}
	}
	return c.token, nil
}

// refreshAfterReject re-authenticates after a 401/403, unless another caller
// already replaced the rejected token while we waited for the lock.
func (c *Client) refreshAfterReject(ctx context.Context, rejected string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == rejected {
		if err := c.authenticateLocked(ctx); err != nil {
			return "", err
		}
	}
	return c.token, nil
}

// request issues an authenticated call and returns the envelope data payload.
//
// Policy, in order: 401/403 gets exactly one automatic re-authentication and
// retry; 429 and 5xx retry with exponential backoff (Retry-After honored,
// capped) up to the retry ceiling; other 4xx are permanent and surface
// immediately with the server's message; network failures follow the same
// backoff as server errors; a body-level failure marker on HTTP 200 is an
// API error.
func (c *Client) request(ctx context.Context, method, endpoint string, payload any) (json.RawMessage, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var body []byte
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, &APIError{Msg: "encode request body", Permanent: true, Err: err}
		}
	}

	reauthed := false
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		status, raw, err := c.do(ctx, method, endpoint, token, body)
		if err != nil {
			lastErr = err
			if attempt == c.maxRetries {
				break
			}
			delay := c.backoff(attempt)
			c.log.Warnw("envi_network_retry", "endpoint", endpoint, "attempt", attempt+1, "delay", delay, "err", err)
			if werr := c.wait(ctx, delay); werr != nil {
				return nil, &APIError{Msg: "request canceled", Err: werr}
			}
			continue
		}

		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			if reauthed {
				return nil, &AuthError{Reason: fmt.Sprintf("authorization rejected after refresh (HTTP %d)", status)}
			}
			reauthed = true
			c.log.Infow("envi_token_rejected", "endpoint", endpoint, "http_status", status)
			token, err = c.refreshAfterReject(ctx, token)
			if err != nil {
				return nil, err
			}
			attempt-- // the single re-auth retry does not consume a backoff attempt
			continue

		case status == http.StatusTooManyRequests:
			if attempt == c.maxRetries {
				return nil, &APIError{HTTPStatus: status, Msg: "rate limited: too many requests"}
			}
			delay := c.retryAfter(raw, attempt)
			c.log.Warnw("envi_rate_limited", "endpoint", endpoint, "attempt", attempt+1, "delay", delay)
			if werr := c.wait(ctx, delay); werr != nil {
				return nil, &APIError{Msg: "request canceled", Err: werr}
			}
			continue

		case status >= http.StatusInternalServerError:
			if attempt == c.maxRetries {
				return nil, &APIError{HTTPStatus: status, Msg: fmt.Sprintf("server error (HTTP %d)", status)}
			}
			delay := c.backoff(attempt)
			c.log.Warnw("envi_server_error", "endpoint", endpoint, "http_status", status, "attempt", attempt+1, "delay", delay)
			if werr := c.wait(ctx, delay); werr != nil {
				return nil, &APIError{Msg: "request canceled", Err: werr}
			}
			continue

		case status >= http.StatusBadRequest:
			// The payload was rejected, e.g. a field the endpoint does not
			// accept. Retrying cannot help.
			var env envelope
			_ = json.Unmarshal(raw.body, &env)
			msg := env.Msg
			if msg == "" {
				msg = http.StatusText(status)
			}
			return nil, &APIError{HTTPStatus: status, Msg: msg, MsgCode: env.code(), Permanent: true}
		}

		var env envelope
		if err := json.Unmarshal(raw.body, &env); err != nil {
			return nil, &APIError{HTTPStatus: status, Msg: "invalid JSON response", Err: err}
		}
		if env.Status != "" && env.Status != statusSuccess {
			return nil, &APIError{HTTPStatus: status, Msg: env.Msg, MsgCode: env.code()}
		}
		return env.Data, nil
	}

	return nil, &APIError{Msg: fmt.Sprintf("request failed after %d attempts", c.maxRetries+1), Err: lastErr}
}

// response carries the pieces of an HTTP exchange request needs after the
// body has been drained and the connection released.
type response struct {
	body       []byte
	retryAfter string
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, body []byte) (int, response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+endpoint, rdr)
	if err != nil {
		return 0, response{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, response{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, response{}, err
	}
	return resp.StatusCode, response{body: raw, retryAfter: resp.Header.Get("Retry-After")}, nil
}

// backoff returns the exponential delay for the given attempt, capped at the
// configured maximum.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.initialRetryDelay << uint(attempt)
	if d <= 0 || d > c.maxRetryDelay {
		d = c.maxRetryDelay
	}
	return d
}

// retryAfter prefers the server's Retry-After hint (seconds), still capped at
// the configured maximum; otherwise falls back to the exponential backoff.
func (c *Client) retryAfter(r response, attempt int) time.Duration {
	if r.retryAfter != "" {
		if secs, err := strconv.Atoi(r.retryAfter); err == nil && secs >= 0 {
			d := time.Duration(secs) * time.Second
			if d > c.maxRetryDelay {
				d = c.maxRetryDelay
			}
			return d
		}
	}
	return c.backoff(attempt)
}

// wait sleeps for d or until ctx is canceled.
func (c *Client) wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TestConnection reports whether the credentials work and the device list is
// reachable. Used by setup flows before persisting credentials.
func (c *Client) TestConnection(ctx context.Context) bool {
	_, err := c.FetchAllDeviceIDs(ctx)
	return err == nil
}
