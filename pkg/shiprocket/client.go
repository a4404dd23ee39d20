package shiprocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/AgriNITMZ/agriapp-backend/pkg/config"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
)

var (
	errCredentialsRequired = errors.New("shiprocket email and password are required")
	errLoggerRequired      = errors.New("shiprocket logger is required")
)

// Provider is the courier surface consumed by the shipments service.
type Provider interface {
	CreateOrder(ctx context.Context, params OrderParams) (*OrderResult, error)
	Track(ctx context.Context, shipmentID string) (*TrackingResult, error)
	CancelOrder(ctx context.Context, providerOrderID string) error
	CheckServiceability(ctx context.Context, params ServiceabilityParams) (*ServiceabilityResult, error)
	PickupLocations(ctx context.Context) ([]PickupLocation, error)
}

// Client talks to the Shiprocket external API. Authentication tokens are
// cached and refreshed lazily when they near expiry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	email      string
	password   string
	pickup     string
	tokenTTL   time.Duration
	logger     *logger.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient initializes the Shiprocket wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.ShiprocketConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	email := strings.TrimSpace(cfg.Email)
	password := strings.TrimSpace(cfg.Password)
	if email == "" || password == "" {
		return nil, errCredentialsRequired
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		email:      email,
		password:   password,
		pickup:     cfg.PickupLocation,
		tokenTTL:   cfg.TokenTTL,
		logger:     logg,
	}

	logg.Info(ctx, "shiprocket client initialized")
	return c, nil
}

// PickupLocationName returns the configured default pickup location.
func (c *Client) PickupLocationName() string {
	if c == nil {
		return ""
	}
	return c.pickup
}

func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shiprocket login failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shiprocket login failed")
	}
	if resp.StatusCode != http.StatusOK {
		return "", c.mapStatusError(resp.StatusCode, body, "login")
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &loginResp); err != nil || loginResp.Token == "" {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shiprocket login returned no token")
	}

	c.token = loginResp.Token
	c.tokenExpiry = time.Now().Add(c.tokenTTL)
	c.log(ctx, "response", "login", map[string]any{"token_expiry": c.tokenExpiry})
	return c.token, nil
}

// do performs an authenticated request and decodes the JSON response into out.
// A 401 invalidates the cached token and retries once with a fresh login.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	retried := false
	for {
		token, err := c.bearerToken(ctx)
		if err != nil {
			return err
		}

		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("shiprocket %s %s failed", method, path))
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("shiprocket %s %s failed", method, path))
		}

		if resp.StatusCode == http.StatusUnauthorized && !retried {
			c.invalidateToken()
			retried = true
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return c.mapStatusError(resp.StatusCode, respBody, path)
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("shiprocket %s response decode failed", path))
		}
		return nil
	}
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

func (c *Client) mapStatusError(status int, body []byte, op string) error {
	message := strings.TrimSpace(string(body))
	var apiResp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.Message != "" {
		message = apiResp.Message
	}

	code := pkgerrors.CodeDependency
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = pkgerrors.CodeValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		code = pkgerrors.CodeUnauthorized
	case http.StatusNotFound:
		code = pkgerrors.CodeNotFound
	case http.StatusTooManyRequests:
		code = pkgerrors.CodeRateLimit
	}
	return pkgerrors.Wrap(code, fmt.Errorf("status %d: %s", status, message), fmt.Sprintf("shiprocket %s failed", op))
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("shiprocket %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("shiprocket %s", phase))
	}
}
