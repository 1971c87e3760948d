package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "kiwoom-trader/internal/errors"
	"kiwoom-trader/internal/logging"
)

// ClientConfig holds configuration for the API client.
type ClientConfig struct {
	BaseURL    string
	AppKey     string
	AppSecret  string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client sends authenticated requests and unwraps the return code envelope.
// It never retries.
type Client struct {
	baseURL   string
	appKey    string
	appSecret string
	http      *http.Client
	tokens    TokenSource
	logger    zerolog.Logger
}

// NewClient creates a new API client drawing tokens from tokens.
func NewClient(cfg ClientConfig, tokens TokenSource) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		appKey:    cfg.AppKey,
		appSecret: cfg.AppSecret,
		http:      httpClient,
		tokens:    tokens,
		logger:    cfg.Logger,
	}
}

// Do posts body to path under apiID. A transport failure yields a
// *errors.TransportError, a non-zero return_code an *errors.APIError.
// On success the full response body is decoded into out when out is not nil.
func (c *Client) Do(ctx context.Context, apiID, path string, body, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		logging.LogAPICall(c.logger, apiID, path, time.Since(start), err)
	}()

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrNotAuthenticated, err)
	}

	headers := map[string]string{
		"authorization": "Bearer " + token,
		"appkey":        c.appKey,
		"appsecret":     c.appSecret,
	}

	data, err := sendJSON(ctx, c.http, c.baseURL+path, apiID, headers, body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return apperrors.NewTransportError(apiID, http.StatusOK, fmt.Errorf("decoding response: %w", err))
	}
	if code := env.code(); code != 0 {
		c.logger.Warn().Str("api_id", apiID).Int("return_code", code).Str("return_msg", env.ReturnMsg).Msg("API returned failure")
		return apperrors.NewAPIError(apiID, code, env.ReturnMsg)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return apperrors.NewTransportError(apiID, http.StatusOK, fmt.Errorf("decoding payload: %w", err))
		}
	}
	return nil
}

// sendJSON posts a JSON document and returns the raw body of a 2xx response.
func sendJSON(ctx context.Context, hc *http.Client, url, apiID string, headers map[string]string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", apiID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewTransportError(apiID, 0, err)
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("api-id", apiID)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, apperrors.NewTransportError(apiID, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewTransportError(apiID, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewTransportError(apiID, resp.StatusCode, fmt.Errorf("%s", snippet(data)))
	}
	return data, nil
}

// snippet trims a response body for inclusion in error messages.
func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		s = "empty response body"
	}
	return s
}
