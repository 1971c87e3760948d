package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "kiwoom-trader/internal/errors"
	"kiwoom-trader/internal/logging"
)

// TokenSafetyMargin is subtracted from the broker's expiry so a token is
// never presented right before it lapses.
const TokenSafetyMargin = 5 * time.Minute

// ExpiryLayout is the layout of the expires_dt field.
const ExpiryLayout = "20060102150405"

// Token is an issued access token. ExpiresAt already includes the safety margin.
type Token struct {
	Value     string
	Type      string
	ExpiresAt time.Time
}

// ValidAt reports whether the token can be used at t.
func (t Token) ValidAt(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// Masked returns the token value with everything but the edges hidden.
func (t Token) Masked() string {
	if len(t.Value) <= 8 {
		return strings.Repeat("*", len(t.Value))
	}
	return t.Value[:4] + strings.Repeat("*", len(t.Value)-8) + t.Value[len(t.Value)-4:]
}

// AuthConfig holds configuration for the token guard.
type AuthConfig struct {
	BaseURL    string
	AppKey     string
	AppSecret  string
	HTTPClient *http.Client
	// Location used to parse expires_dt. Defaults to time.Local.
	Location *time.Location
	Logger   zerolog.Logger
}

// TokenGuard issues and caches access tokens, refreshing on expiry.
// It is safe for concurrent use: the check-then-issue sequence runs under
// a single lock so concurrent callers share one issuance.
type TokenGuard struct {
	baseURL   string
	appKey    string
	appSecret string
	http      *http.Client
	loc       *time.Location
	logger    zerolog.Logger
	now       func() time.Time

	mu    sync.Mutex
	token *Token
}

// NewTokenGuard creates a token guard. No request is made until the first AccessToken call.
func NewTokenGuard(cfg AuthConfig) *TokenGuard {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &TokenGuard{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		appKey:    cfg.AppKey,
		appSecret: cfg.AppSecret,
		http:      httpClient,
		loc:       loc,
		logger:    logging.WithOperation(cfg.Logger, "auth"),
		now:       time.Now,
	}
}

// AccessToken returns a usable token, issuing a new one when none is cached
// or the cached one is inside the safety margin. A failed issuance leaves
// the cache empty.
func (g *TokenGuard) AccessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != nil && g.token.ValidAt(g.now()) {
		g.logger.Debug().Time("expires_at", g.token.ExpiresAt).Msg("Reusing cached access token")
		return g.token.Value, nil
	}

	g.token = nil
	token, err := g.issue(ctx)
	if err != nil {
		g.logger.Error().Err(err).Msg("Access token issuance failed")
		return "", err
	}

	g.token = token
	g.logger.Info().Time("expires_at", token.ExpiresAt).Msg("Issued new access token")
	return token.Value, nil
}

// Token returns a copy of the cached token, if any.
func (g *TokenGuard) Token() (Token, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token == nil {
		return Token{}, false
	}
	return *g.token, true
}

// Invalidate drops the cached token so the next call issues a fresh one.
func (g *TokenGuard) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = nil
}

type issueRequest struct {
	GrantType string `json:"grant_type"`
	AppKey    string `json:"appkey"`
	SecretKey string `json:"secretkey"`
}

type issueResponse struct {
	envelope
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresDt string `json:"expires_dt"`
}

func (g *TokenGuard) issue(ctx context.Context) (*Token, error) {
	start := time.Now()
	var resp issueResponse
	err := g.post(ctx, APIIssueToken, PathIssueToken, issueRequest{
		GrantType: "client_credentials",
		AppKey:    g.appKey,
		SecretKey: g.appSecret,
	}, &resp)
	logging.LogAPICall(g.logger, APIIssueToken, PathIssueToken, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrTokenIssuance, err)
	}

	if resp.Token == "" || (resp.ReturnCode != nil && resp.code() != 0) {
		msg := resp.ReturnMsg
		if msg == "" {
			msg = "response carried no token"
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrTokenIssuance, apperrors.NewAPIError(APIIssueToken, resp.code(), msg))
	}

	expires, err := time.ParseInLocation(ExpiryLayout, resp.ExpiresDt, g.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing expires_dt %q: %v", apperrors.ErrTokenIssuance, resp.ExpiresDt, err)
	}

	return &Token{
		Value:     resp.Token,
		Type:      resp.TokenType,
		ExpiresAt: expires.Add(-TokenSafetyMargin),
	}, nil
}

type revokeRequest struct {
	AppKey    string `json:"appkey"`
	SecretKey string `json:"secretkey"`
	Token     string `json:"token"`
}

// Revoke invalidates the cached token at the broker and drops it locally.
// It is a no-op when no token is cached.
func (g *TokenGuard) Revoke(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token == nil {
		return nil
	}

	var resp envelope
	err := g.post(ctx, APIRevokeToken, PathRevokeToken, revokeRequest{
		AppKey:    g.appKey,
		SecretKey: g.appSecret,
		Token:     g.token.Value,
	}, &resp)
	g.token = nil
	if err != nil {
		return err
	}
	if resp.ReturnCode != nil && resp.code() != 0 {
		return apperrors.NewAPIError(APIRevokeToken, resp.code(), resp.ReturnMsg)
	}
	g.logger.Info().Msg("Access token revoked")
	return nil
}

// post sends an unauthenticated JSON request and decodes the response into out.
func (g *TokenGuard) post(ctx context.Context, apiID, path string, body, out interface{}) error {
	data, err := sendJSON(ctx, g.http, g.baseURL+path, apiID, nil, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewTransportError(apiID, http.StatusOK, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
