package brokerage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"trade-alert-relay/internal/config"
	"trade-alert-relay/internal/restclient"
)

var (
	// ErrMissingCredentialInput means neither a refresh token nor an
	// authorization code is available.
	ErrMissingCredentialInput = errors.New("no refresh token or authorization code configured")
	// ErrExchangeFailed wraps any failure while exchanging a grant for an
	// access token.
	ErrExchangeFailed = errors.New("token exchange failed")
)

// Credential is a short-lived access token for the brokerage API.
type Credential struct {
	AccessToken string
	// RefreshToken is only set when the exchange returned a new one.
	RefreshToken string
	ExpiresIn    int
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// TokenProvider exchanges the configured long-lived grant for an access
// token. A refresh token returned by an authorization code exchange replaces
// the code for the rest of the process lifetime.
type TokenProvider struct {
	rest        *restclient.Client
	logger      *zap.Logger
	clientID    string
	redirectURI string

	mu           sync.Mutex
	refreshToken string
	authCode     string
}

// NewTokenProvider creates a TokenProvider for the OAuth2 endpoint of the brokerage.
func NewTokenProvider(rest *restclient.Client, cfg *config.Brokerage, logger *zap.Logger) *TokenProvider {
	return &TokenProvider{
		rest:         rest,
		logger:       logger.Named("token"),
		clientID:     cfg.ClientID,
		redirectURI:  cfg.RedirectURI,
		refreshToken: cfg.RefreshToken,
		authCode:     cfg.AuthCode,
	}
}

// Acquire returns a fresh access token. The refresh token grant is preferred;
// the authorization code is only used when no refresh token is known.
func (p *TokenProvider) Acquire(ctx context.Context) (Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.refreshToken != "":
		cred, err := p.exchange(ctx, map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": p.refreshToken,
			"client_id":     p.clientID,
			"redirect_uri":  p.redirectURI,
		})
		if err != nil {
			p.logger.Error("Unable to authenticate using refresh token", zap.Error(err))
			return Credential{}, fmt.Errorf("%w: refresh token grant: %w", ErrExchangeFailed, err)
		}
		return cred, nil

	case p.authCode != "":
		cred, err := p.exchange(ctx, map[string]string{
			"grant_type":   "authorization_code",
			"code":         p.authCode,
			"access_type":  "offline",
			"client_id":    p.clientID,
			"redirect_uri": p.redirectURI,
		})
		if err != nil {
			p.logger.Error("Unable to authenticate using authorization code", zap.Error(err))
			return Credential{}, fmt.Errorf("%w: authorization code grant: %w", ErrExchangeFailed, err)
		}
		if cred.RefreshToken != "" {
			// Codes are single use; keep the refresh token for later runs.
			p.refreshToken = cred.RefreshToken
			p.authCode = ""
			p.logger.Warn("Authorization code exchanged for a refresh token; set REFRESH_TOKEN to keep authenticating after a restart")
		}
		return cred, nil

	default:
		p.logger.Error("No brokerage credential input available")
		return Credential{}, ErrMissingCredentialInput
	}
}

func (p *TokenProvider) exchange(ctx context.Context, form map[string]string) (Credential, error) {
	req := p.rest.R(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(form).
		SetResult(&tokenResponse{})

	resp, err := p.rest.Do(ctx, http.MethodPost, "/oauth2/token", req)
	if err != nil {
		return Credential{}, err
	}

	token := resp.Result().(*tokenResponse)
	if token.AccessToken == "" {
		return Credential{}, errors.New("token response has no access_token")
	}
	return Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
	}, nil
}
