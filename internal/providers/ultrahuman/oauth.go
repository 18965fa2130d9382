package ultrahuman

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"healthsync/internal/config"
	"healthsync/internal/domain"
	apperrors "healthsync/internal/errors"

	"github.com/google/uuid"
)

const stateTTL = 10 * time.Minute

// OAuth implements the Ultrahuman OAuth flow. Ultrahuman does not use PKCE
// and authenticates token requests with client credentials in the request
// body, not Basic auth.
type OAuth struct {
	cfg    config.UltrahumanConfig
	states domain.StateStore
	http   *http.Client
	log    *slog.Logger
}

func NewOAuth(cfg config.UltrahumanConfig, states domain.StateStore, log *slog.Logger) *OAuth {
	return &OAuth{
		cfg:    cfg,
		states: states,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// AuthorizationURL builds the authorize URL for a user and stores the random
// state so the callback can be tied back to the user who started the flow.
func (o *OAuth) AuthorizationURL(ctx context.Context, userID uuid.UUID) (string, string, error) {
	state, err := randomState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	if err := o.states.Put(ctx, state, userID, stateTTL); err != nil {
		return "", "", err
	}

	q := url.Values{}
	q.Set("client_id", o.cfg.ClientID)
	q.Set("redirect_uri", o.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", o.cfg.Scope)
	q.Set("state", state)

	return o.cfg.AuthorizeURL + "?" + q.Encode(), state, nil
}

// ConsumeState redeems a callback state for the user who started the flow.
// A state can only be redeemed once.
func (o *OAuth) ConsumeState(ctx context.Context, state string) (uuid.UUID, error) {
	userID, ok, err := o.states.Consume(ctx, state)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, apperrors.NewValidationError("unknown or expired oauth state")
	}
	return userID, nil
}

// ExchangeToken exchanges an authorization code for tokens.
func (o *OAuth) ExchangeToken(ctx context.Context, code string) (*domain.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", o.cfg.RedirectURI)
	return o.tokenRequest(ctx, form)
}

// RefreshToken trades a refresh token for a new token pair.
func (o *OAuth) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return o.tokenRequest(ctx, form)
}

func (o *OAuth) tokenRequest(ctx context.Context, form url.Values) (*domain.TokenResponse, error) {
	form.Set("client_id", o.cfg.ClientID)
	form.Set("client_secret", o.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalAPIError(err, ProviderName)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperrors.NewAuthError(ProviderName,
			fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperrors.NewExternalAPIError(
			fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body)), ProviderName)
	}

	var tokens domain.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, apperrors.NewExternalAPIError(err, ProviderName)
	}
	return &tokens, nil
}

// UserInfo fetches the provider-side identity of a connected user. HTTP
// failures degrade to empty fields so a connect flow can still complete;
// a missing username falls back to the email.
func (o *OAuth) UserInfo(ctx context.Context, accessToken string) domain.ProviderUserInfo {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.APIBaseURL+"/user_data/user_info", nil)
	if err != nil {
		return domain.ProviderUserInfo{}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := o.http.Do(req)
	if err != nil {
		o.log.Warn("failed to fetch provider user info", slog.Any("error", err))
		return domain.ProviderUserInfo{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		o.log.Warn("provider user info request rejected", slog.Int("status", resp.StatusCode))
		return domain.ProviderUserInfo{}
	}

	var payload struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		o.log.Warn("failed to decode provider user info", slog.Any("error", err))
		return domain.ProviderUserInfo{}
	}

	info := domain.ProviderUserInfo{
		UserID:   payload.UserID,
		Username: payload.Username,
		Email:    payload.Email,
	}
	if info.Username == "" {
		info.Username = info.Email
	}
	return info
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
