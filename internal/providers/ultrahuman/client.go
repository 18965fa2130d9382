package ultrahuman

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"healthsync/internal/domain"
	apperrors "healthsync/internal/errors"

	"github.com/google/uuid"
)

// Client is the authenticated-request collaborator for the Ultrahuman API.
// It loads the user's stored connection, sends Bearer requests and refreshes
// the token once on a 401 before surfacing a terminal auth error. A 5xx
// surfaces as a provider error so callers can treat the day as empty.
type Client struct {
	baseURL     string
	connections domain.ConnectionStore
	oauth       domain.OAuthProvider
	http        *http.Client
	log         *slog.Logger
}

func NewClient(baseURL string, connections domain.ConnectionStore, oauth domain.OAuthProvider, log *slog.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		connections: connections,
		oauth:       oauth,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// Request performs one authenticated API call and returns the parsed JSON
// body. A 401 after a refresh attempt means the connection is dead and the
// caller must abort.
func (c *Client) Request(ctx context.Context, userID uuid.UUID, endpoint, method string, params map[string]string) (map[string]any, error) {
	conn, err := c.connections.Get(ctx, userID, ProviderName)
	if err != nil {
		return nil, err
	}
	if conn == nil || conn.AccessToken == "" {
		return nil, apperrors.NewAuthError(ProviderName,
			fmt.Errorf("user has no stored connection")).WithContext("user_id", userID.String())
	}

	status, body, err := c.do(ctx, conn.AccessToken, endpoint, method, params)
	if err != nil {
		return nil, apperrors.NewExternalAPIError(err, ProviderName)
	}

	if status == http.StatusUnauthorized {
		c.log.Info("access token rejected, attempting refresh", slog.String("provider", ProviderName))
		tokens, refreshErr := c.oauth.RefreshToken(ctx, conn.RefreshToken)
		if refreshErr != nil {
			return nil, apperrors.NewAuthError(ProviderName, refreshErr)
		}
		if err := c.connections.UpdateTokens(ctx, userID, ProviderName, *tokens); err != nil {
			return nil, err
		}

		status, body, err = c.do(ctx, tokens.AccessToken, endpoint, method, params)
		if err != nil {
			return nil, apperrors.NewExternalAPIError(err, ProviderName)
		}
		if status == http.StatusUnauthorized {
			return nil, apperrors.NewAuthError(ProviderName,
				fmt.Errorf("request unauthorized after token refresh"))
		}
	}

	if status >= http.StatusInternalServerError {
		return nil, apperrors.NewProviderError(ProviderName, status,
			fmt.Errorf("upstream returned %d: %s", status, truncate(body, 256)))
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, apperrors.NewExternalAPIError(
			fmt.Errorf("unexpected status %d: %s", status, truncate(body, 256)), ProviderName)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, apperrors.NewExternalAPIError(fmt.Errorf("failed to decode response: %w", err), ProviderName)
	}
	return doc, nil
}

func (c *Client) do(ctx context.Context, accessToken, endpoint, method string, params map[string]string) (int, []byte, error) {
	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return 0, nil, err
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
