package fitbit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/tractdb/tractdb-server/internal/errors"
)

const (
	tokenURL     = "https://api.fitbit.com/oauth2/token"
	sleepURLTmpl = "https://api.fitbit.com/1/user/%s/sleep/date/%s.json"
)

// Token is a stored Fitbit OAuth token. Tokens are kept per Fitbit
// user_id, which allows multiple devices per account.
type Token struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// SleepEntry is one sleep record from the Fitbit sleep-by-date API.
type SleepEntry map[string]any

func (e SleepEntry) IsMainSleep() bool {
	main, ok := e["isMainSleep"].(bool)
	return ok && main
}

// Client talks to the Fitbit web API.
type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	http         *http.Client
}

func NewClient(clientID, clientSecret, redirectURI string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
}

// ExchangeCode converts an OAuth callback code into a token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	return c.tokenRequest(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {c.clientID},
		"code":         {code},
		"redirect_uri": {c.redirectURI},
	})
}

// RefreshToken renews an access token via the refresh_token grant.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	return c.tokenRequest(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"redirect_uri":  {c.redirectURI},
	})
}

// GetSleep fetches the sleep records for one Fitbit user and date and
// returns the main sleep entry, or nil when the day has none.
func (c *Client) GetSleep(ctx context.Context, fitbitUser, date, accessToken string) (SleepEntry, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, fmt.Sprintf(sleepURLTmpl, fitbitUser, date), nil,
	)
	if err != nil {
		return nil, apperrors.Internal("build fitbit request").WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Upstream("fitbit", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Upstream("fitbit", fmt.Errorf("sleep query returned %d", resp.StatusCode))
	}

	var payload struct {
		Sleep []SleepEntry `json:"sleep"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.Upstream("fitbit", err)
	}

	for _, entry := range payload.Sleep {
		if entry.IsMainSleep() {
			return entry, nil
		}
	}
	return nil, nil
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, apperrors.Internal("build fitbit request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+c.basicAuth())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Upstream("fitbit", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Upstream("fitbit", fmt.Errorf("token endpoint returned %d", resp.StatusCode))
	}

	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, apperrors.Upstream("fitbit", err)
	}
	return &token, nil
}

func (c *Client) basicAuth() string {
	return base64.StdEncoding.EncodeToString(
		[]byte(c.clientID + ":" + c.clientSecret),
	)
}
