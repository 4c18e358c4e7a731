package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/singleflight"

	"github.com/fivetwenty-io/restpipe/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrNoValidCredentials = errors.New("no valid credentials available")
	ErrTokenRequestFailed = errors.New("token request failed")
	ErrNoTokenURL         = errors.New("no token URL configured")
)

// OAuth2Config configures the token manager. The grant is chosen from the
// fields that are set: refresh token first, then password, then client
// credentials.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	RefreshToken string
	AccessToken  string
	Scopes       []string
	HTTPClient   *http.Client
}

// OAuth2TokenManager returns a valid access token, fetching a new one when
// the current token is missing or about to expire. Concurrent callers share
// one token request.
type OAuth2TokenManager struct {
	config *OAuth2Config
	store  *TokenStore
	client *retryablehttp.Client
	group  singleflight.Group
}

// NewOAuth2TokenManager creates a token manager.
func NewOAuth2TokenManager(config *OAuth2Config) *OAuth2TokenManager {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = 1
	client.HTTPClient.Timeout = constants.ShortHTTPTimeout

	if config.HTTPClient != nil {
		client.HTTPClient = config.HTTPClient
	}

	manager := &OAuth2TokenManager{
		config: config,
		store:  NewTokenStore(),
		client: client,
	}

	if config.AccessToken != "" {
		manager.store.Set(&Token{
			AccessToken:  config.AccessToken,
			TokenType:    "bearer",
			RefreshToken: config.RefreshToken,
		})
	}

	return manager
}

// Token implements filters.TokenSource.
func (m *OAuth2TokenManager) Token(ctx context.Context) (string, error) {
	return m.GetToken(ctx)
}

// GetToken returns a valid access token, refreshing if necessary.
func (m *OAuth2TokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token.Valid() {
		return token.AccessToken, nil
	}

	return m.fetch(ctx)
}

// RefreshToken forces a new token request.
func (m *OAuth2TokenManager) RefreshToken(ctx context.Context) error {
	_, err := m.fetch(ctx)

	return err
}

// SetToken sets the access token manually.
func (m *OAuth2TokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	})
}

func (m *OAuth2TokenManager) fetch(ctx context.Context) (string, error) {
	result, err, _ := m.group.Do("token", func() (interface{}, error) {
		token, err := m.requestToken(ctx)
		if err != nil {
			return nil, err
		}

		m.store.Set(token)

		return token.AccessToken, nil
	})
	if err != nil {
		return "", err
	}

	accessToken, _ := result.(string)

	return accessToken, nil
}

// grant returns the form of the next token request.
func (m *OAuth2TokenManager) grant() (url.Values, error) {
	form := url.Values{}

	refreshToken := m.config.RefreshToken
	if current := m.store.Get(); current != nil && current.RefreshToken != "" {
		refreshToken = current.RefreshToken
	}

	switch {
	case refreshToken != "":
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", refreshToken)
	case m.config.Username != "" && m.config.Password != "":
		form.Set("grant_type", "password")
		form.Set("username", m.config.Username)
		form.Set("password", m.config.Password)
	case m.config.ClientID != "" && m.config.ClientSecret != "":
		form.Set("grant_type", "client_credentials")
	default:
		return nil, ErrNoValidCredentials
	}

	if len(m.config.Scopes) > 0 {
		form.Set("scope", strings.Join(m.config.Scopes, " "))
	}

	return form, nil
}

func (m *OAuth2TokenManager) requestToken(ctx context.Context) (*Token, error) {
	form, err := m.grant()
	if err != nil {
		return nil, err
	}

	if m.config.TokenURL == "" {
		return nil, ErrNoTokenURL
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, m.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}

	req.Header.Set(constants.HeaderContentType, constants.MediaTypeForm)
	req.Header.Set(constants.HeaderAccept, constants.MediaTypeJSON)

	if m.config.ClientID != "" {
		req.SetBasicAuth(m.config.ClientID, m.config.ClientSecret)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting token: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, tokenError(resp.StatusCode, body)
	}

	var token Token

	err = json.Unmarshal(body, &token)
	if err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: response has no access_token", ErrTokenRequestFailed)
	}

	if token.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	return &token, nil
}

// tokenError reports an OAuth2 error response.
func tokenError(status int, body []byte) error {
	var oauthErr struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}

	err := json.Unmarshal(body, &oauthErr)
	if err != nil || oauthErr.Error == "" {
		return fmt.Errorf("%w with status %d: %s", ErrTokenRequestFailed, status, strings.TrimSpace(string(body)))
	}

	return fmt.Errorf("%w with status %d: %s: %s", ErrTokenRequestFailed, status, oauthErr.Error, oauthErr.Description)
}
