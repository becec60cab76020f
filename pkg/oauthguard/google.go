package oauthguard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleConfig holds Google OAuth client settings. The guard is mounted only
// when ClientID is set.
type GoogleConfig struct {
	ClientID        string   `env:"GOOGLE_OAUTH_CLIENT_ID"`
	ClientSecret    string   `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	RedirectURL     string   `env:"GOOGLE_OAUTH_REDIRECT_URL"`
	Scopes          []string `env:"GOOGLE_OAUTH_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
	Enabled         bool     `env:"GOOGLE_OAUTH_ENABLED" envDefault:"true"`
	DisabledMessage string   `env:"GOOGLE_OAUTH_DISABLED_MESSAGE" envDefault:"Google sign-in is not available for this workspace"`
}

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type googleAdapter struct {
	conf        *oauth2.Config
	httpClient  *http.Client
	userInfoURL string
}

// AdapterOption adjusts a provider adapter, mostly for tests.
type AdapterOption func(conf *oauth2.Config, client **http.Client, apiBase *string)

// WithEndpoint overrides the OAuth endpoints.
func WithEndpoint(ep oauth2.Endpoint) AdapterOption {
	return func(conf *oauth2.Config, _ **http.Client, _ *string) { conf.Endpoint = ep }
}

// WithHTTPClient sets the client used for the token exchange and profile calls.
func WithHTTPClient(c *http.Client) AdapterOption {
	return func(_ *oauth2.Config, client **http.Client, _ *string) {
		if c != nil {
			*client = c
		}
	}
}

// WithAPIBase overrides the profile API location.
func WithAPIBase(u string) AdapterOption {
	return func(_ *oauth2.Config, _ **http.Client, apiBase *string) {
		if u != "" {
			*apiBase = u
		}
	}
}

// NewGoogleAdapter creates a Google provider adapter.
func NewGoogleAdapter(cfg GoogleConfig, opts ...AdapterOption) ProviderAdapter {
	a := &googleAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		userInfoURL: googleUserInfoURL,
	}
	for _, opt := range opts {
		opt(a.conf, &a.httpClient, &a.userInfoURL)
	}
	return a
}

func (a *googleAdapter) ProviderID() string { return ProviderGoogle }

func (a *googleAdapter) AuthURL(state string, opts ...oauth2.AuthCodeOption) string {
	return a.conf.AuthCodeURL(state, opts...)
}

func (a *googleAdapter) ResolveProfile(ctx context.Context, code string) (ProviderProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return ProviderProfile{}, ErrInvalidCode
	}

	var u struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := getJSON(ctx, a.httpClient, a.userInfoURL, tok.AccessToken, &u); err != nil {
		return ProviderProfile{}, fmt.Errorf("fetch google user: %w", err)
	}
	if u.Email == "" {
		return ProviderProfile{}, ErrNoPrimaryEmail
	}

	return ProviderProfile{
		ProviderUserID: u.ID,
		Email:          u.Email,
		EmailVerified:  u.VerifiedEmail,
		Name:           u.Name,
		AvatarURL:      u.Picture,
	}, nil
}

// getJSON performs an authenticated GET and decodes the JSON body into v.
func getJSON(ctx context.Context, client *http.Client, url, accessToken string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider api returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
