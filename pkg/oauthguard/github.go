package oauthguard

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubConfig holds GitHub OAuth client settings. The guard is mounted only
// when ClientID is set.
type GitHubConfig struct {
	ClientID        string   `env:"GITHUB_OAUTH_CLIENT_ID"`
	ClientSecret    string   `env:"GITHUB_OAUTH_CLIENT_SECRET"`
	RedirectURL     string   `env:"GITHUB_OAUTH_REDIRECT_URL"`
	Scopes          []string `env:"GITHUB_OAUTH_SCOPES" envSeparator:"," envDefault:"read:user,user:email"`
	Enabled         bool     `env:"GITHUB_OAUTH_ENABLED" envDefault:"true"`
	DisabledMessage string   `env:"GITHUB_OAUTH_DISABLED_MESSAGE" envDefault:"GitHub sign-in is not available for this workspace"`
}

const githubAPIBase = "https://api.github.com"

type githubAdapter struct {
	conf       *oauth2.Config
	httpClient *http.Client
	apiBase    string
}

// NewGitHubAdapter creates a GitHub provider adapter.
func NewGitHubAdapter(cfg GitHubConfig, opts ...AdapterOption) ProviderAdapter {
	a := &githubAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     github.Endpoint,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBase:    githubAPIBase,
	}
	for _, opt := range opts {
		opt(a.conf, &a.httpClient, &a.apiBase)
	}
	a.apiBase = strings.TrimSuffix(a.apiBase, "/")
	return a
}

func (a *githubAdapter) ProviderID() string { return ProviderGitHub }

func (a *githubAdapter) AuthURL(state string, opts ...oauth2.AuthCodeOption) string {
	return a.conf.AuthCodeURL(state, opts...)
}

// ResolveProfile prefers the primary verified address and falls back to any
// verified one; unverified addresses are never returned.
func (a *githubAdapter) ResolveProfile(ctx context.Context, code string) (ProviderProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return ProviderProfile{}, ErrInvalidCode
	}

	var u struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, a.httpClient, a.apiBase+"/user", tok.AccessToken, &u); err != nil {
		return ProviderProfile{}, fmt.Errorf("fetch github user: %w", err)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, a.httpClient, a.apiBase+"/user/emails", tok.AccessToken, &emails); err != nil {
		return ProviderProfile{}, fmt.Errorf("fetch github emails: %w", err)
	}

	var email string
	for _, e := range emails {
		if e.Verified && (e.Primary || email == "") {
			email = e.Email
			if e.Primary {
				break
			}
		}
	}
	if email == "" {
		return ProviderProfile{}, ErrNoPrimaryEmail
	}

	name := u.Name
	if name == "" {
		name = u.Login
	}
	return ProviderProfile{
		ProviderUserID: strconv.FormatInt(u.ID, 10),
		Email:          email,
		EmailVerified:  true,
		Name:           name,
		AvatarURL:      u.AvatarURL,
	}, nil
}
