package oauthguard

import (
	"context"

	"golang.org/x/oauth2"
)

const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// ProviderProfile is the identity returned by a provider after the code exchange.
type ProviderProfile struct {
	ProviderUserID string `json:"provider_user_id"`
	Email          string `json:"email"`
	EmailVerified  bool   `json:"email_verified"`
	Name           string `json:"name,omitempty"`
	AvatarURL      string `json:"avatar_url,omitempty"`
}

// ProviderAdapter hides the differences between identity providers.
type ProviderAdapter interface {
	ProviderID() string
	// AuthURL builds the provider authorization URL carrying state.
	AuthURL(state string, opts ...oauth2.AuthCodeOption) string
	// ResolveProfile exchanges code and fetches the user's profile.
	// A rejected code is reported as ErrInvalidCode.
	ResolveProfile(ctx context.Context, code string) (ProviderProfile, error)
}
