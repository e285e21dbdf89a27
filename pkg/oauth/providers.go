package oauth

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/config"
)

// tokenURLs maps known provider identifiers to their OAuth token
// endpoints. Adding a provider means adding a row here plus credentials
// in config or environment.
var tokenURLs = map[string]string{
	"google":  "https://accounts.google.com/o/oauth2/token",
	"todoist": "https://todoist.com/oauth/access_token",
}

// ProviderRefresher performs refresh-token grants against the known
// provider endpoints using credentials resolved from configuration.
type ProviderRefresher struct {
	log logrus.FieldLogger
	cfg *config.Config
}

// NewProviderRefresher creates a refresher over the configured providers.
func NewProviderRefresher(log logrus.FieldLogger, cfg *config.Config) *ProviderRefresher {
	return &ProviderRefresher{
		log: log.WithField("component", "oauth_refresher"),
		cfg: cfg,
	}
}

// Refresh exchanges refreshToken for a new access token at the
// provider's token endpoint.
func (r *ProviderRefresher) Refresh(ctx context.Context, provider, refreshToken string) (string, error) {
	tokenURL, ok := tokenURLs[provider]
	if !ok {
		return "", fmt.Errorf("unsupported OAuth provider: %s", provider)
	}

	cred, ok := r.cfg.ProviderCredentials(provider)
	if !ok {
		return "", fmt.Errorf("no client credentials configured for provider %s", provider)
	}

	conf := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("refreshing %s token: %w", provider, err)
	}

	return token.AccessToken, nil
}

// Compile-time interface check.
var _ Refresher = (*ProviderRefresher)(nil)
