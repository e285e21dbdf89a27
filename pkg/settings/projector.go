// Package settings adapts wire-format request settings into the shape
// plugins expect: checkbox stringification plus OAuth token injection.
package settings

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/oauth"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/types"
)

// providerPluginKeys maps an OAuth provider to the settings keys whose
// plugins consume that provider's tokens. The mapping is static: several
// Google-backed plugins share one set of Google credentials.
var providerPluginKeys = map[string][]string{
	"google":  {"google_analytics", "youtube_analytics", "google_calendar"},
	"todoist": {"todoist"},
}

// Projector transforms raw request settings into plugin-ready settings.
type Projector struct {
	log    logrus.FieldLogger
	tokens *oauth.Cache
}

// NewProjector creates a projector backed by the given token cache.
func NewProjector(log logrus.FieldLogger, tokens *oauth.Cache) *Projector {
	return &Projector{
		log:    log.WithField("component", "settings_projector"),
		tokens: tokens,
	}
}

// Project applies the checkbox transform and OAuth injection, returning
// a new map. The input is never mutated.
func (p *Projector) Project(
	ctx context.Context,
	raw map[string]any,
	execCtx types.ExecutionContext,
) map[string]any {
	projected := ProjectCheckboxes(raw)
	p.injectOAuth(ctx, projected, execCtx)

	return projected
}

// ProjectCheckboxes converts boolean values to the "yes"/"no" strings
// plugins compare against; every other value passes through unchanged.
func ProjectCheckboxes(raw map[string]any) map[string]any {
	projected := make(map[string]any, len(raw))

	for key, value := range raw {
		if b, ok := value.(bool); ok {
			if b {
				projected[key] = "yes"
			} else {
				projected[key] = "no"
			}

			continue
		}

		projected[key] = value
	}

	return projected
}

// injectOAuth merges {refresh_token, access_token?} maps into the
// settings keys of plugins whose provider supplied a refresh token.
// Missing tokens are skipped silently; the plugin handles absent
// credentials itself.
func (p *Projector) injectOAuth(
	ctx context.Context,
	projected map[string]any,
	execCtx types.ExecutionContext,
) {
	userID := execCtx.User.ID
	if userID == "" || len(execCtx.OAuthTokens) == 0 {
		return
	}

	for provider, keys := range providerPluginKeys {
		token, ok := execCtx.OAuthTokens[provider]
		if !ok || token.RefreshToken == "" {
			continue
		}

		accessToken := p.tokens.GetOrRefresh(ctx, userID, provider, token.RefreshToken)

		for _, key := range keys {
			creds := map[string]any{"refresh_token": token.RefreshToken}
			if accessToken != "" {
				creds["access_token"] = accessToken
			}

			projected[key] = creds
		}
	}
}
