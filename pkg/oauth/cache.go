// Package oauth provides a process-wide cache of provider access tokens,
// refreshing through the provider's OAuth endpoint when an entry expires.
package oauth

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/observability"
)

const (
	// validityBuffer is the safety margin: a cached token is never
	// returned once it is within this window of its expiry.
	validityBuffer = 10 * time.Minute

	// cachedTokenTTL is the fixed lifetime stored with refreshed tokens.
	// Provider tokens last about an hour; caching for 50 minutes keeps a
	// margin without tracking each provider's expires_in.
	cachedTokenTTL = 50 * time.Minute

	// cleanupThreshold is the cache size at which a lazy cleanup pass runs.
	cleanupThreshold = 50
)

// Refresher exchanges a refresh token for a new access token at the
// provider's OAuth endpoint.
type Refresher interface {
	Refresh(ctx context.Context, provider, refreshToken string) (string, error)
}

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
	createdAt   time.Time
}

// Cache caches access tokens keyed by (user, provider). A single mutex
// serializes every operation, including the refresh HTTP call itself.
// Refreshes for different users therefore serialize against each other;
// given expected call volume this trades throughput for a correctness
// argument that fits on one line.
type Cache struct {
	log       logrus.FieldLogger
	refresher Refresher

	mu      sync.Mutex
	entries map[string]cachedToken

	// now is the time source, replaceable in tests.
	now func() time.Time
}

// NewCache creates a token cache backed by the given refresher.
func NewCache(log logrus.FieldLogger, refresher Refresher) *Cache {
	return &Cache{
		log:       log.WithField("component", "oauth_token_cache"),
		refresher: refresher,
		entries:   make(map[string]cachedToken, cleanupThreshold),
		now:       time.Now,
	}
}

// GetOrRefresh returns a valid access token for (userID, provider),
// refreshing through the provider endpoint when the cached entry is
// missing or inside the validity buffer. An empty string means no token
// is available; callers must treat that as "feature unavailable", not as
// a fatal error.
func (c *Cache) GetOrRefresh(ctx context.Context, userID, provider, refreshToken string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := userID + "_" + provider
	now := c.now()

	if cached, ok := c.entries[key]; ok && cached.expiresAt.After(now.Add(validityBuffer)) {
		c.log.WithFields(logrus.Fields{
			"provider": provider,
			"user":     userID,
		}).Debug("Using cached access token")
		observability.TokenCacheHitsTotal.WithLabelValues(provider).Inc()

		return cached.accessToken
	}

	c.log.WithFields(logrus.Fields{
		"provider": provider,
		"user":     userID,
	}).Info("Refreshing access token")

	accessToken, err := c.refresher.Refresh(ctx, provider, refreshToken)
	if err != nil {
		c.log.WithError(err).WithField("provider", provider).Error("Failed to refresh OAuth token")
		observability.TokenRefreshesTotal.WithLabelValues(provider, "error").Inc()

		return ""
	}

	observability.TokenRefreshesTotal.WithLabelValues(provider, "success").Inc()

	c.entries[key] = cachedToken{
		accessToken: accessToken,
		expiresAt:   now.Add(cachedTokenTTL),
		createdAt:   now,
	}

	c.cleanupExpiredLocked(now)

	return accessToken
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// cleanupExpiredLocked drops entries past their expiry. Only runs once
// the cache has grown past the threshold; callers hold c.mu.
func (c *Cache) cleanupExpiredLocked(now time.Time) {
	if len(c.entries) < cleanupThreshold {
		return
	}

	expired := 0

	for key, entry := range c.entries {
		if entry.expiresAt.Before(now) {
			delete(c.entries, key)
			expired++
		}
	}

	if expired > 0 {
		c.log.WithField("expired", expired).Debug("Cleaned up expired OAuth tokens")
	}
}
