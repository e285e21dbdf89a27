package oauth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeRefresher struct {
	calls int
	token string
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context, _, _ string) (string, error) {
	f.calls++

	if f.err != nil {
		return "", f.err
	}

	return fmt.Sprintf("%s-%d", f.token, f.calls), nil
}

func newTestCache(refresher Refresher) *Cache {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return NewCache(log, refresher)
}

func TestGetOrRefreshCachesToken(t *testing.T) {
	refresher := &fakeRefresher{token: "access"}
	cache := newTestCache(refresher)

	first := cache.GetOrRefresh(context.Background(), "user1", "google", "rt")
	if first != "access-1" {
		t.Fatalf("GetOrRefresh() = %q, want %q", first, "access-1")
	}

	second := cache.GetOrRefresh(context.Background(), "user1", "google", "rt")
	if second != first {
		t.Errorf("GetOrRefresh() = %q, want cached %q", second, first)
	}

	if refresher.calls != 1 {
		t.Errorf("refresher called %d times, want 1", refresher.calls)
	}
}

func TestGetOrRefreshRefreshesNearExpiry(t *testing.T) {
	refresher := &fakeRefresher{token: "access"}
	cache := newTestCache(refresher)

	base := time.Now()
	cache.now = func() time.Time { return base }

	cache.GetOrRefresh(context.Background(), "user1", "google", "rt")

	// Advance to just inside the validity buffer. The 50 minute TTL minus
	// the 10 minute buffer leaves 40 usable minutes.
	cache.now = func() time.Time { return base.Add(41 * time.Minute) }

	got := cache.GetOrRefresh(context.Background(), "user1", "google", "rt")
	if got != "access-2" {
		t.Errorf("GetOrRefresh() = %q, want fresh %q", got, "access-2")
	}

	if refresher.calls != 2 {
		t.Errorf("refresher called %d times, want 2", refresher.calls)
	}
}

func TestGetOrRefreshWithinValidityWindow(t *testing.T) {
	refresher := &fakeRefresher{token: "access"}
	cache := newTestCache(refresher)

	base := time.Now()
	cache.now = func() time.Time { return base }

	cache.GetOrRefresh(context.Background(), "user1", "google", "rt")

	cache.now = func() time.Time { return base.Add(39 * time.Minute) }

	got := cache.GetOrRefresh(context.Background(), "user1", "google", "rt")
	if got != "access-1" {
		t.Errorf("GetOrRefresh() = %q, want cached %q", got, "access-1")
	}
}

func TestGetOrRefreshFailureReturnsEmpty(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("invalid_grant")}
	cache := newTestCache(refresher)

	got := cache.GetOrRefresh(context.Background(), "user1", "google", "rt")
	if got != "" {
		t.Errorf("GetOrRefresh() = %q, want empty string on refresh failure", got)
	}

	if cache.Size() != 0 {
		t.Errorf("Size() = %d, want 0 after failed refresh", cache.Size())
	}
}

func TestGetOrRefreshKeysPerUserAndProvider(t *testing.T) {
	refresher := &fakeRefresher{token: "access"}
	cache := newTestCache(refresher)

	cache.GetOrRefresh(context.Background(), "user1", "google", "rt")
	cache.GetOrRefresh(context.Background(), "user1", "todoist", "rt")
	cache.GetOrRefresh(context.Background(), "user2", "google", "rt")

	if cache.Size() != 3 {
		t.Errorf("Size() = %d, want 3", cache.Size())
	}

	if refresher.calls != 3 {
		t.Errorf("refresher called %d times, want 3", refresher.calls)
	}
}

func TestCleanupDropsExpiredEntriesPastThreshold(t *testing.T) {
	refresher := &fakeRefresher{token: "access"}
	cache := newTestCache(refresher)

	base := time.Now()
	cache.now = func() time.Time { return base }

	for i := 0; i < cleanupThreshold; i++ {
		cache.GetOrRefresh(context.Background(), fmt.Sprintf("user%d", i), "google", "rt")
	}

	if cache.Size() != cleanupThreshold {
		t.Fatalf("Size() = %d, want %d", cache.Size(), cleanupThreshold)
	}

	// Every existing entry is now expired; the next refresh triggers the
	// cleanup pass and leaves only the fresh entry.
	cache.now = func() time.Time { return base.Add(2 * cachedTokenTTL) }

	cache.GetOrRefresh(context.Background(), "late-user", "google", "rt")

	if cache.Size() != 1 {
		t.Errorf("Size() = %d, want 1 after cleanup", cache.Size())
	}
}
