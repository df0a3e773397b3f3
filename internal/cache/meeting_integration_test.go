//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/meetly/meetly/internal/model"
	"github.com/meetly/meetly/internal/testutil"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	ctx := context.Background()
	c, err := New(ctx, Options{
		URL:         testutil.RequireEnv(t, "REDIS_URL"),
		JoinTTL:     30 * time.Second,
		NegativeTTL: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestIntegrationCache_MeetingRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	path := "uploads/document/20260310/x.pdf"
	start := time.Now().Add(time.Hour).UTC()
	m := &model.Meeting{
		ID:           "01HZX0000000000000000000AA",
		Title:        "Planning",
		Description:  "Quarterly",
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		CreatedBy:    "u1",
		FilePath:     &path,
		PublicLinkID: uuid.NewString(),
		CreatedAt:    start.Add(-time.Hour),
		UpdatedAt:    start.Add(-time.Hour),
	}

	if _, err := c.GetMeetingByLink(ctx, m.PublicLinkID); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}

	if err := c.SetNegativeCache(ctx, m.PublicLinkID); err != nil {
		t.Fatalf("set negative: %v", err)
	}
	if neg, _ := c.IsNegativelyCached(ctx, m.PublicLinkID); !neg {
		t.Fatal("expected negative entry")
	}

	if err := c.SetMeeting(ctx, m); err != nil {
		t.Fatalf("set meeting: %v", err)
	}
	if neg, _ := c.IsNegativelyCached(ctx, m.PublicLinkID); neg {
		t.Fatal("SetMeeting should clear the negative entry")
	}
	if ttl := c.Client().TTL(ctx, joinKey(m.PublicLinkID)).Val(); ttl <= 0 || ttl > 30*time.Second {
		t.Errorf("join entry TTL = %s, want within the configured 30s", ttl)
	}

	got, err := c.GetMeetingByLink(ctx, m.PublicLinkID)
	if err != nil {
		t.Fatalf("get meeting: %v", err)
	}
	if got.ID != m.ID || !got.StartTime.Equal(m.StartTime) || got.FilePath == nil {
		t.Errorf("unexpected cached meeting: %+v", got)
	}

	if err := c.DeleteMeeting(ctx, m.PublicLinkID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetMeetingByLink(ctx, m.PublicLinkID); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestIntegrationCache_IPRateLimitBuckets(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	ip := "203.0.113." + uuid.NewString()[:3]

	for i := 0; i < 2; i++ {
		res, err := c.CheckIPRateLimit(ctx, "join", ip, 1, 2)
		if err != nil || !res.Allowed {
			t.Fatalf("request %d should pass: %+v %v", i, res, err)
		}
	}
	res, _ := c.CheckIPRateLimit(ctx, "join", ip, 1, 2)
	if res.Allowed {
		t.Fatal("third request should be limited")
	}

	res, _ = c.CheckIPRateLimit(ctx, "upload", ip, 1, 2)
	if !res.Allowed {
		t.Fatal("a different bucket should not be drained")
	}
}
