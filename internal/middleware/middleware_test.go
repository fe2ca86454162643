package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-lot-admin/internal/auth"
	"github.com/iliyamo/parking-lot-admin/internal/config"
	"github.com/iliyamo/parking-lot-admin/internal/logger"
)

type stubGuard map[string]string

func (g stubGuard) Authorize(raw string) (string, error) {
	if raw == "" {
		return "", auth.ErrMissingCredential
	}
	if lot, ok := g[raw]; ok {
		return lot, nil
	}
	return "", errors.New("bad token")
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func do(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthSetsLotID(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, LotID(c))
	}, JWTAuth(stubGuard{"good": "lot-7"}))

	if rec := do(e, http.MethodGet, "/me", "good"); rec.Code != http.StatusOK || rec.Body.String() != "lot-7" {
		t.Fatalf("valid token: %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodGet, "/me", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/me", "forged"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rec.Code)
	}
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "ip", Prefix: "rl",
	}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(cfg, rdb, logger.Discard()))

	for i := 0; i < 2; i++ {
		if rec := do(e, http.MethodGet, "/x", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i, rec.Code)
		}
	}
	rec := do(e, http.MethodGet, "/x", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("headers: %v", rec.Header())
	}
}

func TestTokenBucketSeparatesLots(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "lot", Prefix: "rl",
	}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		JWTAuth(stubGuard{"a": "lot-a", "b": "lot-b"}), NewTokenBucket(cfg, rdb, logger.Discard()))

	if rec := do(e, http.MethodGet, "/x", "a"); rec.Code != http.StatusOK {
		t.Fatalf("lot-a first: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/x", "b"); rec.Code != http.StatusOK {
		t.Fatalf("lot-b first: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/x", "a"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("lot-a second: %d", rec.Code)
	}
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(cfg, rdb, logger.Discard()))

	for i := 0; i < 3; i++ {
		if rec := do(e, http.MethodGet, "/x", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d with redis down: %d", i, rec.Code)
		}
	}
}

func TestRedisCacheHitAndMiss(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 20,
	}
	calls := 0
	e := echo.New()
	e.GET("/lots", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, map[string]int{"calls": calls})
	}, NewRedisCache(cfg, rdb, logger.Discard()))

	first := do(e, http.MethodGet, "/lots", "")
	if first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first: X-Cache=%q", first.Header().Get("X-Cache"))
	}
	second := do(e, http.MethodGet, "/lots", "")
	if second.Header().Get("X-Cache") != "HIT" || second.Body.String() != first.Body.String() {
		t.Fatalf("second: %q %q", second.Header().Get("X-Cache"), second.Body.String())
	}
	if second.Header().Get(echo.HeaderContentType) == "" {
		t.Fatal("cached response lost its content type")
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if other := do(e, http.MethodGet, "/lots?state=KA", ""); other.Header().Get("X-Cache") != "MISS" {
		t.Fatal("different query must not share the cache entry")
	}
}

func TestRedisCacheSkipsErrors(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache"}
	calls := 0
	e := echo.New()
	e.GET("/lots", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "boom"})
	}, NewRedisCache(cfg, rdb, logger.Discard()))

	do(e, http.MethodGet, "/lots", "")
	do(e, http.MethodGet, "/lots", "")
	if calls != 2 {
		t.Fatalf("error responses were cached: %d calls", calls)
	}
}

func TestDisabledMiddlewareIsPassThrough(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, logger.Discard()),
		NewRedisCache(config.CacheConfig{Enabled: false}, nil, logger.Discard()))
	if rec := do(e, http.MethodGet, "/x", ""); rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
}
