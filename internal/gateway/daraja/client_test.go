package daraja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// mapCache is an in-memory TokenCache; TTL is recorded but not enforced.
type mapCache struct {
	mu   sync.Mutex
	vals map[string]string
	ttls map[string]time.Duration
}

func newMapCache() *mapCache {
	return &mapCache{vals: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vals[key], nil
}

func (c *mapCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *mapCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.vals, key)
	return nil
}

type gatewayStub struct {
	mu         sync.Mutex
	tokenCalls int
	pushCalls  int
	rejectNext int // STK calls to answer 401 before accepting
}

func (g *gatewayStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.tokenCalls++
		n := g.tokenCalls
		g.mu.Unlock()
		if _, _, ok := r.BasicAuth(); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": fmt.Sprintf("tok-%d", n),
			"expires_in":   "3600",
		})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.pushCalls++
		reject := g.rejectNext > 0
		if reject {
			g.rejectNext--
		}
		g.mu.Unlock()
		if reject || !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(STKPushResponse{
			CheckoutRequestID: "ws_CO_1", ResponseCode: "0", CustomerMessage: "ok",
		})
	})
	return mux
}

func newTestClient(t *testing.T, stub *gatewayStub) (*Client, *mapCache) {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	cache := newMapCache()
	c := NewClient(Config{
		BaseURL:        srv.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
	}, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c, cache
}

func TestToken_FetchedOnceThenCached(t *testing.T) {
	stub := &gatewayStub{}
	c, cache := newTestClient(t, stub)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.STKPush(ctx, "254712345678", decimal.NewFromInt(100), "ref-1"); err != nil {
			t.Fatalf("STKPush #%d: %v", i, err)
		}
	}
	if stub.tokenCalls != 1 {
		t.Fatalf("token endpoint hit %d times, want 1", stub.tokenCalls)
	}

	// TTL carries the safety margin
	if ttl := cache.ttls[tokenCacheKey]; ttl != 3600*time.Second-tokenExpiryMargin {
		t.Fatalf("cached ttl = %s", ttl)
	}
}

func TestDo_RefreshesTokenOn401(t *testing.T) {
	stub := &gatewayStub{}
	c, cache := newTestClient(t, stub)
	ctx := context.Background()

	// a stale token in the cache gets a 401 from the gateway
	if err := cache.Set(ctx, tokenCacheKey, "stale", time.Hour); err != nil {
		t.Fatal(err)
	}
	stub.rejectNext = 1

	out, err := c.STKPush(ctx, "254712345678", decimal.NewFromInt(100), "ref-1")
	if err != nil {
		t.Fatalf("STKPush: %v", err)
	}
	if out.ResponseCode != "0" {
		t.Fatalf("response code = %s", out.ResponseCode)
	}
	if stub.tokenCalls != 1 {
		t.Fatalf("token refetched %d times, want 1", stub.tokenCalls)
	}
	if stub.pushCalls != 2 {
		t.Fatalf("push attempted %d times, want 2", stub.pushCalls)
	}
	if got, _ := cache.Get(ctx, tokenCacheKey); got != "tok-1" {
		t.Fatalf("cache holds %q after refresh", got)
	}
}

func TestDo_GivesUpAfterSecond401(t *testing.T) {
	stub := &gatewayStub{rejectNext: 2}
	c, _ := newTestClient(t, stub)

	_, err := c.STKPush(context.Background(), "254712345678", decimal.NewFromInt(100), "ref-1")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("want ErrAuth, got %v", err)
	}
}

func TestToken_Unavailable(t *testing.T) {
	cache := newMapCache()
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", ConsumerKey: "k", ConsumerSecret: "s"},
		cache, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := c.STKPush(context.Background(), "254712345678", decimal.NewFromInt(100), "ref-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}
