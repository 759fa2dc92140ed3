// Package daraja talks to the mobile-money gateway: OAuth token
// exchange, STK push collections and B2C disbursement pushes. The
// access token is process-wide state with a defined lifecycle: acquired
// lazily, cached until shortly before expiry, invalidated on an
// authentication failure and refetched once.
package daraja

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrAuth        = errors.New("gateway authentication failed")
	ErrUnavailable = errors.New("gateway unavailable")
)

const (
	tokenCacheKey     = "daraja:access_token"
	tokenExpiryMargin = 60 * time.Second
)

// TokenCache stores the gateway access token. Get returns ("", nil) on
// a miss.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
}

type Client struct {
	httpc *http.Client
	cfg   Config
	cache TokenCache
	log   *slog.Logger
}

func NewClient(cfg Config, cache TokenCache, log *slog.Logger) *Client {
	return &Client{
		httpc: &http.Client{Timeout: 10 * time.Second},
		cfg:   cfg,
		cache: cache,
		log:   log,
	}
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	if tok, err := c.cache.Get(ctx, tokenCacheKey); err == nil && tok != "" {
		return tok, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return "", ErrAuth
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrUnavailable, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuth)
	}

	if secs, err := tr.ExpiresIn.Int64(); err == nil {
		ttl := time.Duration(secs)*time.Second - tokenExpiryMargin
		if ttl > 0 {
			if err := c.cache.Set(ctx, tokenCacheKey, tr.AccessToken, ttl); err != nil {
				c.log.Warn("token cache write failed", "error", err)
			}
		}
	}
	return tr.AccessToken, nil
}

func (c *Client) invalidateToken(ctx context.Context) {
	if err := c.cache.Del(ctx, tokenCacheKey); err != nil {
		c.log.Warn("token cache invalidation failed", "error", err)
	}
}

type STKPushResponse struct {
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResponseCode      string `json:"ResponseCode"`
	CustomerMessage   string `json:"CustomerMessage"`
}

// STKPush initiates a customer-side collection for the given ref.
func (c *Client) STKPush(ctx context.Context, msisdn string, amount decimal.Decimal, ref string) (*STKPushResponse, error) {
	payload := map[string]any{
		"PhoneNumber":      msisdn,
		"Amount":           amount,
		"AccountReference": ref,
		"TransactionType":  "CustomerPayBillOnline",
	}
	var out STKPushResponse
	if err := c.do(ctx, "/mpesa/stkpush/v1/processrequest", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type B2CResponse struct {
	ConversationID string `json:"ConversationID"`
	ResponseCode   string `json:"ResponseCode"`
}

// B2CPayment pushes a disbursement to the recipient's phone.
func (c *Client) B2CPayment(ctx context.Context, phone string, amount decimal.Decimal, ref string) (*B2CResponse, error) {
	payload := map[string]any{
		"PartyB":    phone,
		"Amount":    amount,
		"Remarks":   ref,
		"CommandID": "BusinessPayment",
	}
	var out B2CResponse
	if err := c.do(ctx, "/mpesa/b2c/v1/paymentrequest", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs an authorized POST, refreshing the token once if the
// gateway rejects the cached one.
func (c *Client) do(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < 2; attempt++ {
		tok, err := c.token(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+tok)

		resp, err := c.httpc.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			c.invalidateToken(ctx)
			continue
		}
		if resp.StatusCode >= 300 {
			resp.Body.Close()
			return fmt.Errorf("%w: %s returned %d", ErrUnavailable, path, resp.StatusCode)
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
		return nil
	}
	return ErrAuth
}
