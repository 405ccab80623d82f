package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailasramasamy/martly-backend/pkg/config"
	"github.com/kailasramasamy/martly-backend/pkg/enums"
	pkgerrors "github.com/kailasramasamy/martly-backend/pkg/errors"
)

const errorBodyReadLimit int64 = 2048

var errBaseURLRequired = errors.New("commerce base url is required")

type tokenKey struct{}

// WithUserToken stashes the caller's bearer token so outbound commerce calls
// act on the user's behalf.
func WithUserToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// UserTokenFromContext reads back the stashed token, if any.
func UserTokenFromContext(ctx context.Context) string {
	return userTokenFromContext(ctx)
}

func userTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if token, ok := ctx.Value(tokenKey{}).(string); ok {
		return token
	}
	return ""
}

// Client talks to the remote commerce API that owns pricing, inventory,
// slots, orders and the payment gateway leg.
type Client struct {
	httpClient *http.Client
	baseURL    string
	serviceKey string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the commerce API client from configuration.
func NewClient(cfg config.CommerceConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: strings.TrimSpace(cfg.ServiceKey),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    cfg.MaxIdle,
				IdleConnTimeout: cfg.IdleTimeout,
			},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Ping checks upstream availability for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/health", nil, nil)
}

// GetStore fetches the store-level delivery configuration.
func (c *Client) GetStore(ctx context.Context, storeID uuid.UUID) (StoreInfo, error) {
	var out StoreInfo
	path := fmt.Sprintf("/v1/stores/%s", storeID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return StoreInfo{}, err
	}
	return out, nil
}

// LookupDeliveryTier resolves the distance-based serviceability for one point.
func (c *Client) LookupDeliveryTier(ctx context.Context, storeID uuid.UUID, lat, lng float64) (ServiceabilityResult, error) {
	var out ServiceabilityResult
	path := fmt.Sprintf("/v1/stores/%s/delivery-tier?lat=%s&lng=%s",
		storeID,
		url.QueryEscape(fmt.Sprintf("%.6f", lat)),
		url.QueryEscape(fmt.Sprintf("%.6f", lng)),
	)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return ServiceabilityResult{}, err
	}
	return out, nil
}

// LookupDeliveryZone returns the coarse store-wide fallback, or nil when the
// store has none configured.
func (c *Client) LookupDeliveryZone(ctx context.Context, storeID uuid.UUID) (*ZoneFallback, error) {
	var out ZoneFallback
	path := fmt.Sprintf("/v1/stores/%s/delivery-zone", storeID)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// ValidateCoupon checks a code against the current order amount. Invalid or
// expired codes come back as a validation error with the upstream message.
func (c *Client) ValidateCoupon(ctx context.Context, code string, storeID uuid.UUID, orderAmountPaise int64) (CouponResult, error) {
	body := map[string]any{
		"code":         code,
		"store_id":     storeID,
		"order_amount": orderAmountPaise,
	}
	var out CouponResult
	if err := c.do(ctx, http.MethodPost, "/v1/coupons/validate", body, &out); err != nil {
		return CouponResult{}, err
	}
	return out, nil
}

// GetWalletBalance fetches the caller's prepaid wallet balance.
func (c *Client) GetWalletBalance(ctx context.Context) (WalletBalance, error) {
	var out WalletBalance
	if err := c.do(ctx, http.MethodGet, "/v1/wallet", nil, &out); err != nil {
		return WalletBalance{}, err
	}
	return out, nil
}

// GetLoyalty fetches the loyalty config and balance for a store.
func (c *Client) GetLoyalty(ctx context.Context, storeID uuid.UUID) (LoyaltyInfo, error) {
	var out LoyaltyInfo
	path := fmt.Sprintf("/v1/stores/%s/loyalty", storeID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return LoyaltyInfo{}, err
	}
	return out, nil
}

// CheckDeliverySlots reports the store's express and scheduled capability.
func (c *Client) CheckDeliverySlots(ctx context.Context, storeID uuid.UUID) (SlotCapability, error) {
	var out SlotCapability
	path := fmt.Sprintf("/v1/stores/%s/slots/capability", storeID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return SlotCapability{}, err
	}
	return out, nil
}

// ListAvailableSlots returns the slots for one calendar date (YYYY-MM-DD).
func (c *Client) ListAvailableSlots(ctx context.Context, storeID uuid.UUID, date string) ([]Slot, error) {
	var out struct {
		Slots []Slot `json:"slots"`
	}
	path := fmt.Sprintf("/v1/stores/%s/slots?date=%s", storeID, url.QueryEscape(date))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Slots, nil
}

// CreateOrder submits the draft. The server is the final authority on price
// and rejects drafts whose cart, address or slot went stale.
func (c *Client) CreateOrder(ctx context.Context, draft OrderDraft) (CreatedOrder, error) {
	var out CreatedOrder
	if err := c.do(ctx, http.MethodPost, "/v1/orders", draft, &out); err != nil {
		return CreatedOrder{}, err
	}
	return out, nil
}

// CreatePaymentSession opens a gateway session for an existing order. Failure
// never invalidates the order.
func (c *Client) CreatePaymentSession(ctx context.Context, orderID uuid.UUID) (PaymentSession, error) {
	var out PaymentSession
	path := fmt.Sprintf("/v1/orders/%s/payment-session", orderID)
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return PaymentSession{}, err
	}
	return out, nil
}

// VerifyPayment forwards the gateway confirmation payload. Best-effort.
func (c *Client) VerifyPayment(ctx context.Context, orderID uuid.UUID, payload PaymentConfirmation) error {
	path := fmt.Sprintf("/v1/orders/%s/verify-payment", orderID)
	return c.do(ctx, http.MethodPost, path, payload, nil)
}

// GetPaymentPreference reads the saved payment method, if any.
func (c *Client) GetPaymentPreference(ctx context.Context) (*PaymentPreference, error) {
	var out PaymentPreference
	err := c.do(ctx, http.MethodGet, "/v1/me/payment-preference", nil, &out)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// SetPaymentPreference saves the preferred payment method. Best-effort.
func (c *Client) SetPaymentPreference(ctx context.Context, method enums.PaymentMethod) error {
	body := PaymentPreference{Method: method}
	return c.do(ctx, http.MethodPut, "/v1/me/payment-preference", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil || c.httpClient == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "commerce client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal commerce request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build commerce request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.serviceKey != "" {
		req.Header.Set("X-Martly-Service-Key", c.serviceKey)
	}
	if token := userTokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute commerce request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.asError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode commerce response")
	}
	return nil
}

func (c *Client) asError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))

	message := strings.TrimSpace(string(raw))
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	case resp.StatusCode == http.StatusConflict:
		return pkgerrors.New(pkgerrors.CodeConflict, message)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return pkgerrors.New(pkgerrors.CodeValidation, message)
	default:
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, message)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "commerce request failed")
	}
}
