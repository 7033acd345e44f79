package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lendstack/lending-engine/internal/config"
	customError "github.com/lendstack/lending-engine/pkg/errors"
)

// Client is the HTTP implementation of SubscriptionGateway. Every call runs
// under the configured timeout; a timed-out call is treated as failed, never
// as possibly-succeeded.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

// NewClient builds a gateway client from config.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.Gateway.BaseURL, "/"),
		keyID:     cfg.Gateway.KeyID,
		keySecret: cfg.Gateway.KeySecret,
		http: &http.Client{
			Timeout: cfg.GetGatewayTimeout(),
		},
	}
}

// apiError is the gateway's wire-format error body.
type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *Client) CreatePlan(ctx context.Context, req *CreatePlanRequest) (*Plan, error) {
	var plan Plan
	if err := c.do(ctx, http.MethodPost, "/plans", req, &plan); err != nil {
		return nil, customError.WrapGatewayError("plan create", err)
	}
	return &plan, nil
}

func (c *Client) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*Subscription, error) {
	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", req, &sub); err != nil {
		return nil, customError.WrapGatewayError("subscription create", err)
	}
	return &sub, nil
}

func (c *Client) CancelSubscription(ctx context.Context, externalSubscriptionID string) error {
	path := fmt.Sprintf("/subscriptions/%s/cancel", externalSubscriptionID)
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return customError.WrapGatewayError("subscription cancel", err)
	}
	return nil
}

func (c *Client) CreatePaymentLink(ctx context.Context, req *CreatePaymentLinkRequest) (*PaymentLink, error) {
	var link PaymentLink
	if err := c.do(ctx, http.MethodPost, "/payment_links", req, &link); err != nil {
		// Reference collisions are a distinguished error class so callers
		// can regenerate the reference id and retry.
		return nil, err
	}
	return &link, nil
}

func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+paymentID, nil, &payment); err != nil {
		return nil, customError.WrapGatewayError("payment fetch", err)
	}
	return &payment, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", customError.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		return classifyError(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding gateway response: %w", err)
		}
	}

	return nil
}

// classifyError separates semantic gateway failures from generic ones.
func classifyError(status int, raw []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Code != "" {
		desc := strings.ToLower(apiErr.Error.Description)
		if strings.Contains(desc, "reference") && strings.Contains(desc, "exists") {
			return fmt.Errorf("%w: %s", customError.ErrReferenceExists, apiErr.Error.Description)
		}
		return fmt.Errorf("gateway returned %d %s: %s", status, apiErr.Error.Code, apiErr.Error.Description)
	}
	return fmt.Errorf("gateway returned %d", status)
}

var _ SubscriptionGateway = (*Client)(nil)
