package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/ports/adapter"
	"course-marketplace/internal/infra/metrics"
)

// Compile-time check
var _ adapter.PaymentGateway = (*PayPalGateway)(nil)

// PayPalGateway implements adapter.PaymentGateway using direct HTTP calls to
// the PayPal REST API. It carries no business logic and never retries; callers
// bound every call through ctx.
type PayPalGateway struct {
	clientID     string
	clientSecret string
	webhookID    string
	baseURL      string
	client       *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewPayPalGateway creates a gateway against the sandbox or live API.
func NewPayPalGateway(clientID, clientSecret, webhookID string, sandbox bool) (*PayPalGateway, error) {
	if clientID == "" || clientSecret == "" || webhookID == "" {
		return nil, domain.ErrInvalidArgument
	}
	baseURL := "https://api-m.paypal.com"
	if sandbox {
		baseURL = "https://api-m.sandbox.paypal.com"
	}
	return &PayPalGateway{
		clientID:     clientID,
		clientSecret: clientSecret,
		webhookID:    webhookID,
		baseURL:      baseURL,
		client:       &http.Client{},
	}, nil
}

func (g *PayPalGateway) Name() string { return "paypal" }

// --- OAuth ---

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a cached client-credentials token, refreshing when expired.
func (g *PayPalGateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.accessToken != "" && time.Now().Before(g.tokenExpiry) {
		return g.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(g.clientID, g.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch access token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to unmarshal token response: %w", err)
	}

	g.accessToken = tr.AccessToken
	// renew one minute early to avoid using a token that expires mid-call
	g.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - time.Minute)
	return g.accessToken, nil
}

// doJSON performs an authenticated JSON request and returns the raw body.
// Non-2xx responses surface as errors with the provider body attached.
func (g *PayPalGateway) doJSON(ctx context.Context, op, method, path string, payload interface{}) ([]byte, error) {
	start := time.Now()
	body, err := g.doJSONInner(ctx, method, path, payload)
	metrics.ObserveGatewayCall(op, time.Since(start).Milliseconds(), err == nil)
	return body, err
}

func (g *PayPalGateway) doJSONInner(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	tok, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("paypal error: %s %s status %d, body: %s", method, path, resp.StatusCode, string(body))
	}
	return body, nil
}

// --- Orders ---

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (r *orderResponse) link(rel string) string {
	for _, l := range r.Links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

// CreateOrder registers a capture-intent order sharing one provider reference
// across all purchases of the checkout.
func (g *PayPalGateway) CreateOrder(ctx context.Context, amountCents int64, currency, referenceID, returnURL, cancelURL string) (adapter.CreatedOrder, error) {
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{{
			"reference_id": referenceID,
			"amount": map[string]string{
				"currency_code": currency,
				"value":         centsToDecimal(amountCents),
			},
		}},
		"application_context": map[string]string{
			"return_url":  returnURL,
			"cancel_url":  cancelURL,
			"user_action": "PAY_NOW",
		},
	}

	body, err := g.doJSON(ctx, "create_order", http.MethodPost, "/v2/checkout/orders", payload)
	if err != nil {
		return adapter.CreatedOrder{}, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return adapter.CreatedOrder{}, fmt.Errorf("failed to unmarshal order response: %w, body: %s", err, string(body))
	}
	approve := resp.link("approve")
	if resp.ID == "" || approve == "" {
		return adapter.CreatedOrder{}, fmt.Errorf("paypal order response missing id or approve link: %s", string(body))
	}
	return adapter.CreatedOrder{ProviderRef: resp.ID, ApproveURL: approve}, nil
}

// CaptureOrder finalizes an approved order and reports the provider outcome.
// A declined capture is an outcome, not an error: callers branch on
// CaptureOutcome.Completed.
func (g *PayPalGateway) CaptureOrder(ctx context.Context, providerOrderRef string) (adapter.CaptureOutcome, error) {
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(providerOrderRef))
	body, err := g.doJSON(ctx, "capture_order", http.MethodPost, path, struct{}{})
	if err != nil {
		return adapter.CaptureOutcome{}, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return adapter.CaptureOutcome{}, fmt.Errorf("failed to unmarshal capture response: %w, body: %s", err, string(body))
	}

	out := adapter.CaptureOutcome{Status: resp.Status}
	for _, u := range resp.PurchaseUnits {
		for _, c := range u.Payments.Captures {
			if c.ID != "" {
				out.CaptureID = c.ID
				break
			}
		}
	}
	return out, nil
}

// --- Subscriptions ---

type subscriptionResponse struct {
	ID          string `json:"id"`
	PlanID      string `json:"plan_id"`
	Status      string `json:"status"`
	CustomID    string `json:"custom_id"`
	BillingInfo struct {
		NextBillingTime *time.Time `json:"next_billing_time"`
	} `json:"billing_info"`
	Links []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (g *PayPalGateway) CreateSubscription(ctx context.Context, providerPlanID, customID, returnURL, cancelURL string) (adapter.CreatedOrder, error) {
	payload := map[string]interface{}{
		"plan_id":   providerPlanID,
		"custom_id": customID,
		"application_context": map[string]string{
			"return_url": returnURL,
			"cancel_url": cancelURL,
		},
	}

	body, err := g.doJSON(ctx, "create_subscription", http.MethodPost, "/v1/billing/subscriptions", payload)
	if err != nil {
		return adapter.CreatedOrder{}, err
	}

	var resp subscriptionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return adapter.CreatedOrder{}, fmt.Errorf("failed to unmarshal subscription response: %w, body: %s", err, string(body))
	}
	approve := ""
	for _, l := range resp.Links {
		if l.Rel == "approve" {
			approve = l.Href
			break
		}
	}
	if resp.ID == "" || approve == "" {
		return adapter.CreatedOrder{}, fmt.Errorf("paypal subscription response missing id or approve link: %s", string(body))
	}
	return adapter.CreatedOrder{ProviderRef: resp.ID, ApproveURL: approve}, nil
}

func (g *PayPalGateway) GetSubscription(ctx context.Context, providerSubID string) (*adapter.SubscriptionDetail, error) {
	path := fmt.Sprintf("/v1/billing/subscriptions/%s", url.PathEscape(providerSubID))
	body, err := g.doJSON(ctx, "get_subscription", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp subscriptionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subscription response: %w, body: %s", err, string(body))
	}
	return &adapter.SubscriptionDetail{
		ProviderSubID:   resp.ID,
		ProviderPlanID:  resp.PlanID,
		Status:          resp.Status,
		CustomID:        resp.CustomID,
		NextBillingTime: resp.BillingInfo.NextBillingTime,
	}, nil
}

func (g *PayPalGateway) CancelSubscription(ctx context.Context, providerSubID, reason string) error {
	path := fmt.Sprintf("/v1/billing/subscriptions/%s/cancel", url.PathEscape(providerSubID))
	_, err := g.doJSON(ctx, "cancel_subscription", http.MethodPost, path, map[string]string{"reason": reason})
	return err
}

// --- Webhook verification ---

type verifyWebhookResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// VerifyWebhook submits the transmission headers plus the raw event to the
// provider verify endpoint. The raw body must be passed through unmodified:
// re-marshalling could change field order and break the signature.
func (g *PayPalGateway) VerifyWebhook(ctx context.Context, h adapter.WebhookHeaders, rawEvent []byte) (bool, error) {
	if !h.Complete() {
		return false, domain.ErrMissingWebhookHeaders
	}

	payload := map[string]interface{}{
		"transmission_id":   h.TransmissionID,
		"transmission_time": h.TransmissionTime,
		"transmission_sig":  h.TransmissionSig,
		"cert_url":          h.CertURL,
		"auth_algo":         h.AuthAlgo,
		"webhook_id":        g.webhookID,
		"webhook_event":     json.RawMessage(rawEvent),
	}

	body, err := g.doJSON(ctx, "verify_webhook", http.MethodPost, "/v1/notifications/verify-webhook-signature", payload)
	if err != nil {
		return false, err
	}

	var resp verifyWebhookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("failed to unmarshal verify response: %w, body: %s", err, string(body))
	}
	return resp.VerificationStatus == "SUCCESS", nil
}

// centsToDecimal renders minor units as the provider's decimal string.
func centsToDecimal(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
