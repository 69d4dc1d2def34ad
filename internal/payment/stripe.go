package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type stripeCheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentStatus string `json:"payment_status"`
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// StripeGateway implements Gateway against the Stripe Checkout Sessions
// API.
type StripeGateway struct {
	apiKey     string
	successURL string
	cancelURL  string
	client     *http.Client
}

var _ Gateway = (*StripeGateway)(nil)

// NewStripeGateway creates a gateway with the given secret key and
// redirect URLs.
func NewStripeGateway(apiKey, successURL, cancelURL string) *StripeGateway {
	return &StripeGateway{
		apiKey:     strings.TrimSpace(apiKey),
		successURL: successURL,
		cancelURL:  cancelURL,
		client:     &http.Client{Timeout: 12 * time.Second},
	}
}

func (g *StripeGateway) CreateSession(ctx context.Context, amountCents int64, currency, description string) (CheckoutSession, error) {
	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("success_url", g.successURL)
	values.Set("cancel_url", g.cancelURL)
	values.Set("payment_method_types[]", "card")
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", strings.ToLower(currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(amountCents, 10))
	values.Set("line_items[0][price_data][product_data][name]", description)

	session, err := g.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", values)
	if err != nil {
		return CheckoutSession{}, err
	}
	return CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (g *StripeGateway) GetStatus(ctx context.Context, sessionID string) (Status, error) {
	session, err := g.doRequest(ctx, http.MethodGet, "/v1/checkout/sessions/"+sessionID, nil)
	if err != nil {
		return StatusError, err
	}
	if session.PaymentStatus == "paid" {
		return StatusPaid, nil
	}
	return StatusPending, nil
}

func (g *StripeGateway) doRequest(ctx context.Context, method, path string, values url.Values) (stripeCheckoutSession, error) {
	if g.apiKey == "" {
		return stripeCheckoutSession{}, errors.New("stripe secret key is not configured")
	}
	body := ""
	if values != nil {
		body = values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, "https://api.stripe.com"+path, strings.NewReader(body))
	if err != nil {
		return stripeCheckoutSession{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return stripeCheckoutSession{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err == nil && stripeErr.Error.Message != "" {
			return stripeCheckoutSession{}, fmt.Errorf("stripe error: %s", stripeErr.Error.Message)
		}
		return stripeCheckoutSession{}, fmt.Errorf("stripe error: status %d", resp.StatusCode)
	}

	var session stripeCheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return stripeCheckoutSession{}, fmt.Errorf("failed to decode stripe response: %w", err)
	}
	return session, nil
}
