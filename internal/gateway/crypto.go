package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fairyhunter13/scalable-order-system/internal/service"
)

// CryptoClient is the crypto payment processor client. It doubles as the
// upstream quote source for price normalization.
type CryptoClient struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	currency string
}

// NewCryptoClient creates a crypto processor client. currency is the invoice
// settlement currency (e.g. "USDT").
func NewCryptoClient(baseURL, apiKey, currency string, timeout time.Duration) *CryptoClient {
	return &CryptoClient{
		client:   &http.Client{Timeout: timeout},
		baseURL:  baseURL,
		apiKey:   apiKey,
		currency: currency,
	}
}

func (c *CryptoClient) headers() map[string]string {
	return map[string]string{"X-Api-Key": c.apiKey}
}

type cryptoInvoiceBody struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

type cryptoInvoiceResponse struct {
	InvoiceID  string `json:"invoice_id"`
	PaymentURL string `json:"payment_url"`
	Status     string `json:"status"`
}

type cryptoRateResponse struct {
	Pair string  `json:"pair"`
	Rate float64 `json:"rate"`
}

// CreatePayment opens an invoice with the processor; the invoice id serves
// as the deposit authority.
func (c *CryptoClient) CreatePayment(ctx context.Context, amount int64, description string) (*service.PaymentIntent, error) {
	body := cryptoInvoiceBody{
		Amount:      amount,
		Currency:    c.currency,
		Description: description,
	}

	var resp cryptoInvoiceResponse
	err := doJSON(ctx, c.client, http.MethodPost, c.baseURL+"/api/invoices", c.headers(), body, &resp)
	if err != nil {
		return nil, fmt.Errorf("crypto create invoice: %w", err)
	}
	if resp.InvoiceID == "" {
		return nil, fmt.Errorf("%w: crypto invoice response missing id", service.ErrUpstream)
	}

	return &service.PaymentIntent{
		Authority:  resp.InvoiceID,
		PaymentURL: resp.PaymentURL,
	}, nil
}

// VerifyPayment checks the invoice status. "paid" settles; "expired" and
// "cancelled" are final failures; anything else is still pending and
// reported as a failure for this attempt.
func (c *CryptoClient) VerifyPayment(ctx context.Context, authority string, amount int64) error {
	var resp cryptoInvoiceResponse
	err := doJSON(ctx, c.client, http.MethodGet, c.baseURL+"/api/invoices/"+authority, c.headers(), nil, &resp)
	if err != nil {
		return fmt.Errorf("crypto verify invoice: %w", err)
	}
	if resp.Status != "paid" {
		return fmt.Errorf("%w: crypto invoice status %q", service.ErrPaymentFailed, resp.Status)
	}
	return nil
}

// GetRate fetches the current quote for a currency pair (e.g. "USDT-IRR").
func (c *CryptoClient) GetRate(ctx context.Context, pair string) (float64, error) {
	var resp cryptoRateResponse
	err := doJSON(ctx, c.client, http.MethodGet, c.baseURL+"/api/rates/"+pair, c.headers(), nil, &resp)
	if err != nil {
		return 0, fmt.Errorf("crypto get rate: %w", err)
	}
	if resp.Rate <= 0 {
		return 0, fmt.Errorf("%w: crypto rate %f for %s", service.ErrUpstream, resp.Rate, pair)
	}
	return resp.Rate, nil
}
