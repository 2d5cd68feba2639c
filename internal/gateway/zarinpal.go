package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fairyhunter13/scalable-order-system/internal/service"
)

// ZarinPal v4 result codes.
const (
	zarinPalCodeOK              = 100
	zarinPalCodeAlreadyVerified = 101
)

// ZarinPalClient is the fiat payment gateway client (ZarinPal REST v4).
type ZarinPalClient struct {
	client      *http.Client
	baseURL     string
	payURL      string
	merchantID  string
	callbackURL string
}

// NewZarinPalClient creates a ZarinPal client. baseURL is the API root,
// payURL the user-facing payment page root that the authority is appended to.
func NewZarinPalClient(baseURL, payURL, merchantID, callbackURL string, timeout time.Duration) *ZarinPalClient {
	return &ZarinPalClient{
		client:      &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		payURL:      payURL,
		merchantID:  merchantID,
		callbackURL: callbackURL,
	}
}

type zarinPalRequestBody struct {
	MerchantID  string `json:"merchant_id"`
	Amount      int64  `json:"amount"`
	CallbackURL string `json:"callback_url"`
	Description string `json:"description"`
}

type zarinPalVerifyBody struct {
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
	Authority  string `json:"authority"`
}

type zarinPalResponse struct {
	Data struct {
		Code      int    `json:"code"`
		Authority string `json:"authority"`
		RefID     int64  `json:"ref_id"`
	} `json:"data"`
}

// CreatePayment requests a payment and returns the gateway authority plus
// the URL the user must be redirected to.
func (c *ZarinPalClient) CreatePayment(ctx context.Context, amount int64, description string) (*service.PaymentIntent, error) {
	body := zarinPalRequestBody{
		MerchantID:  c.merchantID,
		Amount:      amount,
		CallbackURL: c.callbackURL,
		Description: description,
	}

	var resp zarinPalResponse
	err := doJSON(ctx, c.client, http.MethodPost, c.baseURL+"/pg/v4/payment/request.json", nil, body, &resp)
	if err != nil {
		return nil, fmt.Errorf("zarinpal create payment: %w", err)
	}
	if resp.Data.Code != zarinPalCodeOK || resp.Data.Authority == "" {
		return nil, fmt.Errorf("%w: zarinpal request code %d", service.ErrUpstream, resp.Data.Code)
	}

	return &service.PaymentIntent{
		Authority:  resp.Data.Authority,
		PaymentURL: c.payURL + "/" + resp.Data.Authority,
	}, nil
}

// VerifyPayment confirms a payment for the given authority and amount.
// Code 100 is a fresh settlement, 101 an already-verified one; both count
// as settled. Any other code is a final failure.
func (c *ZarinPalClient) VerifyPayment(ctx context.Context, authority string, amount int64) error {
	body := zarinPalVerifyBody{
		MerchantID: c.merchantID,
		Amount:     amount,
		Authority:  authority,
	}

	var resp zarinPalResponse
	err := doJSON(ctx, c.client, http.MethodPost, c.baseURL+"/pg/v4/payment/verify.json", nil, body, &resp)
	if err != nil {
		return fmt.Errorf("zarinpal verify payment: %w", err)
	}
	switch resp.Data.Code {
	case zarinPalCodeOK, zarinPalCodeAlreadyVerified:
		return nil
	default:
		return fmt.Errorf("%w: zarinpal verify code %d", service.ErrPaymentFailed, resp.Data.Code)
	}
}
