package ccpayment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"minemechanics/internal/logger"
)

var (
	ErrNoPaymentURL = errors.New("payment url missing from provider response")
)

// Client talks to the CCPayment invoice API. Every request is signed with
// HMAC-SHA256 over appId+timestamp+body in exactly that order; the provider
// recomputes the digest over the same bytes, so the serialized body is built
// once and reused for both the signature and the wire.
type Client struct {
	appID      string
	appSecret  string
	apiURL     string
	httpClient *http.Client
}

// NewClient creates a CCPayment API client with a bounded request timeout.
func NewClient(appID, appSecret, apiURL string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		apiURL:    apiURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// InvoiceRequest is the signed invoice body sent to the provider.
type InvoiceRequest struct {
	ReferenceID string          `json:"referenceId"`
	Amount      float64         `json:"amount"`
	Currency    string          `json:"currency"`
	Chain       string          `json:"chain"`
	CallbackURL string          `json:"callbackUrl"`
	ReturnURL   string          `json:"returnUrl"`
	Metadata    InvoiceMetadata `json:"metadata"`
}

// InvoiceMetadata is opaque to the provider and echoed back on callbacks.
// Carrying the owner id here lets the reconciler resolve the user without a
// reference lookup.
type InvoiceMetadata struct {
	TgID int64 `json:"tg_id"`
}

// Invoice is the useful part of the provider's create-invoice response.
type Invoice struct {
	PaymentURL string
	TrackID    string
}

type invoiceResponse struct {
	PaymentURL string `json:"paymentUrl"`
	Data       struct {
		PaymentURL  string `json:"paymentUrl"`
		CheckoutURL string `json:"checkoutUrl"`
		TxHash      string `json:"txHash"`
	} `json:"data"`
}

// sign computes hex(HMAC-SHA256(secret, appId || timestamp || body)).
func sign(appID, appSecret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(appID))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// CreateInvoice sends a signed invoice request and returns the payment URL
// the user should open. Transport errors are retried once; provider-side
// errors and responses without a payment URL are surfaced as failures so the
// caller persists nothing.
func (c *Client) CreateInvoice(ctx context.Context, req *InvoiceRequest) (*Invoice, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := sign(c.appID, c.appSecret, timestamp, body)

	var resp *http.Response
	for attempt := 0; attempt < 2; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Appid", c.appID)
		httpReq.Header.Set("Sign", signature)
		httpReq.Header.Set("Timestamp", timestamp)

		resp, err = c.httpClient.Do(httpReq)
		if err == nil {
			break
		}
		if attempt == 1 || ctx.Err() != nil {
			return nil, err
		}
		logger.Warn("provider request failed, retrying", "error", err, "reference", req.ReferenceID)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider error: %s - %s", resp.Status, string(raw))
	}

	var parsed invoiceResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid provider response: %w", err)
	}

	paymentURL := parsed.Data.PaymentURL
	if paymentURL == "" {
		paymentURL = parsed.Data.CheckoutURL
	}
	if paymentURL == "" {
		paymentURL = parsed.PaymentURL
	}
	if paymentURL == "" {
		return nil, ErrNoPaymentURL
	}

	return &Invoice{PaymentURL: paymentURL, TrackID: parsed.Data.TxHash}, nil
}
