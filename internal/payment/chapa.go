// Package payment wraps the Chapa payment provider: transaction
// initialization, verification polling, and webhook payload parsing.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrInit marks a failed transaction initialization, including missing
// configuration. Initialization failures are not retried per request.
var ErrInit = errors.New("payment initialization failed")

const defaultBaseURL = "https://api.chapa.co/v1"

type InitRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Email       string  `json:"email"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	PhoneNumber string  `json:"phone_number"`
	TxRef       string  `json:"tx_ref"`
	CallbackURL string  `json:"callback_url"`
	ReturnURL   string  `json:"return_url"`
}

type InitResult struct {
	CheckoutURL string
	TxRef       string
}

type ChapaClient struct {
	secretKey string
	baseURL   string
	http      *http.Client
	logger    *zap.Logger
}

// NewChapaClient builds a client with a bounded HTTP timeout so a hung
// gateway call cannot hold a request open indefinitely.
func NewChapaClient(secretKey, baseURL string, logger *zap.Logger) *ChapaClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &ChapaClient{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

type initResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
		TxRef       string `json:"tx_ref"`
	} `json:"data"`
}

// Initialize creates a remote transaction and returns the hosted checkout
// URL plus the provider's transaction reference.
func (c *ChapaClient) Initialize(ctx context.Context, req InitRequest) (InitResult, error) {
	if c.secretKey == "" {
		return InitResult{}, fmt.Errorf("%w: secret key not configured", ErrInit)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return InitResult{}, fmt.Errorf("%w: marshal request: %v", ErrInit, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return InitResult{}, fmt.Errorf("%w: %v", ErrInit, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return InitResult{}, fmt.Errorf("%w: %v", ErrInit, err)
	}
	defer resp.Body.Close()

	var parsed initResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return InitResult{}, fmt.Errorf("%w: decode response: %v", ErrInit, err)
	}

	if parsed.Status != "success" {
		c.logger.Warn("chapa initialize rejected",
			zap.String("tx_ref", req.TxRef),
			zap.String("status", parsed.Status),
			zap.String("message", parsed.Message))
		return InitResult{}, fmt.Errorf("%w: %s", ErrInit, parsed.Message)
	}

	return InitResult{
		CheckoutURL: parsed.Data.CheckoutURL,
		TxRef:       parsed.Data.TxRef,
	}, nil
}

type verifyResponse struct {
	Status string `json:"status"`
	Data   struct {
		Status string `json:"status"`
	} `json:"data"`
}

// Verify polls the provider for the current state of a transaction. It
// returns false for any provider-side ambiguity or negative result and
// reserves errors for transport failures; callers treat both the same
// way when walking candidate references.
func (c *ChapaClient) Verify(ctx context.Context, txRef string) (bool, error) {
	if c.secretKey == "" {
		return false, fmt.Errorf("verify %s: secret key not configured", txRef)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/transaction/verify/"+txRef, nil)
	if err != nil {
		return false, fmt.Errorf("verify %s: %w", txRef, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("verify %s: %w", txRef, err)
	}
	defer resp.Body.Close()

	var parsed verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Warn("chapa verify: unparseable response", zap.String("tx_ref", txRef), zap.Error(err))
		return false, nil
	}

	// Chapa reports both the API call status and the payment status; the
	// payment is settled only when both agree.
	paid := parsed.Status == "success" &&
		(parsed.Data.Status == "successful" || parsed.Data.Status == "success")

	c.logger.Debug("chapa verify result",
		zap.String("tx_ref", txRef),
		zap.String("api_status", parsed.Status),
		zap.String("payment_status", parsed.Data.Status),
		zap.Bool("paid", paid))

	return paid, nil
}
