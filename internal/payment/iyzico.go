// Package payment wraps the iyzico checkout provider: intent creation and
// webhook signature verification. Everything past the wire format is the
// provider's business.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"letter-order-service/internal/model"
)

const providerName = "iyzico"

type Config struct {
	Env           string // "sandbox" or "production"
	APIKey        string
	SecretKey     string
	BaseURL       string
	WebhookSecret string
	CallbackURL   string
}

type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Name() string { return providerName }

type intentRequest struct {
	Locale         string `json:"locale"`
	ConversationID string `json:"conversationId"`
	Price          string `json:"price"`
	PaidPrice      string `json:"paidPrice"`
	Currency       string `json:"currency"`
	BasketID       string `json:"basketId"`
	CallbackURL    string `json:"callbackUrl"`
	BuyerName      string `json:"buyerName"`
	BuyerAddress   string `json:"buyerAddress"`
}

type intentResponse struct {
	Status         string `json:"status"`
	Token          string `json:"token"`
	PaymentPageURL string `json:"paymentPageUrl"`
	ErrorMessage   string `json:"errorMessage"`
}

// CreateCheckoutIntent initializes a checkout form and returns the provider
// token plus the redirect URL. Sandbox mode answers deterministically
// without network I/O.
func (c *Client) CreateCheckoutIntent(ctx context.Context, orderID string, amount float64, currency string, recipient *model.Recipient) (string, string, error) {
	if c.cfg.Env == "sandbox" {
		token := "sandbox_token_" + orderID
		return token, fmt.Sprintf("https://sandbox-checkout.iyzipay.com/token=%s", token), nil
	}

	name, address := "Bilinmeyen Kullanici", "Bilinmeyen Adres"
	if recipient != nil {
		name, address = recipient.Name, recipient.Address
	}
	body, err := json.Marshal(intentRequest{
		Locale:         "tr",
		ConversationID: orderID,
		Price:          fmt.Sprintf("%.2f", amount),
		PaidPrice:      fmt.Sprintf("%.2f", amount),
		Currency:       currency,
		BasketID:       orderID,
		CallbackURL:    c.cfg.CallbackURL,
		BuyerName:      name,
		BuyerAddress:   address,
	})
	if err != nil {
		return "", "", err
	}

	url := c.cfg.BaseURL + "/payment/iyzipos/checkoutform/initialize/auth/ecom"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authHeader(body))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("checkout intent request: %w", err)
	}
	defer resp.Body.Close()

	var out intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("checkout intent response: %w", err)
	}
	if out.Status != "success" {
		return "", "", fmt.Errorf("provider rejected intent: %s", out.ErrorMessage)
	}
	if out.Token == "" {
		return "", "", errors.New("provider returned empty token")
	}
	return out.Token, out.PaymentPageURL, nil
}

// authHeader signs the request body with the API secret, the HMAC scheme
// the provider expects on authenticated calls.
func (c *Client) authHeader(body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write(body)
	return fmt.Sprintf("IYZWSv2 %s:%s", c.cfg.APIKey, hex.EncodeToString(mac.Sum(nil)))
}

// VerifySignature checks the webhook callback signature: hex-encoded
// HMAC-SHA256 of the raw body under the shared webhook secret.
func (c *Client) VerifySignature(body []byte, signatureHeader string) bool {
	if signatureHeader == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.cfg.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signatureHeader))
}
