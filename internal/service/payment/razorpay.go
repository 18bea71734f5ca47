package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultRazorpayURL — базовый адрес REST API Razorpay.
const DefaultRazorpayURL = "https://api.razorpay.com/v1"

// RazorpayGateway работает с REST API Razorpay.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
	logger    *logrus.Entry
	now       func() time.Time
}

// RazorpayOption настраивает RazorpayGateway.
type RazorpayOption func(*RazorpayGateway)

// WithBaseURL подменяет адрес API (используется в тестах).
func WithBaseURL(url string) RazorpayOption {
	return func(g *RazorpayGateway) {
		g.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient задаёт HTTP-клиент.
func WithHTTPClient(client *http.Client) RazorpayOption {
	return func(g *RazorpayGateway) {
		g.client = client
	}
}

// NewRazorpayGateway создаёт шлюз. Без ключей возвращает ErrPaymentNotConfigured.
func NewRazorpayGateway(keyID, keySecret string, logger *logrus.Entry, opts ...RazorpayOption) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, domain.ErrPaymentNotConfigured
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	g := &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   DefaultRazorpayURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger.WithField("component", "razorpay"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder создаёт заказ через POST /orders.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	req, minor, err := req.normalize(g.now())
	if err != nil {
		return Order{}, err
	}
	notes := req.Notes
	if notes == nil {
		notes = map[string]string{}
	}

	body, err := json.Marshal(razorpayOrderRequest{Amount: minor, Currency: req.Currency, Receipt: req.Receipt, Notes: notes})
	if err != nil {
		return Order{}, fmt.Errorf("encode razorpay order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, fmt.Errorf("build razorpay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", domain.ErrPaymentGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Order{}, fmt.Errorf("%w: read response: %v", domain.ErrPaymentGateway, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr razorpayErrorResponse
		description := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Description != "" {
			description = apiErr.Error.Description
		}
		g.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"code":   apiErr.Error.Code,
		}).Warn("razorpay order creation failed")
		return Order{}, fmt.Errorf("%w: %s", domain.ErrPaymentGateway, description)
	}

	var created razorpayOrderResponse
	if err := json.Unmarshal(raw, &created); err != nil {
		return Order{}, fmt.Errorf("%w: decode response: %v", domain.ErrPaymentGateway, err)
	}

	return Order{ID: created.ID, AmountMinor: created.Amount, Currency: created.Currency, KeyID: g.keyID}, nil
}

// Verify проверяет подпись секретом ключа.
func (g *RazorpayGateway) Verify(proof Proof) error {
	return verifyWithSecret(g.keySecret, proof)
}

// Name возвращает имя шлюза для логов.
func (g *RazorpayGateway) Name() string {
	return "razorpay"
}

var _ Gateway = (*RazorpayGateway)(nil)
