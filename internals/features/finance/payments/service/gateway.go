package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"hostelku_backend/internals/features/finance/payments/model"
)

/* =========================================================
   Gateway protocol

   Outbound requests and inbound callbacks are both signed
   with HMAC-SHA256 over payload+timestamp using the shared
   secret. Headers: x-client-id, x-timestamp, x-signature.
========================================================= */

const (
	HeaderClientID  = "x-client-id"
	HeaderTimestamp = "x-timestamp"
	HeaderSignature = "x-signature"

	// Callbacks older than this are rejected as stale.
	callbackFreshness = 5 * time.Minute
)

type CreateOrderRequest struct {
	OrderID     string `json:"order_id"`
	AmountINR   int    `json:"amount"`
	Currency    string `json:"currency"`
	StudentRef  string `json:"customer_ref"`
	Description string `json:"description,omitempty"`
}

type CreateOrderResponse struct {
	OrderID     string `json:"order_id"`
	PaymentURL  string `json:"payment_url"`
	OrderStatus string `json:"order_status"`
}

// OrderStatus is the gateway's view of an order, used by reconciliation.
type OrderStatus struct {
	OrderID       string `json:"order_id"`
	StatusCode    string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	SettlementRef string `json:"settlement_ref,omitempty"`
	AmountINR     int    `json:"amount"`
}

type GatewayAPI interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error)
	FetchOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error)
}

/* =========================================================
   Signing
========================================================= */

// SignPayload computes hex(HMAC-SHA256(payload + timestamp, secret)).
func SignPayload(secret string, payload []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	mac.Write([]byte(timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCallback recomputes the signature over the raw body using the
// callback's declared timestamp. Fails closed: missing signature, bad
// signature and stale timestamp are all ErrSignatureInvalid.
func VerifyCallback(secret string, rawBody []byte, timestamp, signature string, now time.Time) error {
	if signature == "" || timestamp == "" {
		return ErrSignatureInvalid
	}
	ms, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	sent := time.UnixMilli(ms)
	age := now.Sub(sent)
	if age < 0 {
		age = -age
	}
	if age > callbackFreshness {
		return ErrSignatureInvalid
	}
	want := SignPayload(secret, rawBody, timestamp)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrSignatureInvalid
	}
	return nil
}

/* =========================================================
   Order id

   The correlation key shared with the gateway; domain
   prefix + creation time + random suffix. Never a DB PK.
========================================================= */

func NewOrderID(domain model.LedgerDomain) string {
	prefix := "PAY"
	switch domain {
	case model.LedgerDomainElectricity:
		prefix = "ELEC"
	case model.LedgerDomainHostelFee:
		prefix = "HFEE"
	case model.LedgerDomainCautionDeposit:
		prefix = "CAUT"
	case model.LedgerDomainAdditionalFee:
		prefix = "ADDL"
	}
	var b [4]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(b[:]))
}

/* =========================================================
   HTTP client (fasthttp agent)
========================================================= */

type GatewayConfig struct {
	BaseURL  string
	ClientID string
	Secret   string
}

type HTTPGatewayClient struct {
	cfg GatewayConfig
}

func NewHTTPGatewayClient(cfg GatewayConfig) *HTTPGatewayClient {
	return &HTTPGatewayClient{cfg: cfg}
}

func (g *HTTPGatewayClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	if req.Currency == "" {
		req.Currency = model.CurrencyINR
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var out CreateOrderResponse
	if err := g.post("/orders", payload, &out); err != nil {
		return nil, err
	}
	if out.PaymentURL == "" {
		return nil, fmt.Errorf("%w: empty payment url for order %s", ErrGatewayUnavailable, req.OrderID)
	}
	return &out, nil
}

func (g *HTTPGatewayClient) FetchOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	payload, err := json.Marshal(fiber.Map{"order_id": orderID})
	if err != nil {
		return nil, err
	}
	var out OrderStatus
	if err := g.post("/orders/status", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGatewayClient) post(path string, payload []byte, out any) error {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)

	agent := fiber.Post(g.cfg.BaseURL + path)
	agent.ContentType(fiber.MIMEApplicationJSON)
	agent.Set(HeaderClientID, g.cfg.ClientID)
	agent.Set(HeaderTimestamp, ts)
	agent.Set(HeaderSignature, SignPayload(g.cfg.Secret, payload, ts))
	agent.Body(payload)
	agent.Timeout(10 * time.Second)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, errs[0])
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("%w: gateway responded %d", ErrGatewayUnavailable, code)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: bad gateway response: %v", ErrGatewayUnavailable, err)
	}
	return nil
}
