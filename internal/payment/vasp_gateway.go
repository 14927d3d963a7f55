package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"merchant-checkout/internal/config"
	"merchant-checkout/internal/logger"
	"merchant-checkout/internal/metrics"

	"go.uber.org/zap"
)

const actionCharge = "CHARGE"

type vaspGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// ----------------- Constructor -----------------

func NewVASPGateway(cfg config.Gateway, m *metrics.Metrics) Gateway {
	if cfg.APIKey == "" {
		logger.L().Warn("VASP API key is empty")
	}

	return &vaspGateway{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: m,
	}
}

// ----------------- Wire types -----------------

type loginRequest struct {
	APIKey string `json:"apiKey"`
}

type loginResponse struct {
	AuthToken string `json:"authToken"`
}

type requestCurrency struct {
	Amount         int64  `json:"amount"`
	FractionDigits int    `json:"fractionDigits"`
	Currency       string `json:"currency"`
}

type paymentScope struct {
	RequestCurrency     requestCurrency `json:"requestCurrency"`
	ProcessingCurrency  string          `json:"processingCurrency"`
	ExpirationTimestamp int64           `json:"expirationTimestamp"`
}

type createPaymentBody struct {
	RedirectURL      string       `json:"redirectUrl"`
	Scope            paymentScope `json:"scope"`
	Action           string       `json:"action"`
	ReconciliationID string       `json:"reconciliationId"`
}

type paymentEnvelope struct {
	Payment struct {
		PaymentID        string            `json:"paymentId"`
		State            string            `json:"state"`
		ReconciliationID string            `json:"reconciliationId"`
		MerchantAddress  string            `json:"merchantAddress"`
		Data             PresentationData  `json:"data"`
		Events           []json.RawMessage `json:"events"`
		ChainTxs         []json.RawMessage `json:"chainTxs"`
	} `json:"payment"`
}

func (e *paymentEnvelope) session() *Session {
	p := e.Payment
	return &Session{
		ID:               p.PaymentID,
		State:            ParseState(p.State),
		RawState:         p.State,
		ReconciliationID: p.ReconciliationID,
		MerchantAddress:  p.MerchantAddress,
		Data:             p.Data,
		Events:           p.Events,
		ChainTxs:         p.ChainTxs,
	}
}

// ----------------- Login -----------------

func (g *vaspGateway) Login(ctx context.Context) (string, error) {
	log := logger.FromCtx(ctx).With(zap.String("operation", "login"))

	body, _, err := g.do(ctx, "login", http.MethodPost, "/auth/login", "", loginRequest{APIKey: g.apiKey})
	if err != nil {
		log.Error("VASP login failed", zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrGatewayAuth, err)
	}

	var res loginResponse
	if err := json.Unmarshal(body, &res); err != nil {
		log.Error("Failed decoding VASP login response", zap.Error(err))
		return "", fmt.Errorf("%w: decode login response: %w", ErrGatewayAuth, err)
	}
	if res.AuthToken == "" {
		log.Error("VASP login returned no token")
		return "", fmt.Errorf("%w: empty auth token", ErrGatewayAuth)
	}

	return res.AuthToken, nil
}

// ----------------- CreatePayment -----------------

func (g *vaspGateway) CreatePayment(ctx context.Context, token string, req CreatePaymentRequest) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("operation", "create_payment"),
		zap.String("reconciliation_id", req.ReconciliationID),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", req.Currency),
	)

	amount, err := ScaledAmount(req.Amount)
	if err != nil {
		log.Error("Invalid payment amount", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGatewayRequest, err)
	}

	processing := req.ProcessingCurrency
	if processing == "" {
		processing = req.Currency
	}

	payload := createPaymentBody{
		RedirectURL: req.RedirectURL,
		Scope: paymentScope{
			RequestCurrency: requestCurrency{
				Amount:         amount,
				FractionDigits: FractionDigits,
				Currency:       req.Currency,
			},
			ProcessingCurrency:  processing,
			ExpirationTimestamp: req.ExpiresAt,
		},
		Action:           actionCharge,
		ReconciliationID: req.ReconciliationID,
	}

	log.Info("Sending payment request to VASP")

	body, _, err := g.do(ctx, "create_payment", http.MethodPost, "/payments", token, payload)
	if err != nil {
		log.Error("VASP payment creation failed", zap.Error(err))
		return nil, err
	}

	var env paymentEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Error("Failed decoding VASP payment response", zap.Error(err))
		return nil, fmt.Errorf("%w: decode payment response: %w", ErrGatewayRequest, err)
	}
	if env.Payment.PaymentID == "" {
		log.Error("VASP payment response has no payment id", zap.ByteString("response", body))
		return nil, fmt.Errorf("%w: payment response has no paymentId", ErrGatewayRequest)
	}

	session := env.session()
	log.Info("VASP payment created",
		zap.String("payment_id", session.ID),
		zap.String("state", session.RawState),
	)
	return session, nil
}

// ----------------- GetPayment -----------------

func (g *vaspGateway) GetPayment(ctx context.Context, token string, paymentID string) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("operation", "get_payment"),
		zap.String("payment_id", paymentID),
	)

	body, _, err := g.do(ctx, "get_payment", http.MethodGet, "/payments/"+url.PathEscape(paymentID), token, nil)
	if err != nil {
		log.Error("VASP payment lookup failed", zap.Error(err))
		return nil, err
	}

	var env paymentEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Error("Failed decoding VASP payment", zap.Error(err))
		return nil, fmt.Errorf("%w: decode payment: %w", ErrGatewayRequest, err)
	}

	session := env.session()
	if session.ID == "" {
		session.ID = paymentID
	}
	if session.State == StateUnknown {
		log.Warn("Unmapped VASP payment state", zap.String("state", session.RawState))
	}
	return session, nil
}

// ----------------- Payout / Refund -----------------

func (g *vaspGateway) Payout(ctx context.Context, token string, paymentID string) (*Ack, error) {
	return g.trigger(ctx, "payout", token, paymentID)
}

func (g *vaspGateway) Refund(ctx context.Context, token string, paymentID string) (*Ack, error) {
	return g.trigger(ctx, "refund", token, paymentID)
}

func (g *vaspGateway) trigger(ctx context.Context, operation, token, paymentID string) (*Ack, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("operation", operation),
		zap.String("payment_id", paymentID),
	)

	path := fmt.Sprintf("/payments/%s/%s", url.PathEscape(paymentID), operation)
	_, status, err := g.do(ctx, operation, http.MethodPost, path, token, nil)
	if err != nil {
		log.Error("VASP trigger failed", zap.Error(err))
		return nil, err
	}

	log.Info("VASP trigger accepted", zap.Int("status", status))
	return &Ack{StatusCode: status}, nil
}

// ----------------- Transport -----------------

// do performs one call and returns the body and status of a 2xx response.
// Non-2xx answers become *RequestError; transport failures wrap
// ErrGatewayRequest.
func (g *vaspGateway) do(ctx context.Context, operation, method, path, token string, payload any) ([]byte, int, error) {
	var reqBody io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: marshal %s request: %w", ErrGatewayRequest, operation, err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build %s request: %w", ErrGatewayRequest, operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if reqID := logger.RequestIDFrom(ctx); reqID != "" {
		req.Header.Set(logger.RequestIDHeader, reqID)
	}

	timer := metrics.StartTimer()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.metrics.ObserveGateway(operation, 0, timer.Duration())
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrGatewayRequest, operation, err)
	}
	defer resp.Body.Close()
	g.metrics.ObserveGateway(operation, resp.StatusCode, timer.Duration())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read %s response: %w", ErrGatewayRequest, operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.FromCtx(ctx).Error("VASP returned non-success status",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", body),
		)
		return nil, 0, &RequestError{Operation: operation, StatusCode: resp.StatusCode, Body: body}
	}

	return body, resp.StatusCode, nil
}

// AsRequestError extracts the upstream HTTP failure from err, if any.
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}
