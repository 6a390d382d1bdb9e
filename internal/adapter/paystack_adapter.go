package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/homelet/service-classifieds/pkg/domain"
)

// VerifyResult is the outcome of a gateway-side transaction lookup.
type VerifyResult struct {
	// Succeeded is true only when the gateway reports a completed charge.
	Succeeded bool
	// Amount is the charged amount in major units (e.g. naira).
	Amount decimal.Decimal
	// GatewayStatus is the raw status string reported by the gateway.
	GatewayStatus string
}

// PaymentGateway defines the Anti-Corruption Layer interface for the external
// payment provider. The domain never sees the provider's wire format.
type PaymentGateway interface {
	// InitializeTransaction registers a pending charge with the provider and
	// returns the access code the client uses to open the checkout widget.
	InitializeTransaction(ctx context.Context, email string, amount decimal.Decimal, reference string) (accessCode string, err error)

	// VerifyTransaction asks the provider for the final state of a charge.
	// An unreachable or erroring provider yields ErrGatewayUnavailable and
	// never a success result.
	VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error)
}

// PaystackAdapter talks to the Paystack REST API.
type PaystackAdapter struct {
	baseURL   string
	secretKey string
	client    *http.Client
	logger    *zap.Logger
}

// NewPaystackAdapter creates a Paystack gateway adapter with a bounded
// per-request timeout.
func NewPaystackAdapter(baseURL, secretKey string, timeout time.Duration, logger *zap.Logger) *PaystackAdapter {
	return &PaystackAdapter{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

type paystackInitRequest struct {
	Email     string `json:"email"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

type paystackInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AccessCode string `json:"access_code"`
	} `json:"data"`
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status string `json:"status"`
		Amount int64  `json:"amount"`
	} `json:"data"`
}

// InitializeTransaction registers the charge with Paystack. Amounts are sent
// in minor units (kobo).
func (a *PaystackAdapter) InitializeTransaction(ctx context.Context, email string, amount decimal.Decimal, reference string) (string, error) {
	body := paystackInitRequest{
		Email:     email,
		Amount:    amount.Mul(decimal.NewFromInt(100)).StringFixed(0),
		Reference: reference,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+a.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("paystack initialize unreachable", zap.String("reference", reference), zap.Error(err))
		return "", domain.NewGatewayUnavailableError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewGatewayUnavailableError(err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		a.logger.Warn("paystack initialize server error",
			zap.String("reference", reference),
			zap.Int("status_code", resp.StatusCode),
		)
		return "", domain.NewGatewayUnavailableError(fmt.Errorf("gateway returned %d", resp.StatusCode))
	}

	var parsed paystackInitResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", domain.NewGatewayUnavailableError(err)
	}
	if resp.StatusCode != http.StatusOK || !parsed.Status {
		return "", domain.NewGatewayRejectedError(parsed.Message)
	}

	a.logger.Info("paystack transaction initialized",
		zap.String("reference", reference),
		zap.String("amount", amount.StringFixed(2)),
	)
	return parsed.Data.AccessCode, nil
}

// VerifyTransaction fetches the charge state. Only the "success" gateway
// status maps to a succeeded result.
func (a *PaystackAdapter) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	endpoint := a.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.secretKey)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("paystack verify unreachable", zap.String("reference", reference), zap.Error(err))
		return nil, domain.NewGatewayUnavailableError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewGatewayUnavailableError(err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, domain.NewGatewayUnavailableError(fmt.Errorf("gateway returned %d", resp.StatusCode))
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("Transaction", reference)
	}

	var parsed paystackVerifyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, domain.NewGatewayUnavailableError(err)
	}
	if !parsed.Status {
		return nil, domain.NewGatewayRejectedError(parsed.Message)
	}

	return &VerifyResult{
		Succeeded:     parsed.Data.Status == "success",
		Amount:        decimal.NewFromInt(parsed.Data.Amount).Div(decimal.NewFromInt(100)),
		GatewayStatus: parsed.Data.Status,
	}, nil
}

var _ PaymentGateway = (*PaystackAdapter)(nil)

// MockPaymentGateway is a development/testing implementation of
// PaymentGateway. It approves every transaction without calling out.
type MockPaymentGateway struct {
	logger *zap.Logger

	// FailInitialize forces InitializeTransaction to report the gateway down.
	FailInitialize bool
	// VerifyStatus is the gateway status returned by VerifyTransaction.
	VerifyStatus string
	// VerifyAmount is the amount reported back on verification.
	VerifyAmount decimal.Decimal
}

// NewMockPaymentGateway creates a new mock gateway for development.
func NewMockPaymentGateway(logger *zap.Logger) *MockPaymentGateway {
	return &MockPaymentGateway{logger: logger, VerifyStatus: "success"}
}

// InitializeTransaction simulates registering a charge.
func (m *MockPaymentGateway) InitializeTransaction(ctx context.Context, email string, amount decimal.Decimal, reference string) (string, error) {
	if m.FailInitialize {
		return "", domain.NewGatewayUnavailableError(errors.New("mock gateway down"))
	}
	accessCode := "AC_mock_" + reference[:8]
	m.logger.Info("[MOCK GATEWAY] transaction initialized",
		zap.String("reference", reference),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("email", email),
	)
	return accessCode, nil
}

// VerifyTransaction simulates a charge lookup.
func (m *MockPaymentGateway) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	m.logger.Info("[MOCK GATEWAY] transaction verified",
		zap.String("reference", reference),
		zap.String("status", m.VerifyStatus),
	)
	return &VerifyResult{
		Succeeded:     m.VerifyStatus == "success",
		Amount:        m.VerifyAmount,
		GatewayStatus: m.VerifyStatus,
	}, nil
}

var _ PaymentGateway = (*MockPaymentGateway)(nil)
