package payment

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/govalues/decimal"
)

// FractionDigits is the fixed-point precision the VASP expects for amounts.
const FractionDigits = 6

// State is the closed set of payment-session states this service
// understands. Anything else the gateway reports maps to StateUnknown.
type State string

const (
	StateCreated         State = "CREATED"
	StateAwaitingPayment State = "AWAITING_PAYMENT"
	StateSettled         State = "SETTLED"
	StateExpired         State = "EXPIRED"
	StateCancelled       State = "CANCELLED"
	StateRejected        State = "REJECTED"
	StatePaidOut         State = "PAID_OUT"
	StateRefunded        State = "REFUNDED"
	StateUnknown         State = "UNKNOWN"
)

var stateAliases = map[string]State{
	"created":          StateCreated,
	"awaiting_payment": StateAwaitingPayment,
	"pending":          StateAwaitingPayment,
	"settled":          StateSettled,
	"cleared":          StateSettled,
	"paid":             StateSettled,
	"completed":        StateSettled,
	"expired":          StateExpired,
	"cancelled":        StateCancelled,
	"canceled":         StateCancelled,
	"rejected":         StateRejected,
	"failed":           StateRejected,
	"paid_out":         StatePaidOut,
	"payout":           StatePaidOut,
	"payout_completed": StatePaidOut,
	"refunded":         StateRefunded,
	"refund":           StateRefunded,
	"refund_completed": StateRefunded,
}

// ParseState maps a gateway state string onto State, case-insensitively.
func ParseState(raw string) State {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	if s, ok := stateAliases[key]; ok {
		return s
	}
	return StateUnknown
}

func (s State) Terminal() bool {
	switch s {
	case StateExpired, StateCancelled, StateRejected, StatePaidOut, StateRefunded:
		return true
	}
	return false
}

// Payout and refund are only accepted by the gateway once funds settled.
func (s State) CanPayout() bool { return s == StateSettled }
func (s State) CanRefund() bool { return s == StateSettled }

type WalletLogo struct {
	Image string `json:"image"`
	Alt   string `json:"alt"`
}

type WalletLink struct {
	WalletName string      `json:"walletName"`
	Link       string      `json:"link"`
	Logo       *WalletLogo `json:"logo,omitempty"`
}

// PresentationData is what a wallet app needs to complete the payment.
type PresentationData struct {
	QR          string       `json:"qr"`
	DeepLink    string       `json:"deepLink"`
	WalletLinks []WalletLink `json:"walletLinks"`
}

// Session is the gateway-owned payment entity, as observed by the merchant.
type Session struct {
	ID               string
	State            State
	RawState         string
	ReconciliationID string
	MerchantAddress  string
	Data             PresentationData
	Events           []json.RawMessage
	ChainTxs         []json.RawMessage
}

// Status is the merchant-facing projection of a Session.
type Status struct {
	Status          State             `json:"status"`
	RawStatus       string            `json:"raw_status"`
	MerchantAddress string            `json:"merchant_address"`
	CanPayout       bool              `json:"can_payout"`
	CanRefund       bool              `json:"can_refund"`
	Events          []json.RawMessage `json:"events"`
	ChainTxs        []json.RawMessage `json:"chain_txs"`
}

func (s *Session) Status() Status {
	st := Status{
		Status:          s.State,
		RawStatus:       s.RawState,
		MerchantAddress: s.MerchantAddress,
		CanPayout:       s.State.CanPayout(),
		CanRefund:       s.State.CanRefund(),
		Events:          s.Events,
		ChainTxs:        s.ChainTxs,
	}
	if st.Events == nil {
		st.Events = []json.RawMessage{}
	}
	if st.ChainTxs == nil {
		st.ChainTxs = []json.RawMessage{}
	}
	return st
}

type CreatePaymentRequest struct {
	Amount             decimal.Decimal
	Currency           string
	ProcessingCurrency string
	ExpiresAt          int64
	RedirectURL        string
	ReconciliationID   string
}

// Ack acknowledges an accepted payout or refund with the gateway's status.
type Ack struct {
	StatusCode int
}

// ScaledAmount renders a non-negative amount as an integer with
// FractionDigits implied decimal places.
func ScaledAmount(d decimal.Decimal) (int64, error) {
	if d.Sign() < 0 {
		return 0, fmt.Errorf("amount %s is negative", d)
	}
	r := d.Round(FractionDigits).Pad(FractionDigits)
	if r.Scale() != FractionDigits {
		return 0, fmt.Errorf("amount %s cannot be represented with %d fraction digits", d, FractionDigits)
	}
	coef := r.Coef()
	if coef > math.MaxInt64 {
		return 0, fmt.Errorf("amount %s overflows", d)
	}
	return int64(coef), nil
}
