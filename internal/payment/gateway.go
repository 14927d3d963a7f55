package payment

import "context"

// Gateway is the outbound contract with the payment VASP. Every call but
// Login needs the bearer token Login returned.
type Gateway interface {
	Login(ctx context.Context) (string, error)
	CreatePayment(ctx context.Context, token string, req CreatePaymentRequest) (*Session, error)
	GetPayment(ctx context.Context, token string, paymentID string) (*Session, error)
	Payout(ctx context.Context, token string, paymentID string) (*Ack, error)
	Refund(ctx context.Context, token string, paymentID string) (*Ack, error)
}
