package order

import (
	"errors"
	"fmt"
	"time"

	"merchant-checkout/internal/payment"
	"merchant-checkout/internal/product"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

var (
	ErrInvalidItems    = errors.New("invalid order items")
	ErrInvalidProduct  = errors.New("invalid product")
	ErrOrderNotFound   = errors.New("order not found")
	ErrAlreadyAttached = errors.New("order already has a payment reference")
)

// Stage tracks the two-phase create-then-attach lifecycle of an order.
type Stage string

const (
	StagePendingAttachment Stage = "PENDING_ATTACHMENT"
	StageAttached          Stage = "ATTACHED"
	StageOrphaned          Stage = "ORPHANED"
)

type Item struct {
	GTIN      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal is UnitPrice × Quantity.
func (i Item) Subtotal() (decimal.Decimal, error) {
	qty, err := decimal.New(int64(i.Quantity), 0)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return i.UnitPrice.Mul(qty)
}

type Order struct {
	ID               uuid.UUID
	Items            []Item
	TotalPrice       decimal.Decimal
	Currency         string
	CreatedAt        time.Time
	PaymentReference *string
	Stage            Stage
	StageChangedAt   time.Time
}

func (o *Order) Attached() bool {
	return o.PaymentReference != nil && *o.PaymentReference != ""
}

// ItemRequest is one requested cart line.
type ItemRequest struct {
	GTIN     string `json:"gtin"`
	Quantity int    `json:"quantity"`
}

func validateItems(items []ItemRequest) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidItems)
	}
	for i, it := range items {
		if it.GTIN == "" {
			return fmt.Errorf("%w: item %d has no gtin", ErrInvalidItems, i)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: item %d has quantity %d", ErrInvalidItems, i, it.Quantity)
		}
	}
	return nil
}

// newOrder snapshots catalog prices into a fresh pending order.
func newOrder(items []ItemRequest, catalog map[string]product.Product, currency string, now time.Time) (*Order, error) {
	o := &Order{
		ID:             uuid.New(),
		Items:          make([]Item, 0, len(items)),
		TotalPrice:     decimal.Zero,
		Currency:       currency,
		CreatedAt:      now,
		Stage:          StagePendingAttachment,
		StageChangedAt: now,
	}

	for _, req := range items {
		p, ok := catalog[req.GTIN]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidProduct, req.GTIN)
		}
		item := Item{GTIN: req.GTIN, Quantity: req.Quantity, UnitPrice: p.Price}
		sub, err := item.Subtotal()
		if err != nil {
			return nil, fmt.Errorf("%w: subtotal for %s: %w", ErrInvalidItems, req.GTIN, err)
		}
		total, err := o.TotalPrice.Add(sub)
		if err != nil {
			return nil, fmt.Errorf("%w: order total: %w", ErrInvalidItems, err)
		}
		o.TotalPrice = total
		o.Items = append(o.Items, item)
	}

	// The gateway takes the total as a fixed-point int64.
	if _, err := payment.ScaledAmount(o.TotalPrice); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidItems, err)
	}

	return o, nil
}

// CheckoutResult is what a wallet app needs to start paying for an order.
type CheckoutResult struct {
	OrderID     uuid.UUID
	QR          string
	DeepLink    string
	WalletLinks []payment.WalletLink
}

type ProductOrder struct {
	Quantity int
	Product  product.Product
}

// Details combines the stored order with the gateway's live status.
type Details struct {
	Order         *Order
	Products      []ProductOrder
	PaymentStatus payment.Status
}
