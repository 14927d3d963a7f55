package order

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"merchant-checkout/internal/config"
	"merchant-checkout/internal/logger"
	"merchant-checkout/internal/metrics"
	"merchant-checkout/internal/payment"
	"merchant-checkout/internal/product"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Settings are the merchant-side parameters of every payment request.
type Settings struct {
	PublicURL          string
	Currency           string
	ProcessingCurrency string
	PaymentExpiration  time.Duration
}

func SettingsFromConfig(cfg config.Merchant) Settings {
	return Settings{
		PublicURL:          cfg.PublicURL,
		Currency:           cfg.SettlementCurrency,
		ProcessingCurrency: cfg.SettlementCurrency,
		PaymentExpiration:  cfg.PaymentExpiration,
	}
}

type Service interface {
	Checkout(ctx context.Context, items []ItemRequest) (*CheckoutResult, error)
	OrderDetails(ctx context.Context, id uuid.UUID) (*Details, error)
	PaymentStatus(ctx context.Context, id uuid.UUID) (*payment.Status, error)
	ListOrphaned(ctx context.Context) ([]Order, error)
}

type service struct {
	repo     Repository
	products product.Service
	gateway  payment.Gateway
	settings Settings
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(
	repo Repository,
	products product.Service,
	gateway payment.Gateway,
	settings Settings,
	m *metrics.Metrics,
) Service {
	return &service{
		repo:     repo,
		products: products,
		gateway:  gateway,
		settings: settings,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *service) Checkout(ctx context.Context, items []ItemRequest) (*CheckoutResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Checkout"),
		zap.Int("item_count", len(items)),
	)

	if err := validateItems(items); err != nil {
		log.Warn("rejected checkout items", zap.Error(err))
		s.metrics.ObserveCheckout("invalid")
		return nil, err
	}

	gtins := make([]string, 0, len(items))
	for _, it := range items {
		gtins = append(gtins, it.GTIN)
	}

	catalog, err := s.products.Resolve(ctx, gtins)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			s.metrics.ObserveCheckout("invalid")
			return nil, fmt.Errorf("%w: %w", ErrInvalidProduct, err)
		}
		s.metrics.ObserveCheckout("error")
		return nil, err
	}

	o, err := newOrder(items, catalog, s.settings.Currency, s.now().UTC())
	if err != nil {
		s.metrics.ObserveCheckout("invalid")
		return nil, err
	}
	orderField := zap.String("order_id", o.ID.String())
	ctx = logger.With(ctx, orderField)
	log = log.With(orderField)

	if err := s.repo.Create(ctx, o); err != nil {
		log.Error("failed to persist order", zap.Error(err))
		s.metrics.ObserveCheckout("error")
		return nil, err
	}

	// From here on any failure leaves the order in PENDING_ATTACHMENT for
	// the reconciler. The session expires relative to CreatedAt so it is
	// dead before the reconciler cutoff.
	token, err := s.gateway.Login(ctx)
	if err != nil {
		log.Error("gateway login failed, order left unattached", zap.Error(err))
		s.metrics.ObserveCheckout("gateway_error")
		return nil, err
	}

	redirect := s.redirectURL(o.ID)
	session, err := s.gateway.CreatePayment(ctx, token, payment.CreatePaymentRequest{
		Amount:             o.TotalPrice,
		Currency:           o.Currency,
		ProcessingCurrency: s.settings.ProcessingCurrency,
		ExpiresAt:          o.CreatedAt.Add(s.settings.PaymentExpiration).Unix(),
		RedirectURL:        redirect,
		ReconciliationID:   o.ID.String(),
	})
	if err != nil {
		log.Error("payment session creation failed, order left unattached", zap.Error(err))
		s.metrics.ObserveCheckout("gateway_error")
		return nil, err
	}

	if err := s.repo.AttachPaymentReference(ctx, o.ID, session.ID); err != nil {
		log.Error("failed to attach payment reference",
			zap.String("payment_id", session.ID),
			zap.Error(err),
		)
		s.metrics.ObserveCheckout("error")
		return nil, err
	}

	log.Info("checkout completed",
		zap.String("payment_id", session.ID),
		zap.String("total", o.TotalPrice.String()),
		zap.String("currency", o.Currency),
	)
	s.metrics.ObserveCheckout("success")

	return &CheckoutResult{
		OrderID:     o.ID,
		QR:          session.Data.QR,
		DeepLink:    session.Data.DeepLink,
		WalletLinks: withRedirect(session.Data.WalletLinks, redirect),
	}, nil
}

func (s *service) redirectURL(id uuid.UUID) string {
	return s.settings.PublicURL + "order/" + id.String()
}

// withRedirect returns copies of links carrying the merchant redirect.
func withRedirect(links []payment.WalletLink, redirect string) []payment.WalletLink {
	out := make([]payment.WalletLink, len(links))
	for i, wl := range links {
		sep := "&"
		if !strings.Contains(wl.Link, "?") {
			sep = "?"
		}
		wl.Link = wl.Link + sep + "demo=false&redirectUrl=" + url.QueryEscape(redirect)
		out[i] = wl
	}
	return out
}

// attachedOrder loads an order that has a payment reference. Unattached
// orders are reported as not found without touching the gateway.
func (s *service) attachedOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Attached() {
		logger.FromCtx(ctx).Warn("order has no payment reference",
			zap.String("order_id", id.String()),
			zap.String("stage", string(o.Stage)),
		)
		return nil, fmt.Errorf("%w: %s has no payment reference", ErrOrderNotFound, id)
	}
	return o, nil
}

func (s *service) session(ctx context.Context, o *Order) (*payment.Session, error) {
	token, err := s.gateway.Login(ctx)
	if err != nil {
		return nil, err
	}
	return s.gateway.GetPayment(ctx, token, *o.PaymentReference)
}

func (s *service) OrderDetails(ctx context.Context, id uuid.UUID) (*Details, error) {
	o, err := s.attachedOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	session, err := s.session(ctx, o)
	if err != nil {
		return nil, err
	}

	gtins := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		gtins = append(gtins, it.GTIN)
	}
	catalog, err := s.products.Resolve(ctx, gtins)
	if err != nil {
		return nil, err
	}

	products := make([]ProductOrder, 0, len(o.Items))
	for _, it := range o.Items {
		products = append(products, ProductOrder{Quantity: it.Quantity, Product: catalog[it.GTIN]})
	}

	return &Details{
		Order:         o,
		Products:      products,
		PaymentStatus: session.Status(),
	}, nil
}

func (s *service) PaymentStatus(ctx context.Context, id uuid.UUID) (*payment.Status, error) {
	o, err := s.attachedOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	session, err := s.session(ctx, o)
	if err != nil {
		return nil, err
	}

	st := session.Status()
	return &st, nil
}

func (s *service) ListOrphaned(ctx context.Context) ([]Order, error) {
	return s.repo.ListOrphaned(ctx)
}
