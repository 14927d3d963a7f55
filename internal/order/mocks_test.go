package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"merchant-checkout/internal/payment"
	"merchant-checkout/internal/product"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, o *Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockRepository) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) AttachPaymentReference(ctx context.Context, id uuid.UUID, ref string) error {
	return m.Called(ctx, id, ref).Error(0)
}

func (m *MockRepository) ListUnattached(ctx context.Context, olderThan time.Time) ([]Order, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Order), args.Error(1)
}

func (m *MockRepository) ListOrphaned(ctx context.Context) ([]Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Order), args.Error(1)
}

func (m *MockRepository) MarkOrphaned(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) List(ctx context.Context) ([]product.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]product.Product), args.Error(1)
}

func (m *MockProductService) Get(ctx context.Context, gtin string) (*product.Product, error) {
	args := m.Called(ctx, gtin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) Resolve(ctx context.Context, gtins []string) (map[string]product.Product, error) {
	args := m.Called(ctx, gtins)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]product.Product), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Login(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreatePayment(ctx context.Context, token string, req payment.CreatePaymentRequest) (*payment.Session, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Session), args.Error(1)
}

func (m *MockGateway) GetPayment(ctx context.Context, token string, paymentID string) (*payment.Session, error) {
	args := m.Called(ctx, token, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Session), args.Error(1)
}

func (m *MockGateway) Payout(ctx context.Context, token string, paymentID string) (*payment.Ack, error) {
	args := m.Called(ctx, token, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Ack), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, token string, paymentID string) (*payment.Ack, error) {
	args := m.Called(ctx, token, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Ack), args.Error(1)
}

// --- In-memory fakes for concurrent checkouts ---

type memoryRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*Order
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{orders: map[uuid.UUID]*Order{}}
}

func (r *memoryRepository) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return fmt.Errorf("duplicate order id %s", o.ID)
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id uuid.UUID) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memoryRepository) AttachPaymentReference(_ context.Context, id uuid.UUID, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.PaymentReference != nil || o.Stage != StagePendingAttachment {
		return ErrAlreadyAttached
	}
	o.PaymentReference = &ref
	o.Stage = StageAttached
	return nil
}

func (r *memoryRepository) ListUnattached(context.Context, time.Time) ([]Order, error) {
	return nil, nil
}

func (r *memoryRepository) ListOrphaned(context.Context) ([]Order, error) {
	return nil, nil
}

func (r *memoryRepository) MarkOrphaned(context.Context, uuid.UUID) (bool, error) {
	return false, nil
}

func (r *memoryRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type stubGateway struct {
	payment.Gateway
}

func (stubGateway) Login(context.Context) (string, error) { return "tok", nil }

func (stubGateway) CreatePayment(_ context.Context, _ string, req payment.CreatePaymentRequest) (*payment.Session, error) {
	return &payment.Session{
		ID:               "pay-" + req.ReconciliationID,
		State:            payment.StateAwaitingPayment,
		ReconciliationID: req.ReconciliationID,
	}, nil
}

type stubCatalog struct {
	product.Service
	products map[string]product.Product
}

func (c stubCatalog) Resolve(_ context.Context, gtins []string) (map[string]product.Product, error) {
	out := map[string]product.Product{}
	for _, g := range gtins {
		p, ok := c.products[g]
		if !ok {
			return nil, fmt.Errorf("%w: %s", product.ErrProductNotFound, g)
		}
		out[g] = p
	}
	return out, nil
}
