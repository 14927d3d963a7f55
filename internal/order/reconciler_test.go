package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"merchant-checkout/internal/config"
	"merchant-checkout/internal/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(repo Repository, m *metrics.Metrics) *Reconciler {
	r := NewReconciler(repo, config.Merchant{
		PaymentExpiration: 10 * time.Minute,
		OrphanGracePeriod: 5 * time.Minute,
		ReconcileInterval: time.Millisecond,
	}, m)
	r.now = func() time.Time { return fixedNow }
	return r
}

func TestReconciler_ReconcileOnce(t *testing.T) {
	ctx := context.Background()
	cutoff := fixedNow.Add(-15 * time.Minute)

	t.Run("MarksOverdueOrders", func(t *testing.T) {
		repo := new(MockRepository)
		m := metrics.New(prometheus.NewRegistry())
		a, b := uuid.New(), uuid.New()

		repo.On("ListUnattached", ctx, cutoff).Return([]Order{{ID: a}, {ID: b}}, nil)
		repo.On("MarkOrphaned", ctx, a).Return(true, nil)
		repo.On("MarkOrphaned", ctx, b).Return(false, nil)

		n, err := newTestReconciler(repo, m).ReconcileOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.OrphanedOrders))
		repo.AssertExpectations(t)
	})

	t.Run("ListFails", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListUnattached", ctx, cutoff).Return(nil, errors.New("db down"))

		_, err := newTestReconciler(repo, nil).ReconcileOnce(ctx)
		assert.EqualError(t, err, "db down")
		repo.AssertNotCalled(t, "MarkOrphaned", mock.Anything, mock.Anything)
	})
}

func TestReconciler_RunStopsOnCancel(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListUnattached", mock.Anything, mock.Anything).Return([]Order{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		newTestReconciler(repo, nil).Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
	repo.AssertCalled(t, "ListUnattached", mock.Anything, mock.Anything)
}
