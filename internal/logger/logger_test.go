package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Run("Production", func(t *testing.T) {
		l, err := New("production", "warn")
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("DevelopmentDefaultsToInfo", func(t *testing.T) {
		l, err := New("development", "")
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("UnknownLevel", func(t *testing.T) {
		_, err := New("development", "chatty")
		assert.Error(t, err)
	})
}

func TestInit(t *testing.T) {
	restore := Replace(nil)
	defer restore()

	require.NoError(t, Init("development", "debug"))
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, Init("development", "chatty"))
}

func TestL_FallsBackToEnv(t *testing.T) {
	restore := Replace(nil)
	defer restore()

	t.Setenv("APP_ENV", "test")
	t.Setenv("LOG_LEVEL", "error")

	l := L()
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zapcore.WarnLevel))
	assert.Same(t, l, L())
	assert.NotNil(t, Named("gateway"))
}

func TestReplace(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	original := L()

	restore := Replace(zap.New(core))
	L().Info("replaced")
	restore()

	assert.Equal(t, 1, observed.FilterMessage("replaced").Len())
	assert.Same(t, original, L())
}

func TestContextFunctions(t *testing.T) {
	ctx := context.Background()
	reqID := "test-request-id-123"

	newCtx := WithRequestID(ctx, reqID)
	assert.Equal(t, reqID, RequestIDFrom(newCtx))
	assert.Equal(t, "", RequestIDFrom(ctx))
	assert.Same(t, ctx, With(ctx))
}

func TestFromCtx(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	defer Replace(zap.New(core))()

	t.Run("WithRequestID", func(t *testing.T) {
		FromCtx(WithRequestID(context.Background(), "req-abc-123")).Info("checkout started")

		logs := observed.TakeAll()
		require.Len(t, logs, 1)
		assert.Equal(t, "checkout started", logs[0].Message)
		assert.Equal(t, "req-abc-123", logs[0].ContextMap()["request_id"])
	})

	t.Run("WithoutRequestID", func(t *testing.T) {
		FromCtx(context.Background()).Info("checkout started")

		logs := observed.TakeAll()
		require.Len(t, logs, 1)
		_, ok := logs[0].ContextMap()["request_id"]
		assert.False(t, ok)
	})

	t.Run("AttachedFieldsAccumulate", func(t *testing.T) {
		ctx := With(context.Background(), zap.String("order_id", "o-1"))
		ctx = With(WithRequestID(ctx, "req-1"), zap.String("payment_id", "pay-1"))

		FromCtx(ctx).Info("payment created")

		logs := observed.TakeAll()
		require.Len(t, logs, 1)
		fields := logs[0].ContextMap()
		assert.Equal(t, "o-1", fields["order_id"])
		assert.Equal(t, "pay-1", fields["payment_id"])
		assert.Equal(t, "req-1", fields["request_id"])
	})
}

func TestSync(t *testing.T) {
	assert.NotPanics(t, func() {
		Sync()
	})
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		seen = RequestIDFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("Generates ID when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
		assert.Equal(t, w.Header().Get(RequestIDHeader), seen)
	})

	t.Run("Preserves existing ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "test-id-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "test-id-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "test-id-123", seen)
	})
}
