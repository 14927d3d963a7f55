package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"merchant-checkout/internal/logger"
	"merchant-checkout/internal/order"
	"merchant-checkout/internal/payment"
	"merchant-checkout/internal/product"

	"github.com/gin-gonic/gin"
	"github.com/govalues/decimal"
	"go.uber.org/zap"
)

const unknownOrder = "Unknown order"

var errInvalidPaymentID = errors.New("invalid payment id")

// errorStatuses is checked in order with errors.Is, so wrapped errors map
// to the status of their sentinel.
var errorStatuses = []struct {
	err    error
	status int
}{
	{order.ErrInvalidItems, http.StatusBadRequest},
	{order.ErrInvalidProduct, http.StatusBadRequest},
	{product.ErrProductNotFound, http.StatusNotFound},
	{errInvalidPaymentID, http.StatusBadRequest},
	{order.ErrAlreadyAttached, http.StatusConflict},
	{payment.ErrGatewayAuth, http.StatusBadGateway},
	{payment.ErrGatewayRequest, http.StatusBadGateway},
}

// jsonDecimal renders money as a JSON number with at least one fraction
// digit, e.g. 20.0 or 79.99.
type jsonDecimal decimal.Decimal

func (j jsonDecimal) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(j).Trim(1).Pad(1).String()), nil
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	products product.Service
	orders   order.Service
	payments payment.Service
	db       Pinger
}

func NewHandler(products product.Service, orders order.Service, payments payment.Service, db Pinger) *Handler {
	return &Handler{
		products: products,
		orders:   orders,
		payments: payments,
		db:       db,
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	log := logger.FromCtx(c.Request.Context())
	_ = c.Error(err)

	if errors.Is(err, order.ErrOrderNotFound) {
		c.String(http.StatusNotFound, unknownOrder)
		return
	}

	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			if e.status >= http.StatusInternalServerError {
				log.Error("upstream failure", zap.Error(err))
			}
			c.JSON(e.status, gin.H{"error": err.Error()})
			return
		}
	}

	log.Error("error processing request", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// handleGatewayPassThrough echoes the gateway's HTTP status (and JSON body,
// when it has one) back to the caller. Auth failures are never passed
// through.
func (h *Handler) handleGatewayPassThrough(c *gin.Context, err error) {
	reqErr, ok := payment.AsRequestError(err)
	if !ok || errors.Is(err, payment.ErrGatewayAuth) {
		h.handleError(c, err)
		return
	}

	_ = c.Error(err)
	logger.FromCtx(c.Request.Context()).Warn("gateway rejected request",
		zap.String("operation", reqErr.Operation),
		zap.Int("status", reqErr.StatusCode),
	)

	if json.Valid(reqErr.Body) {
		c.Data(reqErr.StatusCode, "application/json", reqErr.Body)
		return
	}
	c.JSON(reqErr.StatusCode, gin.H{"error": reqErr.Error()})
}

func (h *Handler) Health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			logger.FromCtx(c.Request.Context()).Error("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "UNAVAILABLE"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
