package api

import (
	"context"
	"fmt"
	"net/http"

	"merchant-checkout/internal/payment"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Payout handles POST /payments/:payment_id/payout.
func (h *Handler) Payout(c *gin.Context) {
	h.trigger(c, h.payments.Payout)
}

// Refund handles POST /payments/:payment_id/refund.
func (h *Handler) Refund(c *gin.Context) {
	h.trigger(c, h.payments.Refund)
}

func (h *Handler) trigger(c *gin.Context, fn func(ctx context.Context, paymentID string) (*payment.Ack, error)) {
	raw := c.Param("payment_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.handleError(c, fmt.Errorf("%w: %q", errInvalidPaymentID, raw))
		return
	}

	ack, err := fn(c.Request.Context(), id.String())
	if err != nil {
		h.handleGatewayPassThrough(c, err)
		return
	}

	status := http.StatusOK
	if ack != nil && ack.StatusCode != 0 {
		status = ack.StatusCode
	}
	c.JSON(status, gin.H{"status": "OK"})
}
