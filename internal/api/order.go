package api

import (
	"net/http"
	"time"

	"merchant-checkout/internal/order"
	"merchant-checkout/internal/payment"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type checkoutRequest struct {
	Items []order.ItemRequest `json:"items" binding:"required"`
}

type checkoutResponse struct {
	OrderID     string               `json:"order_id"`
	QR          string               `json:"qr"`
	DeepLink    string               `json:"deepLink"`
	WalletLinks []payment.WalletLink `json:"walletLinks"`
}

type productOrderResponse struct {
	Quantity int             `json:"quantity"`
	Product  productResponse `json:"product"`
}

type orderDetailsResponse struct {
	OrderID              string                 `json:"order_id"`
	CreatedAt            time.Time              `json:"created_at"`
	VASPPaymentReference string                 `json:"vasp_payment_reference"`
	TotalPrice           jsonDecimal            `json:"total_price"`
	Currency             string                 `json:"currency"`
	Products             []productOrderResponse `json:"products"`
	PaymentStatus        payment.Status         `json:"payment_status"`
}

type orphanedOrderResponse struct {
	OrderID        string      `json:"order_id"`
	Stage          order.Stage `json:"stage"`
	TotalPrice     jsonDecimal `json:"total_price"`
	Currency       string      `json:"currency"`
	CreatedAt      time.Time   `json:"created_at"`
	StageChangedAt time.Time   `json:"stage_changed_at"`
}

// Checkout handles POST /payments.
func (h *Handler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.orders.Checkout(c.Request.Context(), req.Items)
	if err != nil {
		h.handleError(c, err)
		return
	}

	links := res.WalletLinks
	if links == nil {
		links = []payment.WalletLink{}
	}
	c.JSON(http.StatusOK, checkoutResponse{
		OrderID:     res.OrderID.String(),
		QR:          res.QR,
		DeepLink:    res.DeepLink,
		WalletLinks: links,
	})
}

// orderID parses the :order_id path segment. Anything that is not a UUID
// cannot name an order.
func (h *Handler) orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		c.String(http.StatusNotFound, unknownOrder)
		return uuid.Nil, false
	}
	return id, true
}

// GetOrder handles GET /orders/:order_id.
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	d, err := h.orders.OrderDetails(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	res := orderDetailsResponse{
		OrderID:       d.Order.ID.String(),
		CreatedAt:     d.Order.CreatedAt,
		TotalPrice:    jsonDecimal(d.Order.TotalPrice),
		Currency:      d.Order.Currency,
		Products:      make([]productOrderResponse, 0, len(d.Products)),
		PaymentStatus: d.PaymentStatus,
	}
	if d.Order.PaymentReference != nil {
		res.VASPPaymentReference = *d.Order.PaymentReference
	}
	for _, po := range d.Products {
		res.Products = append(res.Products, productOrderResponse{
			Quantity: po.Quantity,
			Product:  newProductResponse(po.Product),
		})
	}

	c.JSON(http.StatusOK, res)
}

// GetOrderPayment handles GET /orders/:order_id/payment.
func (h *Handler) GetOrderPayment(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	st, err := h.orders.PaymentStatus(c.Request.Context(), id)
	if err != nil {
		h.handleGatewayPassThrough(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ListOrphanedOrders handles GET /admin/orders/orphaned.
func (h *Handler) ListOrphanedOrders(c *gin.Context) {
	orders, err := h.orders.ListOrphaned(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	res := make([]orphanedOrderResponse, 0, len(orders))
	for _, o := range orders {
		res = append(res, orphanedOrderResponse{
			OrderID:        o.ID.String(),
			Stage:          o.Stage,
			TotalPrice:     jsonDecimal(o.TotalPrice),
			Currency:       o.Currency,
			CreatedAt:      o.CreatedAt,
			StageChangedAt: o.StageChangedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"orders": res})
}
