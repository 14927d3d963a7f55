package api

import (
	"net/http"

	"merchant-checkout/internal/product"

	"github.com/gin-gonic/gin"
)

type productResponse struct {
	GTIN        string      `json:"gtin"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       jsonDecimal `json:"price"`
	Currency    string      `json:"currency"`
	ImageURL    string      `json:"image_url"`
}

func newProductResponse(p product.Product) productResponse {
	return productResponse{
		GTIN:        p.GTIN,
		Name:        p.Name,
		Description: p.Description,
		Price:       jsonDecimal(p.Price),
		Currency:    p.Currency,
		ImageURL:    p.ImageURL,
	}
}

type productListResponse struct {
	Products []productResponse `json:"products"`
}

// ListProducts handles GET /products.
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	res := productListResponse{Products: make([]productResponse, 0, len(products))}
	for _, p := range products {
		res.Products = append(res.Products, newProductResponse(p))
	}
	c.JSON(http.StatusOK, res)
}
