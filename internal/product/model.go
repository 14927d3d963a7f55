package product

import (
	"errors"

	"github.com/govalues/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// Product is a catalog entry keyed by its GTIN.
type Product struct {
	GTIN        string
	Name        string
	Description string
	Price       decimal.Decimal
	Currency    string
	ImageURL    string
}
