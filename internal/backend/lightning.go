package backend

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/dwikikusuma/pos-payments/internal/lightning"
)

const satsPerBitcoin = 100_000_000

var ErrNoPrice = errors.New("bitcoin price unavailable")

type priceResponse struct {
	Price decimal.Decimal `json:"price"`
}

// FiatToSatoshis converts a major-unit fiat amount using the backend's
// bitcoin price for currency, rounding to the nearest satoshi.
func (c *Client) FiatToSatoshis(ctx context.Context, amountFiat float64, currency string) (int64, error) {
	var out priceResponse
	if err := c.do(ctx, "GET", "/bitcoin/price?currency="+url.QueryEscape(currency), nil, &out); err != nil {
		return 0, err
	}
	if !out.Price.IsPositive() {
		return 0, fmt.Errorf("%w for %s", ErrNoPrice, currency)
	}
	return SatoshisFor(decimal.NewFromFloat(amountFiat), out.Price), nil
}

// SatoshisFor prices amount at price (fiat per bitcoin).
func SatoshisFor(amount, price decimal.Decimal) int64 {
	return amount.Div(price).Mul(decimal.NewFromInt(satsPerBitcoin)).Round(0).IntPart()
}

type createInvoiceRequest struct {
	AmountSat   int64  `json:"amountSat"`
	Description string `json:"description"`
}

func (c *Client) CreateInvoice(ctx context.Context, amountSat int64, description string) (lightning.Invoice, error) {
	var out lightning.Invoice
	err := c.do(ctx, "POST", "/wallet/invoices", createInvoiceRequest{AmountSat: amountSat, Description: description}, &out)
	return out, err
}
