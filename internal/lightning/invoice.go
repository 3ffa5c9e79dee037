package lightning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dwikikusuma/pos-payments/pkg/logger"
)

// Invoice is a payment request issued by the Lightning node. PaymentHash is
// the only key used to correlate push events with a tracked invoice.
type Invoice struct {
	Serialized  string `json:"serialized"`
	PaymentHash string `json:"paymentHash"`
}

type PriceConverter interface {
	FiatToSatoshis(ctx context.Context, amountFiat float64, currency string) (int64, error)
}

type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, amountSat int64, description string) (Invoice, error)
}

type Request struct {
	AmountFiat  float64
	Currency    string
	PaymentID   string
	Description string
}

type Generated struct {
	Invoice  Invoice
	Satoshis int64
}

var ErrEmptyInvoice = errors.New("node returned an invoice without payment hash")

// Generator prices a fiat amount in satoshis and asks the node for an
// invoice of that size.
type Generator struct {
	prices PriceConverter
	node   InvoiceCreator
	log    *slog.Logger
}

func NewGenerator(prices PriceConverter, node InvoiceCreator, log *slog.Logger) *Generator {
	return &Generator{prices: prices, node: node, log: logger.OrDefault(log)}
}

// Generate returns (nil, nil) when there is nothing to invoice.
func (g *Generator) Generate(ctx context.Context, req Request) (*Generated, error) {
	if req.AmountFiat <= 0 {
		return nil, nil
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	sats, err := g.prices.FiatToSatoshis(ctx, req.AmountFiat, currency)
	if err != nil {
		return nil, err
	}

	inv, err := g.node.CreateInvoice(ctx, sats, describe(req))
	if err != nil {
		return nil, err
	}
	if inv.PaymentHash == "" {
		return nil, ErrEmptyInvoice
	}

	g.log.Info("invoice generated",
		slog.String("payment_hash", inv.PaymentHash),
		slog.Int64("amount_sat", sats),
		slog.String("currency", currency),
	)
	return &Generated{Invoice: inv, Satoshis: sats}, nil
}

func describe(req Request) string {
	if req.Description != "" {
		return req.Description
	}
	if req.PaymentID != "" {
		return req.PaymentID
	}
	return fmt.Sprintf("btc-%s", uuid.NewString())
}
