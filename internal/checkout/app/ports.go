package app

import (
	"context"

	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
	"github.com/dwikikusuma/pos-payments/internal/lightning"
)

type OrderAPI interface {
	CreateOrder(ctx context.Context, order domain.OrderPayload) (domain.Created, error)
	UpdateOrder(ctx context.Context, orderID string, order domain.OrderPayload) error
}

type TicketAPI interface {
	CreateTicket(ctx context.Context, ticket domain.TicketPayload) (domain.Created, error)
}

type PaymentAPI interface {
	CreatePayment(ctx context.Context, payment domain.PaymentPayload) (domain.Created, error)
	LinkPaymentToTicket(ctx context.Context, paymentID, ticketID string) error
	GetPaymentCurrencyByID(ctx context.Context, currencyID string) (domain.Currency, error)
}

type ReferenceReader interface {
	PaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
	BaseCurrency(ctx context.Context) (domain.Currency, error)
}

type InvoiceGenerator interface {
	Generate(ctx context.Context, req lightning.Request) (*lightning.Generated, error)
}

// PaymentEvents is the push channel as seen by the checkout flows.
type PaymentEvents interface {
	SetInvoiceHash(hash string)
	OnPayment(l func(domain.PaymentEvent)) (unsubscribe func())
}

type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelDanger  = "danger"
)

// Notifier delivers the transient toast-style message of a flow.
type Notifier interface {
	Notify(n Notification)
}
