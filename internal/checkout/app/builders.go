package app

import (
	"strconv"
	"time"

	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
)

const DefaultWaiter = "Vendedor"

// isoMillis matches the millisecond UTC layout the backend stores for orders.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Builder constructs the backend payloads. The zero value uses time.Now and
// DefaultWaiter.
type Builder struct {
	Now            func() time.Time
	WaiterFallback string
}

func (b Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b Builder) BuildOrderPayload(user domain.User, total float64) domain.OrderPayload {
	waiter := user.Name
	if waiter == "" {
		waiter = b.WaiterFallback
	}
	if waiter == "" {
		waiter = DefaultWaiter
	}
	return domain.OrderPayload{
		UserID:    user.UserID,
		TableID:   nil,
		Waiter:    waiter,
		Status:    domain.OrderStatusPaid,
		Total:     total,
		CreatedAt: b.now().UTC().Format(isoMillis),
	}
}

// BuildTicketPayload stamps the ticket with epoch milliseconds, unlike the
// order which carries an ISO timestamp.
func (b Builder) BuildTicketPayload(user domain.User, orderID string, total float64) domain.TicketPayload {
	return domain.TicketPayload{
		OrderID:     orderID,
		UserID:      user.UserID,
		TicketDate:  strconv.FormatInt(b.now().UnixMilli(), 10),
		Status:      domain.TicketStatusOpen,
		TotalAmount: total,
		Notes:       "",
	}
}

type PaymentInput struct {
	MethodID      string
	CurrencyID    string
	Amount        float64
	TransactionID string
}

func BuildPaymentPayload(in PaymentInput) domain.PaymentPayload {
	return domain.PaymentPayload{
		MethodID:      in.MethodID,
		CurrencyID:    in.CurrencyID,
		TransactionID: in.TransactionID,
		Amount:        in.Amount,
	}
}

type CartCheck struct {
	Items      []domain.CartLine
	Method     string
	UserID     string
	CurrencyID string
}

// EnsureCartReady reports only the first unmet precondition, checked in the
// order method, cart, user, currency.
func EnsureCartReady(t Translator, c CartCheck) error {
	if t == nil {
		t = KeyTranslator
	}
	var key string
	switch {
	case c.Method == "":
		key = KeySelectMethod
	case len(c.Items) == 0:
		key = KeyEmptyCart
	case c.UserID == "":
		key = KeyNoUser
	case c.CurrencyID == "":
		key = KeyNoCurrency
	default:
		return nil
	}
	return &domain.Error{Kind: domain.KindValidation, Key: key, Message: t(key)}
}
