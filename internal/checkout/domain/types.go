package domain

import (
	"time"

	"github.com/dwikikusuma/pos-payments/internal/lightning"
)

const (
	OrderStatusPaid  = "paid"
	TicketStatusOpen = 1
)

// CartLine is one product row of the cart. Subtotal must equal
// Price*Quantity; callers keep it consistent.
type CartLine struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
	Subtotal int64  `json:"subtotal"`
}

// CartSnapshot is what the UI hands over when the operator presses pay.
// All amounts are minor currency units; Discount is a percentage.
type CartSnapshot struct {
	Items                 []CartLine `json:"items"`
	Subtotal              int64      `json:"subtotal"`
	Discount              float64    `json:"discount"`
	DiscountAmount        int64      `json:"discountAmount"`
	Total                 int64      `json:"total"`
	SelectedPaymentMethod string     `json:"selectedPaymentMethod"`
}

type Amounts struct {
	Subtotal       int64   `json:"subtotal"`
	Discount       float64 `json:"discount"`
	DiscountAmount int64   `json:"discountAmount"`
	Total          int64   `json:"total"`
	AmountFiat     float64 `json:"amountFiat"`
	DisplayTotal   string  `json:"displayTotal"`
}

type User struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type Currency struct {
	ID      string `json:"id"`
	Acronym string `json:"acronym"`
	Locale  string `json:"locale,omitempty"`
}

type PaymentMethod struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type OrderPayload struct {
	UserID    string  `json:"user_id"`
	TableID   *string `json:"table_id"`
	Waiter    string  `json:"waiter"`
	Status    string  `json:"status"`
	Total     float64 `json:"total"`
	CreatedAt string  `json:"created_at"`
}

type TicketPayload struct {
	OrderID     string  `json:"order_id"`
	UserID      string  `json:"user_id"`
	TicketDate  string  `json:"ticket_date"`
	Status      int     `json:"status"`
	TotalAmount float64 `json:"total_amount"`
	Notes       string  `json:"notes"`
}

type PaymentPayload struct {
	MethodID      string  `json:"method_id"`
	CurrencyID    string  `json:"currency_id"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
}

// Created is the part of a backend create response the flows rely on.
type Created struct {
	ID string `json:"id"`
}

type PaymentResult struct {
	Items          []CartLine `json:"items"`
	Subtotal       int64      `json:"subtotal"`
	Discount       float64    `json:"discount"`
	DiscountAmount int64      `json:"discountAmount"`
	Total          int64      `json:"total"`
	Amount         float64    `json:"amount"`
	PaymentMethod  string     `json:"paymentMethod"`
	PaymentID      string     `json:"paymentId"`
	OrderID        string     `json:"orderId"`
	TicketID       string     `json:"ticketId"`

	CashReceived *float64 `json:"cashReceived,omitempty"`
	Change       *float64 `json:"change,omitempty"`
}

type CashCompletion struct {
	CashReceived float64 `json:"cashReceived"`
	Change       float64 `json:"change"`
}

type CashPaymentConfig struct {
	AmountDue     float64       `json:"amountDue"`
	DisplayTotal  string        `json:"displayTotal"`
	PaymentResult PaymentResult `json:"paymentResult"`
	OrderID       string        `json:"orderId"`
	OrderPayload  OrderPayload  `json:"orderPayload"`
}

type BtcPaymentConfig struct {
	Amounts               Amounts            `json:"amounts"`
	AmountFiat            float64            `json:"amountFiat"`
	DisplayTotal          string             `json:"displayTotal"`
	CurrencyAcronym       string             `json:"currencyAcronym"`
	CurrencyID            string             `json:"currencyId"`
	SelectedPaymentMethod string             `json:"selectedPaymentMethod"`
	Items                 []CartLine         `json:"items"`
	User                  User               `json:"user"`
	Invoice               *lightning.Invoice `json:"invoice,omitempty"`
	Satoshis              int64              `json:"satoshis"`
}

// BtcCompletion is handed to completion listeners once the deferred
// order/ticket/payment chain of a Lightning payment succeeds.
type BtcCompletion struct {
	Invoice       lightning.Invoice `json:"invoice"`
	Satoshis      int64             `json:"satoshis"`
	PaymentID     string            `json:"paymentId"`
	OrderID       string            `json:"orderId"`
	TicketID      string            `json:"ticketId"`
	Auto          bool              `json:"auto"`
	PaymentResult PaymentResult     `json:"paymentResult"`
	CompletedAt   time.Time         `json:"completedAt"`
}

// PaymentEvent is an inbound "payment received" notification.
type PaymentEvent struct {
	Type        string `json:"type"`
	PaymentHash string `json:"paymentHash"`
	AmountSat   int64  `json:"amountSat,omitempty"`
	Timestamp   int64  `json:"timestamp,omitempty"`
	ExternalID  string `json:"externalId,omitempty"`
}

type PaymentState struct {
	IsPaying bool   `json:"isPaying"`
	Error    string `json:"error"`
}
