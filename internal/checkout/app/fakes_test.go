package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
	"github.com/dwikikusuma/pos-payments/internal/lightning"
)

// fakeBackend records every call made by the flows.
type fakeBackend struct {
	mu sync.Mutex

	orderID   string
	ticketID  string
	paymentID string
	orderErr  error
	linkErr   error
	currency  domain.Currency
	currErr   error

	onCreateOrder func()

	orders   []domain.OrderPayload
	updates  []domain.OrderPayload
	tickets  []domain.TicketPayload
	payments []domain.PaymentPayload
	links    [][2]string
	calls    []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{orderID: "order-1", ticketID: "ticket-1", paymentID: "payment-1"}
}

func (f *fakeBackend) CreateOrder(ctx context.Context, o domain.OrderPayload) (domain.Created, error) {
	if f.onCreateOrder != nil {
		f.onCreateOrder()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "createOrder")
	f.orders = append(f.orders, o)
	if f.orderErr != nil {
		return domain.Created{}, f.orderErr
	}
	return domain.Created{ID: f.orderID}, nil
}

func (f *fakeBackend) UpdateOrder(ctx context.Context, id string, o domain.OrderPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "updateOrder")
	f.updates = append(f.updates, o)
	return nil
}

func (f *fakeBackend) CreateTicket(ctx context.Context, tk domain.TicketPayload) (domain.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "createTicket")
	f.tickets = append(f.tickets, tk)
	return domain.Created{ID: f.ticketID}, nil
}

func (f *fakeBackend) CreatePayment(ctx context.Context, p domain.PaymentPayload) (domain.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "createPayment")
	f.payments = append(f.payments, p)
	return domain.Created{ID: f.paymentID}, nil
}

func (f *fakeBackend) LinkPaymentToTicket(ctx context.Context, paymentID, ticketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "link")
	f.links = append(f.links, [2]string{paymentID, ticketID})
	return f.linkErr
}

func (f *fakeBackend) GetPaymentCurrencyByID(ctx context.Context, id string) (domain.Currency, error) {
	if f.currErr != nil {
		return domain.Currency{}, f.currErr
	}
	return f.currency, nil
}

func (f *fakeBackend) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

type fakeInvoices struct {
	gen  *lightning.Generated
	err  error
	reqs []lightning.Request
}

func (f *fakeInvoices) Generate(ctx context.Context, req lightning.Request) (*lightning.Generated, error) {
	f.reqs = append(f.reqs, req)
	return f.gen, f.err
}

type fakeEvents struct {
	mu        sync.Mutex
	hash      string
	listeners []func(domain.PaymentEvent)
}

func (f *fakeEvents) SetInvoiceHash(h string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hash = h
}

func (f *fakeEvents) OnPayment(l func(domain.PaymentEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, l)
	return func() {}
}

func (f *fakeEvents) emit(evt domain.PaymentEvent) {
	f.mu.Lock()
	ls := append([]func(domain.PaymentEvent){}, f.listeners...)
	f.mu.Unlock()
	for _, l := range ls {
		l(evt)
	}
}

func (f *fakeEvents) current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hash
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recordingNotifier) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notes)
}

type harness struct {
	svc      *Service
	backend  *fakeBackend
	invoices *fakeInvoices
	events   *fakeEvents
	notes    *recordingNotifier

	mu        sync.Mutex
	paid      []domain.PaymentResult
	completed []domain.BtcCompletion
	resets    int
}

func newHarness() *harness {
	h := &harness{
		backend:  newFakeBackend(),
		invoices: &fakeInvoices{},
		events:   &fakeEvents{},
		notes:    &recordingNotifier{},
	}
	h.svc = NewService(Deps{
		Orders:    h.backend,
		Tickets:   h.backend,
		Payments:  h.backend,
		Invoices:  h.invoices,
		Events:    h.events,
		Notifier:  h.notes,
		Translate: KeyTranslator,
		Format: func(string) Formatter {
			return func(minor int64) string { return fmt.Sprintf("fmt-%d", minor) }
		},
		Hooks: Hooks{
			OnPay: func(r domain.PaymentResult) {
				h.mu.Lock()
				h.paid = append(h.paid, r)
				h.mu.Unlock()
			},
			OnComplete: func(c domain.BtcCompletion) {
				h.mu.Lock()
				h.completed = append(h.completed, c)
				h.mu.Unlock()
			},
			OnResetCart: func() {
				h.mu.Lock()
				h.resets++
				h.mu.Unlock()
			},
		},
	})
	h.svc.SetPaymentMethods([]domain.PaymentMethod{
		{ID: "btc", Name: "BTC"},
		{ID: "cash", Name: "Cash"},
		{ID: "card", Name: "Card"},
	})
	h.svc.SetCurrency(domain.Currency{ID: "cur-1", Acronym: "USD"})
	return h
}

var testUser = domain.User{UserID: "user-1", Name: "Ana"}

func snapshot(method string, total int64) domain.CartSnapshot {
	return domain.CartSnapshot{
		Items:                 []domain.CartLine{{ID: "p1", Name: "Coffee", Price: total, Quantity: 1, Subtotal: total}},
		Subtotal:              total,
		Total:                 total,
		SelectedPaymentMethod: method,
	}
}
