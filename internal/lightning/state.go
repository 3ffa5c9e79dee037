package lightning

import (
	"sync"
	"time"
)

// InvoiceState is a snapshot of where one invoice is in its lifecycle.
type InvoiceState struct {
	Created         *Invoice   `json:"created"`
	Paid            bool       `json:"paid"`
	AwaitingPayment bool       `json:"awaitingPayment"`
	CompletedAt     *time.Time `json:"completedAt"`
	ShowModal       bool       `json:"showModal"`
}

// Idle reports whether s is the initial state.
func (s InvoiceState) Idle() bool {
	return s.Created == nil && !s.Paid && !s.AwaitingPayment && s.CompletedAt == nil && !s.ShowModal
}

// InvoiceMachine holds the single source of truth for an invoice's
// lifecycle. Transitions never fail; the zero value is Idle.
type InvoiceMachine struct {
	mu    sync.RWMutex
	state InvoiceState
}

func NewInvoiceMachine() *InvoiceMachine {
	return &InvoiceMachine{}
}

func (m *InvoiceMachine) State() InvoiceState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CreateInvoice enters Created/Awaiting, discarding whatever the previous
// invoice had reached.
func (m *InvoiceMachine) CreateInvoice(inv Invoice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = InvoiceState{
		Created:         &inv,
		AwaitingPayment: true,
		ShowModal:       true,
	}
}

func (m *InvoiceMachine) MarkAsPaid(completedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Paid = true
	m.state.AwaitingPayment = false
	m.state.CompletedAt = &completedAt
}

// CloseModal hides the invoice but keeps Created and Paid.
func (m *InvoiceMachine) CloseModal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.ShowModal = false
	m.state.AwaitingPayment = false
	m.state.CompletedAt = nil
}

func (m *InvoiceMachine) OpenModal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.ShowModal = true
}

func (m *InvoiceMachine) SetAwaitingPayment(awaiting bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.AwaitingPayment = awaiting
}

func (m *InvoiceMachine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = InvoiceState{}
}

// TrackedHash returns the payment hash of the current invoice, if any.
func (m *InvoiceMachine) TrackedHash() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state.Created == nil {
		return ""
	}
	return m.state.Created.PaymentHash
}
