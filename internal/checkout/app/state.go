package app

import (
	"sync"

	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
)

// paymentState backs the observable isPaying/error pair.
type paymentState struct {
	mu sync.Mutex
	s  domain.PaymentState
}

// start claims the in-progress flag; it reports false when a flow is
// already running.
func (p *paymentState) start() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.s.IsPaying {
		return false
	}
	p.s.IsPaying = true
	p.s.Error = ""
	return true
}

func (p *paymentState) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.IsPaying = false
}

func (p *paymentState) fail(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.IsPaying = false
	p.s.Error = msg
}

func (p *paymentState) setError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.Error = msg
}

func (p *paymentState) clearError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.Error = ""
}

func (p *paymentState) snapshot() domain.PaymentState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.s
}
