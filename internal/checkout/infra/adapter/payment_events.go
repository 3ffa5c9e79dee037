package adapter

import (
	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
	"github.com/dwikikusuma/pos-payments/internal/push"
)

// PushEvents exposes the push channel through the checkout PaymentEvents port.
type PushEvents struct {
	ch *push.Channel
}

func NewPushEvents(ch *push.Channel) *PushEvents {
	return &PushEvents{ch: ch}
}

func (p *PushEvents) SetInvoiceHash(hash string) {
	p.ch.SetInvoiceHash(hash)
}

func (p *PushEvents) OnPayment(l func(domain.PaymentEvent)) func() {
	return p.ch.OnPayment(func(e push.Event) {
		l(domain.PaymentEvent{
			Type:        e.Type,
			PaymentHash: e.PaymentHash,
			AmountSat:   e.AmountSat,
			Timestamp:   e.Timestamp,
			ExternalID:  e.ExternalID,
		})
	})
}
