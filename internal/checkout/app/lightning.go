package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
	"github.com/dwikikusuma/pos-payments/internal/lightning"
)

var ErrAlreadyCompleted = errors.New("lightning payment already completed")

// btcAttempt is one in-flight Lightning payment. completed is the one-shot
// guard shared by the automatic and manual completion paths.
type btcAttempt struct {
	id        uint64
	user      domain.User
	config    domain.BtcPaymentConfig
	completed atomic.Bool
	autoTried atomic.Bool
}

func (s *Service) payLightning(ctx context.Context, user domain.User, snap domain.CartSnapshot, cur domain.Currency) (*PayOutcome, error) {
	acronym := s.resolveAcronym(ctx, cur)
	amounts := s.amounts(snap, acronym)

	cfg := domain.BtcPaymentConfig{
		Amounts:               amounts,
		AmountFiat:            amounts.AmountFiat,
		DisplayTotal:          amounts.DisplayTotal,
		CurrencyAcronym:       acronym,
		CurrencyID:            cur.ID,
		SelectedPaymentMethod: snap.SelectedPaymentMethod,
		Items:                 snap.Items,
		User:                  user,
	}

	gen, err := s.generate(ctx, cfg)
	if err != nil {
		return nil, s.fail(err)
	}

	a := s.publish(user, cfg, gen)
	s.state.stop()
	if gen != nil {
		s.notify(LevelInfo, KeyInvoiceReady)
	}
	out := a.config
	return &PayOutcome{Method: MethodLightning, Btc: &out}, nil
}

// resolveAcronym prefers the payment currency record, then a 3-letter base
// currency acronym, then the configured default.
func (s *Service) resolveAcronym(ctx context.Context, cur domain.Currency) string {
	if cur.ID != "" && s.payments != nil {
		pc, err := s.payments.GetPaymentCurrencyByID(ctx, cur.ID)
		if err != nil {
			s.log.Warn("payment currency lookup failed", slog.String("currency_id", cur.ID), slog.Any("err", err))
		} else if a := strings.TrimSpace(pc.Acronym); a != "" {
			return strings.ToLower(a)
		}
	}
	if a := strings.TrimSpace(cur.Acronym); len(a) == 3 {
		return strings.ToLower(a)
	}
	return s.defaultCurrency
}

func (s *Service) generate(ctx context.Context, cfg domain.BtcPaymentConfig) (*lightning.Generated, error) {
	if s.invoices == nil {
		return nil, s.classify(domain.KindInvoiceGenerationFailed, KeyGenerateInvoice, errors.New("no invoice generator"))
	}
	gen, err := s.invoices.Generate(ctx, lightning.Request{
		AmountFiat: cfg.AmountFiat,
		Currency:   cfg.CurrencyAcronym,
	})
	if err != nil {
		return nil, &domain.Error{
			Kind:    domain.KindInvoiceGenerationFailed,
			Key:     KeyGenerateInvoice,
			Message: err.Error(),
			Err:     err,
		}
	}
	return gen, nil
}

// publish replaces any previous attempt. A nil gen leaves the attempt
// without an invoice.
func (s *Service) publish(user domain.User, cfg domain.BtcPaymentConfig, gen *lightning.Generated) *btcAttempt {
	if gen != nil {
		inv := gen.Invoice
		cfg.Invoice = &inv
		cfg.Satoshis = gen.Satoshis
	}

	s.mu.Lock()
	s.seq++
	a := &btcAttempt{id: s.seq, user: user, config: cfg}
	s.btc = a
	s.mu.Unlock()

	if cfg.Invoice != nil {
		s.machine.CreateInvoice(*cfg.Invoice)
		s.setHash(cfg.Invoice.PaymentHash)
	} else {
		s.machine.Reset()
		s.setHash("")
	}
	return a
}

// RetryInvoice generates a fresh invoice for the pending Lightning payment.
func (s *Service) RetryInvoice(ctx context.Context) (*domain.BtcPaymentConfig, error) {
	cur := s.attempt()
	if cur == nil {
		return nil, domain.ErrNoPendingPayment
	}
	if !s.state.start() {
		return nil, domain.ErrPaymentInProgress
	}
	cfg := cur.config
	cfg.Invoice = nil
	cfg.Satoshis = 0

	gen, err := s.generate(ctx, cfg)
	if err != nil {
		return nil, s.fail(err)
	}
	a := s.publish(cur.user, cfg, gen)
	s.state.stop()
	if gen != nil {
		s.notify(LevelInfo, KeyInvoiceReady)
	}
	out := a.config
	return &out, nil
}

func (s *Service) BtcPaymentConfig() *domain.BtcPaymentConfig {
	a := s.attempt()
	if a == nil {
		return nil
	}
	cfg := a.config
	return &cfg
}

// ClearBtcPaymentConfig abandons the pending Lightning payment so a new
// attempt can start from scratch.
func (s *Service) ClearBtcPaymentConfig() {
	s.mu.Lock()
	s.btc = nil
	s.mu.Unlock()
	s.setHash("")
	s.machine.Reset()
}

func (s *Service) InvoiceState() lightning.InvoiceState { return s.machine.State() }

func (s *Service) OpenInvoiceModal() { s.machine.OpenModal() }

// CloseInvoiceModal hides the invoice. An unfinished attempt is abandoned;
// a completion already running still finishes its backend work.
func (s *Service) CloseInvoiceModal() {
	s.machine.CloseModal()
	s.mu.Lock()
	s.btc = nil
	s.mu.Unlock()
	s.setHash("")
}

// HandleBtcComplete is the operator's manual confirmation that the invoice
// was paid.
func (s *Service) HandleBtcComplete(ctx context.Context) (*domain.BtcCompletion, error) {
	a := s.attempt()
	if a == nil || a.config.Invoice == nil {
		return nil, domain.ErrNoPendingPayment
	}
	if !a.completed.CompareAndSwap(false, true) {
		return nil, ErrAlreadyCompleted
	}
	if !s.state.start() {
		a.completed.Store(false)
		return nil, domain.ErrPaymentInProgress
	}
	return s.completeBitcoin(ctx, a, false, true)
}

// handlePaymentEvent is the automatic completion path. Duplicate events for
// the same invoice are ignored.
func (s *Service) handlePaymentEvent(evt domain.PaymentEvent) {
	a := s.attempt()
	if a == nil || a.config.Invoice == nil || evt.PaymentHash == "" {
		return
	}
	if evt.PaymentHash != a.config.Invoice.PaymentHash {
		return
	}
	if !a.autoTried.CompareAndSwap(false, true) {
		return
	}
	if !a.completed.CompareAndSwap(false, true) {
		return
	}
	s.machine.MarkAsPaid(s.now())

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	// Another flow may hold the in-progress flag; only release it if ours.
	owned := s.state.start()
	if _, err := s.completeBitcoin(ctx, a, true, owned); err != nil {
		s.log.Error("paid invoice has no backend order",
			slog.String("payment_hash", evt.PaymentHash),
			slog.Any("err", err),
		)
	}
}

// completeBitcoin runs the deferred order/ticket/payment chain. The caller
// has already claimed a.completed; it is released on failure so the
// operator can confirm again.
func (s *Service) completeBitcoin(ctx context.Context, a *btcAttempt, auto, owned bool) (*domain.BtcCompletion, error) {
	inv := *a.config.Invoice
	c, err := s.runChain(ctx, chainInput{
		User:          a.user,
		MethodID:      a.config.SelectedPaymentMethod,
		CurrencyID:    a.config.CurrencyID,
		AmountFiat:    a.config.AmountFiat,
		TransactionID: inv.Serialized,
	})
	if err != nil {
		a.completed.Store(false)
		return nil, s.failWith(err, owned)
	}

	amounts := a.config.Amounts
	result := domain.PaymentResult{
		Items:          a.config.Items,
		Subtotal:       amounts.Subtotal,
		Discount:       amounts.Discount,
		DiscountAmount: amounts.DiscountAmount,
		Total:          amounts.Total,
		Amount:         a.config.AmountFiat,
		PaymentMethod:  a.config.SelectedPaymentMethod,
		PaymentID:      c.PaymentID,
		OrderID:        c.OrderID,
		TicketID:       c.TicketID,
	}
	done := domain.BtcCompletion{
		Invoice:       inv,
		Satoshis:      a.config.Satoshis,
		PaymentID:     c.PaymentID,
		OrderID:       c.OrderID,
		TicketID:      c.TicketID,
		Auto:          auto,
		PaymentResult: result,
		CompletedAt:   s.now(),
	}

	s.mu.Lock()
	live := s.btc == a
	if live {
		s.btc = nil
	}
	s.mu.Unlock()

	if s.hooks.OnComplete != nil {
		s.hooks.OnComplete(done)
	}
	if s.hooks.OnPay != nil {
		s.hooks.OnPay(result)
	}
	// an abandoned attempt leaves the cart to the next sale
	if live {
		if s.hooks.OnResetCart != nil {
			s.hooks.OnResetCart()
		}
		s.machine.Reset()
		s.setHash("")
	}

	if owned {
		s.state.stop()
	}
	if auto {
		s.notify(LevelSuccess, KeyBitcoinReceived)
	} else {
		s.notify(LevelSuccess, KeyPaymentSuccess)
	}
	s.log.Info("lightning payment completed",
		slog.String("payment_hash", inv.PaymentHash),
		slog.String("order_id", c.OrderID),
		slog.Bool("auto", auto),
	)
	return &done, nil
}

func (s *Service) attempt() *btcAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.btc
}

func (s *Service) setHash(hash string) {
	if s.events != nil {
		s.events.SetInvoiceHash(hash)
	}
}
