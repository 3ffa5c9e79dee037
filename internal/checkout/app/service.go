package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
	"github.com/dwikikusuma/pos-payments/internal/lightning"
	"github.com/dwikikusuma/pos-payments/pkg/logger"
)

type MethodKind string

const (
	MethodGeneric   MethodKind = "generic"
	MethodCash      MethodKind = "cash"
	MethodLightning MethodKind = "lightning"
)

const (
	DefaultCurrency          = "usd"
	DefaultCompletionTimeout = 30 * time.Second
)

// ClassifyMethod picks the flow for a payment method by id or name.
func ClassifyMethod(m domain.PaymentMethod) MethodKind {
	for _, v := range []string{m.ID, m.Name} {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "btc", "bitcoin", "lightning":
			return MethodLightning
		case "cash", "efectivo":
			return MethodCash
		}
	}
	return MethodGeneric
}

// Hooks are the caller's reactions to a finished payment. Any may be nil.
type Hooks struct {
	OnPay       func(domain.PaymentResult)
	OnComplete  func(domain.BtcCompletion)
	OnResetCart func()
}

type Deps struct {
	Orders    OrderAPI
	Tickets   TicketAPI
	Payments  PaymentAPI
	Reference ReferenceReader
	Invoices  InvoiceGenerator
	Events    PaymentEvents
	Machine   *lightning.InvoiceMachine
	Notifier  Notifier
	Translate Translator
	Format    func(acronym string) Formatter
	Builder   Builder
	Hooks     Hooks
	Logger    *slog.Logger
	Now       func() time.Time

	DefaultCurrency   string
	CompletionTimeout time.Duration
}

// PayOutcome tells the caller which follow-up the payment needs. Exactly one
// of Result, Cash and Btc is set.
type PayOutcome struct {
	Method MethodKind                `json:"method"`
	Result *domain.PaymentResult     `json:"result,omitempty"`
	Cash   *domain.CashPaymentConfig `json:"cash,omitempty"`
	Btc    *domain.BtcPaymentConfig  `json:"btc,omitempty"`
}

type Service struct {
	orders    OrderAPI
	tickets   TicketAPI
	payments  PaymentAPI
	reference ReferenceReader
	invoices  InvoiceGenerator
	events    PaymentEvents
	machine   *lightning.InvoiceMachine
	notifier  Notifier
	t         Translator
	format    func(acronym string) Formatter
	builder   Builder
	hooks     Hooks
	log       *slog.Logger
	now       func() time.Time

	defaultCurrency string
	timeout         time.Duration

	state paymentState

	mu          sync.Mutex
	methods     map[string]domain.PaymentMethod
	currency    domain.Currency
	cash        *domain.CashPaymentConfig
	btc         *btcAttempt
	seq         uint64
	unsubscribe func()
}

func NewService(d Deps) *Service {
	s := &Service{
		orders:          d.Orders,
		tickets:         d.Tickets,
		payments:        d.Payments,
		reference:       d.Reference,
		invoices:        d.Invoices,
		events:          d.Events,
		machine:         d.Machine,
		notifier:        d.Notifier,
		t:               d.Translate,
		format:          d.Format,
		builder:         d.Builder,
		hooks:           d.Hooks,
		log:             logger.OrDefault(d.Logger),
		now:             d.Now,
		defaultCurrency: strings.ToLower(d.DefaultCurrency),
		timeout:         d.CompletionTimeout,
		methods:         map[string]domain.PaymentMethod{},
	}
	if s.machine == nil {
		s.machine = lightning.NewInvoiceMachine()
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.log}
	}
	if s.t == nil {
		s.t = KeyTranslator
	}
	if s.format == nil {
		s.format = CurrencyFormatter
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.builder.Now == nil {
		s.builder.Now = s.now
	}
	if s.defaultCurrency == "" {
		s.defaultCurrency = DefaultCurrency
	}
	if s.timeout <= 0 {
		s.timeout = DefaultCompletionTimeout
	}
	s.currency = domain.Currency{Acronym: strings.ToUpper(s.defaultCurrency)}
	if s.events != nil {
		s.unsubscribe = s.events.OnPayment(s.handlePaymentEvent)
	}
	return s
}

// Close detaches the service from the push channel.
func (s *Service) Close() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// LoadReferenceData fetches payment methods and the base currency. A
// missing base currency keeps the default acronym with no id, which makes
// every payment fail the currency precondition.
func (s *Service) LoadReferenceData(ctx context.Context) error {
	if s.reference == nil {
		return nil
	}
	methods, err := s.reference.PaymentMethods(ctx)
	if err != nil {
		return err
	}
	s.SetPaymentMethods(methods)

	cur, err := s.reference.BaseCurrency(ctx)
	if err != nil {
		s.log.Warn("base currency unavailable", slog.Any("err", err))
		return nil
	}
	s.SetCurrency(cur)
	return nil
}

func (s *Service) SetPaymentMethods(methods []domain.PaymentMethod) {
	idx := make(map[string]domain.PaymentMethod, len(methods))
	for _, m := range methods {
		idx[m.ID] = m
	}
	s.mu.Lock()
	s.methods = idx
	s.mu.Unlock()
}

func (s *Service) SetCurrency(c domain.Currency) {
	if c.Acronym == "" {
		c.Acronym = strings.ToUpper(s.defaultCurrency)
	}
	s.mu.Lock()
	s.currency = c
	s.mu.Unlock()
}

func (s *Service) PaymentMethods() []domain.PaymentMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PaymentMethod, 0, len(s.methods))
	for _, m := range s.methods {
		out = append(out, m)
	}
	return out
}

func (s *Service) Currency() domain.Currency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currency
}

func (s *Service) State() domain.PaymentState { return s.state.snapshot() }

func (s *Service) ClearPaymentError() { s.state.clearError() }

func (s *Service) CashPaymentConfig() *domain.CashPaymentConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cash == nil {
		return nil
	}
	cfg := *s.cash
	return &cfg
}

func (s *Service) ClearCashPaymentConfig() {
	s.mu.Lock()
	s.cash = nil
	s.mu.Unlock()
}

func (s *Service) method(id string) domain.PaymentMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.methods[id]; ok {
		return m
	}
	return domain.PaymentMethod{ID: id}
}

// HandlePay starts a payment for the cart snapshot. Generic methods settle
// immediately, cash waits for HandleCashComplete and Lightning waits for the
// invoice to be paid.
func (s *Service) HandlePay(ctx context.Context, user domain.User, snap domain.CartSnapshot) (*PayOutcome, error) {
	if !s.state.start() {
		return nil, domain.ErrPaymentInProgress
	}
	cur := s.Currency()

	if err := EnsureCartReady(s.t, CartCheck{
		Items:      snap.Items,
		Method:     snap.SelectedPaymentMethod,
		UserID:     user.UserID,
		CurrencyID: cur.ID,
	}); err != nil {
		return nil, s.fail(err)
	}

	switch ClassifyMethod(s.method(snap.SelectedPaymentMethod)) {
	case MethodLightning:
		return s.payLightning(ctx, user, snap, cur)
	case MethodCash:
		return s.payCash(ctx, user, snap, cur)
	default:
		return s.payGeneric(ctx, user, snap, cur)
	}
}

func (s *Service) amounts(snap domain.CartSnapshot, acronym string) domain.Amounts {
	return NormalizeAmounts(AmountInput{
		Subtotal:       snap.Subtotal,
		Discount:       snap.Discount,
		DiscountAmount: snap.DiscountAmount,
		Total:          snap.Total,
	}, s.format(acronym))
}

func (s *Service) payGeneric(ctx context.Context, user domain.User, snap domain.CartSnapshot, cur domain.Currency) (*PayOutcome, error) {
	amounts := s.amounts(snap, cur.Acronym)
	c, err := s.runChain(ctx, chainInput{
		User:       user,
		MethodID:   snap.SelectedPaymentMethod,
		CurrencyID: cur.ID,
		AmountFiat: amounts.AmountFiat,
	})
	if err != nil {
		return nil, s.fail(err)
	}
	if err := s.markOrderPaid(ctx, c.OrderID, c.Order); err != nil {
		return nil, s.fail(err)
	}

	result := resultFor(snap, amounts.AmountFiat, c)
	s.settle(result)
	s.state.stop()
	s.notify(LevelSuccess, KeyPaymentSuccess)
	s.log.Info("payment completed",
		slog.String("order_id", c.OrderID),
		slog.String("payment_id", c.PaymentID),
		slog.String("method", snap.SelectedPaymentMethod),
	)
	return &PayOutcome{Method: MethodGeneric, Result: &result}, nil
}

// payCash records the whole chain up front; the order is only confirmed as
// paid once the operator enters the cash received.
func (s *Service) payCash(ctx context.Context, user domain.User, snap domain.CartSnapshot, cur domain.Currency) (*PayOutcome, error) {
	amounts := s.amounts(snap, cur.Acronym)
	c, err := s.runChain(ctx, chainInput{
		User:       user,
		MethodID:   snap.SelectedPaymentMethod,
		CurrencyID: cur.ID,
		AmountFiat: amounts.AmountFiat,
	})
	if err != nil {
		return nil, s.fail(err)
	}

	cfg := domain.CashPaymentConfig{
		AmountDue:     amounts.AmountFiat,
		DisplayTotal:  amounts.DisplayTotal,
		PaymentResult: resultFor(snap, amounts.AmountFiat, c),
		OrderID:       c.OrderID,
		OrderPayload:  c.Order,
	}
	s.mu.Lock()
	s.cash = &cfg
	s.mu.Unlock()

	s.state.stop()
	s.notify(LevelInfo, KeyAwaitingCash)
	out := cfg
	return &PayOutcome{Method: MethodCash, Cash: &out}, nil
}

// HandleCashComplete confirms the pending cash payment.
func (s *Service) HandleCashComplete(ctx context.Context, in domain.CashCompletion) (*domain.PaymentResult, error) {
	cfg := s.CashPaymentConfig()
	if cfg == nil {
		return nil, domain.ErrNoPendingPayment
	}
	if !s.state.start() {
		return nil, domain.ErrPaymentInProgress
	}
	// compared in minor units
	if in.Change < 0 || MajorToMinor(in.CashReceived) < MajorToMinor(cfg.AmountDue) {
		return nil, s.fail(s.classify(domain.KindValidation, KeyInsufficientCash, nil))
	}

	if err := s.markOrderPaid(ctx, cfg.OrderID, cfg.OrderPayload); err != nil {
		return nil, s.fail(err)
	}

	result := cfg.PaymentResult
	received, change := in.CashReceived, in.Change
	result.CashReceived = &received
	result.Change = &change

	s.settle(result)
	s.ClearCashPaymentConfig()
	s.state.stop()
	s.notify(LevelSuccess, KeyPaymentSuccess)
	s.log.Info("cash payment confirmed",
		slog.String("order_id", cfg.OrderID),
		slog.Float64("cash_received", received),
		slog.Float64("change", change),
	)
	return &result, nil
}

func (s *Service) settle(result domain.PaymentResult) {
	if s.hooks.OnPay != nil {
		s.hooks.OnPay(result)
	}
	if s.hooks.OnResetCart != nil {
		s.hooks.OnResetCart()
	}
}

// fail is the flow boundary. It records the localized message, emits the
// failure notification and releases the in-progress flag.
func (s *Service) fail(err error) error { return s.failWith(err, true) }

func (s *Service) failWith(err error, release bool) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = &domain.Error{Kind: domain.KindProcess, Key: KeyProcessPayment, Message: s.t(KeyProcessPayment), Err: err}
		err = de
	}
	if release {
		s.state.fail(de.Error())
	} else {
		s.state.setError(de.Error())
	}
	s.notifier.Notify(Notification{Level: LevelDanger, Message: de.Error()})
	if de.Kind == domain.KindValidation {
		s.log.Warn("payment rejected", slog.String("reason", de.Key))
	} else {
		s.log.Error("payment failed", slog.String("kind", string(de.Kind)), slog.Any("err", de.Err))
	}
	return err
}

func (s *Service) notify(level, key string) {
	s.notifier.Notify(Notification{Level: level, Message: s.t(key)})
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(note Notification) {
	l := logger.OrDefault(n.Logger)
	l.Info("notification", slog.String("level", note.Level), slog.String("message", note.Message))
}
