package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dwikikusuma/pos-payments/internal/lightning"
	"github.com/dwikikusuma/pos-payments/internal/push"
	"github.com/dwikikusuma/pos-payments/pkg/logger"
)

const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"

	FilterAll      = "all"
	FilterIncoming = DirectionIncoming
	FilterOutgoing = DirectionOutgoing
)

var ErrInvalidInput = errors.New("invalid input")

type NodeInfo struct {
	NodeID      string    `json:"nodeId"`
	Channels    []Channel `json:"channels"`
	Chain       string    `json:"chain"`
	BlockHeight int64     `json:"blockHeight"`
	Version     string    `json:"version"`
}

type Channel struct {
	State               string `json:"state"`
	ChannelID           string `json:"channelId"`
	BalanceSat          int64  `json:"balanceSat"`
	InboundLiquiditySat int64  `json:"inboundLiquiditySat"`
	CapacitySat         int64  `json:"capacitySat"`
}

// Transaction is one incoming or outgoing Lightning payment. Timestamps are
// epoch milliseconds.
type Transaction struct {
	PaymentHash string `json:"paymentHash"`
	Preimage    string `json:"preimage,omitempty"`
	ExternalID  string `json:"externalId,omitempty"`
	Description string `json:"description,omitempty"`
	Invoice     string `json:"invoice,omitempty"`
	IsPaid      bool   `json:"isPaid"`
	ReceivedSat int64  `json:"receivedSat,omitempty"`
	Sent        int64  `json:"sent,omitempty"`
	Fees        int64  `json:"fees"`
	CompletedAt int64  `json:"completedAt"`
	CreatedAt   int64  `json:"createdAt"`
	Direction   string `json:"direction"`
}

type Node interface {
	NodeInfo(ctx context.Context) (NodeInfo, error)
	IncomingTransactions(ctx context.Context) ([]Transaction, error)
	OutgoingTransactions(ctx context.Context) ([]Transaction, error)
}

// Events is the subset of the push channel the wallet panel uses.
type Events interface {
	SetInvoiceHash(hash string)
	SetFetchers(fetchInfo, fetchTransactions func())
	OnInvoicePaid(l push.Listener) func()
}

type Deps struct {
	Node     Node
	Invoices lightning.InvoiceCreator
	Events   Events
	Logger   *slog.Logger
	Timeout  time.Duration
	Now      func() time.Time
}

// Service is the wallet panel: cached node info and history, plus a
// receive-invoice whose lifecycle lives in its own state machine.
type Service struct {
	node     Node
	invoices lightning.InvoiceCreator
	events   Events
	log      *slog.Logger
	timeout  time.Duration
	now      func() time.Time
	machine  *lightning.InvoiceMachine

	mu     sync.RWMutex
	info   *NodeInfo
	txs    []Transaction
	filter string
	err    string
	unsub  func()
}

func New(d Deps) *Service {
	s := &Service{
		node:     d.Node,
		invoices: d.Invoices,
		events:   d.Events,
		log:      logger.OrDefault(d.Logger),
		timeout:  d.Timeout,
		now:      d.Now,
		machine:  lightning.NewInvoiceMachine(),
		filter:   FilterAll,
	}
	if s.timeout <= 0 {
		s.timeout = 10 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Start hooks the wallet into the push channel: every payment refreshes
// info and history, and a payment for the receive invoice marks it paid.
func (s *Service) Start() {
	if s.events == nil {
		return
	}
	s.events.SetFetchers(s.refresher(s.RefreshInfo), s.refresher(s.RefreshTransactions))
	unsub := s.events.OnInvoicePaid(s.handlePayment)

	s.mu.Lock()
	s.unsub = unsub
	s.mu.Unlock()
}

func (s *Service) Close() {
	s.mu.Lock()
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (s *Service) refresher(fn func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.log.Warn("wallet refresh failed", slog.Any("err", err))
		}
	}
}

func (s *Service) RefreshInfo(ctx context.Context) error {
	info, err := s.node.NodeInfo(ctx)
	if err != nil {
		s.setError("wallet info unavailable")
		return fmt.Errorf("node info: %w", err)
	}
	s.mu.Lock()
	s.info = &info
	s.err = ""
	s.mu.Unlock()
	return nil
}

// RefreshTransactions reloads the history for the current filter, newest
// completion first.
func (s *Service) RefreshTransactions(ctx context.Context) error {
	s.mu.RLock()
	filter := s.filter
	s.mu.RUnlock()

	var all []Transaction
	if filter == FilterAll || filter == FilterIncoming {
		in, err := s.node.IncomingTransactions(ctx)
		if err != nil {
			s.setError("transaction history unavailable")
			return fmt.Errorf("incoming transactions: %w", err)
		}
		all = append(all, in...)
	}
	if filter == FilterAll || filter == FilterOutgoing {
		out, err := s.node.OutgoingTransactions(ctx)
		if err != nil {
			s.setError("transaction history unavailable")
			return fmt.Errorf("outgoing transactions: %w", err)
		}
		all = append(all, out...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CompletedAt > all[j].CompletedAt })

	s.mu.Lock()
	s.txs = all
	s.mu.Unlock()
	return nil
}

func (s *Service) SetFilter(ctx context.Context, filter string) error {
	filter = strings.ToLower(strings.TrimSpace(filter))
	switch filter {
	case FilterAll, FilterIncoming, FilterOutgoing:
	default:
		return ErrInvalidInput
	}
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	return s.RefreshTransactions(ctx)
}

type Snapshot struct {
	Info         *NodeInfo              `json:"info"`
	Transactions []Transaction          `json:"transactions"`
	Filter       string                 `json:"filter"`
	Error        string                 `json:"error,omitempty"`
	Invoice      lightning.InvoiceState `json:"invoice"`
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Transactions: append([]Transaction(nil), s.txs...),
		Filter:       s.filter,
		Error:        s.err,
		Invoice:      s.machine.State(),
	}
	if s.info != nil {
		info := *s.info
		snap.Info = &info
	}
	return snap
}

// CreateInvoice issues a receive invoice and starts tracking its hash.
func (s *Service) CreateInvoice(ctx context.Context, amountSat int64, description string) (lightning.Invoice, error) {
	if amountSat <= 0 {
		return lightning.Invoice{}, ErrInvalidInput
	}
	inv, err := s.invoices.CreateInvoice(ctx, amountSat, strings.TrimSpace(description))
	if err != nil {
		return lightning.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	if inv.PaymentHash == "" {
		return lightning.Invoice{}, lightning.ErrEmptyInvoice
	}

	s.machine.CreateInvoice(inv)
	if s.events != nil {
		s.events.SetInvoiceHash(inv.PaymentHash)
	}
	s.log.Info("receive invoice created", slog.String("payment_hash", inv.PaymentHash), slog.Int64("amount_sat", amountSat))
	return inv, nil
}

func (s *Service) InvoiceState() lightning.InvoiceState { return s.machine.State() }

func (s *Service) OpenInvoice() { s.machine.OpenModal() }

// CloseInvoice hides the modal but remembers whether it was paid.
func (s *Service) CloseInvoice() { s.machine.CloseModal() }

// handlePayment runs for events matching the channel's tracked hash. The
// checkout shares that hash, so its invoices are skipped here.
func (s *Service) handlePayment(evt push.Event) {
	hash := s.machine.TrackedHash()
	if hash == "" || evt.PaymentHash != hash {
		return
	}
	s.machine.MarkAsPaid(s.now())
	s.log.Info("receive invoice paid", slog.String("payment_hash", hash), slog.Int64("amount_sat", evt.AmountSat))
}

func (s *Service) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}
