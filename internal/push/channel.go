package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dwikikusuma/pos-payments/pkg/logger"
)

const (
	TypeConnected       = "connected"
	TypePaymentReceived = "payment_received"

	DefaultReconnectDelay = 3 * time.Second
)

// Event is an inbound push message. Only payment_received events are acted on.
type Event struct {
	Type        string `json:"type"`
	PaymentHash string `json:"paymentHash,omitempty"`
	AmountSat   int64  `json:"amountSat,omitempty"`
	Timestamp   int64  `json:"timestamp,omitempty"`
	ExternalID  string `json:"externalId,omitempty"`
	PayerNote   string `json:"payerNote,omitempty"`
}

type Listener func(Event)

type Options struct {
	URL            string
	Header         http.Header
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
	Logger         *slog.Logger

	// OnConnectionChange is called on every open/close transition.
	OnConnectionChange func(connected bool)
}

// Channel is a long-lived, receive-only subscription to the payment push
// endpoint. It reconnects forever with a fixed delay until Run's context ends.
type Channel struct {
	url    string
	header http.Header
	delay  time.Duration
	dialer *websocket.Dialer
	log    *slog.Logger
	onConn func(bool)

	connected atomic.Bool

	mu                sync.Mutex
	hash              string
	fetchInfo         func()
	fetchTransactions func()
	listeners         registry
	invoicePaid       registry
}

func New(opts Options) *Channel {
	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Channel{
		url:    opts.URL,
		header: opts.Header,
		delay:  delay,
		dialer: dialer,
		log:    logger.OrDefault(opts.Logger).With("component", "push"),
		onConn: opts.OnConnectionChange,
	}
}

func (c *Channel) Connected() bool { return c.connected.Load() }

// SetInvoiceHash sets the correlation key; an empty hash clears it.
func (c *Channel) SetInvoiceHash(hash string) {
	c.mu.Lock()
	c.hash = hash
	c.mu.Unlock()
}

func (c *Channel) InvoiceHash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hash
}

// SetFetchers registers the global refreshes run on every payment event,
// regardless of which invoice it belongs to.
func (c *Channel) SetFetchers(fetchInfo, fetchTransactions func()) {
	c.mu.Lock()
	c.fetchInfo = fetchInfo
	c.fetchTransactions = fetchTransactions
	c.mu.Unlock()
}

// OnPayment registers l for every payment_received event. Listeners filter
// by hash themselves. The returned func unregisters l and is safe to call
// from inside l.
func (c *Channel) OnPayment(l Listener) func() {
	return c.listeners.add(l)
}

// OnInvoicePaid registers l for payment events matching the tracked hash.
func (c *Channel) OnInvoicePaid(l Listener) func() {
	return c.invoicePaid.add(l)
}

// Run connects and keeps reconnecting until ctx is done. Cancelling ctx
// closes the active connection.
func (c *Channel) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.log.Info("push channel closed, reconnecting",
			slog.Any("err", err),
			slog.Duration("delay", c.delay),
		)

		t := time.NewTimer(c.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (c *Channel) session(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.setConnected(true)
	defer c.setConnected(false)
	c.log.Info("push channel connected", slog.String("url", c.url))

	stop := context.AfterFunc(ctx, func() {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	})
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.HandleMessage(data)
	}
}

// HandleMessage processes one raw push frame. Malformed frames are logged
// and dropped.
func (c *Channel) HandleMessage(data []byte) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		c.log.Warn("push message ignored", slog.Any("err", err))
		return
	}
	if evt.Type != TypePaymentReceived {
		return
	}

	c.mu.Lock()
	fetchTx, fetchInfo, hash := c.fetchTransactions, c.fetchInfo, c.hash
	c.mu.Unlock()

	if fetchTx != nil {
		go fetchTx()
	}
	if fetchInfo != nil {
		go fetchInfo()
	}

	c.listeners.broadcast(evt)

	if hash != "" && evt.PaymentHash != "" && evt.PaymentHash == hash {
		c.invoicePaid.broadcast(evt)
	}
}

func (c *Channel) setConnected(v bool) {
	c.connected.Store(v)
	if c.onConn != nil {
		c.onConn(v)
	}
}

type registry struct {
	mu     sync.Mutex
	nextID uint64
	items  map[uint64]Listener
	order  []uint64
}

func (r *registry) add(l Listener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == nil {
		r.items = make(map[uint64]Listener)
	}
	r.nextID++
	id := r.nextID
	r.items[id] = l
	r.order = append(r.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *registry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// broadcast iterates over a snapshot so listeners may (un)register while
// it runs.
func (r *registry) broadcast(evt Event) {
	r.mu.Lock()
	snapshot := make([]Listener, 0, len(r.order))
	for _, id := range r.order {
		snapshot = append(snapshot, r.items[id])
	}
	r.mu.Unlock()

	for _, l := range snapshot {
		l(evt)
	}
}
