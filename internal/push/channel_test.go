package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const paymentFrame = `{"type":"payment_received","paymentHash":"hash-1","amountSat":1500}`

func TestBroadcastSurvivesSelfUnregister(t *testing.T) {
	c := New(Options{URL: "ws://unused"})

	var gotA, gotB int
	var offA func()
	offA = c.OnPayment(func(Event) {
		gotA++
		offA()
	})
	c.OnPayment(func(evt Event) {
		if evt.PaymentHash == "hash-1" {
			gotB++
		}
	})

	c.HandleMessage([]byte(paymentFrame))
	c.HandleMessage([]byte(paymentFrame))

	if gotA != 1 {
		t.Fatalf("listener A should run once before unregistering, got %d", gotA)
	}
	if gotB != 2 {
		t.Fatalf("listener B should receive both events, got %d", gotB)
	}
	if n := c.listeners.len(); n != 1 {
		t.Fatalf("expected 1 listener left, got %d", n)
	}
}

func TestBroadcastReachesEveryListener(t *testing.T) {
	c := New(Options{URL: "ws://unused"})
	c.SetInvoiceHash("other-hash")

	var calls int
	for i := 0; i < 3; i++ {
		c.OnPayment(func(Event) { calls++ })
	}
	c.HandleMessage([]byte(paymentFrame))

	if calls != 3 {
		t.Fatalf("broadcast must not filter by hash, got %d calls", calls)
	}
}

func TestHandleMessageIgnoresNoise(t *testing.T) {
	c := New(Options{URL: "ws://unused"})
	var calls int
	c.OnPayment(func(Event) { calls++ })

	c.HandleMessage([]byte("{not json"))
	c.HandleMessage([]byte(`{"type":"connected"}`))
	c.HandleMessage([]byte(`{"type":"invoice_expired","paymentHash":"hash-1"}`))

	if calls != 0 {
		t.Fatalf("expected no listener calls, got %d", calls)
	}
}

func TestFetchersRunOnEveryPaymentEvent(t *testing.T) {
	c := New(Options{URL: "ws://unused"})

	info := make(chan struct{}, 2)
	txs := make(chan struct{}, 2)
	c.SetFetchers(func() { info <- struct{}{} }, func() { txs <- struct{}{} })

	c.HandleMessage([]byte(`{"type":"payment_received","paymentHash":"unrelated"}`))

	for name, ch := range map[string]chan struct{}{"info": info, "transactions": txs} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("%s fetcher not called", name)
		}
	}
}

func TestInvoicePaidOnlyForTrackedHash(t *testing.T) {
	c := New(Options{URL: "ws://unused"})

	var paid []string
	c.OnInvoicePaid(func(evt Event) { paid = append(paid, evt.PaymentHash) })

	c.HandleMessage([]byte(paymentFrame))
	if len(paid) != 0 {
		t.Fatalf("no hash tracked, got %v", paid)
	}

	c.SetInvoiceHash("hash-1")
	c.HandleMessage([]byte(`{"type":"payment_received","paymentHash":"hash-2"}`))
	c.HandleMessage([]byte(paymentFrame))
	if len(paid) != 1 || paid[0] != "hash-1" {
		t.Fatalf("expected exactly hash-1, got %v", paid)
	}

	c.SetInvoiceHash("")
	c.HandleMessage([]byte(paymentFrame))
	if len(paid) != 1 {
		t.Fatalf("cleared hash must not match, got %v", paid)
	}
}

func TestRunReconnectsAfterClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var conns atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := conns.Add(1)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"connected"}`))
		if n == 1 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(paymentFrame))
			_ = conn.Close()
			return
		}
		// keep the second connection open until the client leaves
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	var mu sync.Mutex
	var transitions []bool
	c := New(Options{
		URL:            "ws" + strings.TrimPrefix(srv.URL, "http"),
		ReconnectDelay: 20 * time.Millisecond,
		OnConnectionChange: func(v bool) {
			mu.Lock()
			transitions = append(transitions, v)
			mu.Unlock()
		},
	})

	received := make(chan Event, 1)
	c.OnPayment(func(evt Event) { received <- evt })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case evt := <-received:
		if evt.PaymentHash != "hash-1" || evt.AmountSat != 1500 {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("payment event not received")
	}

	deadline := time.Now().Add(2 * time.Second)
	for conns.Load() < 2 || !c.Connected() {
		if time.Now().After(deadline) {
			t.Fatalf("client did not reconnect, conns=%d", conns.Load())
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
	if c.Connected() {
		t.Fatalf("expected disconnected after teardown")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) < 3 || !transitions[0] || transitions[1] {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
}
