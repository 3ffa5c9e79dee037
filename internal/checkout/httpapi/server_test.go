package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	cartapp "github.com/dwikikusuma/pos-payments/internal/cart/app"
	"github.com/dwikikusuma/pos-payments/internal/checkout/app"
	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
	"github.com/dwikikusuma/pos-payments/internal/checkout/infra/adapter"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStore) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, cartapp.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Save(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type stubBackend struct {
	mu      sync.Mutex
	orders  int
	tickets int

	onCreateOrder func()
}

func (b *stubBackend) CreateOrder(ctx context.Context, o domain.OrderPayload) (domain.Created, error) {
	if b.onCreateOrder != nil {
		b.onCreateOrder()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders++
	return domain.Created{ID: "order-1"}, nil
}

func (b *stubBackend) UpdateOrder(ctx context.Context, id string, o domain.OrderPayload) error {
	return nil
}

func (b *stubBackend) CreateTicket(ctx context.Context, tk domain.TicketPayload) (domain.Created, error) {
	if err := ctx.Err(); err != nil {
		return domain.Created{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tickets++
	return domain.Created{ID: "ticket-1"}, nil
}

func (b *stubBackend) CreatePayment(ctx context.Context, p domain.PaymentPayload) (domain.Created, error) {
	return domain.Created{ID: "payment-1"}, nil
}

func (b *stubBackend) LinkPaymentToTicket(ctx context.Context, paymentID, ticketID string) error {
	return nil
}

func (b *stubBackend) GetPaymentCurrencyByID(ctx context.Context, id string) (domain.Currency, error) {
	return domain.Currency{ID: id, Acronym: "USD"}, nil
}

type testServer struct {
	router  *gin.Engine
	cart    *cartapp.Service
	backend *stubBackend
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cart := cartapp.NewService(&memStore{data: map[string][]byte{}}, nil)
	be := &stubBackend{}
	co := app.NewService(app.Deps{
		Orders:   be,
		Tickets:  be,
		Payments: be,
		Hooks: app.Hooks{
			OnResetCart: func() { cart.Reset(context.Background()) },
		},
	})
	co.SetPaymentMethods([]domain.PaymentMethod{
		{ID: "card", Name: "Card"},
		{ID: "cash", Name: "Efectivo"},
	})
	co.SetCurrency(domain.Currency{ID: "cur-1", Acronym: "USD"})
	t.Cleanup(co.Close)

	h := New(co, cart, adapter.NewCartServiceReader(cart), nil, nil)
	return &testServer{router: h.Router(), cart: cart, backend: be}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

var coffee = map[string]any{"id": "p1", "name": "Coffee", "price": 1000}

func TestCartRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"product": coffee, "quantity": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPut, "/api/cart/discount", map[string]any{"discount": 10})
	if rec.Code != http.StatusOK {
		t.Fatalf("discount: %d %s", rec.Code, rec.Body.String())
	}
	got := decode[cartResponse](t, rec)
	if got.Subtotal != 2000 || got.DiscountAmount != 200 || got.Total != 1800 {
		t.Fatalf("totals: %+v", got)
	}

	t.Run("bad discount -> 400", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/api/cart/discount", map[string]any{"discount": 150})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got %d", rec.Code)
		}
	})

	t.Run("unknown item -> 404", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, "/api/cart/items/nope", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("got %d", rec.Code)
		}
	})

	t.Run("quantity zero removes the line", func(t *testing.T) {
		rec := s.do(t, http.MethodPatch, "/api/cart/items/p1", map[string]any{"quantity": 0})
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d %s", rec.Code, rec.Body.String())
		}
		if got := decode[cartResponse](t, rec); len(got.Items) != 0 {
			t.Fatalf("expected empty cart, got %+v", got.Items)
		}
	})

	t.Run("malformed body -> 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/cart/items", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got %d", rec.Code)
		}
	})
}

func TestPayRoutes(t *testing.T) {
	t.Run("empty cart -> 400 with key", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(t, http.MethodPost, "/api/checkout/pay", payRequest{
			User:          domain.User{UserID: "u1", Name: "Ana"},
			PaymentMethod: "card",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got %d %s", rec.Code, rec.Body.String())
		}
		body := decode[map[string]string](t, rec)
		if body["key"] != app.KeyEmptyCart {
			t.Fatalf("key = %q", body["key"])
		}
		if s.backend.orders != 0 {
			t.Fatal("no order should be created")
		}
	})

	t.Run("generic method settles and clears the cart", func(t *testing.T) {
		s := newTestServer(t)
		s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"product": coffee, "quantity": 1})

		rec := s.do(t, http.MethodPost, "/api/checkout/pay", payRequest{
			User:          domain.User{UserID: "u1", Name: "Ana"},
			PaymentMethod: "card",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d %s", rec.Code, rec.Body.String())
		}
		out := decode[app.PayOutcome](t, rec)
		if out.Method != app.MethodGeneric || out.Result == nil || out.Result.OrderID != "order-1" {
			t.Fatalf("outcome: %+v", out)
		}
		if len(s.cart.Get().Items) != 0 {
			t.Fatal("cart should be reset after payment")
		}

		state := decode[checkoutStateResponse](t, s.do(t, http.MethodGet, "/api/checkout/state", nil))
		if state.Payment.IsPaying || state.Payment.Error != "" {
			t.Fatalf("state: %+v", state.Payment)
		}
	})

	t.Run("cash waits for completion", func(t *testing.T) {
		s := newTestServer(t)
		s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"product": coffee, "quantity": 1})

		rec := s.do(t, http.MethodPost, "/api/checkout/pay", payRequest{
			User:          domain.User{UserID: "u1", Name: "Ana"},
			PaymentMethod: "cash",
		})
		out := decode[app.PayOutcome](t, rec)
		if out.Method != app.MethodCash || out.Cash == nil || out.Cash.AmountDue != 10 {
			t.Fatalf("outcome: %+v", out)
		}

		rec = s.do(t, http.MethodPost, "/api/checkout/cash/complete", domain.CashCompletion{CashReceived: 5, Change: -5})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("insufficient cash: got %d", rec.Code)
		}

		rec = s.do(t, http.MethodPost, "/api/checkout/cash/complete", domain.CashCompletion{CashReceived: 20, Change: 10})
		if rec.Code != http.StatusOK {
			t.Fatalf("complete: %d %s", rec.Code, rec.Body.String())
		}
		res := decode[domain.PaymentResult](t, rec)
		if res.CashReceived == nil || *res.CashReceived != 20 || res.Change == nil || *res.Change != 10 {
			t.Fatalf("result: %+v", res)
		}

		rec = s.do(t, http.MethodPost, "/api/checkout/cash/complete", domain.CashCompletion{CashReceived: 20, Change: 10})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("second completion: got %d", rec.Code)
		}
	})

	t.Run("manual btc completion without attempt -> 404", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(t, http.MethodPost, "/api/checkout/btc/complete", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("got %d %s", rec.Code, rec.Body.String())
		}
	})
}

func TestPayOutlivesClientDisconnect(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"product": coffee, "quantity": 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.backend.onCreateOrder = cancel

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(payRequest{
		User:          domain.User{UserID: "u1", Name: "Ana"},
		PaymentMethod: "card",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/pay", &buf).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	if s.backend.orders != 1 || s.backend.tickets != 1 {
		t.Fatalf("chain must finish after the order, got orders=%d tickets=%d", s.backend.orders, s.backend.tickets)
	}
	if len(s.cart.Get().Items) != 0 {
		t.Fatal("cart should be reset after payment")
	}
}

func TestWalletRoutesDisabled(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/wallet", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}
