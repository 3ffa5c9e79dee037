package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	cartapp "github.com/dwikikusuma/pos-payments/internal/cart/app"
	"github.com/dwikikusuma/pos-payments/internal/checkout/app"
	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
	"github.com/dwikikusuma/pos-payments/internal/wallet"
	"github.com/dwikikusuma/pos-payments/pkg/logger"
)

// Snapshotter freezes the persisted cart for a payment.
type Snapshotter interface {
	Snapshot(method string) domain.CartSnapshot
}

type Handler struct {
	checkout *app.Service
	cart     *cartapp.Service
	snaps    Snapshotter
	wallet   *wallet.Service
	log      *slog.Logger
}

// New builds the handler. w may be nil when the wallet panel is disabled.
func New(checkout *app.Service, cart *cartapp.Service, snaps Snapshotter, w *wallet.Service, log *slog.Logger) *Handler {
	return &Handler{
		checkout: checkout,
		cart:     cart,
		snaps:    snaps,
		wallet:   w,
		log:      logger.OrDefault(log),
	}
}

func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLog())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/readyz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")

	co := api.Group("/checkout")
	co.GET("/state", h.checkoutState)
	co.POST("/pay", h.pay)
	co.DELETE("/error", h.clearError)
	co.POST("/cash/complete", h.cashComplete)
	co.DELETE("/cash", h.clearCash)
	co.POST("/btc/complete", h.btcComplete)
	co.POST("/btc/retry", h.btcRetry)
	co.DELETE("/btc", h.clearBtc)
	co.POST("/invoice/open", h.invoiceOpen)
	co.POST("/invoice/close", h.invoiceClose)

	ct := api.Group("/cart")
	ct.GET("", h.getCart)
	ct.DELETE("", h.resetCart)
	ct.PUT("/items", h.setItems)
	ct.POST("/items", h.addItem)
	ct.PATCH("/items/:id", h.updateQuantity)
	ct.DELETE("/items/:id", h.removeItem)
	ct.PUT("/discount", h.setDiscount)

	if h.wallet != nil {
		wl := api.Group("/wallet")
		wl.GET("", h.walletState)
		wl.POST("/refresh", h.walletRefresh)
		wl.PUT("/filter", h.walletFilter)
		wl.POST("/invoices", h.walletInvoice)
		wl.POST("/invoice/open", h.walletInvoiceOpen)
		wl.POST("/invoice/close", h.walletInvoiceClose)
	}
	return r
}

func (h *Handler) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.log.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
		)
	}
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return false
	}
	return true
}
