package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
	"github.com/dwikikusuma/pos-payments/internal/lightning"
)

// flowTimeout bounds a payment flow once it no longer follows the request.
const flowTimeout = 60 * time.Second

// flowContext keeps the request's values but not its cancellation: once a
// flow has issued backend calls they run to completion even if the client
// goes away.
func flowContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request.Context()), flowTimeout)
}

type checkoutStateResponse struct {
	Payment  domain.PaymentState       `json:"payment"`
	Cash     *domain.CashPaymentConfig `json:"cash"`
	Btc      *domain.BtcPaymentConfig  `json:"btc"`
	Invoice  lightning.InvoiceState    `json:"invoice"`
	Methods  []domain.PaymentMethod    `json:"methods"`
	Currency domain.Currency           `json:"currency"`
}

func (h *Handler) checkoutState(c *gin.Context) {
	c.JSON(http.StatusOK, checkoutStateResponse{
		Payment:  h.checkout.State(),
		Cash:     h.checkout.CashPaymentConfig(),
		Btc:      h.checkout.BtcPaymentConfig(),
		Invoice:  h.checkout.InvoiceState(),
		Methods:  h.checkout.PaymentMethods(),
		Currency: h.checkout.Currency(),
	})
}

type payRequest struct {
	User          domain.User `json:"user"`
	PaymentMethod string      `json:"paymentMethod"`
}

func (h *Handler) pay(c *gin.Context) {
	var req payRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := flowContext(c)
	defer cancel()
	out, err := h.checkout.HandlePay(ctx, req.User, h.snaps.Snapshot(req.PaymentMethod))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) clearError(c *gin.Context) {
	h.checkout.ClearPaymentError()
	c.Status(http.StatusNoContent)
}

func (h *Handler) cashComplete(c *gin.Context) {
	var req domain.CashCompletion
	if !bind(c, &req) {
		return
	}
	ctx, cancel := flowContext(c)
	defer cancel()
	res, err := h.checkout.HandleCashComplete(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) clearCash(c *gin.Context) {
	h.checkout.ClearCashPaymentConfig()
	c.Status(http.StatusNoContent)
}

func (h *Handler) btcComplete(c *gin.Context) {
	ctx, cancel := flowContext(c)
	defer cancel()
	done, err := h.checkout.HandleBtcComplete(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, done)
}

func (h *Handler) btcRetry(c *gin.Context) {
	ctx, cancel := flowContext(c)
	defer cancel()
	cfg, err := h.checkout.RetryInvoice(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) clearBtc(c *gin.Context) {
	h.checkout.ClearBtcPaymentConfig()
	c.Status(http.StatusNoContent)
}

func (h *Handler) invoiceOpen(c *gin.Context) {
	h.checkout.OpenInvoiceModal()
	c.JSON(http.StatusOK, h.checkout.InvoiceState())
}

func (h *Handler) invoiceClose(c *gin.Context) {
	h.checkout.CloseInvoiceModal()
	c.JSON(http.StatusOK, h.checkout.InvoiceState())
}
