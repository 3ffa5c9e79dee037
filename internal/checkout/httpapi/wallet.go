package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) walletState(c *gin.Context) {
	c.JSON(http.StatusOK, h.wallet.Snapshot())
}

func (h *Handler) walletRefresh(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.wallet.RefreshInfo(ctx); err != nil {
		writeError(c, err)
		return
	}
	if err := h.wallet.RefreshTransactions(ctx); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.wallet.Snapshot())
}

func (h *Handler) walletFilter(c *gin.Context) {
	var req struct {
		Filter string `json:"filter"`
	}
	if !bind(c, &req) {
		return
	}
	if err := h.wallet.SetFilter(c.Request.Context(), req.Filter); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.wallet.Snapshot())
}

func (h *Handler) walletInvoice(c *gin.Context) {
	var req struct {
		AmountSat   int64  `json:"amountSat"`
		Description string `json:"description"`
	}
	if !bind(c, &req) {
		return
	}
	inv, err := h.wallet.CreateInvoice(c.Request.Context(), req.AmountSat, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *Handler) walletInvoiceOpen(c *gin.Context) {
	h.wallet.OpenInvoice()
	c.JSON(http.StatusOK, h.wallet.InvoiceState())
}

func (h *Handler) walletInvoiceClose(c *gin.Context) {
	h.wallet.CloseInvoice()
	c.JSON(http.StatusOK, h.wallet.InvoiceState())
}
