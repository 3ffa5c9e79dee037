package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	cartdomain "github.com/dwikikusuma/pos-payments/internal/cart/domain"
)

type cartResponse struct {
	Items          []cartdomain.Line `json:"items"`
	Discount       float64           `json:"discount"`
	Subtotal       int64             `json:"subtotal"`
	DiscountAmount int64             `json:"discountAmount"`
	Total          int64             `json:"total"`
}

func toCartResponse(c cartdomain.Cart) cartResponse {
	items := c.Items
	if items == nil {
		items = []cartdomain.Line{}
	}
	return cartResponse{
		Items:          items,
		Discount:       c.Discount,
		Subtotal:       c.Subtotal(),
		DiscountAmount: c.DiscountAmount(),
		Total:          c.Total(),
	}
}

func (h *Handler) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, toCartResponse(h.cart.Get()))
}

func (h *Handler) resetCart(c *gin.Context) {
	h.cart.Reset(c.Request.Context())
	c.JSON(http.StatusOK, toCartResponse(h.cart.Get()))
}

func (h *Handler) setItems(c *gin.Context) {
	var req struct {
		Items []cartdomain.Line `json:"items"`
	}
	if !bind(c, &req) {
		return
	}
	h.respondCart(c)(h.cart.SetItems(c.Request.Context(), req.Items))
}

func (h *Handler) addItem(c *gin.Context) {
	var req struct {
		Product  cartdomain.Product `json:"product"`
		Quantity int64              `json:"quantity"`
	}
	if !bind(c, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	h.respondCart(c)(h.cart.AddItem(c.Request.Context(), req.Product, req.Quantity))
}

func (h *Handler) updateQuantity(c *gin.Context) {
	var req struct {
		Quantity int64 `json:"quantity"`
	}
	if !bind(c, &req) {
		return
	}
	h.respondCart(c)(h.cart.UpdateQuantity(c.Request.Context(), c.Param("id"), req.Quantity))
}

func (h *Handler) removeItem(c *gin.Context) {
	h.respondCart(c)(h.cart.RemoveItem(c.Request.Context(), c.Param("id")))
}

func (h *Handler) setDiscount(c *gin.Context) {
	var req struct {
		Discount float64 `json:"discount"`
	}
	if !bind(c, &req) {
		return
	}
	h.respondCart(c)(h.cart.SetDiscount(c.Request.Context(), req.Discount))
}

func (h *Handler) respondCart(c *gin.Context) func(cartdomain.Cart, error) {
	return func(cart cartdomain.Cart, err error) {
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toCartResponse(cart))
	}
}
