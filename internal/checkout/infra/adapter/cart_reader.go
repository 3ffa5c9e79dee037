package adapter

import (
	cartapp "github.com/dwikikusuma/pos-payments/internal/cart/app"
	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
)

type CartServiceReader struct {
	svc *cartapp.Service
}

func NewCartServiceReader(svc *cartapp.Service) *CartServiceReader {
	return &CartServiceReader{svc: svc}
}

// Snapshot freezes the current cart for a payment attempt, recomputing the
// discount and total from the lines.
func (r *CartServiceReader) Snapshot(method string) domain.CartSnapshot {
	cart := r.svc.Get()

	items := make([]domain.CartLine, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, domain.CartLine{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Subtotal: it.Subtotal,
		})
	}
	return domain.CartSnapshot{
		Items:                 items,
		Subtotal:              cart.Subtotal(),
		Discount:              cart.Discount,
		DiscountAmount:        cart.DiscountAmount(),
		Total:                 cart.Total(),
		SelectedPaymentMethod: method,
	}
}
