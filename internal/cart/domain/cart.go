package domain

import "github.com/shopspring/decimal"

// Line is one product row. Amounts are minor currency units.
type Line struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
	Subtotal int64  `json:"subtotal"`
}

type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Cart is the persisted shape: ordered lines plus a discount percentage.
type Cart struct {
	Items    []Line  `json:"items"`
	Discount float64 `json:"discount"`
}

func (c Cart) Subtotal() int64 {
	var sum int64
	for _, l := range c.Items {
		sum += l.Subtotal
	}
	return sum
}

// DiscountAmount applies the percentage to the subtotal, rounded to the
// nearest minor unit.
func (c Cart) DiscountAmount() int64 {
	if c.Discount <= 0 {
		return 0
	}
	pct := c.Discount
	if pct > 100 {
		pct = 100
	}
	return decimal.NewFromInt(c.Subtotal()).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

func (c Cart) Total() int64 {
	return c.Subtotal() - c.DiscountAmount()
}

func (c Cart) Clone() Cart {
	out := Cart{Discount: c.Discount}
	if len(c.Items) > 0 {
		out.Items = append([]Line(nil), c.Items...)
	}
	return out
}
