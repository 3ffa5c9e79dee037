package backend

import (
	"context"
	"net/url"

	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
)

func (c *Client) CreateOrder(ctx context.Context, order domain.OrderPayload) (domain.Created, error) {
	var out domain.Created
	err := c.do(ctx, "POST", "/orders", order, &out)
	return out, err
}

func (c *Client) UpdateOrder(ctx context.Context, orderID string, order domain.OrderPayload) error {
	return c.do(ctx, "PUT", "/orders/"+url.PathEscape(orderID), order, nil)
}

func (c *Client) CreateTicket(ctx context.Context, ticket domain.TicketPayload) (domain.Created, error) {
	var out domain.Created
	err := c.do(ctx, "POST", "/tickets", ticket, &out)
	return out, err
}

func (c *Client) CreatePayment(ctx context.Context, payment domain.PaymentPayload) (domain.Created, error) {
	var out domain.Created
	err := c.do(ctx, "POST", "/payments", payment, &out)
	return out, err
}

func (c *Client) LinkPaymentToTicket(ctx context.Context, paymentID, ticketID string) error {
	body := map[string]string{"payment_id": paymentID}
	return c.do(ctx, "POST", "/tickets/"+url.PathEscape(ticketID)+"/payments", body, nil)
}

func (c *Client) GetPaymentCurrencyByID(ctx context.Context, currencyID string) (domain.Currency, error) {
	var out domain.Currency
	err := c.do(ctx, "GET", "/payments/currencies/"+url.PathEscape(currencyID), nil, &out)
	return out, err
}

func (c *Client) PaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	var out []domain.PaymentMethod
	err := c.do(ctx, "GET", "/payments/methods", nil, &out)
	return out, err
}

func (c *Client) BaseCurrency(ctx context.Context) (domain.Currency, error) {
	var out domain.Currency
	err := c.do(ctx, "GET", "/base-currency", nil, &out)
	return out, err
}
