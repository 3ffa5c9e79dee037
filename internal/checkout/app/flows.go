package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
)

var errMissingID = errors.New("response has no id")

// chain holds the identifiers of one order -> ticket -> payment sequence.
type chain struct {
	Order     domain.OrderPayload
	OrderID   string
	TicketID  string
	PaymentID string
}

type chainInput struct {
	User          domain.User
	MethodID      string
	CurrencyID    string
	AmountFiat    float64
	TransactionID string
}

// runChain creates the order, its ticket and the payment, then links the
// payment to the ticket. Each step depends on the previous id; nothing is
// rolled back when a later step fails.
func (s *Service) runChain(ctx context.Context, in chainInput) (chain, error) {
	c, err := s.createOrderAndTicket(ctx, in.User, in.AmountFiat)
	if err != nil {
		return c, err
	}
	paymentID, err := s.processBasePayment(ctx, in, c.TicketID)
	if err != nil {
		return c, err
	}
	c.PaymentID = paymentID
	return c, nil
}

func (s *Service) createOrderAndTicket(ctx context.Context, user domain.User, amountFiat float64) (chain, error) {
	var c chain
	c.Order = s.builder.BuildOrderPayload(user, amountFiat)

	created, err := s.orders.CreateOrder(ctx, c.Order)
	if err == nil && created.ID == "" {
		err = errMissingID
	}
	if err != nil {
		return c, s.classify(domain.KindOrderCreationFailed, KeyCreateOrder, err)
	}
	c.OrderID = created.ID

	ticket, err := s.tickets.CreateTicket(ctx, s.builder.BuildTicketPayload(user, c.OrderID, amountFiat))
	if err == nil && ticket.ID == "" {
		err = errMissingID
	}
	if err != nil {
		s.log.Warn("order left without ticket", slog.String("order_id", c.OrderID))
		return c, s.classify(domain.KindTicketCreationFailed, KeyCreateTicket, err)
	}
	c.TicketID = ticket.ID
	return c, nil
}

func (s *Service) processBasePayment(ctx context.Context, in chainInput, ticketID string) (string, error) {
	payment, err := s.payments.CreatePayment(ctx, BuildPaymentPayload(PaymentInput{
		MethodID:      in.MethodID,
		CurrencyID:    in.CurrencyID,
		Amount:        in.AmountFiat,
		TransactionID: in.TransactionID,
	}))
	if err == nil && payment.ID == "" {
		err = errMissingID
	}
	if err != nil {
		return "", s.classify(domain.KindPaymentCreationFailed, KeyCreatePayment, err)
	}

	if err := s.payments.LinkPaymentToTicket(ctx, payment.ID, ticketID); err != nil {
		return payment.ID, s.classify(domain.KindProcess, KeyProcessPayment, err)
	}
	return payment.ID, nil
}

// markOrderPaid writes the final paid status once the payment is settled.
func (s *Service) markOrderPaid(ctx context.Context, orderID string, order domain.OrderPayload) error {
	order.Status = domain.OrderStatusPaid
	if err := s.orders.UpdateOrder(ctx, orderID, order); err != nil {
		return s.classify(domain.KindProcess, KeyProcessPayment, err)
	}
	return nil
}

func (s *Service) classify(kind domain.Kind, key string, err error) error {
	return &domain.Error{Kind: kind, Key: key, Message: s.t(key), Err: err}
}

func resultFor(snap domain.CartSnapshot, amountFiat float64, c chain) domain.PaymentResult {
	return domain.PaymentResult{
		Items:          snap.Items,
		Subtotal:       snap.Subtotal,
		Discount:       snap.Discount,
		DiscountAmount: snap.DiscountAmount,
		Total:          snap.Total,
		Amount:         amountFiat,
		PaymentMethod:  snap.SelectedPaymentMethod,
		PaymentID:      c.PaymentID,
		OrderID:        c.OrderID,
		TicketID:       c.TicketID,
	}
}
