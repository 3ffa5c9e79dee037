package domain

import "errors"

type Kind string

const (
	KindValidation              Kind = "validation"
	KindOrderCreationFailed     Kind = "order_creation_failed"
	KindTicketCreationFailed    Kind = "ticket_creation_failed"
	KindPaymentCreationFailed   Kind = "payment_creation_failed"
	KindInvoiceGenerationFailed Kind = "invoice_generation_failed"
	KindProcess                 Kind = "process_error"
)

// Error is a classified flow failure. Message is already localized and is
// what the operator sees.
type Error struct {
	Kind    Kind
	Key     string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels of the same kind, so errors.Is(err, ErrValidation)
// holds for every validation failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Key == "" && t.Message == "" && t.Kind == e.Kind
}

var (
	ErrValidation              = &Error{Kind: KindValidation}
	ErrOrderCreationFailed     = &Error{Kind: KindOrderCreationFailed}
	ErrTicketCreationFailed    = &Error{Kind: KindTicketCreationFailed}
	ErrPaymentCreationFailed   = &Error{Kind: KindPaymentCreationFailed}
	ErrInvoiceGenerationFailed = &Error{Kind: KindInvoiceGenerationFailed}
	ErrProcess                 = &Error{Kind: KindProcess}
)

var (
	ErrPaymentInProgress = errors.New("payment already in progress")
	ErrNoPendingPayment  = errors.New("no pending payment")
)

// KindOf reports the classification of err, or KindProcess when err is
// not a classified flow error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindProcess
}
