package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dwikikusuma/pos-payments/internal/backend"
	cartapp "github.com/dwikikusuma/pos-payments/internal/cart/app"
	"github.com/dwikikusuma/pos-payments/internal/checkout/app"
	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
	"github.com/dwikikusuma/pos-payments/internal/wallet"
)

// httpStatusFromError maps a service error to (status, code, message).
func httpStatusFromError(err error) (int, string, string) {
	msg := err.Error()

	var se *backend.StatusError
	switch {
	case errors.Is(err, domain.ErrPaymentInProgress), errors.Is(err, app.ErrAlreadyCompleted):
		return http.StatusConflict, "CONFLICT", msg
	case errors.Is(err, domain.ErrNoPendingPayment), errors.Is(err, cartapp.ErrItemNotFound):
		return http.StatusNotFound, "NOT_FOUND", msg
	case errors.Is(err, cartapp.ErrInvalidInput), errors.Is(err, wallet.ErrInvalidInput), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "INVALID_ARGUMENT", msg
	}

	var de *domain.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case domain.KindValidation:
			return http.StatusBadRequest, "INVALID_ARGUMENT", msg
		case domain.KindOrderCreationFailed, domain.KindTicketCreationFailed,
			domain.KindPaymentCreationFailed, domain.KindInvoiceGenerationFailed:
			return http.StatusBadGateway, "UPSTREAM", msg
		}
		return http.StatusInternalServerError, "INTERNAL", msg
	}

	if errors.As(err, &se) {
		return http.StatusBadGateway, "UPSTREAM", msg
	}
	return http.StatusInternalServerError, "INTERNAL", msg
}

var errBadRequest = errors.New("bad request")

func writeError(c *gin.Context, err error) {
	status, code, msg := httpStatusFromError(err)
	body := gin.H{"code": code, "error": msg}
	var de *domain.Error
	if errors.As(err, &de) && de.Key != "" {
		body["key"] = de.Key
	}
	c.JSON(status, body)
}
