package app

import "strings"

const (
	KeySelectMethod     = "errors.selectMethod"
	KeyEmptyCart        = "errors.emptyCart"
	KeyNoUser           = "errors.noUser"
	KeyNoCurrency       = "errors.noCurrency"
	KeyCreateOrder      = "errors.createOrder"
	KeyCreateTicket     = "errors.createTicket"
	KeyCreatePayment    = "errors.createPayment"
	KeyProcessPayment   = "errors.processPayment"
	KeyGenerateInvoice  = "errors.generateInvoice"
	KeyInsufficientCash = "errors.insufficientCash"
	KeyNoPending        = "errors.noPendingPayment"

	KeyPaymentSuccess  = "payment.success"
	KeyAwaitingCash    = "payment.awaitingCash"
	KeyInvoiceReady    = "payment.invoiceReady"
	KeyBitcoinReceived = "payment.bitcoinReceived"
)

// Translator turns a message key into operator-facing text.
type Translator func(key string) string

var catalogs = map[string]map[string]string{
	"en": {
		KeySelectMethod:     "Select a payment method",
		KeyEmptyCart:        "The cart is empty",
		KeyNoUser:           "No user is signed in",
		KeyNoCurrency:       "No base currency is configured",
		KeyCreateOrder:      "Could not create the order",
		KeyCreateTicket:     "Could not create the ticket",
		KeyCreatePayment:    "Could not register the payment",
		KeyProcessPayment:   "Could not process the payment",
		KeyGenerateInvoice:  "Could not generate the invoice",
		KeyInsufficientCash: "Cash received is less than the amount due",
		KeyNoPending:        "There is no pending payment",
		KeyPaymentSuccess:   "Payment completed",
		KeyAwaitingCash:     "Waiting for cash confirmation",
		KeyInvoiceReady:     "Invoice ready, waiting for payment",
		KeyBitcoinReceived:  "Bitcoin payment received",
	},
	"es": {
		KeySelectMethod:     "Selecciona un método de pago",
		KeyEmptyCart:        "El carrito está vacío",
		KeyNoUser:           "No hay un usuario autenticado",
		KeyNoCurrency:       "No hay una moneda base configurada",
		KeyCreateOrder:      "No se pudo crear la orden",
		KeyCreateTicket:     "No se pudo crear el ticket",
		KeyCreatePayment:    "No se pudo registrar el pago",
		KeyProcessPayment:   "No se pudo procesar el pago",
		KeyGenerateInvoice:  "No se pudo generar la factura",
		KeyInsufficientCash: "El efectivo recibido es menor al total",
		KeyNoPending:        "No hay un pago pendiente",
		KeyPaymentSuccess:   "Pago completado",
		KeyAwaitingCash:     "Esperando confirmación del efectivo",
		KeyInvoiceReady:     "Factura lista, esperando el pago",
		KeyBitcoinReceived:  "Pago en bitcoin recibido",
	},
}

// NewTranslator returns a translator for locale, falling back to English
// and finally to the key itself.
func NewTranslator(locale string) Translator {
	lang := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	catalog, ok := catalogs[lang]
	if !ok {
		catalog = catalogs["en"]
	}
	return func(key string) string {
		if msg, ok := catalog[key]; ok {
			return msg
		}
		return key
	}
}

// KeyTranslator returns keys untranslated.
func KeyTranslator(key string) string { return key }
