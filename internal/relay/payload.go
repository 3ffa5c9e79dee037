package relay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

const SignatureHeader = "X-Phoenix-Signature"

var ErrInvalidPayload = errors.New("invalid payload")

// Payload is a node webhook event, forwarded verbatim to WebSocket clients.
type Payload struct {
	Type        string `json:"type"`
	Timestamp   *int64 `json:"timestamp,omitempty"`
	AmountSat   *int64 `json:"amountSat,omitempty"`
	PaymentHash string `json:"paymentHash,omitempty"`
	ExternalID  string `json:"externalId,omitempty"`
	PayerNote   string `json:"payerNote,omitempty"`
	PayerKey    string `json:"payerKey,omitempty"`
}

func ParsePayload(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, errors.Join(ErrInvalidPayload, err)
	}
	if p.Type == "" {
		return Payload{}, ErrInvalidPayload
	}
	return p, nil
}

// Sign returns the lowercase hex HMAC-SHA256 of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares the provided hex signature with the expected one
// in constant time. Malformed hex never matches.
func VerifySignature(body []byte, secret, provided string) bool {
	got, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}

// Publisher delivers a verified event to every connected client, directly
// or through a broker.
type Publisher interface {
	Publish(ctx context.Context, p Payload) error
}

// Recorder keeps an audit trail of received events.
type Recorder interface {
	Record(ctx context.Context, p Payload, raw []byte) error
}
