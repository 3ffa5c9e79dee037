package relay

import (
	"context"
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dwikikusuma/pos-payments/pkg/logger"
)

const maxWebhookBody = 1 << 20

// Webhook accepts signed node events and hands them to the publisher.
type Webhook struct {
	secret    string
	publisher Publisher
	recorder  Recorder
	log       *slog.Logger
}

// NewWebhook builds the intake handler. recorder may be nil.
func NewWebhook(secret string, publisher Publisher, recorder Recorder, log *slog.Logger) *Webhook {
	return &Webhook{
		secret:    secret,
		publisher: publisher,
		recorder:  recorder,
		log:       logger.OrDefault(log),
	}
}

func (w *Webhook) Handle(c *gin.Context) {
	if w.secret == "" {
		w.log.Error("webhook secret not configured")
		c.String(http.StatusInternalServerError, "Missing webhook secret")
		return
	}

	sig := c.GetHeader(SignatureHeader)
	if sig == "" {
		c.String(http.StatusUnauthorized, "Missing "+SignatureHeader+" header")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid payload")
		return
	}
	if !VerifySignature(raw, w.secret, sig) {
		w.log.Warn("webhook signature mismatch")
		c.String(http.StatusUnauthorized, "Invalid signature")
		return
	}

	p, err := ParsePayload(raw)
	if err != nil {
		w.log.Warn("invalid webhook payload", slog.Any("err", err))
		c.String(http.StatusBadRequest, "Invalid payload")
		return
	}

	w.log.Info("webhook received",
		slog.String("type", p.Type),
		slog.String("payment_hash", p.PaymentHash),
		slog.String("external_id", p.ExternalID),
	)

	ctx := c.Request.Context()
	if w.recorder != nil {
		if err := w.recorder.Record(ctx, p, raw); err != nil {
			w.log.Error("webhook audit failed", slog.Any("err", err))
		}
	}
	if err := w.publisher.Publish(ctx, p); err != nil {
		w.log.Error("webhook publish failed", slog.Any("err", err))
		c.String(http.StatusBadGateway, "Publish failed")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

// EventLister serves the audit trail.
type EventLister interface {
	Recent(ctx context.Context, limit int) ([]StoredEvent, error)
}

type RouterOptions struct {
	// Token, when set, protects the WebSocket and audit endpoints.
	Token  string
	Events EventLister
}

func NewRouter(webhook *Webhook, hub *Hub, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": hub.Len()})
	})
	r.POST("/webhook/phoenixd", webhook.Handle)
	r.GET("/ws/payments", requireToken(opts.Token), hub.ServeWS)

	if opts.Events != nil {
		r.GET("/events", requireToken(opts.Token), func(c *gin.Context) {
			limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
			events, err := opts.Events.Recent(c.Request.Context(), limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"events": events})
		})
	}
	return r
}

func requireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		if !tokenEqual(c.GetHeader("Authorization"), "Bearer "+token) && !tokenEqual(c.Query("token"), token) {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func tokenEqual(got, want string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
