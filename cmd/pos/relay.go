package main

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dwikikusuma/pos-payments/internal/relay"
	"github.com/dwikikusuma/pos-payments/pkg/config"
	"github.com/dwikikusuma/pos-payments/pkg/shutdown"
)

func newRelayCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Run the signed webhook to websocket payment relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runRelay(cmd.Context(), cfg)
		},
	}
}

func runRelay(parent context.Context, cfg config.Config) error {
	log := newLogger(cfg, "relay")
	gin.SetMode(ginMode(cfg.AppEnv))

	ctx, cancel := shutdown.WithSignals(parent, log)
	defer cancel()

	if cfg.Relay.WebhookSecret == "" {
		log.Warn("PHOENIX_WEBHOOK_SECRET not set, webhooks will be rejected")
	}

	hub := relay.NewHub(log)
	g, gctx := errgroup.WithContext(ctx)

	var publisher relay.Publisher = hub
	if cfg.Relay.AMQPURL != "" {
		fanout, err := relay.DialFanout(cfg.Relay.AMQPURL, log)
		if err != nil {
			return err
		}
		defer fanout.Close()
		publisher = fanout
		g.Go(func() error {
			return fanout.Consume(gctx, func(msg []byte) { hub.Broadcast(msg) })
		})
	}

	var (
		recorder relay.Recorder
		events   relay.EventLister
	)
	if cfg.Relay.DatabaseURL != "" {
		eventLog, err := relay.OpenEventLog(ctx, cfg.Relay.DatabaseURL)
		if err != nil {
			return err
		}
		defer eventLog.Close()
		recorder, events = eventLog, eventLog
		log.Info("payment event log enabled")
	}

	webhook := relay.NewWebhook(cfg.Relay.WebhookSecret, publisher, recorder, log)
	router := relay.NewRouter(webhook, hub, relay.RouterOptions{Token: cfg.Relay.Token, Events: events})

	// no write timeout: websocket sessions are long lived
	server := newHTTPServer(cfg.Relay.Port, router, 0)
	g.Go(func() error { return runHTTP(gctx, log, "relay server", server) })

	err := g.Wait()
	log.Info("bye", slog.Int("sessions", hub.Len()))
	return err
}
