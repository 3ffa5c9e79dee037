package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dwikikusuma/pos-payments/internal/backend"
	cartapp "github.com/dwikikusuma/pos-payments/internal/cart/app"
	cartsqlite "github.com/dwikikusuma/pos-payments/internal/cart/infra/sqlite"
	checkoutapp "github.com/dwikikusuma/pos-payments/internal/checkout/app"
	"github.com/dwikikusuma/pos-payments/internal/checkout/domain"
	"github.com/dwikikusuma/pos-payments/internal/checkout/httpapi"
	checkoutadapter "github.com/dwikikusuma/pos-payments/internal/checkout/infra/adapter"
	"github.com/dwikikusuma/pos-payments/internal/lightning"
	"github.com/dwikikusuma/pos-payments/internal/push"
	"github.com/dwikikusuma/pos-payments/internal/wallet"
	"github.com/dwikikusuma/pos-payments/pkg/config"
	"github.com/dwikikusuma/pos-payments/pkg/shutdown"
)

// pushHealthService is the grpc health service name tracking the push channel.
const pushHealthService = "pos.push"

func newServeCmd(load loader) *cobra.Command {
	var noWallet bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the checkout API, the push channel and the wallet panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, !noWallet)
		},
	}
	cmd.Flags().BoolVar(&noWallet, "no-wallet", false, "disable the wallet panel routes")
	return cmd
}

func serve(parent context.Context, cfg config.Config, withWallet bool) error {
	log := newLogger(cfg, "pos")
	gin.SetMode(ginMode(cfg.AppEnv))

	ctx, cancel := shutdown.WithSignals(parent, log)
	defer cancel()

	store, err := cartsqlite.Open(cfg.CartDBPath)
	if err != nil {
		return fmt.Errorf("open cart store: %w", err)
	}
	defer store.Close()

	cartSvc := cartapp.NewService(store, log)
	cartSvc.Hydrate(ctx)

	client := backend.New(cfg.BackendURL,
		backend.WithToken(cfg.BackendToken),
		backend.WithLogger(log),
	)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(pushHealthService, healthpb.HealthCheckResponse_NOT_SERVING)

	header := http.Header{}
	if cfg.Relay.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Relay.Token)
	}
	channel := push.New(push.Options{
		URL:            cfg.PushURL(),
		Header:         header,
		ReconnectDelay: cfg.WSReconnectDelay,
		Logger:         log,
		OnConnectionChange: func(connected bool) {
			status := healthpb.HealthCheckResponse_NOT_SERVING
			if connected {
				status = healthpb.HealthCheckResponse_SERVING
			}
			healthSrv.SetServingStatus(pushHealthService, status)
		},
	})

	checkoutSvc := checkoutapp.NewService(checkoutapp.Deps{
		Orders:    client,
		Tickets:   client,
		Payments:  client,
		Reference: client,
		Invoices:  lightning.NewGenerator(client, client, log),
		Events:    checkoutadapter.NewPushEvents(channel),
		Translate: checkoutapp.NewTranslator(cfg.Locale),
		Format:    checkoutapp.CurrencyFormatter,
		Builder:   checkoutapp.Builder{WaiterFallback: cfg.WaiterFallback},
		Logger:    log,
		Hooks: checkoutapp.Hooks{
			OnPay: func(r domain.PaymentResult) {
				log.Info("sale recorded",
					slog.String("order_id", r.OrderID),
					slog.String("payment_method", r.PaymentMethod),
					slog.Int64("total", r.Total),
				)
			},
			OnComplete: func(c domain.BtcCompletion) {
				log.Info("lightning sale recorded",
					slog.String("order_id", c.OrderID),
					slog.Int64("satoshis", c.Satoshis),
					slog.Bool("auto", c.Auto),
				)
			},
			OnResetCart: func() { cartSvc.Reset(context.Background()) },
		},
		DefaultCurrency: cfg.DefaultCurrency,
	})
	defer checkoutSvc.Close()

	if err := checkoutSvc.LoadReferenceData(ctx); err != nil {
		log.Warn("reference data unavailable, using defaults", slog.Any("err", err))
	}

	var walletSvc *wallet.Service
	if withWallet {
		walletSvc = wallet.New(wallet.Deps{
			Node:     client,
			Invoices: client,
			Events:   channel,
			Logger:   log,
		})
		walletSvc.Start()
		defer walletSvc.Close()
	}

	api := httpapi.New(checkoutSvc, cartSvc, checkoutadapter.NewCartServiceReader(cartSvc), walletSvc, log)
	server := newHTTPServer(cfg.HTTPPort, api.Router(), 45*time.Second)

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	grpcAddr := fmt.Sprintf(":%d", cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", grpcAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return channel.Run(gctx) })
	g.Go(func() error { return runHTTP(gctx, log, "http server", server) })
	g.Go(func() error {
		log.Info("grpc health starting", slog.String("addr", grpcAddr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("grpc serve error", slog.Any("err", err))
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		healthSrv.Shutdown()
		stopGRPC(grpcServer, log)
		return nil
	})

	err = g.Wait()
	log.Info("bye")
	return err
}

// stopGRPC drains the server, forcing a stop when draining overruns.
func stopGRPC(s *grpc.Server, log *slog.Logger) {
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()

	t := time.NewTimer(shutdownTimeout)
	defer t.Stop()
	select {
	case <-t.C:
		log.Warn("graceful stop timeout, forcing stop")
		s.Stop()
	case <-stopped:
	}
}

func ginMode(env string) string {
	if env == "prod" || env == "production" {
		return gin.ReleaseMode
	}
	return gin.DebugMode
}
