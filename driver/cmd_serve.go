package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"saborlimeno/gorest/config"
	"saborlimeno/gorest/handlers"
	"saborlimeno/gorest/middleware"
	"saborlimeno/gorest/middleware/logkafka"
	"saborlimeno/gorest/services"
	"saborlimeno/gorest/telem"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop, cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	shutdownTracing, err := telem.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	shutdownMetrics, err := telem.InitMetrics(ctx, serviceName, cfg.MetricsAddr, services.Collectors()...)
	if err != nil {
		return err
	}

	orders := services.NewOrders(a.store, a.events)
	signer := services.NewReceiptSigner(cfg.ReceiptSecret, cfg.PublicURL)
	api := &handlers.API{
		Identity: services.NewIdentity(a.store, a.sessions),
		Catalog:  services.NewCatalog(a.store),
		Orders:   orders,
		Payments: services.NewPayments(a.store, a.gateway(), signer, a.events),
		Reports:  services.NewReports(a.store),

		AllowedOrigins: cfg.CORSOrigins,
	}

	if cfg.Store == config.StoreMemory {
		if _, err := api.Catalog.SeedMenu(ctx); err != nil {
			return err
		}
	}

	sim := services.NewSimulator(orders)
	switch cfg.SimulatorMode {
	case config.SimulatorRead:
		orders.SetReadHook(sim)
	case config.SimulatorTimer:
		go sim.Run(ctx, cfg.SimulatorInterval)
	}
	log.Info("order simulator configured", "mode", cfg.SimulatorMode)

	outer := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Recover, middleware.AccessLog}
	if cfg.Store != config.StoreMemory && len(cfg.KafkaBrokers) > 0 {
		shipper := logkafka.NewShipper(logkafka.NewWriter(cfg.KafkaBrokers, cfg.LogsTopic), cfg.AppEnv)
		defer shipper.Close()
		outer = append(outer, shipper.Middleware)
	}

	srv := &http.Server{
		Handler:      api.Router(outer...),
		Addr:         cfg.HTTPAddr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		log.Warn("metrics shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown failed", "error", err)
	}
	return nil
}
