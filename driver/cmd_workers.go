package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"saborlimeno/gorest/config"
	"saborlimeno/gorest/events"
	"saborlimeno/gorest/services"
	"saborlimeno/gorest/utils"
)

var (
	adminEmail    string
	adminPassword string
	simulateOnce  bool
	simulateEvery time.Duration
	esIndex       string
	batchSize     int
	batchTimeout  time.Duration
)

func init() {
	seedCmd.Flags().StringVar(&adminEmail, "admin-email", "admin@saborlimeno.com", "administrator account to create")
	seedCmd.Flags().StringVar(&adminPassword, "admin-password", "", "administrator password (required)")

	simulateCmd.Flags().BoolVar(&simulateOnce, "once", false, "advance open orders once and exit")
	simulateCmd.Flags().DurationVar(&simulateEvery, "interval", 0, "sweep interval (defaults to SIMULATOR_INTERVAL)")

	shipLogsCmd.Flags().StringVar(&esIndex, "index", "logs", "Elasticsearch index to write to")
	shipLogsCmd.Flags().IntVar(&batchSize, "batch-size", 100, "documents per bulk request")
	shipLogsCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 5*time.Second, "flush a partial batch after this long")
}

// seed: load the house menu and the administrator account.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the menu and the administrator account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if adminPassword == "" {
			return fmt.Errorf("--admin-password is required")
		}
		ctx, stop, cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer stop()
		if cfg.Store == config.StoreMemory {
			return fmt.Errorf("seed needs a persistent store; STORE is %q", cfg.Store)
		}

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		n, err := services.NewCatalog(a.store).SeedMenu(ctx)
		if err != nil {
			return err
		}
		log.Info("menu seeded", "dishes", n)

		admin, created, err := services.NewIdentity(a.store, a.sessions).EnsureAdmin(ctx, services.RegisterInput{
			Name:     "Administrador",
			Email:    adminEmail,
			Password: adminPassword,
		})
		if err != nil {
			return err
		}
		log.Info("administrator ready", "email", admin.Email, "created", created)
		return nil
	},
}

// simulate: run the status simulator as its own process.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Advance open orders through the kitchen and delivery steps",
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		sim := services.NewSimulator(services.NewOrders(a.store, a.events))
		if simulateOnce {
			n, err := sim.Sweep(ctx)
			if err != nil {
				return err
			}
			log.Info("sweep finished", "advanced", n)
			return nil
		}

		interval := simulateEvery
		if interval <= 0 {
			interval = cfg.SimulatorInterval
		}
		log.Info("simulator started", "interval", interval)
		sim.Run(ctx, interval)
		log.Info("simulator stopped")
		return nil
	},
}

// notify: consume order events and send customer notifications.
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Consume order events and notify customers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop, cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer stop()

		consumer := &events.Consumer{
			Reader: events.NewKafkaReader(cfg.KafkaBrokers, cfg.EventsTopic, "notifications"),
			Handle: services.Notifier{}.HandleEvent,
			Logger: log,
		}
		log.Info("notification consumer started", "topic", cfg.EventsTopic)
		return consumer.Run(ctx)
	},
}

// ship-logs: forward access logs from Kafka to Elasticsearch.
var shipLogsCmd = &cobra.Command{
	Use:   "ship-logs",
	Short: "Forward access logs from Kafka to Elasticsearch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop, cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer stop()

		bulk, err := utils.NewESBulk(cfg.ElasticsearchURL, esIndex)
		if err != nil {
			return err
		}
		pusher := &utils.LogPusher{
			Reader:       events.NewKafkaReader(cfg.KafkaBrokers, cfg.LogsTopic, "log-shipper"),
			Bulk:         bulk,
			BatchSize:    batchSize,
			BatchTimeout: batchTimeout,
			Logger:       log,
		}
		log.Info("log shipper started", "topic", cfg.LogsTopic, "index", esIndex)
		return pusher.Run(ctx)
	},
}
