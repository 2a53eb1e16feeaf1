package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/appointmint/apptbot/internal/db"
	"github.com/appointmint/apptbot/internal/dispatcher"
	"github.com/appointmint/apptbot/internal/logger"
	"github.com/appointmint/apptbot/internal/repository"
	"github.com/appointmint/apptbot/internal/worker"
	"github.com/spf13/cobra"
)

var sweepOnce bool

// sweepCmd runs the reminder/follow-up sweeper on its own, for deployments
// where the webhook and the sweeper are separate processes. `serve` already
// runs an in-process sweeper; run one or the other.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the reminder and follow-up sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Twilio.Validate(); err != nil {
			return err
		}

		logger.Init(cfg.Log.Level)
		defer logger.Sync()

		mysqlDB, err := db.NewMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		appointmentsRepo := repository.NewAppointmentsRepository(mysqlDB)
		deliveriesRepo := repository.NewDeliveriesRepository(mysqlDB)

		breaker := dispatcher.NewBreaker(cfg.Twilio.Breaker.FailThreshold, cfg.Twilio.Breaker.OpenFor)
		provider := dispatcher.NewTwilioProvider(
			cfg.Twilio.AccountSID,
			cfg.Twilio.AuthToken,
			cfg.Twilio.From,
			cfg.Twilio.BaseURL,
			cfg.Twilio.Timeout,
			breaker,
		)
		disp := dispatcher.NewDispatcher(provider, deliveriesRepo, dispatcher.Config{
			MaxAttempts:  cfg.Dispatcher.MaxAttempts,
			RetryBackoff: cfg.Dispatcher.RetryBackoff,
			ButtonLimit:  cfg.Dispatcher.ButtonLimit,
		})

		sweeper := worker.NewSweeper(appointmentsRepo, disp, cfg.Sweep.Interval)

		if sweepOnce {
			sweeper.SweepReminders(cmd.Context())
			sweeper.SweepFollowUps(cmd.Context())
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			log.Printf("signal received: %s, shutting down...", sig)
			cancel()
		}()

		return sweeper.Run(ctx)
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepOnce, "once", false, "run a single sweep pass and exit")
}
