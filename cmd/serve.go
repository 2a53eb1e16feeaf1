package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appointmint/apptbot/internal/conversation"
	"github.com/appointmint/apptbot/internal/db"
	"github.com/appointmint/apptbot/internal/dispatcher"
	httpSrv "github.com/appointmint/apptbot/internal/http"
	"github.com/appointmint/apptbot/internal/logger"
	"github.com/appointmint/apptbot/internal/repository"
	"github.com/appointmint/apptbot/internal/worker"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server and notification sweeper",
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

		redisClient, err := db.NewRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		loc, err := time.LoadLocation(cfg.Conversation.Timezone)
		if err != nil {
			return fmt.Errorf("load timezone %q: %w", cfg.Conversation.Timezone, err)
		}

		// repositories
		appointmentsRepo := repository.NewAppointmentsRepository(mysqlDB)
		conversationsRepo := repository.NewConversationsRepository(redisClient, cfg.Conversation.StateTTL)
		deliveriesRepo := repository.NewDeliveriesRepository(mysqlDB)

		// outbound path: provider -> dispatcher
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

		engine := conversation.New(appointmentsRepo, conversationsRepo, disp, loc)
		server := httpSrv.NewServer(cfg, engine, redisClient)
		sweeper := worker.NewSweeper(appointmentsRepo, disp, cfg.Sweep.Interval)

		sweepCtx, cancelSweep := context.WithCancel(context.Background())
		defer cancelSweep()
		sweepDone := make(chan struct{})
		go func() {
			defer close(sweepDone)
			_ = sweeper.Run(sweepCtx)
		}()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Printf("signal received: %s, shutting down...", sig)
		case err := <-errCh:
			if err != nil {
				log.Printf("http server exited: %v", err)
			}
		}

		cancelSweep()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		// let a pass that was mid-dispatch finish inside the same deadline
		select {
		case <-sweepDone:
		case <-ctx.Done():
		}

		return nil
	},
}
