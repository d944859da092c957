package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/cli/config"
	httpctrl "github.com/secmon-lab/babbell/pkg/controller/http"
	smctrl "github.com/secmon-lab/babbell/pkg/controller/socketmode"
	"github.com/secmon-lab/babbell/pkg/service/worker"
	"github.com/secmon-lab/babbell/pkg/usecase"
	"github.com/secmon-lab/babbell/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	defaultSweepInterval = time.Minute
	shutdownTimeout      = 30 * time.Second
)

func cmdServe() *cli.Command {
	var addr string
	var sweepInterval time.Duration
	var socketModeDebug bool
	var buttonsCfg config.Buttons
	var repoCfg config.Repository
	var slackCfg config.Slack
	var guardCfg config.Guard
	var dispatchCfg config.Dispatch
	var menuCfg config.Menu

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("BABBELL_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "sweep-interval",
			Usage:       "Interval of expired dedup and cooldown entry cleanup",
			Value:       defaultSweepInterval,
			Sources:     cli.EnvVars("BABBELL_SWEEP_INTERVAL"),
			Destination: &sweepInterval,
		},
		&cli.BoolFlag{
			Name:        "socket-mode-debug",
			Usage:       "Log raw Socket Mode traffic",
			Category:    "Slack",
			Sources:     cli.EnvVars("BABBELL_SOCKET_MODE_DEBUG"),
			Destination: &socketModeDebug,
		},
	}

	flags = append(flags, buttonsCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, guardCfg.Flags()...)
	flags = append(flags, dispatchCfg.Flags()...)
	flags = append(flags, menuCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Receive Slack events and dispatch notifications",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()
			logger.Info("Serve configuration",
				"addr", addr,
				"buttons", buttonsCfg,
				"repository", repoCfg,
				"slack", slackCfg,
				"guard", guardCfg,
				"dispatch", dispatchCfg,
				"menu", menuCfg,
			)

			buttons, err := buttonsCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load buttons")
			}

			if err := slackCfg.Validate(); err != nil {
				return goerr.Wrap(err, "invalid slack configuration")
			}
			slackSvc, err := slackCfg.Configure()
			if err != nil {
				return err
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			guards, err := guardCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize guard store")
			}
			defer func() {
				if err := guards.Close(); err != nil {
					logger.Error("failed to close guard store", "error", err.Error())
				}
			}()

			ucOpts := []usecase.Option{
				usecase.WithDedupStore(guards.Dedup),
				usecase.WithCooldownStore(guards.Cooldown),
			}
			dispatchOpts, err := dispatchCfg.Options()
			if err != nil {
				return err
			}
			ucOpts = append(ucOpts, dispatchOpts...)

			menuOpts, err := menuCfg.Options()
			if err != nil {
				return err
			}
			ucOpts = append(ucOpts, menuOpts...)

			uc := usecase.New(repo, slackSvc, buttons, ucOpts...)

			if err := uc.Broadcast.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start broadcast workers")
			}

			var sweepWorker *worker.CacheSweepWorker
			if sweepers := uc.Sweepers(); len(sweepers) > 0 {
				sweepWorker = worker.NewCacheSweepWorker(sweepers, sweepInterval)
				if err := sweepWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start cache sweep worker")
				}
			}

			var httpOpts []httpctrl.Options
			if slackCfg.IsWebhookConfigured() {
				httpOpts = append(httpOpts, httpctrl.WithSlackWebhook(uc.Dispatcher, slackCfg.SigningSecret()))
				logger.Info("Slack webhook handler enabled")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			runCtx, cancelRun := context.WithCancel(ctx)
			defer cancelRun()

			errCh := make(chan error, 2)

			if slackCfg.IsSocketModeConfigured() {
				sm, err := smctrl.New(slackCfg.BotToken(), slackCfg.AppToken(), uc.Dispatcher, smctrl.WithDebug(socketModeDebug))
				if err != nil {
					return goerr.Wrap(err, "failed to create socket mode controller")
				}
				go func() {
					logger.Info("Starting Socket Mode")
					if err := sm.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
						errCh <- goerr.Wrap(err, "socket mode stopped")
					}
				}()
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			go func() {
				logger.Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			var runErr error
			select {
			case runErr = <-errCh:
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			// Inbound first, so that no new broadcast is submitted while the queue drains
			cancelRun()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown server gracefully", "error", err.Error())
			}
			if err := uc.Broadcast.Stop(shutdownCtx); err != nil {
				logger.Error("broadcasts were interrupted by shutdown", "error", err.Error())
			}
			if sweepWorker != nil {
				sweepWorker.Stop()
			}

			logger.Info("Server shutdown completed")
			return runErr
		},
	}
}
