package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetworks/workshop/adapter/cli"
	"github.com/fleetworks/workshop/adapter/cli/appointment"
	"github.com/fleetworks/workshop/adapter/cli/mechanic"
	"github.com/fleetworks/workshop/internal/app"
	"github.com/fleetworks/workshop/internal/appointments/infrastructure/backendclient"
	"github.com/fleetworks/workshop/internal/appointments/infrastructure/resilience"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/convert"
	"github.com/fleetworks/workshop/pkg/config"
	"github.com/fleetworks/workshop/pkg/observability"
)

func main() {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	logger := observability.NewLogger(observability.DefaultLogConfig())

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = observability.NewLogger(observability.LogConfig{
		Level:          observability.LogLevel(cfg.LogLevel),
		Format:         observability.LogFormat(cfg.LogFormat),
		Output:         os.Stderr,
		ServiceName:    "workshop-cli",
		ServiceVersion: cli.Version,
	})
	cli.SetLogger(logger)

	var cliApp *cli.App
	if cfg.RemoteMode() {
		cliApp, err = remoteApp(cfg, logger)
	} else {
		var container *app.Container
		container, err = app.NewContainer(ctx, cfg, logger)
		if err == nil {
			defer container.Close()

			// Events recorded by this invocation are published before exit
			// when the outbox processor runs in the CLI.
			if cfg.OutboxProcessorEnabled && cfg.RabbitMQURL != "" {
				defer func() {
					if err := container.OutboxProcessor.ProcessOnce(context.Background()); err != nil {
						logger.Warn("outbox flush failed", "error", err)
					}
				}()
			}

			cliApp = cli.NewApp(container.Scheduler, cfg.OperatorID, cfg.Location())
			cliApp.Health = container.Health
			cliApp.Migrate = func(ctx context.Context) error {
				return app.Migrate(ctx, cfg, logger)
			}
		}
	}
	if err != nil {
		logger.Warn("backend not available, only offline commands will work", "error", err)
	}

	cli.SetApp(cliApp)

	// Register commands
	cli.AddCommand(appointment.Cmd)
	cli.AddCommand(mechanic.Cmd)

	cli.Execute(ctx)
}

// remoteApp wires the CLI to a running workshop API.
func remoteApp(cfg *config.Config, logger *slog.Logger) (*cli.App, error) {
	client, err := backendclient.New(backendclient.Config{
		BaseURL:    cfg.APIURL,
		Timeout:    cfg.RequestTimeout,
		OperatorID: cfg.OperatorID,
		Breaker: resilience.BreakerConfig{
			Name:        "workshop-api",
			MaxFailures: convert.IntToUint32Clamped(cfg.BreakerMaxFailures, 1),
			OpenTimeout: cfg.BreakerOpenTimeout,
		},
		Location: cfg.Location(),
	}, nil, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("using remote backend", "url", cfg.APIURL)
	return cli.NewApp(client, cfg.OperatorID, cfg.Location()), nil
}
