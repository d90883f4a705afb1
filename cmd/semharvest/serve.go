package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/types"
	"github.com/spf13/cobra"

	"github.com/c360studio/semharvest/graph"
	updateapplier "github.com/c360studio/semharvest/processor/update-applier"
)

const applierName = "update-applier"

func serveCmd(opts *globalOptions) *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Apply update batches from NATS to the triplestore until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, opts, func(ctx context.Context, app *App) error {
				if endpoint == "" {
					endpoint = app.cfg.SPARQL.Endpoint
				}
				if endpoint == "" {
					return errors.New("serve: sparql.endpoint is not configured")
				}
				if natsURL(app.cfg) == "" {
					return errors.New("serve: nats.url is not configured")
				}
				if err := app.attachNATS(ctx); err != nil {
					return err
				}
				if app.natsClient == nil {
					return errors.New("serve: NATS connection unavailable")
				}
				if err := graph.EnsureUpdateStream(ctx, app.natsClient, app.cfg.NATS.Subject); err != nil {
					return err
				}
				return runApplier(ctx, app, endpoint)
			})
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "SPARQL update endpoint (default: sparql.endpoint)")
	return cmd
}

// runApplier creates the update-applier through the component registry,
// runs it until ctx is cancelled and stops it.
func runApplier(ctx context.Context, app *App, endpoint string) error {
	cfg := updateapplier.DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.Timeout = app.cfg.SPARQL.Timeout.String()
	if subject := app.cfg.NATS.Subject; subject != "" {
		cfg.Ports.Inputs[0].Subject = subject
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal %s config: %w", applierName, err)
	}

	reg := component.NewRegistry()
	if err := updateapplier.Register(reg); err != nil {
		return fmt.Errorf("register %s: %w", applierName, err)
	}

	comp, err := reg.CreateComponent(applierName, types.ComponentConfig{
		Type:    types.ComponentTypeOutput,
		Name:    applierName,
		Enabled: true,
		Config:  raw,
	}, component.Dependencies{
		NATSClient:      app.natsClient,
		Logger:          app.logger,
		MetricsRegistry: app.metrics,
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", applierName, err)
	}

	lc, ok := comp.(component.LifecycleComponent)
	if !ok {
		return fmt.Errorf("%s does not support lifecycle management", applierName)
	}
	if err := lc.Initialize(); err != nil {
		return fmt.Errorf("initialize %s: %w", applierName, err)
	}
	if err := lc.Start(ctx); err != nil {
		return fmt.Errorf("start %s: %w", applierName, err)
	}

	app.logger.Info("Applying update batches", "endpoint", endpoint, "subject", cfg.Ports.Inputs[0].Subject)
	<-ctx.Done()

	app.logger.Info("Shutting down")
	return lc.Stop(10 * time.Second)
}
