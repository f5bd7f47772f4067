package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/workorder-assistant/internal/adapters/driving/httpapi"
)

const defaultServeAddr = ":8080"

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API together with the session expiry scheduler and
the prompt and seed file watchers. Stops gracefully on interrupt.

Metrics are exposed at /metrics in Prometheus format.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	addr := serveAddr
	if addr == "" && application != nil {
		addr = application.Settings.Server.Addr
	}
	if addr == "" {
		addr = defaultServeAddr
	}

	var metrics http.Handler
	if application != nil {
		metrics = application.Metrics.Handler()
	}
	server, err := httpapi.NewServer(&httpapi.Ports{
		Assistant:  assistantService,
		WorkOrders: workOrderService,
		Metrics:    metrics,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(commandContext(cmd))
	g.Go(func() error {
		return server.Run(ctx, addr)
	})
	if application != nil {
		g.Go(func() error {
			if err := application.Scheduler.Start(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			return application.Watch(ctx)
		})
	}
	return g.Wait()
}
