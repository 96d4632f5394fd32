package cli

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"

	"productdash/internal/handlers"
	"productdash/internal/models"
	"productdash/internal/notify"
	"productdash/internal/services"
	"productdash/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.cfg.Validate(); err != nil {
				return err
			}

			feed := notify.NewFeed(e.cfg.Dashboard.FeedSize)
			store := services.NewProductStore(e.apiClient(), notify.Multi{feed, notify.NewLogNotifier(e.logger)}, e.logger)
			app := handlers.NewDashboardApp(store, feed, handlers.DashboardOptions{
				MediaURL:  e.cfg.Dashboard.MediaURL,
				AccessLog: true,
			}, e.logger)

			ln, err := net.Listen("tcp", e.cfg.Dashboard.Port)
			if err != nil {
				return err
			}

			sigCtx, stop := signalContext(cmd.Context())
			defer stop()
			g, ctx := errgroup.WithContext(sigCtx)

			if e.cfg.RabbitMQ.URL != "" {
				mq, err := rabbitmq.NewClient(rabbitmq.Config{
					URL:      e.cfg.RabbitMQ.URL,
					Exchange: e.cfg.RabbitMQ.Exchange,
					Queue:    e.cfg.RabbitMQ.Queue,
				}, e.logger)
				if err != nil {
					ln.Close()
					return err
				}
				defer mq.Close()

				done, err := mq.ConsumeProductEvents(func(event models.ProductEvent) error {
					return store.OnProductEvent(ctx, event)
				})
				if err != nil {
					ln.Close()
					return err
				}
				watchEvents(ctx, g, done)
			}

			e.logger.Info("dashboard starting",
				zap.String("addr", e.cfg.Dashboard.Port),
				zap.String("backend", e.cfg.Dashboard.BackendURL))
			serve(ctx, g, app, ln, e.logger)
			return g.Wait()
		},
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// serve runs app on ln inside g and shuts it down once ctx is done. ctx must
// be the context of g so a failing server also stops its siblings.
func serve(ctx context.Context, g *errgroup.Group, app *fiber.App, ln net.Listener, logger *zap.Logger) {
	g.Go(func() error {
		return app.Listener(ln)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server...")
		if err := app.Shutdown(); err != nil {
			logger.Error("error during fiber shutdown", zap.Error(err))
		}
		logger.Info("server gracefully stopped")
		return nil
	})
}

// watchEvents fails g when the product event stream ends before ctx is done.
func watchEvents(ctx context.Context, g *errgroup.Group, done <-chan struct{}) {
	g.Go(func() error {
		select {
		case <-done:
			return errors.New("product event stream closed")
		case <-ctx.Done():
			return nil
		}
	})
}
