package cli

import (
	"fmt"
	"net"

	"productdash/internal/config"
	"productdash/internal/handlers"
	"productdash/internal/models"
	"productdash/internal/repositories"
	"productdash/internal/services"
	"productdash/pkg/rabbitmq"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newBackendCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "backend",
		Short: "Run the reference catalog backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := e.cfg.Server

			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(&models.Product{}); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			images, err := repositories.NewDiskImageStore(cfg.MediaDir)
			if err != nil {
				return err
			}

			var events services.EventPublisher
			if e.cfg.RabbitMQ.URL != "" {
				mq, err := rabbitmq.NewClient(rabbitmq.Config{
					URL:      e.cfg.RabbitMQ.URL,
					Exchange: e.cfg.RabbitMQ.Exchange,
					Queue:    e.cfg.RabbitMQ.Queue,
				}, e.logger)
				if err != nil {
					return err
				}
				defer mq.Close()
				events = mq
			}

			service := services.NewProductService(repositories.NewGORMProductRepository(db), images, events, e.logger)
			app := handlers.NewBackendApp(service, handlers.BackendOptions{
				MediaDir:  images.Dir(),
				Tokens:    e.tokenService(),
				AccessLog: true,
			}, e.logger)

			e.logger.Info("catalog backend starting",
				zap.String("addr", cfg.Port),
				zap.String("driver", cfg.DatabaseDriver))

			ln, err := net.Listen("tcp", cfg.Port)
			if err != nil {
				return err
			}

			sigCtx, stop := signalContext(cmd.Context())
			defer stop()
			g, ctx := errgroup.WithContext(sigCtx)
			serve(ctx, g, app, ln, e.logger)
			return g.Wait()
		},
	}
}

// openDatabase opens the catalog database with the configured gorm driver.
func openDatabase(cfg config.ServerConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseDSN)
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
