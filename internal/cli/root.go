// Package cli wires the dashboard, the catalog backend and the product
// commands into a single cobra command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"productdash/internal/client"
	"productdash/internal/config"
	"productdash/internal/logger"
	"productdash/internal/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// env is the state shared by every command, filled in before any command runs.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand builds the productdash command tree.
func NewRootCommand() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "productdash",
		Short:         "Product management dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e.cfg = config.Load()
			log, err := logger.New(e.cfg.Logger)
			if err != nil {
				return err
			}
			e.logger = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}

	root.AddCommand(
		newServeCommand(e),
		newBackendCommand(e),
		newProductsCommand(e),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// apiClient builds the catalog API client. Requests are signed only when a
// service token secret is configured.
func (e *env) apiClient() *client.Client {
	cfg := client.Config{
		BaseURL: e.cfg.Dashboard.BackendURL,
		Timeout: e.cfg.Dashboard.BackendTimeout,
	}
	if tokens := e.tokenService(); tokens != nil {
		cfg.Tokens = tokens
	}
	return client.New(cfg, e.logger)
}

func (e *env) tokenService() *services.TokenService {
	if e.cfg.Backend.TokenSecret == "" {
		return nil
	}
	return services.NewTokenService(e.cfg.Backend.TokenSecret, e.cfg.Backend.TokenTTL)
}
