// mongoscope is the HTTP backend for the MongoDB admin dashboard.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/peternagy/mongoscope/internal/connection"
	"github.com/peternagy/mongoscope/internal/credential"
	"github.com/peternagy/mongoscope/internal/database"
	"github.com/peternagy/mongoscope/internal/document"
	"github.com/peternagy/mongoscope/internal/reconnect"
	"github.com/peternagy/mongoscope/internal/registry"
	"github.com/peternagy/mongoscope/internal/server"
)

// version is injected at build time via -ldflags.
var version = "dev"

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mongoscope",
	Short: "Web dashboard backend for browsing MongoDB deployments",
	Long: `mongoscope serves the REST API behind the MongoDB admin dashboard:
connection profile management, database and collection browsing,
paginated document listing and schema inspection.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mongoscope version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("mongoscope", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("addr", ":8420", "listen address")
	rootCmd.PersistentFlags().String("config-dir", "", "state directory (default: OS config dir)")
	rootCmd.PersistentFlags().StringSlice("cors-origins", nil, "allowed CORS origins (default: any)")

	_ = viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr"))
	_ = viper.BindPFlag("config_dir", rootCmd.PersistentFlags().Lookup("config-dir"))
	_ = viper.BindPFlag("cors_origins", rootCmd.PersistentFlags().Lookup("cors-origins"))

	rootCmd.AddCommand(serveCmd, versionCmd)
}

// initConfig loads an optional config.yaml from the state directory and
// binds MONGOSCOPE_* environment variables. Flags win over both.
func initConfig() {
	viper.SetEnvPrefix("MONGOSCOPE")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	// serve() surfaces a directory that cannot be created; here a failed
	// setup just means no config file to read.
	if dir, err := registry.InitConfigDir(); err == nil {
		viper.AddConfigPath(dir)
	}
	_ = viper.ReadInConfig()
}

func serve() error {
	configDir := viper.GetString("config_dir")
	if configDir == "" {
		var err error
		if configDir, err = registry.InitConfigDir(); err != nil {
			return err
		}
	} else {
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}

	vault := credential.NewKeyringVault()
	repo := registry.NewFileRepository(configDir, vault, logger)

	reg := registry.New(repo, logger)
	reg.Load()
	logger.Info("connection registry loaded",
		zap.String("dir", configDir), zap.Int("profiles", len(reg.List())))

	connSvc := connection.NewService(logger)
	dbSvc := database.NewService(logger)
	docSvc := document.NewService(logger)

	srv := server.New(server.Config{
		Addr:           viper.GetString("addr"),
		AllowedOrigins: viper.GetStringSlice("cors_origins"),
		Version:        version,
	}, reg, connSvc, dbSvc, docSvc, logger)

	// Re-validate the persisted active profile in the background while the
	// server comes up; the UI polls the profile status.
	protocol := reconnect.New(reg, connSvc, logger)
	go protocol.Run(context.Background())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
