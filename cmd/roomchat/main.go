package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomchat/internal/app"
	"github.com/vovakirdan/roomchat/internal/client"
	"github.com/vovakirdan/roomchat/internal/config"
	"github.com/vovakirdan/roomchat/internal/console"
	"github.com/vovakirdan/roomchat/internal/core"
	applog "github.com/vovakirdan/roomchat/internal/log"
)

var rootCmd = &cobra.Command{
	Use:           "roomchat",
	Short:         "Multi-room chat server and console client",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chatroom server",
	RunE:  runServe,
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Join a chatroom server from the terminal",
	RunE:  runConnect,
}

var (
	flagConfigPath string
	flagLogLevel   string

	flagAddr string

	flagHost string
	flagPort int
	flagPath string
	flagName string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfigPath, "config", "", "path to config file (default ./config.yaml or $ROOMCHAT_CONFIG_DEFAULT_PATH)")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")

	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address")

	connectCmd.Flags().StringVar(&flagHost, "host", "", "chat server host")
	connectCmd.Flags().IntVar(&flagPort, "port", 0, "chat server port")
	connectCmd.Flags().StringVar(&flagPath, "path", "", "chat endpoint path")
	connectCmd.Flags().StringVar(&flagName, "name", "", "display name sent when the server asks")

	rootCmd.AddCommand(serveCmd, connectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "roomchat:", err)
		os.Exit(1)
	}
}

// loadConfig applies CLI flags on top of file and env configuration.
func loadConfig(overrides config.Config) (config.Config, *zerolog.Logger, error) {
	bootstrap := applog.New(flagLogLevel, os.Stderr)

	cfg, path, err := config.Load(bootstrap, flagConfigPath)
	if err != nil {
		return cfg, nil, err
	}
	overrides.LogLevel = flagLogLevel
	cfg.UpdateFrom(overrides)
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	logger := applog.New(cfg.LogLevel, os.Stderr)
	logger.Debug().Str("config_path", path).Msg("configuration loaded")
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(config.Config{Addr: flagAddr})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("addr", cfg.Addr).Str("path", cfg.RoutePath()).Strs("rooms", cfg.SeedRooms).Msg("starting roomchat server")
	if err := app.New(cfg, logger).Run(ctx); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func runConnect(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(config.Config{
		Host: flagHost,
		Port: flagPort,
		Path: flagPath,
		Name: flagName,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dialer := client.WSDialer{Timeout: cfg.DialTimeout, ReadLimit: cfg.MaxMessageBytes}
	c := client.New(core.NewStore(), dialer, cfg.URL(), logger)
	con := console.New(c, os.Stdout, cfg.Name, logger)

	runErr := make(chan error, 1)
	go func() {
		runErr <- c.Run(ctx)
		// The connection is gone; leave the console once its last state is shown.
		cancel()
	}()

	if err := con.Run(ctx, os.Stdin); err != nil {
		return err
	}
	_ = c.Close()

	err = <-runErr
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
