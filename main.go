package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/marcus-crane/jellypresence/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Println(err)
	}

	rootCmd := &cobra.Command{
		Use:   "jellypresence",
		Short: "Relay what's playing on Jellyfin as a rich presence activity",
		// serve is the default when no subcommand is given
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Poll Jellyfin and publish presence over HTTP",
		RunE:  runServe,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "once",
		Short: "Run a single poll and print the presence update",
		RunE:  runOnce,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "preflight",
		Short: "Show whether every host jellypresence talks to is allowed",
		RunE:  runPreflight,
	})

	if err := rootCmd.Execute(); err != nil {
		slog.Error("jellypresence exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg)
	return cfg, nil
}

func setupLogging(cfg config.Config) {
	var out io.Writer = os.Stdout
	if cfg.Presence.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Presence.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		})
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.GetLogLevel()}))
	slog.SetDefault(logger)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := Setup(cfg)
	if err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		app.Stop(context.Background())
		return err
	}

	server := &http.Server{
		Addr:              cfg.Presence.ListenAddr,
		Handler:           RegisterRoutes(http.NewServeMux(), app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// Clear presence while the sinks can still deliver it
		app.Stop(shutdownCtx)
		server.Shutdown(shutdownCtx)
	}()

	slog.Info("jellypresence is running", slog.String("addr", cfg.Presence.ListenAddr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := Setup(cfg)
	if err != nil {
		return err
	}
	defer app.Stop(context.Background())

	update, err := app.poller.Poll(cmd.Context())
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(update)
}

func runPreflight(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	decisions, err := newGate(cfg).Check(cmd.Context())
	if err != nil {
		return err
	}
	for _, d := range decisions {
		status := "allowed"
		if !d.Allowed {
			status = "denied"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", status, d.Host)
	}
	return nil
}
