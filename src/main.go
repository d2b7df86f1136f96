package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contre95/xiaozhi-adapter/src/features/config"
	"github.com/contre95/xiaozhi-adapter/src/features/hosting"
	"github.com/contre95/xiaozhi-adapter/src/features/logging"
	"github.com/contre95/xiaozhi-adapter/src/features/metrics"
	"github.com/contre95/xiaozhi-adapter/src/features/resolving"
	"github.com/contre95/xiaozhi-adapter/src/infra/cache"
	"github.com/contre95/xiaozhi-adapter/src/infra/upstream"
	"github.com/contre95/xiaozhi-adapter/src/infra/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var (
	configPath string
	port       uint32

	rootCmd = &cobra.Command{
		Use:          "xiaozhi-adapter",
		Short:        "Caching music proxy in front of the xiaozhishop lookup service",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         run,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	rootCmd.Flags().Uint32VarP(&port, "port", "p", 0, "listening port, overrides the configuration")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfgManager, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("port") {
		if err := cfgManager.SetServerPort(port); err != nil {
			return err
		}
	}

	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	maxSize := cfgManager.Get().Cache.MaxSize
	client := upstream.NewXiaozhishopClient(cfgManager)
	resolvingService := resolving.NewService(client, cache.NewLRU[[]byte](maxSize), cache.NewLRU[string](maxSize), cfgManager, recorder)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configWatcher, err := watcher.NewConfigWatcher(cfgManager, nil)
	if err != nil {
		slog.Warn("Config hot reload disabled", "error", err)
	} else if err := configWatcher.Start(ctx); err != nil {
		slog.Warn("Config hot reload disabled", "path", cfgManager.Path(), "error", err)
	} else {
		defer configWatcher.Stop()
	}

	server := hosting.NewServer(cfgManager, resolvingService, registry)
	printBanner(cfgManager.Get())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	done := make(chan error, 1)
	go func() {
		done <- server.Shutdown()
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	case <-time.After(10 * time.Second):
		slog.Warn("Shutdown timed out")
	}
	slog.Info("Server gracefully shut down.")
	return nil
}

func printBanner(cfg *config.Config) {
	slog.Info("Xiaozhi adapter started. Press Ctrl+C to shut down.",
		"port", cfg.Server.Port,
		"xiaozhishop", cfg.Upstream.BaseURL(),
		"cache_max_size", cfg.Cache.MaxSize,
	)
	slog.Info("Endpoints",
		"search", "/stream_pcm?song=<name>&artist=<artist>",
		"audio", "/proxy_audio?id=<song_id>",
		"lyric", "/proxy_lyric?id=<song_id>&format=json|text",
		"health", "/health",
		"config", "/config",
		"clear_cache", "/clear_cache",
	)
}
