// Package main implements the exchange node entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nativeswap/node/config"
	"nativeswap/node/engine"
	"nativeswap/node/rpc"
)

func main() {
	var (
		configPath string
		rpcAddr    string
		dataDir    string
	)

	rootCmd := &cobra.Command{
		Use:   "node",
		Short: "Run the nativeswap exchange node",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if rpcAddr != "" {
				cfg.RPCAddr = rpcAddr
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			return run(cfg)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.Flags().StringVar(&rpcAddr, "rpc-addr", "", "RPC server address (overrides config)")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	eng, err := engine.New(cfg, log.Named("engine"))
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	backend := rpc.NewEngineBackend(eng)
	server := rpc.NewServer(backend, log.Named("rpc"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	if err := server.Start(cfg.RPCAddr); err != nil {
		return fmt.Errorf("start RPC server: %w", err)
	}

	log.Info("node started",
		zap.String("rpc_addr", cfg.RPCAddr),
		zap.String("data_dir", cfg.DataDir))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("RPC shutdown", zap.Error(err))
	}
	eng.Stop()

	log.Info("node stopped")
	return nil
}
