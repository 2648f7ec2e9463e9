package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-sif/sifacc/cluster"
	"github.com/go-sif/sifacc/config"
	"github.com/go-sif/sifacc/internal/metrics"
	"github.com/go-sif/sifacc/logging"
	"github.com/go-sif/sifacc/registry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type serveFlags struct {
	configPath  string
	logLevel    string
	metricsAddr string
	port        int
}

func newServeCommand() *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a driver-side accumulator registry and synchronization server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to a YAML configuration file")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "log level (TRACE, DEBUG, INFO, WARN, ERROR)")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "address to serve /metrics on (disabled if empty)")
	cmd.Flags().IntVar(&flags.port, "port", 0, "port to listen on (0 selects an ephemeral port)")
	return cmd
}

func runServe(cmd *cobra.Command, flags *serveFlags) error {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		conf.LogLevel = flags.logLevel
	}
	if cmd.Flags().Changed("metrics-addr") {
		conf.MetricsAddr = flags.metricsAddr
	}
	if cmd.Flags().Changed("port") {
		conf.Server.Port = flags.port
	}
	log, err := logging.New(conf.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	if len(conf.MetricsAddr) > 0 {
		ms := metrics.NewServer(conf.MetricsAddr, log)
		ms.Start()
		defer ms.Stop()
	}

	reg := registry.New(log)
	defer reg.Close()
	conf.Server.Logger = log
	server := cluster.NewServer(reg, &conf.Server)
	port, err := server.Start()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal")
		if err = server.Shutdown(); err != nil {
			return err
		}
	case <-server.Done():
	}
	if err = server.Err(); err != nil {
		return err
	}
	for _, id := range reg.IDs() {
		v, err := reg.Read(id)
		if err != nil {
			return err
		}
		log.Info("Final accumulator value", zap.Int32("accumulator_id", id), zap.String("value", v.String()))
	}
	return nil
}
