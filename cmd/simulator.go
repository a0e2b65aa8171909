package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SamuelRM25/codispro/pkg/simulator"
)

var simulatorCmd = &cobra.Command{
	Use:   "simulator",
	Short: "Run the field-client simulator",
	Long: `Run the simulator that:
- Fabricates a set of synthetic field clients
- Connects each one to a running tracker over WebSocket
- Streams random-walk GPS updates at a fixed rate`,
	RunE: runSimulator,
}

func init() {
	rootCmd.AddCommand(simulatorCmd)

	// Simulator-specific flags
	simulatorCmd.Flags().String("url", "ws://localhost:3001/ws", "Tracker WebSocket URL")
	simulatorCmd.Flags().Int("clients", 5, "Number of simulated field clients")
	simulatorCmd.Flags().Duration("interval", 5*time.Second, "Interval between updates per client")

	// Bind flags to viper
	_ = viper.BindPFlag("simulator.url", simulatorCmd.Flags().Lookup("url"))
	_ = viper.BindPFlag("simulator.clients", simulatorCmd.Flags().Lookup("clients"))
	_ = viper.BindPFlag("simulator.interval", simulatorCmd.Flags().Lookup("interval"))
}

func runSimulator(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting simulator service")

	// Create runner configuration from viper
	config := &simulator.RunnerConfig{
		Logger:   logger,
		URL:      viper.GetString("simulator.url"),
		Clients:  viper.GetInt("simulator.clients"),
		Interval: viper.GetDuration("simulator.interval"),
	}

	runner, err := simulator.NewRunner(config)
	if err != nil {
		logger.Error("failed to create simulator", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := runner.Run(ctx); err != nil {
		logger.Error("simulator error", "error", err)
		return err
	}

	logger.Info("simulator stopped")
	return nil
}
