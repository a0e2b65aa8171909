package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SamuelRM25/codispro/internal/tracker"
	"github.com/SamuelRM25/codispro/pkg/metrics"
)

var trackerCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Run the location tracking service",
	Long: `Run the real-time location tracking service that:
- Accepts WebSocket connections from field clients and the dashboard map
- Persists GPS samples to PostgreSQL
- Broadcasts position changes to all connected observers
- Prunes samples older than the retention horizon`,
	RunE: runTracker,
}

func init() {
	rootCmd.AddCommand(trackerCmd)

	// Tracker-specific flags
	trackerCmd.Flags().Int("listen-port", 3001, "WebSocket listen port")
	trackerCmd.Flags().String("db-host", "localhost", "PostgreSQL host")
	trackerCmd.Flags().Int("db-port", 5432, "PostgreSQL port")
	trackerCmd.Flags().String("db-user", "postgres", "PostgreSQL user")
	trackerCmd.Flags().String("db-password", "", "PostgreSQL password")
	trackerCmd.Flags().String("db-name", "codispro", "PostgreSQL database name")
	trackerCmd.Flags().String("db-sslmode", "disable", "PostgreSQL SSL mode")
	trackerCmd.Flags().Duration("retention-horizon", 7*24*time.Hour, "Maximum age of stored location samples")
	trackerCmd.Flags().Duration("sweep-interval", 24*time.Hour, "Time between retention sweeps")
	trackerCmd.Flags().StringSlice("allowed-origins", nil, "Allowed WebSocket origins (empty allows any)")

	// Bind flags to viper
	_ = viper.BindPFlag("tracker.listen-port", trackerCmd.Flags().Lookup("listen-port"))
	_ = viper.BindPFlag("tracker.db.host", trackerCmd.Flags().Lookup("db-host"))
	_ = viper.BindPFlag("tracker.db.port", trackerCmd.Flags().Lookup("db-port"))
	_ = viper.BindPFlag("tracker.db.user", trackerCmd.Flags().Lookup("db-user"))
	_ = viper.BindPFlag("tracker.db.password", trackerCmd.Flags().Lookup("db-password"))
	_ = viper.BindPFlag("tracker.db.name", trackerCmd.Flags().Lookup("db-name"))
	_ = viper.BindPFlag("tracker.db.sslmode", trackerCmd.Flags().Lookup("db-sslmode"))
	_ = viper.BindPFlag("tracker.retention.horizon", trackerCmd.Flags().Lookup("retention-horizon"))
	_ = viper.BindPFlag("tracker.retention.sweep-interval", trackerCmd.Flags().Lookup("sweep-interval"))
	_ = viper.BindPFlag("tracker.cors.allowed-origins", trackerCmd.Flags().Lookup("allowed-origins"))
}

func runTracker(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting tracker service")

	// Create tracker configuration from viper
	config := &tracker.ServerConfig{
		Logger:           logger,
		Metrics:          metrics.NewTrackerMetrics("codispro"),
		ListenPort:       viper.GetInt("tracker.listen-port"),
		DBHost:           viper.GetString("tracker.db.host"),
		DBPort:           viper.GetInt("tracker.db.port"),
		DBUser:           viper.GetString("tracker.db.user"),
		DBPassword:       viper.GetString("tracker.db.password"),
		DBName:           viper.GetString("tracker.db.name"),
		DBSSLMode:        viper.GetString("tracker.db.sslmode"),
		RetentionHorizon: viper.GetDuration("tracker.retention.horizon"),
		SweepInterval:    viper.GetDuration("tracker.retention.sweep-interval"),
		AllowedOrigins:   viper.GetStringSlice("tracker.cors.allowed-origins"),
	}

	// Create and run server
	server, err := tracker.NewServer(config)
	if err != nil {
		logger.Error("failed to create tracker server", "error", err)
		return err
	}

	logger.Info("tracker server configuration",
		"listen_port", config.ListenPort,
		"db_host", config.DBHost,
		"db_port", config.DBPort,
		"db_name", config.DBName,
		"retention_horizon", config.RetentionHorizon,
		"sweep_interval", config.SweepInterval,
	)

	if err := server.Run(context.Background()); err != nil {
		logger.Error("tracker server error", "error", err)
		return err
	}

	logger.Info("tracker server stopped")
	return nil
}
