package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mirandadam/hsync/pkg/hasher"
	"github.com/mirandadam/hsync/pkg/log"
	"github.com/mirandadam/hsync/pkg/orchestrator"
	"github.com/mirandadam/hsync/pkg/units"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, orchestrator.ErrInterrupted) {
			fmt.Fprintln(os.Stderr, "Interrupted")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hsync",
	Short: "hsync - resumable bulk migration between network shares",
	Long: `hsync migrates very large datasets between two mounted file shares
with full-duplex streaming, strict bandwidth limiting, and a durable
catalog that makes multi-week runs resumable without rescanning.

A fresh run scans both shares and builds a backlog; an interrupted run
picks the backlog up where it left off. Transfers stream through a
bounded queue so reads and writes overlap instead of alternating.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"hsync version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.Flags().String("source", "", "Source root directory (required)")
	rootCmd.Flags().String("dest", "", "Destination root directory (required)")
	rootCmd.Flags().String("db", "hsync.db", "Catalog database file")
	rootCmd.Flags().String("log", "hsync.log", "Audit log file")
	rootCmd.Flags().String("bwlimit", "", "Bandwidth limit in bytes/sec (K/M/G binary suffixes, empty = unlimited)")
	rootCmd.Flags().String("checksum", "sha256", "Checksum algorithm (md5, sha1, sha256, blake2b)")
	rootCmd.Flags().Bool("delete-extras", false, "Delete destination files absent from the source (mirror mode)")
	rootCmd.Flags().Bool("rescan", false, "Force a scan even if a backlog exists")
	rootCmd.Flags().String("block-size", "5M", "Block buffer size (K/M/G binary suffixes)")
	rootCmd.Flags().Int("queue-capacity", 20, "Queue capacity in blocks")
	rootCmd.Flags().String("config", "", "YAML run manifest pre-filling any flag")
	rootCmd.Flags().String("metrics-addr", "", "Expose Prometheus /metrics on this address (empty = disabled)")

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A second signal skips the cooperative drain
	go func() {
		<-ctx.Done()
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		fmt.Fprintln(os.Stderr, "Forced exit")
		os.Exit(130)
	}()

	return orchestrator.New(cfg).Run(ctx)
}

func buildConfig(cmd *cobra.Command) (orchestrator.Config, error) {
	var cfg orchestrator.Config

	manifestPath, _ := cmd.Flags().GetString("config")
	manifest, err := loadManifest(manifestPath)
	if err != nil {
		return cfg, err
	}
	manifest.applyDefaults(cmd)

	cfg.SourceRoot, _ = cmd.Flags().GetString("source")
	cfg.DestRoot, _ = cmd.Flags().GetString("dest")
	cfg.DBPath, _ = cmd.Flags().GetString("db")
	cfg.LogPath, _ = cmd.Flags().GetString("log")
	cfg.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
	cfg.DeleteExtras, _ = cmd.Flags().GetBool("delete-extras")
	cfg.Rescan, _ = cmd.Flags().GetBool("rescan")
	cfg.QueueCapacity, _ = cmd.Flags().GetInt("queue-capacity")

	if cfg.SourceRoot == "" || cfg.DestRoot == "" {
		return cfg, fmt.Errorf("--source and --dest are required")
	}

	algoStr, _ := cmd.Flags().GetString("checksum")
	algo, err := hasher.ParseAlgorithm(algoStr)
	if err != nil {
		return cfg, err
	}
	cfg.Algorithm = algo

	if s, _ := cmd.Flags().GetString("bwlimit"); s != "" {
		limit, err := units.ParseSize(s)
		if err != nil {
			return cfg, fmt.Errorf("--bwlimit: %w", err)
		}
		cfg.BWLimit = limit
	}

	blockStr, _ := cmd.Flags().GetString("block-size")
	blockSize, err := units.ParseSize(blockStr)
	if err != nil {
		return cfg, fmt.Errorf("--block-size: %w", err)
	}
	if blockSize <= 0 {
		return cfg, fmt.Errorf("--block-size must be positive")
	}
	cfg.BlockSize = int(blockSize)

	return cfg, nil
}
