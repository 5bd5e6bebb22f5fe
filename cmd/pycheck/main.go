package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pycheck/internal/checker"
	"pycheck/internal/config"
	"pycheck/internal/pipeline"
	"pycheck/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:   "pycheck",
		Short: "Static type and name checker for Python sources",
	}
	dbPath  string
	cfgPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Default DB path is local to the project
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the diagnostic cache database (SQLite); overrides config")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "pycheck.yaml", "Path to the config file")

	checkCmd.Flags().BoolVar(&force, "force", false, "Re-check every file, ignoring cached fingerprints")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(cleanCmd)
}

func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if len(args) > 0 {
		cfg.Project.Root = args[0]
	}
	if dbPath != "" {
		cfg.Cache.Path = dbPath
	}
	return cfg, nil
}

var force bool

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Check the project, re-analyzing only files that changed since the last run",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(args)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		fmt.Printf("📂 Checking directory: %s\n", cfg.Project.Root)
		start := time.Now()

		run := pipeline.NewIncrementalCheck(cfg)
		report, err := run.Run(context.Background(), force)
		if err != nil {
			log.Fatalf("Check failed: %v", err)
		}

		for _, d := range report.Diagnostics {
			fmt.Println(d)
		}

		fmt.Printf("✅ Done in %v: %d files checked, %d cached, %d pruned, %d findings.\n",
			time.Since(start), report.Checked, report.Cached, report.Removed, len(report.Diagnostics))

		if hasErrors(report.Diagnostics) {
			os.Exit(1)
		}
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop the diagnostic cache so the next run re-checks everything",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(args)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		store, err := storage.NewSQLiteStore(cfg.Cache.Path)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()

		ctx := context.Background()
		known, err := store.LoadFingerprints(ctx)
		if err != nil {
			log.Fatalf("Failed to read cache: %v", err)
		}
		for path := range known {
			if err := store.DeleteFile(ctx, path); err != nil {
				log.Fatalf("Failed to clean %s: %v", path, err)
			}
		}
		fmt.Printf("🎉 Cache cleared: %d entries removed from %s\n", len(known), cfg.Cache.Path)
	},
}

func hasErrors(diags []checker.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == checker.SeverityError {
			return true
		}
	}
	return false
}
