package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/repeat311/internal/config"
	"github.com/sells-group/repeat311/internal/pipeline"
	"github.com/sells-group/repeat311/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "repeat311",
	Short: "Find addresses with repeated 311 service requests",
	Long: "Reads a 311 service-request GeoJSON export, groups requests by address, and writes the features at " +
		"repeat addresses, a per-address text report, and a chronologically sorted CSV of every request.",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var st store.Store
		if cfg.Store.SQLitePath != "" {
			sqlite, err := store.NewSQLite(cfg.Store.SQLitePath)
			if err != nil {
				return eris.Wrap(err, "open run archive")
			}
			defer sqlite.Close() //nolint:errcheck
			if err := sqlite.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate run archive")
			}
			st = sqlite
		}

		res, err := pipeline.New(cfg, st).Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("repeat311 complete",
			zap.String("run_id", res.RunID),
			zap.Int("features", len(res.Records)),
			zap.Int("repeat_addresses", len(res.Groups)),
			zap.String("geojson", cfg.Output.GeoJSONPath),
			zap.String("report", cfg.Output.ReportPath),
			zap.String("csv", cfg.Output.CSVPath),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
