package cmd

import (
	"fmt"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/agriml/yieldpipe/ingest"
	"github.com/agriml/yieldpipe/store"
)

var (
	buildDataDir   string
	buildSnapshot  string
	buildSkipStore bool
)

var buildCmd = &cobra.Command{
	Use:   "build-features",
	Short: "Read the raw sources, build the feature table and load the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir := buildDataDir
		if dataDir == "" {
			dataDir = cfg.Paths.DataDir
		}
		snapshot := buildSnapshot
		if snapshot == "" {
			snapshot = cfg.Paths.Snapshot
		}

		sources := ingest.LoadSources(dataDir, logger)
		merged, err := ingest.Merge(sources, logger)
		if err != nil {
			return err
		}
		final, err := ingest.Finalize(merged, logger)
		if err != nil {
			return err
		}
		if err := ingest.WriteSnapshot(final, snapshot, logger); err != nil {
			return err
		}

		if buildSkipStore || cfg.Store.DSN == "" {
			logger.Info().Msg("feature store load skipped")
			fmt.Printf("built %d feature rows, snapshot at %s\n", final.NumRows(), snapshot)
			return nil
		}

		st, err := store.Open(cfg.Store.DSN, logger)
		if err != nil {
			return err
		}
		rows, err := store.RowsFromFrame(final)
		if err != nil {
			return err
		}

		bar := pb.StartNew(len(rows))
		inserted, failed, err := st.Replace(cmd.Context(), rows, func(done int) {
			bar.SetCurrent(int64(done))
		})
		bar.Finish()
		if err != nil {
			return err
		}

		fmt.Printf("built %d feature rows: %d inserted, %d failed, snapshot at %s\n",
			final.NumRows(), inserted, failed, snapshot)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&buildDataDir, "data-dir", "", "directory with the raw source CSVs")
	buildCmd.Flags().StringVar(&buildSnapshot, "out", "", "snapshot CSV path")
	buildCmd.Flags().BoolVar(&buildSkipStore, "skip-store", false, "build the snapshot only, do not touch the store")
	rootCmd.AddCommand(buildCmd)
}
