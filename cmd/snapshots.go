package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/output"
	"github.com/spigell/job-recommender/internal/snapshot"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List stored similarity snapshots, newest first",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, store := openStore(cmd)
		defer store.Close()

		summaries, err := store.List(cmd.Context())
		if err != nil {
			logger.Fatal("listing snapshots", zap.Error(err))
		}

		format, err := output.ParseFormat(cmd.Flag("output").Value.String())
		if err != nil {
			logger.Fatal("parsing output format", zap.Error(err))
		}

		if err := output.Snapshots(cmd.OutOrStdout(), format, summaries); err != nil {
			logger.Fatal("rendering snapshots", zap.Error(err))
		}
	},
}

var snapshotsRmCmd = &cobra.Command{
	Use:   "rm <snapshot-id>...",
	Short: "Delete stored snapshots",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger, store := openStore(cmd)
		defer store.Close()

		for _, id := range args {
			if err := store.Delete(cmd.Context(), id); err != nil {
				logger.Error("deleting snapshot", zap.String("snapshot_id", id), zap.Error(err))
				continue
			}
			logger.Info("snapshot deleted", zap.String("snapshot_id", id))
		}
	},
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsRmCmd)

	snapshotsCmd.Flags().StringP("output", "o", "table", "output format: table or json")
}

func openStore(cmd *cobra.Command) (*zap.Logger, *snapshot.Store) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	store, err := snapshot.Open(cmd.Context(), config.Store.Path, logger)
	if err != nil {
		logger.Fatal("opening snapshot store", zap.Error(err), zap.String("path", config.Store.Path))
	}
	return logger, store
}
