package cmd

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/dataset"
	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/similarity"
	"github.com/spigell/job-recommender/internal/snapshot"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a similarity snapshot from the user and job tables",
	Run: func(cmd *cobra.Command, _ []string) {
		build(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("users", "u", "", "path to the users CSV file")
	buildCmd.Flags().StringP("jobs", "J", "", "path to the jobs CSV file")

	viper.BindPFlag("data.users", buildCmd.Flags().Lookup("users"))
	viper.BindPFlag("data.jobs", buildCmd.Flags().Lookup("jobs"))
}

func build(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config.Data.Users == "" || config.Data.Jobs == "" {
		logger.Fatal("both data files are required",
			zap.String("hint", "set data.users and data.jobs in the config or pass --users and --jobs"),
		)
	}

	weights, err := similarity.WeightsFromMap(config.Weights)
	if err != nil {
		logger.Fatal("reading weights", zap.Error(err))
	}

	users, err := dataset.LoadUsersCSV(config.Data.Users)
	if err != nil {
		logger.Fatal("loading users", zap.Error(err), zap.String("path", config.Data.Users))
	}

	jobs, err := dataset.LoadJobsCSV(config.Data.Jobs)
	if err != nil {
		logger.Fatal("loading jobs", zap.Error(err), zap.String("path", config.Data.Jobs))
	}

	dataset.Impute(users, jobs)
	logger.Info("data loaded", zap.Int("users", users.Len()), zap.Int("jobs", jobs.Len()))

	started := time.Now()
	matrix, err := similarity.NewBuilder(logger).Build(ctx, users, jobs, weights)
	if err != nil {
		logger.Fatal("building similarity matrix", zap.Error(err))
	}

	snap, err := snapshot.New(users, jobs, weights, matrix)
	if err != nil {
		logger.Fatal("creating a snapshot", zap.Error(err))
	}

	store, err := snapshot.Open(ctx, config.Store.Path, logger)
	if err != nil {
		logger.Fatal("opening snapshot store", zap.Error(err), zap.String("path", config.Store.Path))
	}
	defer store.Close()

	if err := store.Save(ctx, snap); err != nil {
		store.Close()
		logger.Fatal("saving snapshot", zap.Error(err))
	}

	logger.Info("snapshot saved",
		zap.String("snapshot_id", snap.ID),
		zap.String("path", config.Store.Path),
		zap.Duration("took", time.Since(started)),
	)
}
