package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/ai"
	"github.com/spigell/job-recommender/internal/ai/gemini"
	"github.com/spigell/job-recommender/internal/dataset"
	"github.com/spigell/job-recommender/internal/filtering"
	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/output"
	"github.com/spigell/job-recommender/internal/recommend"
	"github.com/spigell/job-recommender/internal/secrets"
	"github.com/spigell/job-recommender/internal/snapshot"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var againPrompt = promptui.Select{
	Label: "Query another user?",
	Items: []string{PromptYes, PromptNo},
}

var userPrompt = promptui.Prompt{
	Label: "Enter user ID",
	Validate: func(input string) error {
		_, err := parseUserID(input)
		return err
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend [user-id...]",
	Short: "Recommend jobs for users; asks for ids interactively when none are given",
	Run: func(cmd *cobra.Command, args []string) {
		runRecommend(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().IntP("top-n", "n", 0, "number of jobs to return (default from recommend.top-n)")
	recommendCmd.Flags().StringP("output", "o", "table", "output format: table or json")
	recommendCmd.Flags().StringP("exclude-file", "e", "", "special file with jobs to exclude. Default is unset.")
	recommendCmd.Flags().BoolP("mark-shown", "m", false, "append returned jobs to the exclude file")
	recommendCmd.Flags().String("snapshot", "", "snapshot id to query (default is the latest)")
	recommendCmd.Flags().Bool("ai", false, "attach an AI review to every recommendation")

	viper.BindPFlag("recommend.top-n", recommendCmd.Flags().Lookup("top-n"))
	viper.BindPFlag("recommend.exclude-file", recommendCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("ai.enabled", recommendCmd.Flags().Lookup("ai"))
}

func runRecommend(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
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

	format, err := output.ParseFormat(cmd.Flag("output").Value.String())
	if err != nil {
		logger.Fatal("parsing output format", zap.Error(err))
	}

	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseUserID(arg)
		if err != nil {
			logger.Fatal("parsing arguments", zap.Error(err))
		}
		ids = append(ids, id)
	}

	snap, err := loadSnapshot(ctx, config, cmd.Flag("snapshot").Value.String(), logger)
	if err != nil {
		logger.Fatal("loading snapshot", zap.Error(err),
			zap.String("hint", "run the build command first"),
		)
	}

	opts := []recommend.Option{
		recommend.WithLogger(logger),
		recommend.WithFilters(filtering.Default),
		recommend.WithFilterConfig(&filtering.Config{ExcludeFile: config.Recommend.ExcludeFile}),
	}

	if config.AI.Enabled {
		reviewer, err := newAIReviewer(ctx, config.AI, logger)
		if err != nil {
			logger.Warn("skipping AI review", zap.Error(err))
		} else {
			opts = append(opts, recommend.WithReviewer(reviewer))
		}
	}

	engine := recommend.NewEngine(recommend.NewRanker(opts...), logger)
	if _, err := engine.Swap(snap); err != nil {
		logger.Fatal("publishing snapshot", zap.Error(err))
	}

	q := &query{
		engine:      engine,
		out:         cmd.OutOrStdout(),
		format:      format,
		topN:        config.Recommend.TopN,
		excludeFile: config.Recommend.ExcludeFile,
		markShown:   cmd.Flag("mark-shown").Value.String() == "true",
		logger:      logger,
	}

	if len(ids) > 0 {
		for _, id := range ids {
			if err := q.run(ctx, id); err != nil {
				logger.Fatal("recommending", zap.Error(err))
			}
		}
		return
	}

	for {
		raw, err := userPrompt.Run()
		if err != nil {
			logger.Info("exiting", zap.Error(err))
			return
		}

		id, _ := parseUserID(raw)
		if err := q.run(ctx, id); err != nil {
			logger.Fatal("recommending", zap.Error(err))
		}

		_, action, err := againPrompt.Run()
		if err != nil || action == PromptNo {
			logger.Info("exiting", zap.String("reason", "no more queries"))
			return
		}
	}
}

type query struct {
	engine      *recommend.Engine
	out         io.Writer
	format      output.Format
	topN        int
	excludeFile string
	markShown   bool
	logger      *zap.Logger
}

// run answers one query. An unknown user is reported and is not an error.
func (q *query) run(ctx context.Context, userID int64) error {
	result, err := q.engine.Recommend(ctx, userID, q.topN)
	if errors.Is(err, recommend.ErrNotFound) {
		fmt.Fprintf(q.out, "User ID %d not found!\n", userID)
		return nil
	}
	if err != nil {
		return err
	}

	if err := output.Result(q.out, q.format, result); err != nil {
		return fmt.Errorf("rendering result: %w", err)
	}

	if q.markShown && len(result.Jobs) > 0 {
		return q.appendToExcludeFile(result.UserID, result.Jobs)
	}
	return nil
}

func (q *query) appendToExcludeFile(userID int64, jobs []*dataset.JobPosting) error {
	if q.excludeFile == "" {
		q.logger.Warn("mark-shown requires an exclude file", zap.String("hint", "set recommend.exclude-file or pass --exclude-file"))
		return nil
	}

	excluded, err := dataset.LoadExcludedJobs(q.excludeFile)
	if err != nil {
		return err
	}

	excluded.Append(dataset.ToExcluded(userID, jobs))

	if err := excluded.ToFile(q.excludeFile); err != nil {
		return err
	}

	q.logger.Info("appended to exclude file", zap.String("filename", q.excludeFile), zap.Int64("user_id", userID), zap.Int("count", len(jobs)))
	return nil
}

func loadSnapshot(ctx context.Context, config *Config, id string, log *zap.Logger) (*snapshot.Snapshot, error) {
	store, err := snapshot.Open(ctx, config.Store.Path, log)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if id = strings.TrimSpace(id); id != "" {
		return store.Load(ctx, id)
	}
	return store.Latest(ctx)
}

func newAIReviewer(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Reviewer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		cfg.Gemini = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	genLogger := log.With(
		zap.String("provider", "gemini"),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewReviewer(generator, log, cfg.Gemini.MaxLogLength), nil
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("user id must be a number: %q", raw)
	}
	return id, nil
}
