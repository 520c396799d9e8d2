// Package recommend ranks candidate jobs for a user on top of a precomputed
// similarity matrix.
package recommend

import (
	"context"
	"encoding/json"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/ai"
	"github.com/spigell/job-recommender/internal/dataset"
	"github.com/spigell/job-recommender/internal/filtering"
	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/similarity"
)

const DefaultTopN = 5

// Recommendation is one ranked job.
type Recommendation struct {
	JobID       int64          `json:"job_id"`
	JobTitle    string         `json:"job_title"`
	CompanyName string         `json:"company_name"`
	Reason      string         `json:"reason"`
	Score       float64        `json:"matching_score"`
	Review      *ai.Assessment `json:"review,omitempty"`
}

// MarshalJSON renders a non-finite score as null.
func (r Recommendation) MarshalJSON() ([]byte, error) {
	type plain Recommendation
	out := struct {
		plain
		Score *float64 `json:"matching_score"`
	}{plain: plain(r)}
	if !math.IsNaN(r.Score) && !math.IsInf(r.Score, 0) {
		score := r.Score
		out.Score = &score
	}
	return json.Marshal(out)
}

// Result is the answer to one query. An empty Recommendations list is a valid
// outcome when no job shares the user's industry.
type Result struct {
	UserID           int64            `json:"user_id"`
	UserName         string           `json:"user_name"`
	DesiredJob       string           `json:"desired_job"`
	DesiredWorkplace string           `json:"desired_workplace"`
	Recommendations  []Recommendation `json:"recommendations"`

	// Jobs are the postings behind Recommendations, in the same order.
	Jobs []*dataset.JobPosting `json:"-"`
}

// Ranker turns a matrix row into recommendations. It holds no per-query
// state and is safe for concurrent use.
type Ranker struct {
	jobWeight    float64
	filters      func() []filtering.Filter
	filterConfig *filtering.Config
	reviewer     ai.Reviewer
	logger       *zap.Logger
}

type Option func(*Ranker)

// WithJobWeight sets the job weight used to approximate title similarity.
func WithJobWeight(w float64) Option {
	return func(r *Ranker) { r.jobWeight = w }
}

// WithFilters replaces the candidate pipeline. The factory is called once per
// query because filters keep their validated configuration.
func WithFilters(factory func() []filtering.Filter) Option {
	return func(r *Ranker) { r.filters = factory }
}

func WithFilterConfig(cfg *filtering.Config) Option {
	return func(r *Ranker) { r.filterConfig = cfg }
}

// WithReviewer attaches an AI second opinion to every returned recommendation.
func WithReviewer(reviewer ai.Reviewer) Option {
	return func(r *Ranker) { r.reviewer = reviewer }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Ranker) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRanker(opts ...Option) *Ranker {
	r := &Ranker{
		jobWeight:    similarity.DefaultWeights.Job,
		filters:      func() []filtering.Filter { return []filtering.Filter{filtering.NewIndustry()} },
		filterConfig: &filtering.Config{},
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recommend ranks jobs with the default ranker.
func Recommend(userID int64, users *dataset.Users, jobs *dataset.Jobs, matrix *similarity.Matrix, topN int) (*Result, error) {
	return NewRanker().Recommend(context.Background(), userID, users, jobs, matrix, topN)
}

// Recommend returns the topN best scored candidates for userID. The matrix must
// have been built from exactly these users and jobs in this order. topN <= 0
// means DefaultTopN.
func (r *Ranker) Recommend(ctx context.Context, userID int64, users *dataset.Users, jobs *dataset.Jobs, matrix *similarity.Matrix, topN int) (*Result, error) {
	return r.rank(ctx, userID, users, jobs, matrix, r.jobWeight, topN)
}

type scored struct {
	candidate dataset.Candidate
	score     float64
	reason    string
}

func (r *Ranker) rank(ctx context.Context, userID int64, users *dataset.Users, jobs *dataset.Jobs, matrix *similarity.Matrix, jobWeight float64, topN int) (*Result, error) {
	row := users.IndexOf(userID)
	if row < 0 {
		return nil, &NotFoundError{UserID: userID}
	}

	if err := checkShape(users, jobs, matrix); err != nil {
		return nil, err
	}

	if topN <= 0 {
		topN = DefaultTopN
	}

	log := logger.WithFields(r.logger, logger.QueryFields(userID, topN)...)
	user := users.Items[row]

	result := &Result{
		UserID:           user.ID,
		UserName:         user.Name,
		DesiredJob:       user.DesiredJob,
		DesiredWorkplace: user.DesiredWorkplace,
		Recommendations:  []Recommendation{},
	}

	candidates, err := filtering.Run(ctx, r.filterConfig, filtering.Deps{Logger: log, User: user}, r.filters(), dataset.AllCandidates(jobs))
	if err != nil {
		return nil, err
	}
	if candidates.Len() == 0 {
		log.Info("no candidate jobs")
		return result, nil
	}

	entries := matrix.Row(row)
	ranked := make([]scored, 0, candidates.Len())
	for _, candidate := range candidates.Items {
		score, reason := Score(user, candidate.Job, entries[candidate.Index], jobWeight)
		ranked = append(ranked, scored{candidate: candidate, score: score, reason: reason})
	}

	// NaN scores sink to the end; equal scores keep collection order.
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].score, ranked[j].score
		if math.IsNaN(a) {
			return false
		}
		return math.IsNaN(b) || a > b
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	nonFinite := 0
	for _, item := range ranked {
		if math.IsNaN(item.score) || math.IsInf(item.score, 0) {
			nonFinite++
		}
		result.Recommendations = append(result.Recommendations, Recommendation{
			JobID:       item.candidate.Job.ID,
			JobTitle:    item.candidate.Job.Title,
			CompanyName: item.candidate.Job.Company,
			Reason:      item.reason,
			Score:       round2(item.score),
		})
		result.Jobs = append(result.Jobs, item.candidate.Job)
	}
	if nonFinite > 0 {
		log.Warn("non-finite scores in result", zap.Int("count", nonFinite))
	}

	if r.reviewer != nil {
		r.review(ctx, log, user, result)
	}

	log.Info("recommendations ready",
		zap.Int("candidates", candidates.Len()),
		zap.Int("returned", len(result.Recommendations)),
	)
	return result, nil
}

// review attaches AI assessments. Failures are recorded on the recommendation
// and never fail the query.
func (r *Ranker) review(ctx context.Context, log *zap.Logger, user *dataset.UserProfile, result *Result) {
	for i := range result.Recommendations {
		rec := &result.Recommendations[i]
		assessment, err := r.reviewer.Review(ctx, ai.Request{
			User:   user,
			Job:    result.Jobs[i],
			Score:  rec.Score,
			Reason: rec.Reason,
		})
		if err != nil {
			log.Warn("AI review failed", zap.Int64("job_id", rec.JobID), zap.Error(err))
			rec.Review = &ai.Assessment{Error: err.Error()}
			continue
		}
		rec.Review = assessment
	}
}

func checkShape(users *dataset.Users, jobs *dataset.Jobs, matrix *similarity.Matrix) error {
	if matrix == nil {
		return dataset.Shapef("similarity matrix is missing")
	}
	if matrix.Rows != users.Len() || matrix.Cols != jobs.Len() {
		return dataset.Shapef("matrix is %dx%d but population is %dx%d",
			matrix.Rows, matrix.Cols, users.Len(), jobs.Len())
	}
	if len(matrix.Data) != matrix.Rows*matrix.Cols {
		return dataset.Shapef("matrix holds %d values, expected %d", len(matrix.Data), matrix.Rows*matrix.Cols)
	}
	return nil
}
