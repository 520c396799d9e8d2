package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/dataset"
)

type industryFilter struct{}

// NewIndustry creates the filter that keeps only jobs whose industry equals
// the user's. It cannot be disabled.
func NewIndustry() Filter {
	return &industryFilter{}
}

func (f *industryFilter) Name() string { return "industry" }

func (f *industryFilter) Disable(string) {}

func (f *industryFilter) IsEnabled() bool { return true }

func (f *industryFilter) Validate(*Config) error { return nil }

func (f *industryFilter) Apply(_ context.Context, deps Deps, c *dataset.Candidates) (*dataset.Candidates, Step, error) {
	initial := c.Len()
	industry := deps.User.Industry

	removed := c.Keep(func(candidate dataset.Candidate) bool {
		return candidate.Job.Industry == industry
	})
	if deps.Logger != nil && c.Len() == 0 {
		deps.Logger.Info("no jobs in the user industry",
			zap.Int64("user_id", deps.User.ID),
			zap.String("industry", industry),
		)
	}

	return c, Step{Initial: initial, Dropped: len(removed), Left: c.Len()}, nil
}

func (f *industryFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: true, Details: map[string]string{"match": "exact"}}
}
