// Package ai describes the optional language model second opinion on a
// recommendation. A review never changes scores or ordering.
package ai

import (
	"context"

	"github.com/spigell/job-recommender/internal/dataset"
)

// Assessment is the model's verdict on one recommended job.
type Assessment struct {
	Fit     bool    `json:"fit"`
	Score   float64 `json:"score"`
	Comment string  `json:"comment,omitempty"`
	Raw     string  `json:"-"`
	Error   string  `json:"error,omitempty"`
}

// Request carries a recommendation as computed by the ranker.
type Request struct {
	User   *dataset.UserProfile
	Job    *dataset.JobPosting
	Score  float64
	Reason string
}

type Reviewer interface {
	Review(ctx context.Context, req Request) (*Assessment, error)
}
