// Package similarity builds the blended user x job similarity matrix.
package similarity

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/job-recommender/internal/dataset"
)

// Components are the six unweighted user x job similarity matrices.
type Components struct {
	Industry   *Matrix
	Job        *Matrix
	Experience *Matrix
	Salary     *Matrix
	Skills     *Matrix
	Degree     *Matrix
}

// Builder computes similarity matrices.
type Builder struct {
	logger *zap.Logger
}

func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

// Build computes the blended matrix with a no-op logger.
func Build(ctx context.Context, users *dataset.Users, jobs *dataset.Jobs, weights Weights) (*Matrix, error) {
	return NewBuilder(nil).Build(ctx, users, jobs, weights)
}

// Build validates the input, computes all components concurrently and blends them.
func (b *Builder) Build(ctx context.Context, users *dataset.Users, jobs *dataset.Jobs, weights Weights) (*Matrix, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()

	components, err := b.Components(ctx, users, jobs)
	if err != nil {
		return nil, err
	}

	matrix := components.Blend(weights)

	b.logger.Info("similarity matrix built",
		zap.Int("users", matrix.Rows),
		zap.Int("jobs", matrix.Cols),
		zap.Duration("took", time.Since(started)),
	)

	return matrix, nil
}

type textField struct {
	name string
	user func(*dataset.UserProfile) string
	job  func(*dataset.JobPosting) string
	dst  **Matrix
}

// Components computes the four text and two numeric similarity matrices as
// independent tasks and waits for all of them.
func (b *Builder) Components(ctx context.Context, users *dataset.Users, jobs *dataset.Jobs) (*Components, error) {
	if err := users.Validate(); err != nil {
		return nil, err
	}
	if err := jobs.Validate(); err != nil {
		return nil, err
	}

	c := &Components{}

	text := []textField{
		{
			name: "industry",
			user: func(u *dataset.UserProfile) string { return u.Industry },
			job:  func(j *dataset.JobPosting) string { return j.Industry },
			dst:  &c.Industry,
		},
		{
			name: "job",
			user: func(u *dataset.UserProfile) string { return u.DesiredJob },
			job:  func(j *dataset.JobPosting) string { return j.Title },
			dst:  &c.Job,
		},
		{
			name: "skills",
			user: func(u *dataset.UserProfile) string { return u.Skills },
			job:  func(j *dataset.JobPosting) string { return j.Requirements },
			dst:  &c.Skills,
		},
		{
			name: "degree",
			user: func(u *dataset.UserProfile) string { return u.Degree },
			job:  func(j *dataset.JobPosting) string { return j.Requirements },
			dst:  &c.Degree,
		},
	}

	g, gCtx := errgroup.WithContext(ctx)

	for _, field := range text {
		g.Go(func() error {
			m, err := textSimilarity(gCtx, field, users, jobs)
			if err != nil {
				return err
			}
			*field.dst = m
			b.logger.Debug("text similarity computed", zap.String("field", field.name))
			return nil
		})
	}

	g.Go(func() error {
		c.Salary = proximity(
			collect(users.Items, func(u *dataset.UserProfile) dataset.Number { return u.DesiredSalary }),
			collect(jobs.Items, func(j *dataset.JobPosting) dataset.Number { return j.Salary }),
		)
		return nil
	})

	g.Go(func() error {
		c.Experience = proximity(
			collect(users.Items, func(u *dataset.UserProfile) dataset.Number { return u.Experience }),
			collect(jobs.Items, func(j *dataset.JobPosting) dataset.Number { return j.Experience }),
		)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return c, nil
}

// Blend returns the weighted sum of the components.
func (c *Components) Blend(w Weights) *Matrix {
	out := NewMatrix(c.Industry.Rows, c.Industry.Cols)
	for i := range out.Data {
		out.Data[i] = w.Industry*c.Industry.Data[i] +
			w.Job*c.Job.Data[i] +
			w.Experience*c.Experience.Data[i] +
			w.Salary*c.Salary.Data[i] +
			w.Skills*c.Skills.Data[i] +
			w.Degree*c.Degree.Data[i]
	}
	return out
}

// textSimilarity fits a space on the user side and projects the job side
// into it, so job text never shapes the vocabulary.
func textSimilarity(ctx context.Context, field textField, users *dataset.Users, jobs *dataset.Jobs) (*Matrix, error) {
	userDocs := collect(users.Items, field.user)
	jobDocs := collect(jobs.Items, field.job)

	vectorizer, ok := Fit(userDocs)
	if !ok {
		return nil, dataset.Shapef("%s: user-side vocabulary is empty", field.name)
	}

	userVectors := vectorizer.Transform(userDocs)
	jobVectors := vectorizer.Transform(jobDocs)

	m := NewMatrix(len(userVectors), len(jobVectors))
	for i, u := range userVectors {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s similarity: %w", field.name, err)
		}
		row := m.Row(i)
		for j, v := range jobVectors {
			row[j] = Cosine(u, v)
		}
	}
	return m, nil
}

// proximity scores 1 - |u - j| / max(max job value, 1). Unknown values on
// either side count as a perfect match. Results are not clamped.
func proximity(userValues, jobValues []dataset.Number) *Matrix {
	denom := 1.0
	if maxJob, ok := dataset.MaxKnown(jobValues); ok {
		denom = math.Max(maxJob, 1)
	}

	m := NewMatrix(len(userValues), len(jobValues))
	for i, u := range userValues {
		row := m.Row(i)
		for j, v := range jobValues {
			if !u.Known || !v.Known {
				row[j] = 1
				continue
			}
			row[j] = 1 - math.Abs(u.Value-v.Value)/denom
		}
	}
	return m
}

func collect[T, V any](items []T, get func(T) V) []V {
	out := make([]V, len(items))
	for i, item := range items {
		out[i] = get(item)
	}
	return out
}
