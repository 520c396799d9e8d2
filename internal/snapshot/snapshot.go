// Package snapshot keeps a similarity matrix together with the exact user and
// job orderings it was built from.
package snapshot

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/job-recommender/internal/dataset"
	"github.com/spigell/job-recommender/internal/similarity"
)

// ErrSnapshotNotFound is returned when the store has no matching snapshot.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is one Builder run: row i of Matrix is Users.Items[i] and column j
// is Jobs.Items[j]. A snapshot is immutable once published.
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	Weights   similarity.Weights
	Users     *dataset.Users
	Jobs      *dataset.Jobs
	Matrix    *similarity.Matrix
}

// Summary describes a stored snapshot without its payload.
type Summary struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Users     int                `json:"users"`
	Jobs      int                `json:"jobs"`
	Weights   similarity.Weights `json:"weights"`
}

// New wraps a freshly built matrix into a snapshot with a new id.
func New(users *dataset.Users, jobs *dataset.Jobs, weights similarity.Weights, matrix *similarity.Matrix) (*Snapshot, error) {
	s := &Snapshot{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Weights:   weights,
		Users:     users,
		Jobs:      jobs,
		Matrix:    matrix,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that the matrix is aligned with both orderings.
func (s *Snapshot) Validate() error {
	if s.Matrix == nil {
		return dataset.Shapef("snapshot %s has no matrix", s.ID)
	}
	if err := s.Weights.Validate(); err != nil {
		return err
	}
	if s.Matrix.Rows != s.Users.Len() || s.Matrix.Cols != s.Jobs.Len() {
		return dataset.Shapef("snapshot %s: matrix is %dx%d but population is %dx%d",
			s.ID, s.Matrix.Rows, s.Matrix.Cols, s.Users.Len(), s.Jobs.Len())
	}
	if len(s.Matrix.Data) != s.Matrix.Rows*s.Matrix.Cols {
		return dataset.Shapef("snapshot %s: matrix holds %d values, expected %d",
			s.ID, len(s.Matrix.Data), s.Matrix.Rows*s.Matrix.Cols)
	}
	return nil
}

func (s *Snapshot) Summary() Summary {
	return Summary{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Users:     s.Users.Len(),
		Jobs:      s.Jobs.Len(),
		Weights:   s.Weights,
	}
}
