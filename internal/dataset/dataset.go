// Package dataset holds the user and job populations the recommender works on
// and the preprocessing that turns raw tables into normalized entities.
package dataset

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// UserProfile is a job seeker. Text fields are expected to be normalized.
type UserProfile struct {
	ID               int64  `json:"id" validate:"gt=0"`
	Name             string `json:"name"`
	Industry         string `json:"industry"`
	DesiredJob       string `json:"desired_job"`
	DesiredWorkplace string `json:"desired_workplace"`
	DesiredSalary    Number `json:"desired_salary"`
	Experience       Number `json:"experience"`
	Skills           string `json:"skills"`
	Degree           string `json:"degree"`
}

// JobPosting is an open position.
type JobPosting struct {
	ID           int64  `json:"id" validate:"gt=0"`
	Title        string `json:"title"`
	Company      string `json:"company"`
	Industry     string `json:"industry"`
	Address      string `json:"address"`
	Salary       Number `json:"salary"`
	Experience   Number `json:"experience"`
	Requirements string `json:"requirements"`
}

// Users is an ordered user population. The position of a user in Items is its
// row in a similarity matrix.
type Users struct {
	Items []*UserProfile
}

// Jobs is an ordered job population. The position of a job in Items is its
// column in a similarity matrix.
type Jobs struct {
	Items []*JobPosting
}

func (u *Users) Len() int {
	if u == nil {
		return 0
	}
	return len(u.Items)
}

// IndexOf returns the row position of the user with the given id or -1.
func (u *Users) IndexOf(id int64) int {
	if u == nil {
		return -1
	}
	for idx, user := range u.Items {
		if user != nil && user.ID == id {
			return idx
		}
	}
	return -1
}

func (u *Users) FindByID(id int64) *UserProfile {
	if idx := u.IndexOf(id); idx >= 0 {
		return u.Items[idx]
	}
	return nil
}

// IDs returns user ids in row order.
func (u *Users) IDs() []int64 {
	ids := make([]int64, 0, u.Len())
	for _, user := range u.Items {
		ids = append(ids, user.ID)
	}
	return ids
}

// Validate checks every user and id uniqueness.
func (u *Users) Validate() error {
	if u.Len() == 0 {
		return Shapef("user collection is empty")
	}

	seen := make(map[int64]int, len(u.Items))
	for idx, user := range u.Items {
		if user == nil {
			return Shapef("user at row %d is missing", idx)
		}
		if err := validate.Struct(user); err != nil {
			return &ShapeError{Message: fmt.Sprintf("user at row %d is invalid", idx), Cause: err}
		}
		if prev, ok := seen[user.ID]; ok {
			return Shapef("user id %d is duplicated at rows %d and %d", user.ID, prev, idx)
		}
		seen[user.ID] = idx
	}
	return nil
}

func (j *Jobs) Len() int {
	if j == nil {
		return 0
	}
	return len(j.Items)
}

func (j *Jobs) FindByID(id int64) *JobPosting {
	if j == nil {
		return nil
	}
	for _, job := range j.Items {
		if job != nil && job.ID == id {
			return job
		}
	}
	return nil
}

// IDs returns job ids in column order.
func (j *Jobs) IDs() []int64 {
	ids := make([]int64, 0, j.Len())
	for _, job := range j.Items {
		ids = append(ids, job.ID)
	}
	return ids
}

// Validate checks every job and id uniqueness.
func (j *Jobs) Validate() error {
	if j.Len() == 0 {
		return Shapef("job collection is empty")
	}

	seen := make(map[int64]int, len(j.Items))
	for idx, job := range j.Items {
		if job == nil {
			return Shapef("job at row %d is missing", idx)
		}
		if err := validate.Struct(job); err != nil {
			return &ShapeError{Message: fmt.Sprintf("job at row %d is invalid", idx), Cause: err}
		}
		if prev, ok := seen[job.ID]; ok {
			return Shapef("job id %d is duplicated at rows %d and %d", job.ID, prev, idx)
		}
		seen[job.ID] = idx
	}
	return nil
}

// Candidate is a job kept together with its position in the full job
// collection, which is the only valid way to address its matrix column.
type Candidate struct {
	Index int
	Job   *JobPosting
}

// Candidates is an ordered candidate list.
type Candidates struct {
	Items []Candidate
}

// AllCandidates wraps every job of the collection in original order.
func AllCandidates(jobs *Jobs) *Candidates {
	c := &Candidates{Items: make([]Candidate, 0, jobs.Len())}
	for idx, job := range jobs.Items {
		c.Items = append(c.Items, Candidate{Index: idx, Job: job})
	}
	return c
}

func (c *Candidates) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// Keep retains candidates for which keep returns true, preserving order, and
// returns the ids of the dropped jobs.
func (c *Candidates) Keep(keep func(Candidate) bool) []int64 {
	var dropped []int64
	kept := c.Items[:0]
	for _, candidate := range c.Items {
		if keep(candidate) {
			kept = append(kept, candidate)
			continue
		}
		dropped = append(dropped, candidate.Job.ID)
	}
	c.Items = kept
	return dropped
}

// IsShapeError reports whether err is or wraps a ShapeError.
func IsShapeError(err error) bool {
	var shapeErr *ShapeError
	return errors.As(err, &shapeErr)
}
