package dataset

import (
	"encoding/json"
	"os"
	"time"
)

// ExcludedJobs is the content of an exclude file: jobs users have already
// been shown or applied to.
type ExcludedJobs struct {
	Items []*ExcludedJob `json:"items"`
}

// ExcludedJob hides job ID from user UserID. A zero UserID hides the job from
// every user.
type ExcludedJob struct {
	UserID     int64     `json:"user_id,omitempty"`
	ID         int64     `json:"id"`
	Title      string    `json:"title,omitempty"`
	Company    string    `json:"company,omitempty"`
	ExcludedAt time.Time `json:"excluded_at"`
}

// ToExcluded converts postings shown to userID into exclude entries stamped
// with the current time.
func ToExcluded(userID int64, jobs []*JobPosting) *ExcludedJobs {
	excluded := &ExcludedJobs{}
	now := time.Now().UTC()
	for _, job := range jobs {
		excluded.Items = append(excluded.Items, &ExcludedJob{
			UserID:     userID,
			ID:         job.ID,
			Title:      job.Title,
			Company:    job.Company,
			ExcludedAt: now,
		})
	}
	return excluded
}

// LoadExcludedJobs reads an exclude file. A missing or empty file yields an
// empty list.
func LoadExcludedJobs(path string) (*ExcludedJobs, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return &ExcludedJobs{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedJobs{}, nil
	}

	var excluded ExcludedJobs
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

type excludedKey struct {
	user int64
	job  int64
}

// Append adds entries whose (user, job) pair is not present yet.
func (e *ExcludedJobs) Append(other *ExcludedJobs) {
	known := make(map[excludedKey]struct{}, len(e.Items))
	for _, item := range e.Items {
		known[excludedKey{item.UserID, item.ID}] = struct{}{}
	}
	for _, item := range other.Items {
		key := excludedKey{item.UserID, item.ID}
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}
		e.Items = append(e.Items, item)
	}
}

// IDsFor returns the job ids hidden from userID, including entries without a user.
func (e *ExcludedJobs) IDsFor(userID int64) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(e.Items))
	for _, item := range e.Items {
		if item.UserID == 0 || item.UserID == userID {
			ids[item.ID] = struct{}{}
		}
	}
	return ids
}

func (e *ExcludedJobs) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
