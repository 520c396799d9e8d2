package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// User table columns.
const (
	ColUserID           = "UserID"
	ColUserName         = "User Name"
	ColIndustry         = "Industry"
	ColDesiredJob       = "Desired Job"
	ColWorkplaceDesired = "Workplace Desired"
	ColDesiredSalary    = "Desired Salary"
	ColWorkExperience   = "Work Experience"
	ColSkills           = "Skills"
	ColDegree           = "Degree"
)

// Job table columns.
const (
	ColJobID           = "JobID"
	ColJobTitle        = "Job Title"
	ColCompany         = "Name Company"
	ColJobAddress      = "Job Address"
	ColSalary          = "Salary"
	ColYearsExperience = "Years of Experience"
	ColRequirements    = "Job Requirements"
)

var (
	userColumns = []string{
		ColUserID, ColUserName, ColIndustry, ColDesiredJob, ColWorkplaceDesired,
		ColDesiredSalary, ColWorkExperience, ColSkills, ColDegree,
	}
	jobColumns = []string{
		ColJobID, ColJobTitle, ColCompany, ColIndustry, ColJobAddress,
		ColSalary, ColYearsExperience, ColRequirements,
	}
)

// LoadUsersCSV reads and normalizes the user table at path.
func LoadUsersCSV(path string) (*Users, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open users file: %w", err)
	}
	defer file.Close()

	return ReadUsers(file)
}

// LoadJobsCSV reads and normalizes the job table at path.
func LoadJobsCSV(path string) (*Jobs, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jobs file: %w", err)
	}
	defer file.Close()

	return ReadJobs(file)
}

// ReadUsers parses a user table. Numeric fields are parsed but not imputed.
func ReadUsers(r io.Reader) (*Users, error) {
	rows, err := readTable(r, userColumns)
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}

	users := &Users{Items: make([]*UserProfile, 0, len(rows))}
	for idx, row := range rows {
		id, err := parseID(row[ColUserID])
		if err != nil {
			return nil, &ShapeError{Message: fmt.Sprintf("users: row %d: invalid %s", idx, ColUserID), Cause: err}
		}

		users.Items = append(users.Items, &UserProfile{
			ID:               id,
			Name:             row[ColUserName],
			Industry:         NormalizeText(row[ColIndustry]),
			DesiredJob:       NormalizeText(row[ColDesiredJob]),
			DesiredWorkplace: row[ColWorkplaceDesired],
			DesiredSalary:    ParseSalary(row[ColDesiredSalary]),
			Experience:       ParseExperience(row[ColWorkExperience]),
			Skills:           NormalizeText(row[ColSkills]),
			Degree:           NormalizeText(row[ColDegree]),
		})
	}

	return users, nil
}

// ReadJobs parses a job table. Numeric fields are parsed but not imputed.
func ReadJobs(r io.Reader) (*Jobs, error) {
	rows, err := readTable(r, jobColumns)
	if err != nil {
		return nil, fmt.Errorf("jobs: %w", err)
	}

	jobs := &Jobs{Items: make([]*JobPosting, 0, len(rows))}
	for idx, row := range rows {
		id, err := parseID(row[ColJobID])
		if err != nil {
			return nil, &ShapeError{Message: fmt.Sprintf("jobs: row %d: invalid %s", idx, ColJobID), Cause: err}
		}

		jobs.Items = append(jobs.Items, &JobPosting{
			ID:           id,
			Title:        NormalizeText(row[ColJobTitle]),
			Company:      row[ColCompany],
			Industry:     NormalizeText(row[ColIndustry]),
			Address:      row[ColJobAddress],
			Salary:       ParseSalary(row[ColSalary]),
			Experience:   ParseExperience(row[ColYearsExperience]),
			Requirements: NormalizeText(row[ColRequirements]),
		})
	}

	return jobs, nil
}

// readTable returns rows keyed by the required header names.
func readTable(r io.Reader, required []string) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, Shapef("table has no header")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	positions := make(map[string]int, len(header))
	for idx, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		positions[name] = idx
	}

	var missing []string
	for _, name := range required {
		if _, ok := positions[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, Shapef("missing columns: %s", strings.Join(missing, ", "))
	}

	var rows []map[string]string
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		row := make(map[string]string, len(required))
		for _, name := range required {
			pos := positions[name]
			if pos >= len(record) {
				return nil, Shapef("line %d: field %q is absent", line, name)
			}
			row[name] = record[pos]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func parseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, nil
	}

	// Spreadsheets often export integer ids as "12.0".
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("id %q is not an integer", raw)
	}
	return int64(f), nil
}
