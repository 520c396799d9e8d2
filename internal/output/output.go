// Package output renders query results and snapshot listings for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/spigell/job-recommender/internal/recommend"
	"github.com/spigell/job-recommender/internal/snapshot"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: table, json)", s)
	}
}

// Result writes one query answer.
func Result(w io.Writer, format Format, result *recommend.Result) error {
	if format == FormatJSON {
		return writeJSON(w, result)
	}

	fmt.Fprintf(w, "Name: %s\nDesired job: %s\nWorkplace desired: %s\n\n",
		result.UserName, result.DesiredJob, result.DesiredWorkplace)

	if len(result.Recommendations) == 0 {
		_, err := fmt.Fprintln(w, "No valid job found!")
		return err
	}

	reviewed := false
	for _, rec := range result.Recommendations {
		if rec.Review != nil {
			reviewed = true
			break
		}
	}

	table := tablewriter.NewWriter(w)
	header := []any{"#", "Job ID", "Job title", "Company", "Reason", "Score"}
	if reviewed {
		header = append(header, "AI review")
	}
	table.Header(header...)

	for i, rec := range result.Recommendations {
		row := []string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(rec.JobID, 10),
			rec.JobTitle,
			rec.CompanyName,
			strings.ReplaceAll(rec.Reason, " | ", "\n"),
			strconv.FormatFloat(rec.Score, 'f', 2, 64),
		}
		if reviewed {
			row = append(row, describeReview(rec))
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("render row %d: %w", i+1, err)
		}
	}

	return table.Render()
}

func describeReview(rec recommend.Recommendation) string {
	switch {
	case rec.Review == nil:
		return "-"
	case rec.Review.Error != "":
		return "error: " + rec.Review.Error
	}

	verdict := "fit"
	if !rec.Review.Fit {
		verdict = "no fit"
	}
	text := fmt.Sprintf("%s (%.2f)", verdict, rec.Review.Score)
	if rec.Review.Comment != "" {
		text += "\n" + rec.Review.Comment
	}
	return text
}

// Snapshots writes a snapshot listing, newest first as given.
func Snapshots(w io.Writer, format Format, summaries []snapshot.Summary) error {
	if format == FormatJSON {
		if summaries == nil {
			summaries = []snapshot.Summary{}
		}
		return writeJSON(w, summaries)
	}

	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No snapshots stored.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Created", "Users", "Jobs", "Weights")
	for _, s := range summaries {
		w := s.Weights
		weights := fmt.Sprintf("industry=%g job=%g experience=%g salary=%g skills=%g degree=%g",
			w.Industry, w.Job, w.Experience, w.Salary, w.Skills, w.Degree)
		if err := table.Append([]string{
			s.ID,
			s.CreatedAt.Local().Format(time.DateTime),
			strconv.Itoa(s.Users),
			strconv.Itoa(s.Jobs),
			weights,
		}); err != nil {
			return fmt.Errorf("render snapshot %s: %w", s.ID, err)
		}
	}
	return table.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
