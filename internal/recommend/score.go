package recommend

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spigell/job-recommender/internal/dataset"
)

const (
	baseShare       = 0.7
	criteriaShare   = 0.3
	criteriaCount   = 6
	titleThreshold  = 0.7
	salaryTolerance = 0.9
)

const (
	reasonSeparator = " | "
	reasonFallback  = "Đề xuất dựa trên độ tương đồng tổng thể"
	reasonSkills    = "Kỹ năng phù hợp với yêu cầu công việc"
	reasonDegree    = "Bằng cấp đáp ứng yêu cầu"
)

// Score refines a precomputed matrix entry for one user/job pair. The result
// is 0.7*entry plus 0.3 times the share of six criteria the pair meets. The
// title criterion divides entry by jobWeight, which approximates title
// similarity by folding in every other factor; a zero jobWeight never matches.
func Score(user *dataset.UserProfile, job *dataset.JobPosting, entry, jobWeight float64) (float64, string) {
	var reasons []string
	matched := 0

	if user.Industry == job.Industry {
		matched++
	}

	if user.DesiredWorkplace == job.Address {
		matched++
		reasons = append(reasons, fmt.Sprintf("Vị trí gần (%s)", job.Address))
	}

	if jobWeight > 0 && entry/jobWeight > titleThreshold {
		matched++
		if strings.Contains(strings.ToLower(job.Title), strings.ToLower(user.DesiredJob)) {
			reasons = append(reasons, fmt.Sprintf("Công việc đúng mong muốn (%s)", job.Title))
		} else {
			reasons = append(reasons, fmt.Sprintf("Công việc tương đồng (%s)", job.Title))
		}
	}

	if user.DesiredSalary.Known && job.Salary.Known && job.Salary.Value >= user.DesiredSalary.Value*salaryTolerance {
		matched++
		reasons = append(reasons, fmt.Sprintf("Mức lương phù hợp (%s VND)", formatAmount(job.Salary.Value)))
	}

	requirements := strings.ToLower(job.Requirements)

	if strings.Contains(requirements, strings.ToLower(user.Skills)) {
		matched++
		reasons = append(reasons, reasonSkills)
	}

	if strings.Contains(requirements, strings.ToLower(user.Degree)) {
		matched++
		reasons = append(reasons, reasonDegree)
	}

	score := baseShare*entry + criteriaShare*float64(matched)/criteriaCount

	if len(reasons) == 0 {
		return score, reasonFallback
	}
	return score, strings.Join(reasons, reasonSeparator)
}

// formatAmount prints integral amounts with one decimal ("25.0") and others
// in their shortest positional form ("1234567.5"). Exponent notation starts
// at 1e16.
func formatAmount(v float64) string {
	if math.Abs(v) >= 1e16 {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// round2 rounds half to even.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
