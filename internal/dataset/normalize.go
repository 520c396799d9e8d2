package dataset

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const negotiableSalary = "Thỏa thuận"

var noExperience = map[string]struct{}{
	"Không yêu cầu":             {},
	"Chưa có kinh nghiệm":       {},
	"Không yêu cầu kinh nghiệm": {},
}

const underOneYear = "Dưới 1 năm"

// NormalizeText lowercases s, composes it to NFC and collapses whitespace.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	s = cases.Lower(language.Vietnamese).String(s)
	return strings.Join(strings.Fields(s), " ")
}

// ParseSalary converts a salary cell in millions ("10 - 15 triệu",
// "Trên 20 triệu", "1,500") into a Number. Negotiable or unparsable salaries
// are unknown.
func ParseSalary(raw string) Number {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == negotiableSalary {
		return Unknown()
	}

	s := strings.ReplaceAll(raw, ",", "")
	s = strings.ReplaceAll(s, " triệu", "")
	s = strings.ReplaceAll(s, "Trên ", "")

	v, ok := parseRange(s)
	if !ok {
		return Unknown()
	}
	return Known(v)
}

// ParseExperience converts an experience cell ("1 - 2 năm", "Dưới 1 năm",
// "Không yêu cầu") into years. Anything unparsable counts as no requirement.
func ParseExperience(raw string) Number {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Known(0)
	}
	if _, ok := noExperience[raw]; ok {
		return Known(0)
	}
	if raw == underOneYear {
		return Known(0.5)
	}

	s := strings.ReplaceAll(raw, " năm", "")
	s = strings.ReplaceAll(s, "Trên ", "")
	s = strings.ReplaceAll(s, "Dưới ", "")

	v, ok := parseRange(s)
	if !ok {
		return Known(0)
	}
	return Known(v)
}

// parseRange parses "a-b" as its midpoint or a single number.
func parseRange(s string) (float64, bool) {
	parts := strings.Split(strings.TrimSpace(s), "-")

	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	case 2:
		from, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return 0, false
		}
		to, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return 0, false
		}
		return (from + to) / 2, true
	default:
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
}

// Impute fills unknown salaries and experience with the median of each
// column, computed separately over users and over jobs.
func Impute(users *Users, jobs *Jobs) {
	if users.Len() > 0 {
		salaries := make([]Number, 0, users.Len())
		experience := make([]Number, 0, users.Len())
		for _, u := range users.Items {
			salaries = append(salaries, u.DesiredSalary)
			experience = append(experience, u.Experience)
		}

		salaryMedian, experienceMedian := Median(salaries), Median(experience)
		for _, u := range users.Items {
			if !u.DesiredSalary.Known {
				u.DesiredSalary = salaryMedian
			}
			if !u.Experience.Known {
				u.Experience = experienceMedian
			}
		}
	}

	if jobs.Len() > 0 {
		salaries := make([]Number, 0, jobs.Len())
		experience := make([]Number, 0, jobs.Len())
		for _, j := range jobs.Items {
			salaries = append(salaries, j.Salary)
			experience = append(experience, j.Experience)
		}

		salaryMedian, experienceMedian := Median(salaries), Median(experience)
		for _, j := range jobs.Items {
			if !j.Salary.Known {
				j.Salary = salaryMedian
			}
			if !j.Experience.Known {
				j.Experience = experienceMedian
			}
		}
	}
}
