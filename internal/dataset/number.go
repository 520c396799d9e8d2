package dataset

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Number is a numeric field that may be unknown.
type Number struct {
	Value float64
	Known bool
}

// Known returns a known Number holding v.
func Known(v float64) Number {
	return Number{Value: v, Known: true}
}

// Unknown returns a Number without a value.
func Unknown() Number {
	return Number{}
}

func (n Number) String() string {
	if !n.Known {
		return "unknown"
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Known {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Unknown()
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Known(v)
	return nil
}

// Median returns the median of the known values, or Unknown when none are known.
func Median(values []Number) Number {
	known := make([]float64, 0, len(values))
	for _, v := range values {
		if v.Known && !math.IsNaN(v.Value) {
			known = append(known, v.Value)
		}
	}

	if len(known) == 0 {
		return Unknown()
	}

	sort.Float64s(known)
	mid := len(known) / 2
	if len(known)%2 == 1 {
		return Known(known[mid])
	}
	return Known((known[mid-1] + known[mid]) / 2)
}

// MaxKnown returns the largest known value and whether there was one.
func MaxKnown(values []Number) (float64, bool) {
	found := false
	best := 0.0
	for _, v := range values {
		if !v.Known {
			continue
		}
		if !found || v.Value > best {
			best = v.Value
			found = true
		}
	}
	return best, found
}
