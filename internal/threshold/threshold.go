// Package threshold turns observations into a severity.
//
// Count checks compare a scalar against two independent boundaries using
// "greater than or equal": the critical boundary is tested first, so it
// wins whenever both are reached, even when critical < warning.
//
//	count >= critical   CRITICAL
//	count >= warning    WARNING
//	otherwise           OK
//
// Presence checks have no warning tier: any unhealthy group is CRITICAL.
package threshold

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/DLAKE-IO/check-aws/internal/output"
)

// Boundary is an inclusive lower bound that triggers an alert once a count
// reaches it.
type Boundary int64

// Parse parses a boundary from its decimal string form. Only non-negative
// integers are accepted.
func Parse(s string) (Boundary, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("threshold must not be empty")
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid threshold value %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("threshold %d must not be negative", v)
	}

	return Boundary(v), nil
}

// Reached reports whether count meets or exceeds the boundary.
func (b Boundary) Reached(count int64) bool {
	return count >= int64(b)
}

// String renders the boundary for perfdata.
func (b Boundary) String() string {
	return strconv.FormatInt(int64(b), 10)
}

// EvaluateCount returns the severity of count against the warning and
// critical boundaries.
func EvaluateCount(count int64, warning, critical Boundary) output.Status {
	switch {
	case critical.Reached(count):
		return output.Critical
	case warning.Reached(count):
		return output.Warning
	default:
		return output.OK
	}
}

// EvaluatePresence returns CRITICAL when at least one group has unhealthy
// members and OK otherwise.
func EvaluatePresence(unhealthyGroups int) output.Status {
	if unhealthyGroups > 0 {
		return output.Critical
	}
	return output.OK
}
