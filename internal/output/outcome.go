package output

import (
	"errors"
	"fmt"
	"strings"
)

// errNoResult is reported when a check finishes with neither a result nor
// an error.
var errNoResult = errors.New("check produced no result")

// Outcome is the tagged result of a check run: either a verdict or the
// failure that prevented one. It is converted into a Result only at the
// reporting boundary.
type Outcome struct {
	Result *Result
	Err    error
}

// Ok wraps a completed verdict.
func Ok(r *Result) Outcome { return Outcome{Result: r} }

// Err wraps a failure.
func Err(err error) Outcome { return Outcome{Err: err} }

// FromRun adapts the (result, error) pair returned by a check.
func FromRun(r *Result, err error) Outcome {
	switch {
	case err != nil:
		return Err(err)
	case r == nil:
		return Err(errNoResult)
	default:
		return Ok(r)
	}
}

// Failed reports whether the outcome carries an error.
func (o Outcome) Failed() bool { return o.Err != nil || o.Result == nil }

// Resolve returns the Result to report. A failed outcome becomes UNKNOWN:
// the summary comes from explain (or the error text when explain is nil or
// returns nothing) and the details carry the error's diagnostic trace.
func (o Outcome) Resolve(checkName string, explain func(error) string) *Result {
	if !o.Failed() {
		if o.Result.CheckName == "" {
			o.Result.CheckName = checkName
		}
		return o.Result
	}

	err := o.Err
	if err == nil {
		err = errNoResult
	}

	summary := ""
	if explain != nil {
		summary = explain(err)
	}
	if summary == "" {
		summary = err.Error()
	}
	if summary == "" {
		summary = "check failed without an error message"
	}

	// Single line only; the rest goes to long text.
	full := summary
	summary, rest, _ := strings.Cut(full, "\n")

	details := strings.TrimSpace(fmt.Sprintf("%+v", err))
	if rest != "" && !strings.Contains(details, full) {
		details = strings.TrimSpace(rest + "\n" + details)
	}
	if details == summary {
		details = ""
	}

	return &Result{
		Status:    Unknown,
		CheckName: checkName,
		Summary:   summary,
		Details:   details,
	}
}
