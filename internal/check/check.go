// Package check implements the AWS monitoring checks (ECS agent
// connectivity, S3 object count) on top of a shared evaluation engine:
// paginated enumeration, inspection, grouping under a health predicate,
// and threshold evaluation. Each check returns a structured Result.
package check

import (
	"context"
	"errors"

	"github.com/DLAKE-IO/check-aws/internal/output"
)

var (
	// ErrConfiguration marks a missing or empty identifier or threshold.
	// It is raised before any provider call is made.
	ErrConfiguration = errors.New("configuration error")

	// ErrEvaluation marks a failure inside the pure evaluation stages.
	ErrEvaluation = errors.New("evaluation error")
)

// Check is the interface that all monitoring checks must implement.
type Check interface {
	// Name returns the uppercase check identifier used in the output
	// prefix (e.g., "ECS_AGENT", "S3_OBJECTS").
	Name() string

	// Run executes the check against the AWS APIs and returns a Result.
	// Provider failures are returned unmodified; the caller reports them.
	Run(ctx context.Context, client AWSClient) (*output.Result, error)
}
