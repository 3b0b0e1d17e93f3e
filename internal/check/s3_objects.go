package check

import (
	"context"
	"fmt"
	"strings"

	"github.com/DLAKE-IO/check-aws/internal/output"
	"github.com/DLAKE-IO/check-aws/internal/pager"
	"github.com/DLAKE-IO/check-aws/internal/threshold"
)

// S3ObjectsCheck counts the objects stored under a bucket prefix and
// compares the count against warning and critical boundaries.
type S3ObjectsCheck struct {
	Bucket   string
	Prefix   string
	Warning  threshold.Boundary
	Critical threshold.Boundary
}

// NewS3ObjectsCheck creates an S3ObjectsCheck from warning/critical
// threshold strings.
func NewS3ObjectsCheck(bucket, prefix, w, c string) (*S3ObjectsCheck, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("%w: bucket required", ErrConfiguration)
	}
	wb, err := threshold.Parse(w)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid warning threshold: %w", ErrConfiguration, err)
	}
	cb, err := threshold.Parse(c)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid critical threshold: %w", ErrConfiguration, err)
	}
	return &S3ObjectsCheck{Bucket: bucket, Prefix: prefix, Warning: wb, Critical: cb}, nil
}

// Name returns the check identifier used in the output prefix.
func (ch *S3ObjectsCheck) Name() string { return "S3_OBJECTS" }

// Run lists every key under the prefix and evaluates the object count.
func (ch *S3ObjectsCheck) Run(ctx context.Context, client AWSClient) (*output.Result, error) {
	p := pager.New(func(ctx context.Context, token *string) ([]string, *string, error) {
		return client.ListObjects(ctx, ch.Bucket, ch.Prefix, pager.MaxPageSize, token)
	}, pager.WithName("s3:"+ch.Bucket+"/"+ch.Prefix))

	keys, err := p.Collect(ctx)
	if err != nil {
		return nil, err
	}

	count := countObjects(keys, ch.Prefix)

	return &output.Result{
		Status:    threshold.EvaluateCount(count, ch.Warning, ch.Critical),
		CheckName: ch.Name(),
		Summary:   fmt.Sprintf("%s%s - %d objects", ch.Bucket, ch.Prefix, count),
		PerfData: []output.PerfDatum{
			{
				Label: "objects",
				Value: float64(count),
				Warn:  ch.Warning.String(),
				Crit:  ch.Critical.String(),
				Min:   "0",
			},
		},
	}, nil
}

// countObjects counts keys, skipping the folder placeholder whose key is
// exactly the prefix.
func countObjects(keys []string, prefix string) int64 {
	var n int64
	for _, k := range keys {
		if k == prefix {
			continue
		}
		n++
	}
	return n
}
