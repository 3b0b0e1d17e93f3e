package check

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many collections are evaluated at once.
const DefaultConcurrency = 4

// CollectFunc enumerates and inspects every record of one collection.
type CollectFunc[R any] func(ctx context.Context, name string) ([]R, error)

// Predicate reports whether a record is healthy.
type Predicate[R any] func(R) bool

// Partition splits a group's records by a Predicate. It is derived on every
// run and never mutated after Aggregate returns.
type Partition[R any] struct {
	Healthy   []R
	Unhealthy []R
}

// Group is a named collection and its partitioned records.
type Group[R any] struct {
	Name string
	Partition[R]
}

// Size returns the number of records in the group.
func (g Group[R]) Size() int { return len(g.Healthy) + len(g.Unhealthy) }

// Groups holds every evaluated group in the order it was requested.
type Groups[R any] struct {
	All []Group[R]
}

// Names returns the names of all groups.
func (gs *Groups[R]) Names() []string {
	names := make([]string, len(gs.All))
	for i, g := range gs.All {
		names[i] = g.Name
	}
	return names
}

// Unhealthy returns the groups with at least one unhealthy record.
func (gs *Groups[R]) Unhealthy() []Group[R] {
	var out []Group[R]
	for _, g := range gs.All {
		if len(g.Unhealthy) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// Records returns the total number of records across all groups.
func (gs *Groups[R]) Records() int {
	n := 0
	for _, g := range gs.All {
		n += g.Size()
	}
	return n
}

// Aggregator evaluates several collections independently and partitions
// each by a health predicate.
type Aggregator[R any] struct {
	Collect     CollectFunc[R]
	Healthy     Predicate[R]
	Concurrency int
}

// Aggregate collects and partitions every named collection. Names are
// trimmed, blanks dropped and duplicates collapsed. Collections run in
// parallel; the first provider failure cancels the rest and is returned
// wrapped with the collection name. A panicking collector is reported as an
// ErrEvaluation error for that collection.
func (a *Aggregator[R]) Aggregate(ctx context.Context, names []string) (*Groups[R], error) {
	names = NormalizeNames(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: at least one collection is required", ErrConfiguration)
	}
	if a.Collect == nil || a.Healthy == nil {
		return nil, fmt.Errorf("%w: aggregator needs a collector and a predicate", ErrEvaluation)
	}

	limit := a.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	groups := make([]Group[R], len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, name := range names {
		g.Go(func() (err error) {
			// errgroup goroutines are outside the caller's recover.
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %s: panic: %v\n%s", ErrEvaluation, name, r, debug.Stack())
				}
			}()

			records, err := a.Collect(gctx, name)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			groups[i] = Group[R]{Name: name, Partition: partition(records, a.Healthy)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Groups[R]{All: groups}, nil
}

// NormalizeNames splits comma-separated entries, trims whitespace, drops
// blanks and removes duplicates while keeping the first occurrence.
func NormalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, entry := range names {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

func partition[R any](records []R, healthy Predicate[R]) Partition[R] {
	var p Partition[R]
	for _, r := range records {
		if healthy(r) {
			p.Healthy = append(p.Healthy, r)
		} else {
			p.Unhealthy = append(p.Unhealthy, r)
		}
	}
	return p
}
