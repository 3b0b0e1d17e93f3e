// Package pager walks paginated provider listings that use an opaque
// continuation token.
//
// A Pager fetches one full page before yielding any of its items and only
// requests the next page once the consumer has drained the current one.
// Every iteration starts again from the first page.
package pager

import (
	"context"
	"errors"
	"iter"

	"github.com/rs/zerolog"
)

// MaxPageSize is the largest page callers request in a single call.
const MaxPageSize = 100

// ErrDuplicateToken is returned when the provider hands back the token it
// was just called with.
var ErrDuplicateToken = errors.New("provider returned a duplicate continuation token")

// PageFunc fetches the page identified by token (nil for the first page)
// and returns its items and the token of the next page. A nil or empty
// next token ends the listing.
type PageFunc[T any] func(ctx context.Context, token *string) (items []T, next *string, err error)

// Option configures a Pager.
type Option func(*options)

type options struct {
	name string
}

// WithName labels the listing in debug logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Pager enumerates a paginated collection.
type Pager[T any] struct {
	fetch PageFunc[T]
	opts  options
}

// New creates a Pager around fetch.
func New[T any](fetch PageFunc[T], opts ...Option) *Pager[T] {
	p := &Pager[T]{fetch: fetch}
	for _, opt := range opts {
		opt(&p.opts)
	}
	return p
}

// All returns a lazy sequence over every item of every page in provider
// order. A fetch error is yielded once with a zero item and ends the
// sequence.
func (p *Pager[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		log := zerolog.Ctx(ctx)

		var token *string
		for page := 1; ; page++ {
			items, next, err := p.fetch(ctx, token)
			if err != nil {
				yield(zero, err)
				return
			}

			log.Debug().
				Str("listing", p.opts.name).
				Int("page", page).
				Int("items", len(items)).
				Bool("more", hasMore(next)).
				Msg("fetched page")

			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}

			if !hasMore(next) {
				return
			}
			if token != nil && *token == *next {
				yield(zero, ErrDuplicateToken)
				return
			}
			token = next
		}
	}
}

// Collect drains All into a slice. On error nothing collected so far is
// returned.
func (p *Pager[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for item, err := range p.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func hasMore(next *string) bool {
	return next != nil && *next != ""
}
