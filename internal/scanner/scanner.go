package scanner

import (
	"context"
	"fmt"
	"sort"

	"FeedbackScanner/internal/domain"
)

// Request carries the parameters of one (query, subreddit) fetch.
type Request struct {
	Query     string
	Subreddit string
	Limit     int
	// Time is a platform time window such as "day", "week" or "month".
	Time string
}

// Result is what an adapter returns for one request.
type Result struct {
	Records []domain.RawRecord
	Meta    map[string]any
}

// Scanner is a source adapter (Reddit, Twitter, support forum, Slack inbox).
type Scanner interface {
	Source() domain.Source
	Search(ctx context.Context, req Request) (Result, error)
}

// Registry keeps a mapping from source tags to their adapters.
type Registry struct {
	scanners map[domain.Source]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[domain.Source]Scanner{}}
}

// Register adds or replaces an adapter.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[domain.Source]Scanner{}
	}
	r.scanners[scanner.Source()] = scanner
}

// Resolve returns the adapter for a source or domain.ErrSourceNotConfigured.
func (r *Registry) Resolve(source domain.Source) (Scanner, error) {
	if r != nil {
		if scanner, ok := r.scanners[source]; ok {
			return scanner, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotConfigured, source)
}

// Sources lists registered source tags in sorted order.
func (r *Registry) Sources() []domain.Source {
	out := make([]domain.Source, 0, len(r.scanners))
	for s := range r.scanners {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
