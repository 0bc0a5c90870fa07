package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackScanner/internal/domain"
)

type stubScanner struct{ source domain.Source }

func (s stubScanner) Source() domain.Source { return s.source }

func (s stubScanner) Search(context.Context, Request) (Result, error) { return Result{}, nil }

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubScanner{source: domain.SourceTwitter})
	reg.Register(stubScanner{source: domain.SourceReddit})

	sc, err := reg.Resolve(domain.SourceReddit)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceReddit, sc.Source())

	_, err = reg.Resolve(domain.SourceSlack)
	assert.ErrorIs(t, err, domain.ErrSourceNotConfigured)

	assert.Equal(t, []domain.Source{domain.SourceReddit, domain.SourceTwitter}, reg.Sources())
}

func TestNilRegistryResolve(t *testing.T) {
	t.Parallel()

	var reg *Registry
	_, err := reg.Resolve(domain.SourceReddit)
	assert.ErrorIs(t, err, domain.ErrSourceNotConfigured)
}
