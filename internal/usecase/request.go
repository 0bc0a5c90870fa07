package usecase

import (
	"fmt"
	"strings"

	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/scanner"
)

// SourceQuery selects what to fetch from one source.
type SourceQuery struct {
	Source     domain.Source `json:"source"`
	Queries    []string      `json:"queries,omitempty"`
	Subreddits []string      `json:"subreddits,omitempty"`
	Limit      int           `json:"limit,omitempty"`
	Time       string        `json:"time,omitempty"`
}

// Upload is an uploaded file or call transcript; entries are separated by blank lines.
type Upload struct {
	FileName string        `json:"fileName"`
	Kind     domain.Source `json:"kind,omitempty"`
	Content  string        `json:"content"`
}

// Request is the input of one pipeline run.
type Request struct {
	Sources  []SourceQuery `json:"sources"`
	Uploads  []Upload      `json:"uploads,omitempty"`
	MaxItems int           `json:"maxItems,omitempty"`
}

// fetchPair is one adapter call of the ingest phase.
type fetchPair struct {
	source  domain.Source
	scanner scanner.Scanner
	request scanner.Request
}

// plan validates req against the registry and expands it into fetch pairs and
// upload records. Every error it returns is a configuration error.
func (p *Pipeline) plan(req Request) ([]fetchPair, []domain.RawRecord, error) {
	var pairs []fetchPair
	for _, sq := range req.Sources {
		if sq.Source == domain.SourceFile || sq.Source == domain.SourceCall {
			return nil, nil, fmt.Errorf("%w: %s feedback must be sent as an upload", domain.ErrInvalidInput, sq.Source)
		}
		if !sq.Source.Valid() {
			return nil, nil, fmt.Errorf("%w: unknown source %q", domain.ErrInvalidInput, sq.Source)
		}
		sc, err := p.registry.Resolve(sq.Source)
		if err != nil {
			return nil, nil, err
		}

		limit := sq.Limit
		if limit <= 0 {
			limit = p.opts.DefaultLimit
		}

		queries := capList(sq.Queries, p.opts.MaxQueries)
		subreddits := []string{""}
		if sq.Source == domain.SourceReddit && len(sq.Subreddits) > 0 {
			subreddits = capList(sq.Subreddits, p.opts.MaxSubreddits)
		}

		for _, q := range queries {
			for _, sub := range subreddits {
				pairs = append(pairs, fetchPair{
					source:  sq.Source,
					scanner: sc,
					request: scanner.Request{Query: q, Subreddit: sub, Limit: limit, Time: sq.Time},
				})
			}
		}
	}

	var records []domain.RawRecord
	for i, up := range req.Uploads {
		recs, err := uploadRecords(i, up)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, recs...)
	}

	return pairs, records, nil
}

// capList trims blank entries and keeps the first max; an empty list yields
// one empty entry so sources without queries are still fetched once.
func capList(values []string, max int) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []string{""}
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

func uploadRecords(index int, up Upload) ([]domain.RawRecord, error) {
	kind := up.Kind
	if kind == "" {
		kind = domain.SourceFile
	}
	if kind != domain.SourceFile && kind != domain.SourceCall {
		return nil, fmt.Errorf("%w: upload kind %q", domain.ErrInvalidInput, kind)
	}

	name := strings.TrimSpace(up.FileName)
	if name == "" {
		name = fmt.Sprintf("upload-%d", index+1)
	}

	entries := SplitEntries(up.Content)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyUpload, name)
	}

	records := make([]domain.RawRecord, 0, len(entries))
	for i, text := range entries {
		records = append(records, domain.RawRecord{
			Source: kind,
			Text:   &domain.TextEntry{FileName: name, Index: i, Content: text},
		})
	}
	return records, nil
}

// SplitEntries splits uploaded text into feedback entries at blank lines.
func SplitEntries(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var (
		entries []string
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			entries = append(entries, strings.Join(current, "\n"))
			current = current[:0]
		}
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return entries
}
