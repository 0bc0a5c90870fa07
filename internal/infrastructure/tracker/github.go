package tracker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ports"
)

const defaultTimeout = 30 * time.Second

// GitHubTracker files approved tickets as GitHub issues.
type GitHubTracker struct {
	gh     *gh.Client
	owner  string
	repo   string
	labels []string
}

var _ ports.TicketTracker = (*GitHubTracker)(nil)

// NewGitHubTracker authenticates with a static token. BaseURL targets GitHub Enterprise or a test server.
func NewGitHubTracker(ctx context.Context, cfg config.GitHubConfig) (*GitHubTracker, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = defaultTimeout

	client := gh.NewClient(tc)
	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		client.BaseURL = base
	}

	return &GitHubTracker{gh: client, owner: cfg.Owner, repo: cfg.Repo, labels: cfg.Labels}, nil
}

// CreateIssue opens an issue carrying the ticket text, labels and a link back to the feedback.
func (t *GitHubTracker) CreateIssue(ctx context.Context, ticket domain.DraftedTicket) (domain.TicketRef, error) {
	labels := mergeLabels(t.labels, ticket.Labels)
	req := &gh.IssueRequest{
		Title:  gh.Ptr(ticket.Title),
		Body:   gh.Ptr(issueBody(ticket)),
		Labels: &labels,
	}

	issue, resp, err := t.gh.Issues.Create(ctx, t.owner, t.repo, req)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return domain.TicketRef{}, fmt.Errorf("github repository %s/%s not found: %w", t.owner, t.repo, err)
		}
		return domain.TicketRef{}, fmt.Errorf("create github issue: %w", err)
	}

	return domain.TicketRef{
		Platform: "github",
		Number:   issue.GetNumber(),
		URL:      issue.GetHTMLURL(),
	}, nil
}

func issueBody(ticket domain.DraftedTicket) string {
	var b strings.Builder
	b.WriteString(ticket.Description)
	b.WriteString("\n\n---\n")
	fmt.Fprintf(&b, "**Source:** %s\n", ticket.Item.Source)
	if ticket.Item.SourceURL != "" {
		fmt.Fprintf(&b, "**Link:** %s\n", ticket.Item.SourceURL)
	}
	if ticket.Item.Author != "" {
		fmt.Fprintf(&b, "**Reported by:** %s\n", ticket.Item.Author)
	}
	fmt.Fprintf(&b, "**Classification:** %s / %s / %s\n",
		ticket.Classification.Category, ticket.SuggestedPriority, ticket.Classification.Sentiment)
	return b.String()
}

func mergeLabels(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, l := range append(append([]string{}, base...), extra...) {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		key := strings.ToLower(l)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}
