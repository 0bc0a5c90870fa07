// Package parser scrapes support-forum search pages into raw feedback records.
package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/scanner"
)

const queryPlaceholder = "{query}"

var countExpr = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*([kKmM]?)`)

// ForumScanner crawls the configured forum search pages with CSS selectors.
type ForumScanner struct {
	client *http.Client
	forums []config.ForumConfig
	logger *slog.Logger
}

var _ scanner.Scanner = (*ForumScanner)(nil)

// NewForumScanner wires an HTTP client; a nil client gets a 20s timeout.
func NewForumScanner(client *http.Client, forums []config.ForumConfig, logger *slog.Logger) *ForumScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ForumScanner{client: client, forums: forums, logger: logger}
}

// Source implements scanner.Scanner.
func (f *ForumScanner) Source() domain.Source {
	return domain.SourceSupport
}

// Search queries every forum. A failing forum does not hide the posts of the
// others; the call only fails when no forum could be read.
func (f *ForumScanner) Search(ctx context.Context, req scanner.Request) (scanner.Result, error) {
	if len(f.forums) == 0 {
		return scanner.Result{}, fmt.Errorf("%w: no support forums configured", domain.ErrSourceNotConfigured)
	}

	var (
		records []domain.RawRecord
		errs    []error
	)
	for _, forum := range f.forums {
		pageURL := buildSearchURL(forum.SearchURL, req.Query)
		doc, err := f.fetchDocument(ctx, pageURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("forum %s: %w", forum.Name, err))
			continue
		}

		posts := extractPosts(doc, forum, pageURL, req.Limit)
		f.logger.Debug("forum scanned", "forum", forum.Name, "posts", len(posts))
		for i := range posts {
			records = append(records, domain.RawRecord{Source: domain.SourceSupport, Forum: &posts[i]})
		}
	}

	if len(errs) == len(f.forums) {
		return scanner.Result{}, errors.Join(errs...)
	}

	meta := map[string]any{"forums": len(f.forums)}
	if len(errs) > 0 {
		meta["errors"] = errors.Join(errs...).Error()
	}
	return scanner.Result{Records: records, Meta: meta}, nil
}

func (f *ForumScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "FeedbackScanner/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forum returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func extractPosts(doc *goquery.Document, forum config.ForumConfig, pageURL string, limit int) []domain.ForumPost {
	base, _ := url.Parse(pageURL)

	var posts []domain.ForumPost
	doc.Find(forum.ItemSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		post, ok := parsePost(sel, forum, base)
		if ok {
			posts = append(posts, post)
		}
		return limit <= 0 || len(posts) < limit
	})
	return posts
}

func parsePost(sel *goquery.Selection, forum config.ForumConfig, base *url.URL) (domain.ForumPost, bool) {
	body := sel
	if forum.BodySelector != "" {
		body = sel.Find(forum.BodySelector).First()
	}
	bodyHTML, err := body.Html()
	if err != nil || strings.TrimSpace(body.Text()) == "" {
		return domain.ForumPost{}, false
	}

	post := domain.ForumPost{
		Title:    selectText(sel, forum.TitleSelector),
		BodyHTML: strings.TrimSpace(bodyHTML),
		Author:   selectText(sel, forum.AuthorSelector),
		Replies:  parseCount(selectText(sel, forum.RepliesSelector)),
		Views:    parseCount(selectText(sel, forum.ViewsSelector)),
		PostedAt: parseDate(sel, forum),
	}

	if forum.LinkSelector != "" {
		if href, ok := sel.Find(forum.LinkSelector).First().Attr("href"); ok {
			post.URL = resolve(base, href)
		}
	}

	switch {
	case attr(sel, "data-id") != "":
		post.ID = attr(sel, "data-id")
	case attr(sel, "id") != "":
		post.ID = attr(sel, "id")
	case post.URL != "":
		post.ID = post.URL
	default:
		return domain.ForumPost{}, false
	}
	post.ID = forum.Name + "/" + post.ID
	return post, true
}

func selectText(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(sel.Find(selector).First().Text()), " ")
}

func attr(sel *goquery.Selection, name string) string {
	v, _ := sel.Attr(name)
	return strings.TrimSpace(v)
}

func parseDate(sel *goquery.Selection, forum config.ForumConfig) time.Time {
	if forum.DateSelector == "" {
		return time.Time{}
	}
	node := sel.Find(forum.DateSelector).First()
	if dt, ok := node.Attr("datetime"); ok {
		if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(dt)); err == nil {
			return parsed.UTC()
		}
	}
	if forum.DateLayout == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(forum.DateLayout, strings.TrimSpace(node.Text()))
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

// parseCount reads forum counters such as "12 replies", "1,204" or "3.4k views".
func parseCount(text string) int {
	m := countExpr.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	switch strings.ToLower(m[2]) {
	case "k":
		v *= 1_000
	case "m":
		v *= 1_000_000
	}
	return int(v)
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func buildSearchURL(template, query string) string {
	return strings.ReplaceAll(template, queryPlaceholder, url.QueryEscape(strings.TrimSpace(query)))
}
