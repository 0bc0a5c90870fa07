package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ports"
)

const (
	itemsTable   = "feedback_items"
	ticketsTable = "drafted_tickets"
)

var itemColumns = []string{
	"id", "source", "source_id", "source_url", "title", "content",
	"author", "author_handle", "engagement_score", "metadata", "created_at", "fetched_at",
}

// SQLRepository persists feedback items and drafted tickets in Postgres or SQLite.
type SQLRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var (
	_ ports.FeedbackRepository = (*SQLRepository)(nil)
	_ ports.TicketRepository   = (*SQLRepository)(nil)
)

// NewSQLRepository wires a sql.DB; driver selects the placeholder style.
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	var format sq.PlaceholderFormat = sq.Question
	if driver == "postgres" {
		format = sq.Dollar
	}
	return &SQLRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(format)}
}

// ItemsByID returns the stored items among ids.
func (r *SQLRepository) ItemsByID(ctx context.Context, ids []string) ([]domain.FeedbackItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := r.sb.Select(itemColumns...).From(itemsTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}
	return r.queryItems(ctx, query, args)
}

// RecentItems returns up to limit items fetched at or after since, newest first.
func (r *SQLRepository) RecentItems(ctx context.Context, since time.Time, limit int) ([]domain.FeedbackItem, error) {
	builder := r.sb.Select(itemColumns...).
		From(itemsTable).
		Where(sq.GtOrEq{"fetched_at": since.UTC()}).
		OrderBy("fetched_at DESC", "id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}
	return r.queryItems(ctx, query, args)
}

// SaveItems upserts items; engagement and metadata are refreshed on conflict.
func (r *SQLRepository) SaveItems(ctx context.Context, items []domain.FeedbackItem) error {
	if len(items) == 0 {
		return nil
	}

	builder := r.sb.Insert(itemsTable).Columns(itemColumns...)
	for _, it := range items {
		meta, err := json.Marshal(it.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata of %s: %w", it.ID, err)
		}
		builder = builder.Values(
			it.ID, string(it.Source), it.SourceID, it.SourceURL, it.Title, it.Content,
			it.Author, it.AuthorHandle, it.EngagementScore, string(meta),
			it.CreatedAt.UTC(), it.FetchedAt.UTC(),
		)
	}
	builder = builder.Suffix(`ON CONFLICT (id) DO UPDATE
              SET engagement_score = EXCLUDED.engagement_score,
                  metadata = EXCLUDED.metadata,
                  fetched_at = EXCLUDED.fetched_at,
                  updated_at = CURRENT_TIMESTAMP`)

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert items: %w", err)
	}
	return nil
}

// SaveTicket upserts the ticket snapshot.
func (r *SQLRepository) SaveTicket(ctx context.Context, ticket domain.DraftedTicket) error {
	payload, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("marshal ticket %s: %w", ticket.ID, err)
	}

	query, args, err := r.sb.Insert(ticketsTable).
		Columns("id", "item_id", "status", "payload", "created_at", "updated_at").
		Values(ticket.ID, ticket.Item.ID, string(ticket.Status), string(payload), ticket.CreatedAt.UTC(), ticket.UpdatedAt.UTC()).
		Suffix(`ON CONFLICT (id) DO UPDATE
              SET status = EXCLUDED.status,
                  payload = EXCLUDED.payload,
                  updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build ticket upsert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert ticket %s: %w", ticket.ID, err)
	}
	return nil
}

// GetTicket loads a ticket or returns domain.ErrNotFound.
func (r *SQLRepository) GetTicket(ctx context.Context, id string) (domain.DraftedTicket, error) {
	query, args, err := r.sb.Select("payload").From(ticketsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.DraftedTicket{}, fmt.Errorf("build ticket query: %w", err)
	}

	var payload string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DraftedTicket{}, fmt.Errorf("%w: ticket %s", domain.ErrNotFound, id)
		}
		return domain.DraftedTicket{}, fmt.Errorf("query ticket %s: %w", id, err)
	}

	var ticket domain.DraftedTicket
	if err := json.Unmarshal([]byte(payload), &ticket); err != nil {
		return domain.DraftedTicket{}, fmt.Errorf("decode ticket %s: %w", id, err)
	}
	return ticket, nil
}

// ListTickets returns tickets with the given status (all when empty), newest first.
func (r *SQLRepository) ListTickets(ctx context.Context, status domain.TicketStatus, limit int) ([]domain.DraftedTicket, error) {
	builder := r.sb.Select("payload").From(ticketsTable).OrderBy("created_at DESC", "id")
	if status != "" {
		builder = builder.Where(sq.Eq{"status": string(status)})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tickets query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	var out []domain.DraftedTicket
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		var ticket domain.DraftedTicket
		if err := json.Unmarshal([]byte(payload), &ticket); err != nil {
			return nil, fmt.Errorf("decode ticket: %w", err)
		}
		out = append(out, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) queryItems(ctx context.Context, query string, args []any) ([]domain.FeedbackItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var out []domain.FeedbackItem
	for rows.Next() {
		var (
			it     domain.FeedbackItem
			source string
			meta   string
		)
		if err := rows.Scan(
			&it.ID, &source, &it.SourceID, &it.SourceURL, &it.Title, &it.Content,
			&it.Author, &it.AuthorHandle, &it.EngagementScore, &meta, &it.CreatedAt, &it.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Source = domain.Source(source)
		if meta != "" && meta != "null" {
			if err := json.Unmarshal([]byte(meta), &it.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", it.ID, err)
			}
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
