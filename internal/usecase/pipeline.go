package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"FeedbackScanner/internal/dedup"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/normalizer"
	"FeedbackScanner/internal/ports"
	"FeedbackScanner/internal/ranker"
	"FeedbackScanner/internal/scanner"
)

// Options bounds the work one run may do.
type Options struct {
	MaxItems      int
	MaxQueries    int
	MaxSubreddits int
	DefaultLimit  int
	EventBuffer   int
	RunTimeout    time.Duration
	// KnownLookback and KnownLimit select recent repository items that new
	// items are deduplicated against.
	KnownLookback time.Duration
	KnownLimit    int
}

// DefaultOptions returns the limits used when a field is left at zero.
func DefaultOptions() Options {
	return Options{
		MaxItems:      50,
		MaxQueries:    5,
		MaxSubreddits: 5,
		DefaultLimit:  25,
		EventBuffer:   64,
		RunTimeout:    5 * time.Minute,
		KnownLookback: 30 * 24 * time.Hour,
		KnownLimit:    500,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxItems <= 0 {
		o.MaxItems = def.MaxItems
	}
	if o.MaxQueries <= 0 {
		o.MaxQueries = def.MaxQueries
	}
	if o.MaxSubreddits <= 0 {
		o.MaxSubreddits = def.MaxSubreddits
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = def.DefaultLimit
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = def.EventBuffer
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = def.RunTimeout
	}
	if o.KnownLookback <= 0 {
		o.KnownLookback = def.KnownLookback
	}
	if o.KnownLimit <= 0 {
		o.KnownLimit = def.KnownLimit
	}
	return o
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Registry   *scanner.Registry
	Deduper    *dedup.Deduplicator
	Classifier ports.Classifier
	Drafter    ports.Drafter
	Items      ports.FeedbackRepository
	Tickets    ports.TicketRepository
	Logger     *slog.Logger
	Options    Options
	Clock      func() time.Time
	NewID      func() string
}

// Pipeline implements the ingest, dedup, classify and draft workflow.
type Pipeline struct {
	registry   *scanner.Registry
	deduper    *dedup.Deduplicator
	classifier ports.Classifier
	drafter    ports.Drafter
	items      ports.FeedbackRepository
	tickets    ports.TicketRepository
	logger     *slog.Logger
	opts       Options
	clock      func() time.Time
	newID      func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		registry:   deps.Registry,
		deduper:    deps.Deduper,
		classifier: deps.Classifier,
		drafter:    deps.Drafter,
		items:      deps.Items,
		tickets:    deps.Tickets,
		logger:     deps.Logger,
		opts:       deps.Options.withDefaults(),
		clock:      deps.Clock,
		newID:      deps.NewID,
	}
	if p.registry == nil {
		p.registry = scanner.NewRegistry()
	}
	if p.deduper == nil {
		p.deduper = dedup.New(dedup.DefaultThreshold)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p
}

// BatchResult is the single JSON object returned by a non-streaming run.
type BatchResult struct {
	RunID      string                  `json:"runId"`
	RawItems   []domain.FeedbackItem   `json:"rawItems"`
	Classified []domain.ClassifiedItem `json:"classified"`
	Stats      Stats                   `json:"stats"`
	Insights   Insights                `json:"insights"`
	Warnings   []string                `json:"warnings"`
	Phases     []Phase                 `json:"phases"`
}

var errRunExpired = errors.New("run deadline exceeded")

// Stream starts a run in its own goroutine and returns its event stream. The
// run is detached from ctx cancellation and bounded by Options.RunTimeout.
func (p *Pipeline) Stream(ctx context.Context, req Request) *Stream {
	r := p.newRun()
	r.stream = newStream(r.id, p.opts.EventBuffer)

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.RunTimeout)
	go func() {
		defer cancel()
		defer r.stream.finish()
		r.execute(runCtx, req)
	}()
	return r.stream
}

// Run executes ingest, dedup and classify and returns the aggregated result.
func (p *Pipeline) Run(ctx context.Context, req Request) (BatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.RunTimeout)
	defer cancel()

	r := p.newRun()
	if p.classifier == nil {
		return BatchResult{}, fmt.Errorf("%w: no classifier configured", domain.ErrInvalidInput)
	}
	pairs, uploads, err := p.plan(req)
	if err != nil {
		return BatchResult{}, err
	}

	items, err := r.ingest(ctx, pairs, uploads)
	if err != nil {
		return BatchResult{}, err
	}
	items = r.deduplicate(ctx, items, req.MaxItems)

	var classified []domain.ClassifiedItem
	if len(items) > 0 {
		classified, err = r.classify(ctx, items)
		if err != nil {
			return BatchResult{}, err
		}
	}
	r.transition(PhaseComplete)

	classified = ranker.RankClassified(classified)
	if classified == nil {
		classified = []domain.ClassifiedItem{}
	}
	p.logger.Info("batch run finished", "run_id", r.id, "items", len(items), "classified", len(classified), "warnings", len(r.warnings))

	return BatchResult{
		RunID:      r.id,
		RawItems:   items,
		Classified: classified,
		Stats:      r.stats,
		Insights:   BuildInsights(classified),
		Warnings:   r.warnings,
		Phases:     r.state.History(),
	}, nil
}

type run struct {
	p        *Pipeline
	id       string
	logger   *slog.Logger
	stream   *Stream
	state    *stateMachine
	stats    Stats
	warnings []string
}

func (p *Pipeline) newRun() *run {
	id := p.newID()
	return &run{
		p:        p,
		id:       id,
		logger:   p.logger.With("run_id", id),
		state:    newStateMachine(),
		stats:    newStats(),
		warnings: []string{},
	}
}

func (r *run) execute(ctx context.Context, req Request) {
	r.emit(Event{Type: EventStatus, Message: "run started"})

	pairs, uploads, err := r.configure(req)
	if err != nil {
		r.fail(err)
		return
	}

	items, err := r.ingest(ctx, pairs, uploads)
	if err != nil {
		r.expire(err)
		return
	}

	items = r.deduplicate(ctx, items, req.MaxItems)
	if len(items) == 0 {
		r.complete(nil)
		return
	}

	classified, err := r.classify(ctx, items)
	if err != nil {
		r.expire(err)
		return
	}
	if len(classified) == 0 {
		r.complete(nil)
		return
	}

	tickets, err := r.draft(ctx, classified)
	if err != nil {
		r.expire(err)
		return
	}
	r.complete(tickets)
}

func (r *run) configure(req Request) ([]fetchPair, []domain.RawRecord, error) {
	switch {
	case r.p.classifier == nil:
		return nil, nil, fmt.Errorf("%w: no classifier configured", domain.ErrInvalidInput)
	case r.p.drafter == nil:
		return nil, nil, fmt.Errorf("%w: no drafter configured", domain.ErrInvalidInput)
	}
	return r.p.plan(req)
}

func (r *run) ingest(ctx context.Context, pairs []fetchPair, uploads []domain.RawRecord) ([]domain.FeedbackItem, error) {
	r.transition(PhaseIngesting)

	var records []domain.RawRecord
	for _, pair := range pairs {
		res, err := pair.scanner.Search(ctx, pair.request)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", errRunExpired, PhaseIngesting)
		}
		if err != nil {
			r.stats.FetchFailures++
			r.warn(Event{Source: pair.source, Query: pair.request.Query, Subreddit: pair.request.Subreddit},
				fmt.Sprintf("fetch %s failed: %v", describePair(pair), err))
			continue
		}
		records = append(records, res.Records...)
		r.emit(Event{
			Type:      EventProgress,
			Phase:     PhaseIngesting,
			Source:    pair.source,
			Query:     pair.request.Query,
			Subreddit: pair.request.Subreddit,
			Count:     len(res.Records),
			Message:   fmt.Sprintf("fetched %d records from %s", len(res.Records), describePair(pair)),
		})
	}

	if len(uploads) > 0 {
		records = append(records, uploads...)
		r.emit(Event{
			Type:    EventProgress,
			Phase:   PhaseIngesting,
			Source:  uploads[0].Source,
			Count:   len(uploads),
			Message: fmt.Sprintf("loaded %d uploaded entries", len(uploads)),
		})
	}

	norm := normalizer.Normalize(records, r.p.clock())
	r.stats.Fetched = len(records)
	r.stats.Skipped = len(norm.Skipped)
	bySource := map[domain.Source]int{}
	for _, skip := range norm.Skipped {
		bySource[skip.Source]++
		r.logger.Debug("record skipped", "source", skip.Source, "reason", skip.Reason)
	}
	sources := slices.Sorted(maps.Keys(bySource))
	for _, src := range sources {
		r.warn(Event{Source: src, Count: bySource[src]},
			fmt.Sprintf("skipped %d %s records without usable content", bySource[src], src))
	}
	return norm.Items, nil
}

func describePair(pair fetchPair) string {
	desc := string(pair.source)
	if pair.request.Subreddit != "" {
		desc += " r/" + pair.request.Subreddit
	}
	if pair.request.Query != "" {
		desc += fmt.Sprintf(" %q", pair.request.Query)
	}
	return desc
}

// deduplicate collapses duplicates within the run and against known items,
// ranks the survivors and keeps at most maxItems of them.
func (r *run) deduplicate(ctx context.Context, items []domain.FeedbackItem, maxItems int) []domain.FeedbackItem {
	r.transition(PhaseDeduplicating)

	known := r.knownItems(ctx, items)
	unique := r.p.deduper.Deduplicate(items, known)
	r.stats.Duplicates = len(items) - len(unique)

	ranked := ranker.RankItems(unique, nil)
	limit := r.p.opts.MaxItems
	if maxItems > 0 && maxItems < limit {
		limit = maxItems
	}
	if len(ranked) > limit {
		r.stats.Truncated = len(ranked) - limit
		ranked = ranked[:limit]
	}
	r.stats.Total = len(ranked)
	for _, it := range ranked {
		r.stats.BySource[it.Source]++
	}

	r.emit(Event{
		Type:    EventStatus,
		Phase:   PhaseDeduplicating,
		Count:   len(ranked),
		Message: fmt.Sprintf("%d unique items, %d duplicates removed", len(ranked), r.stats.Duplicates),
	})

	return ranked
}

func (r *run) knownItems(ctx context.Context, items []domain.FeedbackItem) []domain.FeedbackItem {
	if r.p.items == nil || len(items) == 0 {
		return nil
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}

	var known []domain.FeedbackItem
	seen := map[string]bool{}
	add := func(batch []domain.FeedbackItem) {
		for _, it := range batch {
			if !seen[it.ID] {
				seen[it.ID] = true
				known = append(known, it)
			}
		}
	}

	byID, err := r.p.items.ItemsByID(ctx, ids)
	if err != nil {
		r.warn(Event{}, fmt.Sprintf("load known items: %v", err))
	}
	add(byID)

	since := r.p.clock().Add(-r.p.opts.KnownLookback)
	recent, err := r.p.items.RecentItems(ctx, since, r.p.opts.KnownLimit)
	if err != nil {
		r.warn(Event{}, fmt.Sprintf("load recent items: %v", err))
	}
	add(recent)
	return known
}

func (r *run) classify(ctx context.Context, items []domain.FeedbackItem) ([]domain.ClassifiedItem, error) {
	r.transition(PhaseClassifying)

	classified := make([]domain.ClassifiedItem, 0, len(items))
	for i, item := range items {
		cls, err := r.p.classifier.Classify(ctx, item)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", errRunExpired, PhaseClassifying)
		}
		if err != nil {
			r.stats.ClassifyFailures++
			r.warn(Event{ItemID: item.ID, Index: i + 1, Total: len(items)}, fmt.Sprintf("classify %s: %v", item.ID, err))
			continue
		}
		cls = cls.Sanitize()
		r.stats.countClassified(cls)
		classified = append(classified, domain.ClassifiedItem{Item: item, Classification: cls})
		r.emit(Event{
			Type:     EventClassified,
			Phase:    PhaseClassifying,
			ItemID:   item.ID,
			Index:    i + 1,
			Total:    len(items),
			Category: cls.Category,
			Priority: cls.Priority,
		})
	}
	return classified, nil
}

func (r *run) draft(ctx context.Context, classified []domain.ClassifiedItem) ([]domain.DraftedTicket, error) {
	r.transition(PhaseDrafting)

	tickets := make([]domain.DraftedTicket, 0, len(classified))
	for i, ci := range classified {
		d, err := r.p.drafter.Draft(ctx, ci.Item, ci.Classification)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", errRunExpired, PhaseDrafting)
		}
		if err != nil {
			r.stats.DraftFailures++
			r.warn(Event{ItemID: ci.Item.ID, Index: i + 1, Total: len(classified)}, fmt.Sprintf("draft %s: %v", ci.Item.ID, err))
			continue
		}

		ticket := domain.NewDraftedTicket(r.p.newID(), ci.Item, ci.Classification, d, r.p.clock())
		r.persist(ctx, ticket)
		r.stats.Drafted++
		tickets = append(tickets, ticket)
		r.emit(Event{
			Type:     EventDrafted,
			Phase:    PhaseDrafting,
			ItemID:   ci.Item.ID,
			Index:    i + 1,
			Total:    len(classified),
			Priority: ticket.SuggestedPriority,
			Ticket:   &ticket,
		})
	}
	return tickets, nil
}

// persist stores the ticket and then its item. An item only becomes known to
// later runs once its ticket is stored, so items that failed to classify, draft
// or save are picked up again next time.
func (r *run) persist(ctx context.Context, ticket domain.DraftedTicket) {
	if r.p.tickets != nil {
		if err := r.p.tickets.SaveTicket(ctx, ticket); err != nil {
			r.warn(Event{ItemID: ticket.Item.ID}, fmt.Sprintf("save ticket %s: %v", ticket.ID, err))
			return
		}
	}
	if r.p.items != nil {
		if err := r.p.items.SaveItems(ctx, []domain.FeedbackItem{ticket.Item}); err != nil {
			r.warn(Event{ItemID: ticket.Item.ID}, fmt.Sprintf("save item %s: %v", ticket.Item.ID, err))
		}
	}
}

func (r *run) complete(tickets []domain.DraftedTicket) {
	r.transition(PhaseComplete)
	items := ranker.RankTickets(tickets)
	if items == nil {
		items = []domain.DraftedTicket{}
	}
	r.logger.Info("pipeline run complete", "tickets", len(items), "duplicates", r.stats.Duplicates, "warnings", len(r.warnings))
	r.emit(Event{
		Type:       EventComplete,
		Phase:      PhaseComplete,
		Count:      len(items),
		Completion: &Completion{Items: items, Stats: r.stats},
	})
}

func (r *run) fail(err error) {
	r.transition(PhaseError)
	r.logger.Warn("pipeline run rejected", "error", err)
	r.emit(Event{Type: EventError, Phase: PhaseError, Error: err.Error()})
}

// expire ends a run that hit its deadline; no complete event follows.
func (r *run) expire(err error) {
	r.transition(PhaseError)
	r.logger.Warn("pipeline run truncated", "error", err, "phases", r.state.History())
}

func (r *run) transition(to Phase) {
	if err := r.state.Transition(to); err != nil {
		r.logger.Error("phase transition", "error", err)
		return
	}
	if to != PhaseError {
		r.emit(Event{Type: EventPhase, Phase: to})
	}
}

// warn records a recoverable failure and streams it with the given context.
func (r *run) warn(ev Event, message string) {
	r.warnings = append(r.warnings, message)
	r.logger.Warn(message)
	ev.Type = EventWarning
	ev.Phase = r.state.Current()
	ev.Message = message
	r.emit(ev)
}

func (r *run) emit(ev Event) {
	if r.stream == nil {
		return
	}
	ev.RunID = r.id
	r.stream.emit(ev)
}
