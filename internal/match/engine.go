// Package match is the matching engine: it evaluates a new intent against the
// intent pool, records compatible pairs once and notifies both parties.
package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/garyellow/ntpu-section-swap/internal/ctxutil"
	domerrors "github.com/garyellow/ntpu-section-swap/internal/errors"
	"github.com/garyellow/ntpu-section-swap/internal/logger"
	"github.com/garyellow/ntpu-section-swap/internal/metrics"
	"github.com/garyellow/ntpu-section-swap/internal/notify"
	"github.com/garyellow/ntpu-section-swap/internal/section"
	"github.com/garyellow/ntpu-section-swap/internal/sliceutil"
	"github.com/garyellow/ntpu-section-swap/internal/storage"
)

// ModuleName is used for logging.
const ModuleName = "match"

// Triggers that start a pass.
const (
	TriggerIntent = "intent"
	TriggerSweep  = "sweep"
)

// Reasons a pass did nothing.
const (
	SkipAlreadyProcessed = "already_processed"
	SkipInvalid          = "invalid"
)

// Pass statuses used in metrics.
const (
	statusOK      = "ok"
	statusSkipped = "skipped"
	statusPartial = "partial"
	statusError   = "error"
)

// Store is everything the engine reads and writes.
type Store interface {
	CandidateSource
	PairChecker
	RecordWriter
	ProfileLookup
	GetIntent(ctx context.Context, id string) (*storage.Intent, error)
	ListRecentIntents(ctx context.Context, limit int) ([]storage.Intent, error)
	ListUnprocessedIntents(ctx context.Context, limit int) ([]storage.Intent, error)
	MarkProcessed(ctx context.Context, id, hash string, at time.Time) error
}

// PairNotifier tells both parties about a new match.
type PairNotifier interface {
	NotifyPair(ctx context.Context, m notify.Match) notify.Outcome
}

// Config tunes the engine.
type Config struct {
	CandidateLimit int           // candidates per pass
	StoreTimeout   time.Duration // per store call
	SweepWorkers   int           // concurrent passes during a sweep
}

// Summary counts what one pass (or a whole sweep) did.
type Summary struct {
	IntentID   string `json:"intent_id,omitempty"`
	Candidates int    `json:"candidates"`
	Matched    int    `json:"matched"`
	Recorded   int    `json:"recorded"`
	Duplicates int    `json:"duplicates"`
	Notified   int    `json:"notified"`
	Failures   int    `json:"failures"`
	Skipped    string `json:"skipped,omitempty"`
}

func (s *Summary) add(o Summary) {
	s.Candidates += o.Candidates
	s.Matched += o.Matched
	s.Recorded += o.Recorded
	s.Duplicates += o.Duplicates
	s.Notified += o.Notified
	s.Failures += o.Failures
}

// SweepSummary totals a sweep.
type SweepSummary struct {
	Summary
	Intents int `json:"intents"`
	Skipped int `json:"skipped_intents"`
	Errors  int `json:"errors"`
}

// Engine runs matching passes. It holds no per-intent state between passes
// and is safe for concurrent use.
type Engine struct {
	store      Store
	fetcher    *Fetcher
	recorder   *Recorder
	notifier   PairNotifier
	predicates []Predicate
	config     Config
	metrics    *metrics.Metrics
	logger     *logger.Logger

	group singleflight.Group
	now   func() time.Time
}

// NewEngine creates an Engine with the default predicate order.
func NewEngine(store Store, notifier PairNotifier, cfg Config, m *metrics.Metrics, log *logger.Logger) *Engine {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.SweepWorkers <= 0 {
		cfg.SweepWorkers = 4
	}
	return &Engine{
		store:      store,
		fetcher:    NewFetcher(store, cfg.CandidateLimit),
		recorder:   NewRecorder(store, store),
		notifier:   notifier,
		predicates: DefaultPredicates(),
		config:     cfg,
		metrics:    m,
		logger:     log.WithModule(ModuleName),
		now:        time.Now,
	}
}

// Process runs one matching pass for in. Concurrent calls for the same intent
// content share a single pass. Unless the context carries the sweep trigger, an
// intent already processed with identical content is skipped.
//
// The returned error reports a pass that could not evaluate candidates at
// all; sub-step failures are only counted in Summary.Failures.
func (e *Engine) Process(ctx context.Context, in *storage.Intent) (Summary, error) {
	if in == nil {
		return Summary{Skipped: SkipInvalid}, nil
	}
	key := in.ID + ":" + in.ContentHash()
	v, err, _ := e.group.Do(key, func() (any, error) {
		return e.run(ctx, in)
	})
	sum, _ := v.(Summary)
	return sum, err
}

func (e *Engine) run(ctx context.Context, in *storage.Intent) (sum Summary, err error) {
	start := time.Now()
	trigger := ctxutil.GetTrigger(ctx)
	ctx = ctxutil.WithIntentID(ctxutil.WithUserID(ctx, in.OwnerID), in.ID)
	log := e.logger.WithField("trigger", trigger)

	sum.IntentID = in.ID
	status := statusOK
	defer func() {
		e.metrics.RecordMatchPass(trigger, status, time.Since(start).Seconds())
	}()

	if trigger != TriggerSweep && e.alreadyProcessed(ctx, in) {
		sum.Skipped = SkipAlreadyProcessed
		status = statusSkipped
		return sum, nil
	}

	if verr := Validate(in); verr != nil {
		log.WithField("fields", domerrors.ValidationFields(verr)).DebugContext(ctx, "Intent excluded from matching")
		sum.Skipped = SkipInvalid
		status = statusSkipped
		e.markProcessed(ctx, in)
		return sum, nil
	}

	candidates, ferr := withTimeout(ctx, e.config.StoreTimeout, func(ctx context.Context) ([]storage.Intent, error) {
		return e.fetcher.Fetch(ctx, in)
	})
	if ferr != nil {
		e.metrics.RecordStoreError("find_candidates")
		if len(candidates) == 0 {
			status = statusError
			log.WithError(ferr).ErrorContext(ctx, "Failed to fetch candidates")
			return sum, fmt.Errorf("fetch candidates for %s: %w", in.ID, ferr)
		}
		log.WithError(ferr).WarnContext(ctx, "Candidate fetch partially failed")
		sum.Failures++
	}
	sum.Candidates = len(candidates)
	e.metrics.RecordCandidates(len(candidates))

	if found := e.evaluate(in, candidates); len(found) > 0 {
		dedup := NewDeduplicator(e.store)
		sourceContact := e.contact(ctx, in)
		for _, f := range found {
			e.handle(ctx, in, sourceContact, f, dedup, &sum)
		}
	}

	if sum.Failures > 0 {
		// left unprocessed so the next sweep retries it
		status = statusPartial
	} else {
		e.markProcessed(ctx, in)
	}

	log.WithFields(map[string]any{
		"candidates":  sum.Candidates,
		"matched":     sum.Matched,
		"duplicates":  sum.Duplicates,
		"failures":    sum.Failures,
		"duration_ms": time.Since(start).Milliseconds(),
	}).DebugContext(ctx, "Matching pass finished")
	return sum, nil
}

type finding struct {
	candidate *storage.Intent
	result    Result
}

// evaluate applies the predicates to every valid candidate. When any mutual
// swap is found, partial swaps for this source are dropped.
func (e *Engine) evaluate(source *storage.Intent, candidates []storage.Intent) []finding {
	var (
		found  []finding
		mutual bool
	)
	for i := range candidates {
		c := &candidates[i]
		if c.ID == source.ID || c.OwnerID == source.OwnerID {
			continue
		}
		if Validate(c) != nil {
			continue
		}
		res, ok := Evaluate(e.predicates, source, c)
		if !ok {
			continue
		}
		if res.Rule == RuleMutualSwap {
			mutual = true
		}
		found = append(found, finding{candidate: c, result: res})
	}

	if !mutual {
		return found
	}
	kept := found[:0]
	for _, f := range found {
		if f.result.Rule != RulePartialSwap {
			kept = append(kept, f)
		}
	}
	return kept
}

// handle deduplicates, records and notifies one finding. Failures are counted
// and logged; they never stop the pass.
func (e *Engine) handle(ctx context.Context, source *storage.Intent, sourceContact Contact, f finding, dedup *Deduplicator, sum *Summary) {
	cand := f.candidate
	courseKey := section.CourseToken(f.result.Course)
	log := e.logger.WithFields(map[string]any{
		"candidate_id": cand.ID,
		"rule":         string(f.result.Rule),
	})

	seen, err := withTimeout(ctx, e.config.StoreTimeout, func(ctx context.Context) (bool, error) {
		return dedup.Seen(ctx, source.OwnerID, cand.OwnerID, courseKey)
	})
	if err != nil {
		sum.Failures++
		e.metrics.RecordStoreError("has_pair")
		log.WithError(err).WithField("operation", "has_pair").WarnContext(ctx, "Duplicate check failed; candidate skipped")
		return
	}
	if seen {
		sum.Duplicates++
		e.metrics.RecordDuplicate("check")
		return
	}

	candContact := e.contact(ctx, cand)
	records := e.recorder.Build(f.result, source, cand, sourceContact, candContact, e.now().UTC())

	inserted, err := withTimeout(ctx, e.config.StoreTimeout, func(ctx context.Context) (int, error) {
		return e.recorder.Record(ctx, records)
	})
	if err != nil {
		sum.Failures++
		e.metrics.RecordStoreError("insert_matches")
		log.WithError(err).WithField("operation", "insert_matches").ErrorContext(ctx, "Failed to record match; candidate skipped")
		return
	}
	dedup.Mark(source.OwnerID, cand.OwnerID, courseKey)
	if inserted == 0 {
		sum.Duplicates++
		e.metrics.RecordDuplicate("insert")
		log.WithError(domerrors.ErrDuplicateMatch).DebugContext(ctx, "Match already recorded by a concurrent pass")
		return
	}

	sum.Matched++
	sum.Recorded += inserted
	e.metrics.RecordMatch(string(f.result.Rule))
	log.WithFields(map[string]any{
		"quality": f.result.Quality,
		"reason":  f.result.Reason,
	}).InfoContext(ctx, "Match recorded")

	if e.notifier == nil {
		return
	}
	out := e.notifier.NotifyPair(ctx, notify.Match{
		Course:  f.result.Course,
		Rule:    string(f.result.Rule),
		Quality: f.result.Quality,
		A:       party(source, sourceContact),
		B:       party(cand, candContact),
	})
	sum.Notified += out.Sent()
}

func (e *Engine) contact(ctx context.Context, in *storage.Intent) Contact {
	c, err := withTimeout(ctx, e.config.StoreTimeout, func(ctx context.Context) (Contact, error) {
		return e.recorder.Contact(ctx, in)
	})
	if err != nil {
		e.metrics.RecordStoreError("get_profile")
		e.logger.WithError(err).WithField("owner_id", in.OwnerID).WarnContext(ctx, "Profile lookup failed; using intent contact fields")
	}
	return c
}

func party(in *storage.Intent, c Contact) notify.Party {
	return notify.Party{
		UserID:      in.OwnerID,
		Ref:         c.Ref,
		Handle:      c.Handle,
		DisplayName: c.DisplayName,
		Holds:       in.CurrentLabel(),
		Wants:       in.DesiredLabel(),
	}
}

func (e *Engine) alreadyProcessed(ctx context.Context, in *storage.Intent) bool {
	stored, err := withTimeout(ctx, e.config.StoreTimeout, func(ctx context.Context) (*storage.Intent, error) {
		return e.store.GetIntent(ctx, in.ID)
	})
	if err != nil {
		e.metrics.RecordStoreError("get_intent")
		e.logger.WithError(err).WarnContext(ctx, "Processed-marker lookup failed; running pass")
		return false
	}
	return stored != nil && stored.ProcessedAt != nil && stored.ContentHash() == in.ContentHash()
}

func (e *Engine) markProcessed(ctx context.Context, in *storage.Intent) {
	_, err := withTimeout(ctx, e.config.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.store.MarkProcessed(ctx, in.ID, in.ContentHash(), e.now())
	})
	if err != nil {
		e.metrics.RecordStoreError("mark_processed")
		e.logger.WithError(err).WarnContext(ctx, "Failed to set processed marker")
	}
}

// Sweep is the secondary cross-matching pass: it re-runs matching for the
// newest limit intents and for intents that never finished a pass. The
// Deduplicator keeps it idempotent.
func (e *Engine) Sweep(ctx context.Context, limit int) (SweepSummary, error) {
	ctx = ctxutil.WithTrigger(ctx, TriggerSweep)

	recent, err := withTimeout(ctx, e.config.StoreTimeout, func(ctx context.Context) ([]storage.Intent, error) {
		return e.store.ListRecentIntents(ctx, limit)
	})
	if err != nil {
		e.metrics.RecordStoreError("list_recent_intents")
		return SweepSummary{}, fmt.Errorf("list recent intents: %w", err)
	}
	pending, err := withTimeout(ctx, e.config.StoreTimeout, func(ctx context.Context) ([]storage.Intent, error) {
		return e.store.ListUnprocessedIntents(ctx, limit)
	})
	if err != nil {
		e.metrics.RecordStoreError("list_unprocessed_intents")
		e.logger.WithError(err).WarnContext(ctx, "Failed to list unprocessed intents; sweeping recent only")
	}
	intents := sliceutil.Deduplicate(append(pending, recent...), func(in storage.Intent) string { return in.ID })

	var (
		mu    sync.Mutex
		total = SweepSummary{Intents: len(intents)}
		g     errgroup.Group
	)
	g.SetLimit(e.config.SweepWorkers)
	for i := range intents {
		in := &intents[i]
		g.Go(func() error {
			sum, err := e.Process(ctx, in)
			mu.Lock()
			defer mu.Unlock()
			total.add(sum)
			if sum.Skipped != "" {
				total.Skipped++
			}
			if err != nil {
				total.Errors++
			}
			return nil
		})
	}
	_ = g.Wait()

	e.logger.WithFields(map[string]any{
		"intents": total.Intents,
		"matched": total.Matched,
		"errors":  total.Errors,
	}).InfoContext(ctx, "Sweep finished")
	return total, nil
}

// withTimeout runs fn under a derived deadline. Deadline errors are tagged
// with errors.ErrTimeout.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	v, err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", domerrors.ErrTimeout, err)
	}
	return v, err
}
