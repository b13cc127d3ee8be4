package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Options are the configuration constants of a run.
type Options struct {
	// OverFetchFactor scales the limit into the initial request size.
	OverFetchFactor int `json:"over_fetch_factor"`

	// CeilingFactor scales the limit into the offset ceiling.
	CeilingFactor int `json:"ceiling_factor"`

	// MaxRequestSize caps a single request.
	MaxRequestSize int `json:"max_request_size"`

	// MaxRounds bounds the number of round trips regardless of budget.
	MaxRounds int `json:"max_rounds"`
}

// DefaultOptions returns the production constants.
func DefaultOptions() Options {
	return Options{
		OverFetchFactor: 2,
		CeilingFactor:   3,
		MaxRequestSize:  20,
		MaxRounds:       50,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.OverFetchFactor <= 0 {
		o.OverFetchFactor = def.OverFetchFactor
	}
	if o.CeilingFactor <= 0 {
		o.CeilingFactor = def.CeilingFactor
	}
	if o.MaxRequestSize <= 0 {
		o.MaxRequestSize = def.MaxRequestSize
	}
	if o.MaxRounds <= 0 {
		o.MaxRounds = def.MaxRounds
	}
	return o
}

// Spec bundles the collaborators of a run.
type Spec struct {
	// Fetcher issues the round trips.
	Fetcher Fetcher

	// Qualifier decides whether a complete item is a result.
	Qualifier Qualifier

	// Key maps identifiers into the cursor key space. Identity if nil.
	Key KeyFunc

	// Normalize is applied to excluded and candidate identifiers before
	// comparing them. Whitespace trimming if nil.
	Normalize func(string) string

	// Options holds the budget constants.
	Options Options

	// Logger receives per-round debug logs. Nop if nil.
	Logger *zap.Logger

	// Observer, if set, is told about every completed round.
	Observer Observer
}

// Observer receives round-level events, e.g. for metrics.
type Observer interface {
	ObserveRound(req Request, outcome BatchOutcome)
	ObserveRun(summary RunSummary)
}

// Result is the outcome of a run.
type Result struct {
	// Items are the qualified items in relevance order.
	Items []SearchItem `json:"items"`

	// Summary describes how the run went.
	Summary RunSummary `json:"summary"`
}

// Run drives fetch and reconcile rounds until the query's limit is met, the
// service runs out of results, or the budget is spent.
// On cancellation it returns the items gathered so far together with the
// context error.
func Run(ctx context.Context, spec *Spec, query Query) (*Result, error) {
	if spec == nil || spec.Fetcher == nil || spec.Qualifier == nil {
		return nil, errors.New("reconcile spec requires a fetcher and a qualifier")
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	log := spec.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("entity_id", query.EntityID), zap.Int("limit", query.Limit))

	opts := spec.Options.withDefaults()
	excludes := NewExcludeSet(query.Exclude, spec.Normalize)
	budget := NewFetchBudget(query.Limit, excludes.Len(), opts)
	state := &BatchState{
		Pending: NewPendingStore(),
		Budget:  &budget,
		Target:  query.Limit,
	}
	policy := Policy{Excluder: excludes, Qualifier: spec.Qualifier, Key: spec.Key}

	result := &Result{Items: []SearchItem{}}
	summary := &result.Summary
	summary.OffsetCeiling = budget.OffsetCeiling

	finish := func(reason StopReason) {
		summary.Stop = reason
		summary.Offset = budget.Offset
		summary.Pending = state.Pending.Len()
		if spec.Observer != nil {
			spec.Observer.ObserveRun(*summary)
		}
		log.Debug("Reconciliation finished",
			zap.String("stop", string(reason)),
			zap.Int("rounds", summary.Rounds),
			zap.Int("results", len(result.Items)),
		)
	}

	// windowEnd pins the end of the request window while a continuation
	// sequence is open; items entering the window mid-sequence would miss
	// sub-resource data that sorts before the cursor.
	windowEnd := 0

	for len(result.Items) < query.Limit && !budget.Exceeded() {
		if err := ctx.Err(); err != nil {
			finish(StopCancelled)
			return result, err
		}
		if summary.Rounds >= opts.MaxRounds {
			finish(StopMaxRounds)
			return result, nil
		}

		size := budget.NextSize(opts.MaxRequestSize)
		if state.Cursors.IsFresh() {
			windowEnd = budget.Offset + size
		} else if remaining := windowEnd - budget.Offset; remaining >= 1 && remaining < size {
			size = remaining
		}

		req := Request{
			EntityID: query.EntityID,
			Language: query.Language,
			Size:     size,
			Offset:   budget.Offset,
			Cursors:  state.Cursors,
		}
		batch, err := spec.Fetcher.Fetch(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				finish(StopCancelled)
				return result, err
			}
			return nil, err
		}
		if batch == nil {
			return nil, fmt.Errorf("round %d: %w: empty batch", summary.Rounds+1, ErrMalformedResponse)
		}
		summary.Rounds++

		outcome, err := ReconcileBatch(batch, state, policy)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", summary.Rounds, err)
		}
		result.Items = append(result.Items, outcome.Qualified...)
		state.Collected = len(result.Items)
		summary.add(outcome)

		if spec.Observer != nil {
			spec.Observer.ObserveRound(req, outcome)
		}
		log.Debug("Reconciled batch",
			zap.Int("round", summary.Rounds),
			zap.Int("offset", req.Offset),
			zap.Int("size", req.Size),
			zap.Int("received", len(batch.Items)),
			zap.Int("qualified", len(outcome.Qualified)),
			zap.Int("deferred", outcome.Deferred),
			zap.Stringer("usage_cursor", state.Cursors.Usage),
			zap.Stringer("metadata_cursor", state.Cursors.Metadata),
		)

		if outcome.Reached {
			finish(StopTarget)
			return result, nil
		}
		// a short page means the service has no more ranked items
		if len(batch.Items) < req.Size {
			finish(StopExhausted)
			return result, nil
		}
	}

	if len(result.Items) >= query.Limit {
		finish(StopTarget)
	} else {
		finish(StopCeiling)
	}
	return result, nil
}
