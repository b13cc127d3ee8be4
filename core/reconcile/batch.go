package reconcile

import (
	"fmt"
	"sort"
)

// BatchState is the state carried between rounds of one run.
type BatchState struct {
	// Cursors is the continuation state for the next request.
	Cursors CursorPair

	// Pending holds deferred items' partial data.
	Pending *PendingStore

	// Budget is mutated in place as items resolve.
	Budget *FetchBudget

	// Collected is the number of items qualified in earlier rounds.
	Collected int

	// Target is the number of qualified items wanted.
	Target int
}

// Policy bundles the per-item decisions of a run.
type Policy struct {
	Excluder  Excluder
	Qualifier Qualifier
	Key       KeyFunc
}

// BatchOutcome is the result of reconciling one batch.
type BatchOutcome struct {
	// Qualified holds newly qualified items in relevance order.
	Qualified []SearchItem

	// Excluded counts items dropped because the caller already knows them.
	Excluded int

	// Deferred counts items moved into the pending store.
	Deferred int

	// Disqualified counts complete items that failed qualification.
	Disqualified int

	// Incomplete is set when at least one item was deferred.
	Incomplete bool

	// Reached is set when the target was met and the scan stopped early.
	Reached bool
}

// ReconcileBatch consumes one raw batch and mutates state for the next round.
// Items are evaluated in relevance order. The first item whose key sorts at or
// after a continuation cursor opens the incompleteness frontier: it and every
// later item of the batch are deferred, so results never leave relevance order.
func ReconcileBatch(batch *RawBatch, state *BatchState, policy Policy) (BatchOutcome, error) {
	var out BatchOutcome

	cursors, err := state.Cursors.Apply(batch.Cursors)
	if err != nil {
		return out, err
	}
	state.Cursors = cursors

	behind, err := frontier(cursors, policy.key())
	if err != nil {
		return out, err
	}

	items := make([]SearchItem, len(batch.Items))
	copy(items, batch.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].RelevanceIndex < items[j].RelevanceIndex
	})

	budget := state.Budget
	for _, item := range items {
		state.Pending.MergeInto(&item)

		if policy.Excluder != nil && policy.Excluder.Excluded(item.ID) {
			// Behind the frontier the offset cannot move; the item is
			// seen again and counted in the round that resolves it.
			if !out.Incomplete {
				budget.Offset++
				budget.RequestSize--
				out.Excluded++
			}
			continue
		}

		if !out.Incomplete && behind(item.ID) {
			out.Incomplete = true
		}
		if out.Incomplete {
			state.Pending.Put(item)
			out.Deferred++
			continue
		}

		if !policy.Qualifier.Qualifies(item) {
			budget.Offset++
			out.Disqualified++
			continue
		}

		budget.Offset++
		budget.RequestSize--
		out.Qualified = append(out.Qualified, item)
		if state.Collected+len(out.Qualified) >= state.Target {
			out.Reached = true
			return out, nil
		}
	}

	if !out.Incomplete {
		state.Cursors = state.Cursors.Reset()
	}
	state.Cursors.Usage = FastForwardUsage(state.Cursors.Usage)

	return out, nil
}

func (p Policy) key() KeyFunc {
	if p.Key == nil {
		return identityKey
	}
	return p.Key
}

// frontier returns a predicate reporting whether an item sorts at or after
// either continuation cursor, i.e. may still be missing sub-resource data.
func frontier(cursors CursorPair, key KeyFunc) (func(id string) bool, error) {
	var usageKey, metadataKey string
	var err error
	if cursors.Usage.IsContinuing() {
		if usageKey, err = UsageCursorKey(cursors.Usage.Token()); err != nil {
			return nil, fmt.Errorf("usage cursor: %w", err)
		}
	}
	if cursors.Metadata.IsContinuing() {
		if metadataKey, err = MetadataCursorKey(cursors.Metadata.Token()); err != nil {
			return nil, fmt.Errorf("metadata cursor: %w", err)
		}
	}
	return func(id string) bool {
		k := key(id)
		return (usageKey != "" && k >= usageKey) || (metadataKey != "" && k >= metadataKey)
	}, nil
}
