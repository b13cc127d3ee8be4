// Package reconcile provides the result reconciliation engine for ranked media
// searches whose per-item sub-resources are paginated independently of the
// ranking itself.
//
// A remote search service returns ranked items together with two auxiliary
// sub-resources (usage across sites, and file metadata). Both sub-resources are
// paginated alphabetically by item key rather than by relevance, so a single
// response cannot guarantee that every ranked item carries complete data. The
// engine decides, batch by batch, which items are usable now, which must be
// deferred until more data arrives, which minimal follow-up request to issue,
// and when to stop.
//
// # Architecture
//
// The reconcile system consists of four main components:
//
// 1. Fetcher: Issues one request to the remote service and returns a RawBatch.
//    Implementations own the transport; see feature/media for the Commons API.
//
// 2. Batch Reconciler: Consumes one RawBatch plus carried-over PendingStore data
//    and yields the newly qualified items in relevance order, updated cursors,
//    and an updated FetchBudget.
//
// 3. Engine: Drives Fetcher and Batch Reconciler rounds until the target count
//    is reached, the service signals exhaustion, or the offset ceiling is passed.
//
// 4. Cache: Caller-owned TTL cache with stampede protection, keyed by entity,
//    language, limit and exclusion set. There is no process-wide state.
//
// # Ordering
//
// Once an item is found incomplete in relevance order, every later item of the
// same batch is deferred as well. Qualified results are therefore always emitted
// in the relevance order reported by the service, across all rounds.
//
// # Usage Example
//
//	spec := &reconcile.Spec{
//	    Fetcher:   fetcher,
//	    Qualifier: policy,
//	    Key:       media.CursorKey,
//	    Options:   reconcile.DefaultOptions(),
//	}
//
//	result, err := reconcile.Run(ctx, spec, reconcile.Query{
//	    EntityID: "Q84",
//	    Language: "en",
//	    Limit:    10,
//	    Exclude:  []string{"File:London Eye.jpg"},
//	})
package reconcile
