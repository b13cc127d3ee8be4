package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// simItem is one ranked item of the simulated search service.
type simItem struct {
	id    string
	sites []string
}

// simEntry is one sub-resource row in continuation order.
type simEntry struct {
	id   string
	site string
	page int
}

func (e simEntry) before(o simEntry) bool {
	if e.id != o.id {
		return e.id < o.id
	}
	if e.site != o.site {
		return e.site < o.site
	}
	return e.page < o.page
}

// simService pages both sub-resources alphabetically by item id, the way
// the remote search service does, independently of relevance order.
type simService struct {
	mu        sync.Mutex
	items     []simItem
	usagePage int
	metaPage  int
	requests  []Request
}

func (s *simService) Fetch(_ context.Context, req Request) (*RawBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)

	end := min(req.Offset+req.Size, len(s.items))
	window := s.items[min(req.Offset, end):end]

	batch := &RawBatch{}
	byID := make(map[string]*SearchItem, len(window))
	for i, it := range window {
		batch.Items = append(batch.Items, SearchItem{ID: it.id, RelevanceIndex: req.Offset + i})
	}
	for i := range batch.Items {
		byID[batch.Items[i].ID] = &batch.Items[i]
	}

	usageDone, metaDone := true, true

	if !req.Cursors.Usage.IsExhausted() {
		var rows []simEntry
		for _, it := range window {
			for _, site := range it.sites {
				rows = append(rows, simEntry{id: it.id, site: site, page: 1})
			}
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].before(rows[j]) })
		rows = from(rows, req.Cursors.Usage, parseUsageToken)
		page, next := paginate(rows, s.usagePage)
		for _, row := range page {
			byID[row.id].Usage = append(byID[row.id].Usage, UsageEntry{Title: "Page", Site: row.site})
		}
		if next != nil {
			usageDone = false
			batch.Cursors.Usage = Continuing(fmt.Sprintf("%s|%s|%d", next.id, next.site, next.page))
		}
	}

	if !req.Cursors.Metadata.IsExhausted() {
		var rows []simEntry
		for _, it := range window {
			rows = append(rows, simEntry{id: it.id})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].before(rows[j]) })
		rows = from(rows, req.Cursors.Metadata, parseMetadataToken)
		page, next := paginate(rows, s.metaPage)
		for _, row := range page {
			byID[row.id].Metadata = append(byID[row.id].Metadata, MetadataEntry{URL: "https://upload.example/" + row.id})
		}
		if next != nil {
			metaDone = false
			batch.Cursors.Metadata = Continuing(next.id + "|20200101000000")
		}
	}

	switch {
	case usageDone && metaDone:
		batch.Cursors = CursorPair{}
	case usageDone:
		batch.Cursors.Usage = Exhausted()
	case metaDone:
		batch.Cursors.Metadata = Exhausted()
	}
	return batch, nil
}

func parseUsageToken(tok string) simEntry {
	parts := strings.Split(tok, "|")
	page, _ := strconv.Atoi(parts[2])
	return simEntry{id: parts[0], site: parts[1], page: page}
}

func parseMetadataToken(tok string) simEntry {
	return simEntry{id: strings.Split(tok, "|")[0]}
}

// from drops the rows before a continuing cursor.
func from(rows []simEntry, c Cursor, parse func(string) simEntry) []simEntry {
	if !c.IsContinuing() {
		return rows
	}
	start := parse(c.Token())
	for i, row := range rows {
		if !row.before(start) {
			return rows[i:]
		}
	}
	return nil
}

func paginate(rows []simEntry, size int) ([]simEntry, *simEntry) {
	if len(rows) <= size {
		return rows, nil
	}
	return rows[:size], &rows[size]
}

// fruitCorpus in relevance order.
func fruitCorpus() []simItem {
	return []simItem{
		{id: "kiwi", sites: []string{"en.wikipedia.org", "fr.wikipedia.org"}},
		{id: "apple", sites: []string{"local"}},
		{id: "mango", sites: []string{"de.wikipedia.org"}},
		{id: "banana", sites: []string{"en.wikipedia.org"}},
		{id: "cherry"},
		{id: "lemon", sites: []string{"es.wikipedia.org", "it.wikipedia.org", "nl.wikipedia.org"}},
		{id: "fig", sites: []string{"en.wikipedia.org"}},
		{id: "grape", sites: []string{"pl.wikipedia.org"}},
		{id: "date"},
		{id: "elder", sites: []string{"en.wikipedia.org"}},
	}
}

// recordingObserver captures engine events.
type recordingObserver struct {
	rounds  []BatchOutcome
	summary *RunSummary
}

func (o *recordingObserver) ObserveRound(_ Request, outcome BatchOutcome) {
	o.rounds = append(o.rounds, outcome)
}

func (o *recordingObserver) ObserveRun(summary RunSummary) {
	o.summary = &summary
}

func TestRun_MultiRoundContinuation(t *testing.T) {
	svc := &simService{items: fruitCorpus(), usagePage: 3, metaPage: 5}
	obs := &recordingObserver{}
	spec := &Spec{Fetcher: svc, Qualifier: externalUsage, Observer: obs, Logger: zap.NewNop()}

	result, err := Run(context.Background(), spec, Query{EntityID: "Q1", Limit: 3, Exclude: []string{"banana"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"kiwi", "mango", "lemon"}, ids(result.Items))
	assert.Equal(t, StopTarget, result.Summary.Stop)
	assert.Equal(t, 3, result.Summary.Rounds)
	assert.Equal(t, 6, result.Summary.Offset)
	assert.Equal(t, 10, result.Summary.OffsetCeiling)
	assert.Equal(t, 1, result.Summary.Excluded)
	assert.Equal(t, 2, result.Summary.Disqualified)
	assert.Equal(t, 10, result.Summary.Deferred)
	assert.Equal(t, 1, result.Summary.Pending)

	// data delivered in earlier rounds survives the deferral
	assert.NotEmpty(t, result.Items[0].Metadata)
	assert.Len(t, result.Items[2].Usage, 2)

	require.Len(t, svc.requests, 3)
	first, second, third := svc.requests[0], svc.requests[1], svc.requests[2]

	assert.Equal(t, 0, first.Offset)
	assert.Equal(t, 7, first.Size)
	assert.True(t, first.Cursors.IsFresh())

	// the continuation replays the same window
	assert.Equal(t, 0, second.Offset)
	assert.Equal(t, 7, second.Size)
	assert.Equal(t, "kiwi|en.wikipedia.org|999999999999999", second.Cursors.Usage.Token())
	assert.Equal(t, "lemon|20200101000000", second.Cursors.Metadata.Token())

	// the window end stays pinned while the sequence is open
	assert.Equal(t, 2, third.Offset)
	assert.Equal(t, 5, third.Size)
	assert.True(t, third.Cursors.Metadata.IsExhausted())
	assert.Equal(t, []SubResource{SubResourceUsage}, third.Active())

	require.NotNil(t, obs.summary)
	assert.Equal(t, result.Summary, *obs.summary)
	require.Len(t, obs.rounds, 3)
	assert.Empty(t, obs.rounds[0].Qualified)
	assert.Equal(t, 6, obs.rounds[0].Deferred)
}

func TestRun_CursorsNeverResumeAfterExhaustion(t *testing.T) {
	svc := &simService{items: fruitCorpus(), usagePage: 2, metaPage: 2}
	spec := &Spec{Fetcher: svc, Qualifier: externalUsage}

	_, err := Run(context.Background(), spec, Query{EntityID: "Q1", Limit: 5})
	require.NoError(t, err)

	// within one continuation sequence an exhausted cursor stays exhausted
	var prev CursorPair
	for i, req := range svc.requests {
		if req.Cursors.IsFresh() {
			prev = CursorPair{}
			continue
		}
		if prev.Usage.IsExhausted() {
			assert.True(t, req.Cursors.Usage.IsExhausted(), "request %d resumed usage", i)
		}
		if prev.Metadata.IsExhausted() {
			assert.True(t, req.Cursors.Metadata.IsExhausted(), "request %d resumed metadata", i)
		}
		prev = req.Cursors
	}
}

func TestRun_SingleRoundBudget(t *testing.T) {
	// excluded at 1, 4, 7; failing at 2, 8
	var items []SearchItem
	for i := 0; i < 12; i++ {
		item := usedOn(fmt.Sprintf("item-%02d", i), i, "en.wikipedia.org")
		if i == 2 || i == 8 {
			item.Usage = nil
		}
		items = append(items, item)
	}
	shuffled := append([]SearchItem(nil), items...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var sizes []int
	fetcher := FetcherFunc(func(_ context.Context, req Request) (*RawBatch, error) {
		sizes = append(sizes, req.Size)
		return &RawBatch{Items: shuffled}, nil
	})
	spec := &Spec{Fetcher: fetcher, Qualifier: externalUsage}
	query := Query{EntityID: "Q1", Limit: 5, Exclude: []string{"item-01", "item-04", "item-07"}}

	result, err := Run(context.Background(), spec, query)
	require.NoError(t, err)

	assert.Equal(t, []string{"item-00", "item-03", "item-05", "item-06", "item-09"}, ids(result.Items))
	assert.Equal(t, []int{13}, sizes)
	assert.Equal(t, 1, result.Summary.Rounds)
	assert.Equal(t, 10, result.Summary.Offset)
	assert.Equal(t, 18, result.Summary.OffsetCeiling)
	assert.Equal(t, 3, result.Summary.Excluded)
	assert.Equal(t, 7, result.Summary.Qualified+result.Summary.Disqualified+result.Summary.Deferred)
}

func TestRun_ExclusionIsIdempotent(t *testing.T) {
	run := func(exclude []string) *Result {
		svc := &simService{items: fruitCorpus(), usagePage: 3, metaPage: 5}
		result, err := Run(context.Background(), &Spec{Fetcher: svc, Qualifier: externalUsage},
			Query{EntityID: "Q1", Limit: 3, Exclude: exclude})
		require.NoError(t, err)
		return result
	}

	once := run([]string{"banana"})
	repeated := run([]string{"banana", " banana", "banana "})

	assert.Equal(t, ids(once.Items), ids(repeated.Items))
	assert.Equal(t, once.Summary, repeated.Summary)
}

func TestRun_ExclusionOnlyRemoves(t *testing.T) {
	run := func(exclude []string) *Result {
		svc := &simService{items: fruitCorpus(), usagePage: 3, metaPage: 5}
		result, err := Run(context.Background(), &Spec{Fetcher: svc, Qualifier: externalUsage},
			Query{EntityID: "Q1", Limit: 3, Exclude: exclude})
		require.NoError(t, err)
		return result
	}

	tests := []struct {
		name    string
		exclude string
	}{
		{"qualified item", "mango"},
		{"unqualified item", "apple"},
		{"unknown item", "durian"},
	}
	without := run(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			with := run([]string{tt.exclude})
			assert.LessOrEqual(t, len(with.Items), len(without.Items))
			assert.NotContains(t, ids(with.Items), tt.exclude)
		})
	}
}

func TestRun_CeilingStop(t *testing.T) {
	calls := 0
	fetcher := FetcherFunc(func(_ context.Context, req Request) (*RawBatch, error) {
		calls++
		batch := &RawBatch{}
		for i := 0; i < req.Size; i++ {
			batch.Items = append(batch.Items, usedOn(fmt.Sprintf("local-%03d", req.Offset+i), req.Offset+i, "local"))
		}
		return batch, nil
	})

	result, err := Run(context.Background(), &Spec{Fetcher: fetcher, Qualifier: externalUsage}, Query{EntityID: "Q1", Limit: 2})
	require.NoError(t, err)

	// ceiling 6: a first round of 4 then a round of 4 passes it
	assert.Empty(t, result.Items)
	assert.Equal(t, 2, calls)
	assert.Equal(t, StopCeiling, result.Summary.Stop)
	assert.Equal(t, 8, result.Summary.Offset)
}

func TestRun_ShortPageEndsRun(t *testing.T) {
	fetcher := FetcherFunc(func(_ context.Context, req Request) (*RawBatch, error) {
		return &RawBatch{Items: []SearchItem{usedOn("only", 0, "en.wikipedia.org")}}, nil
	})

	result, err := Run(context.Background(), &Spec{Fetcher: fetcher, Qualifier: externalUsage}, Query{EntityID: "Q1", Limit: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"only"}, ids(result.Items))
	assert.Equal(t, StopExhausted, result.Summary.Stop)
	assert.Equal(t, 1, result.Summary.Rounds)
}

func TestRun_ShortPageEndsRunWithDeferredItems(t *testing.T) {
	calls := 0
	fetcher := FetcherFunc(func(_ context.Context, req Request) (*RawBatch, error) {
		calls++
		return &RawBatch{
			Items: []SearchItem{
				usedOn("a", 0, "en.wikipedia.org"),
				usedOn("b", 1, "en.wikipedia.org"),
			},
			Cursors: CursorPair{Usage: Continuing("b|en.wikipedia.org|1")},
		}, nil
	})

	result, err := Run(context.Background(), &Spec{Fetcher: fetcher, Qualifier: externalUsage}, Query{EntityID: "Q1", Limit: 3})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"a"}, ids(result.Items))
	assert.Equal(t, StopExhausted, result.Summary.Stop)
	assert.Equal(t, 1, result.Summary.Pending)
}

func TestRun_CancellationReturnsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := FetcherFunc(func(ctx context.Context, req Request) (*RawBatch, error) {
		if req.Offset > 0 {
			cancel()
			return nil, ctx.Err()
		}
		// one qualified item, then a disqualified item per remaining slot
		batch := &RawBatch{Items: []SearchItem{usedOn("first", 0, "en.wikipedia.org")}}
		for i := 1; i < req.Size; i++ {
			batch.Items = append(batch.Items, usedOn(fmt.Sprintf("skip-%d", i), i))
		}
		return batch, nil
	})

	result, err := Run(ctx, &Spec{Fetcher: fetcher, Qualifier: externalUsage}, Query{EntityID: "Q1", Limit: 3})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, []string{"first"}, ids(result.Items))
	assert.Equal(t, StopCancelled, result.Summary.Stop)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := FetcherFunc(func(context.Context, Request) (*RawBatch, error) {
		t.Fatal("fetch must not be called")
		return nil, nil
	})

	result, err := Run(ctx, &Spec{Fetcher: fetcher, Qualifier: externalUsage}, Query{EntityID: "Q1", Limit: 3})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Empty(t, result.Items)
}

func TestRun_TransportErrorPropagates(t *testing.T) {
	errTransport := errors.New("connection reset")
	fetcher := FetcherFunc(func(context.Context, Request) (*RawBatch, error) {
		return nil, errTransport
	})

	result, err := Run(context.Background(), &Spec{Fetcher: fetcher, Qualifier: externalUsage}, Query{EntityID: "Q1", Limit: 3})
	assert.ErrorIs(t, err, errTransport)
	assert.Nil(t, result)
}

func TestRun_MalformedCursorFailsRun(t *testing.T) {
	fetcher := FetcherFunc(func(context.Context, Request) (*RawBatch, error) {
		return &RawBatch{
			Items:   []SearchItem{usedOn("a", 0, "en.wikipedia.org")},
			Cursors: CursorPair{Usage: Continuing("not-a-cursor")},
		}, nil
	})

	_, err := Run(context.Background(), &Spec{Fetcher: fetcher, Qualifier: externalUsage}, Query{EntityID: "Q1", Limit: 3})
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Contains(t, err.Error(), "round 1")
}

func TestRun_NilBatchIsMalformed(t *testing.T) {
	fetcher := FetcherFunc(func(context.Context, Request) (*RawBatch, error) {
		return nil, nil
	})

	_, err := Run(context.Background(), &Spec{Fetcher: fetcher, Qualifier: externalUsage}, Query{EntityID: "Q1", Limit: 1})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRun_MaxRounds(t *testing.T) {
	// a cursor that never advances past the first item keeps every round incomplete
	fetcher := FetcherFunc(func(_ context.Context, req Request) (*RawBatch, error) {
		batch := &RawBatch{Cursors: CursorPair{Usage: Continuing("item-0|en.wikipedia.org|1")}}
		for i := 0; i < req.Size; i++ {
			batch.Items = append(batch.Items, usedOn(fmt.Sprintf("item-%d", i), req.Offset+i, "en.wikipedia.org"))
		}
		return batch, nil
	})
	spec := &Spec{Fetcher: fetcher, Qualifier: externalUsage, Options: Options{MaxRounds: 4}}

	result, err := Run(context.Background(), spec, Query{EntityID: "Q1", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, StopMaxRounds, result.Summary.Stop)
	assert.Equal(t, 4, result.Summary.Rounds)
	assert.Empty(t, result.Items)
}

func TestRun_InvalidInput(t *testing.T) {
	fetcher := FetcherFunc(func(context.Context, Request) (*RawBatch, error) { return &RawBatch{}, nil })

	_, err := Run(context.Background(), &Spec{Fetcher: fetcher, Qualifier: externalUsage}, Query{EntityID: "Q1"})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = Run(context.Background(), &Spec{Fetcher: fetcher, Qualifier: externalUsage}, Query{Limit: 1})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = Run(context.Background(), &Spec{Fetcher: fetcher}, Query{EntityID: "Q1", Limit: 1})
	assert.Error(t, err)
}

func TestFetchBudget(t *testing.T) {
	b := NewFetchBudget(5, 2, DefaultOptions())
	assert.Equal(t, 12, b.RequestSize)
	assert.Equal(t, 17, b.OffsetCeiling)
	assert.Equal(t, 12, b.NextSize(20))
	assert.Equal(t, 10, b.NextSize(10))

	b.RequestSize = -3
	assert.Equal(t, 1, b.NextSize(20))

	b.Offset = 17
	assert.False(t, b.Exceeded())
	b.Offset = 18
	assert.True(t, b.Exceeded())
}
