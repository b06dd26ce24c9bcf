package index

import (
	"context"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// analyzerCache bounds the set of assembled per-field analyzer wrappers
// kept around per index, keyed by commit generation so a definition change
// invalidates the cache for free (source spec §6 domain stack note: "bounded
// cache of assembled per-field analyzer wrappers, keyed by index definition
// generation, so repeated Query calls don't reassemble the Analyzer Stack
// every time").
type analyzerCache struct {
	cache *lru.Cache[uint64, mapping.IndexMapping]
}

func newAnalyzerCache(size int) *analyzerCache {
	c, _ := lru.New[uint64, mapping.IndexMapping](size)
	return &analyzerCache{cache: c}
}

// QueryOperation runs the Query pipeline of source spec §4.3 against one
// Index.
type QueryOperation struct {
	idx       *Index
	analyzers *AnalyzerStack
	cache     *analyzerCache
}

// NewQueryOperation builds a QueryOperation bound to idx.
func NewQueryOperation(idx *Index, analyzers *AnalyzerStack) *QueryOperation {
	return &QueryOperation{idx: idx, analyzers: analyzers, cache: newAnalyzerCache(64)}
}

// Execute runs q end to end: validation, priority guard, analyzer
// construction, triggers, parse, spatial wrap, execute, paginate, project,
// dedupe, highlight, explain (source spec §4.3 steps 1-8). INTERSECT queries
// skip the query triggers.
func (op *QueryOperation) Execute(ctx context.Context, q *Query) (*Result, error) {
	def := op.idx.Definition()

	// Step 1: validation.
	if err := validateFields(def, q); err != nil {
		return nil, err
	}

	// Step 2: priority guard.
	if op.idx.Priority() == PriorityError {
		return nil, &IndexDisabledError{IndexName: def.Name}
	}

	// Step 3: analyzer construction (cached per commit generation).
	generation := op.idx.Generation()
	_, ok := op.cache.cache.Get(generation)
	if !ok {
		im := op.analyzers.Build(def, true)
		op.cache.cache.Add(generation, im)
	}

	state, release := op.idx.Holder().Acquire()
	if state == nil {
		release()
		op.idx.markQueried()
		return &Result{}, nil
	}
	defer release()

	parse := func(text string) (bleveQuery.Query, error) { return parseQueryText(text) }

	clauses := splitIntersectClauses(q.RawQuery)
	if clauses != nil && len(clauses) < 2 {
		return nil, ErrIntersectMalformed
	}

	var result *Result
	var err error
	if len(clauses) >= 2 {
		result, err = op.executeIntersect(ctx, state, clauses, q, def)
	} else {
		result, err = op.executeSimple(ctx, state, q, def, parse)
	}
	if err != nil {
		return nil, err
	}

	op.idx.markQueried()
	return result, nil
}

// validateFields rejects a sort or highlighted field that is not indexed,
// unless the index declares the catch-all field _. The suffix _Range is
// stripped before lookup, and __temp_score, __rand_* and (for sorting)
// __distance are always accepted. Field names inside RawQuery are not
// checked.
func validateFields(def *Definition, q *Query) error {
	for _, f := range q.SortFields {
		if f == DistanceField {
			continue
		}
		if !def.IsFieldIndexed(f) {
			return &FieldNotIndexedError{FieldName: f}
		}
	}
	for _, f := range q.HighlightedFields {
		if !def.IsFieldIndexed(f) {
			return &FieldNotIndexedError{FieldName: f}
		}
	}
	return nil
}

// parseQueryText implements source spec §4.3 step 4: "parse the query text;
// empty/whitespace becomes a match-all query."
func parseQueryText(text string) (bleveQuery.Query, error) {
	if strings.TrimSpace(text) == "" {
		return bleve.NewMatchAllQuery(), nil
	}
	return bleve.NewQueryStringQuery(text), nil
}

func (op *QueryOperation) wrapSpatial(q *Query, parsed bleveQuery.Query) bleveQuery.Query {
	if q.SpatialShape == nil || q.SpatialField == "" {
		return parsed
	}
	spatial := buildSpatialQuery(q)
	if spatial == nil {
		return parsed
	}
	return bleve.NewConjunctionQuery(parsed, spatial)
}

func (op *QueryOperation) buildRequest(q *Query, parsed bleveQuery.Query, size int) *bleve.SearchRequest {
	req := bleve.NewSearchRequestOptions(parsed, size, 0, q.ExplainScores)
	req.Fields = []string{"*"}
	if hr := buildHighlight(q); hr != nil {
		req.Highlight = hr
	}
	if len(q.SortFields) > 0 {
		req.SortBy(sortFieldNames(q.SortFields))
	}
	return req
}

// sortFieldNames maps the engine's __distance pseudo-field to bleve's
// "_score" sort, so a __distance sort orders by relevance, not by geographic
// distance from the spatial shape; every other name passes through
// unchanged.
func sortFieldNames(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		if f == DistanceField {
			out[i] = "_score"
			continue
		}
		out[i] = f
	}
	return out
}

func (op *QueryOperation) executeSimple(ctx context.Context, state *SearcherState, q *Query, def *Definition, parse func(string) (bleveQuery.Query, error)) (*Result, error) {
	if op.idx.triggers != nil {
		if err := op.idx.triggers.ApplyQueryTriggers(def, q); err != nil {
			return nil, err
		}
	}

	parsed, err := parse(q.RawQuery)
	if err != nil {
		return nil, errors.Wrap(err, "parse query")
	}
	parsed = op.wrapSpatial(q, parsed)

	return paginate(state.Index(), q, def, func(size int) *bleve.SearchRequest {
		return op.buildRequest(q, parsed, size)
	})
}

// executeIntersect implements source spec §4.3 "Intersection queries": the
// first clause runs normally (honoring sort); each subsequent clause runs
// concurrently into an Intersection Collector; the window doubles until
// enough intersected hits are produced or the base query is exhausted.
func (op *QueryOperation) executeIntersect(ctx context.Context, state *SearcherState, clauses []string, q *Query, def *Definition) (*Result, error) {
	pageSize := q.Size
	if pageSize <= 0 {
		pageSize = 1
	}

	docsToGet := pageSize
	var lastBaseTotal uint64

	for {
		baseParsed, err := parseQueryText(clauses[0])
		if err != nil {
			return nil, err
		}
		baseParsed = op.wrapSpatial(q, baseParsed)
		baseReq := op.buildRequest(q, baseParsed, docsToGet)
		baseResult, err := state.Index().SearchInContext(ctx, baseReq)
		if err != nil {
			return nil, err
		}

		orderedIDs := make([]string, len(baseResult.Hits))
		for i, h := range baseResult.Hits {
			orderedIDs[i] = h.ID
		}

		collector, err := runIntersectionQueries(ctx, state.Index(), clauses[1:], parseQueryText)
		if err != nil {
			return nil, err
		}

		matched := collector.matchingAll(len(clauses)-1, orderedIDs)

		result := &Result{TotalHits: baseResult.Total}
		byID := make(map[string]int, len(baseResult.Hits))
		for i, h := range baseResult.Hits {
			byID[h.ID] = i
		}
		for _, id := range matched {
			if len(result.Hits) >= pageSize {
				break
			}
			hit := baseResult.Hits[byID[id]]
			projection := projectHit(hit)
			result.Hits = append(result.Hits, newHit(hit, projection, q))
		}

		if len(result.Hits) >= pageSize {
			result.CappedByLimit = true
			return result, nil
		}
		if baseResult.Total == uint64(len(baseResult.Hits)) {
			return result, nil
		}
		if baseResult.Total == lastBaseTotal {
			return result, nil
		}
		lastBaseTotal = baseResult.Total
		docsToGet *= 2
	}
}
