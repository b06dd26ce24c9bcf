package index

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
)

// foldKey normalizes a document key for the case-insensitive comparison
// source spec §4.3 requires of already_seen_previous_page.
func foldKey(s string) string { return strings.ToLower(s) }

// paginate implements source spec §4.3 "Pagination with fan-out
// correction": the core must not return duplicate __document_id values
// across pages unless skip_duplicate_checking is set, even though a
// map/reduce (or any multi-output) index may emit several entries per
// source document. buildRequest constructs the bleve SearchRequest for a
// given result size (always starting from hit 0); it is supplied by the caller so this function
// stays independent of how the underlying query value was assembled
// (plain, spatial-wrapped, or trigger-rewritten).
func paginate(idx bleve.Index, q *Query, def *Definition, buildRequest func(size int) *bleve.SearchRequest) (*Result, error) {
	pageSize := q.Size
	if pageSize <= 0 {
		pageSize = 1
	}

	maxOutputs := def.MaxOutputsPerDocument()
	docsToGet := pageSize
	start := q.Start

	alreadySeenPrevPage := make(map[string]struct{})
	alreadySeenProjections := make(map[string]struct{})

	var lastTotal uint64
	var lastHitLen int

	for {
		req := buildRequest(docsToGet + start)
		sr, err := idx.Search(req)
		if err != nil {
			return nil, err
		}

		if start > 0 && !q.SkipDuplicateChecking {
			collectAlreadySeen(sr.Hits, start, len(req.Sort) > 0, alreadySeenPrevPage)
		}
		if q.Distinct {
			collectAlreadySeenProjections(sr.Hits, start, alreadySeenProjections)
		}

		result := &Result{TotalHits: sr.Total}
		skipped := 0

		for i := start; i < len(sr.Hits); i++ {
			hit := sr.Hits[i]
			if _, seen := alreadySeenPrevPage[foldKey(hit.ID)]; seen {
				continue
			}
			projection := projectHit(hit)

			if q.Predicate != nil && !q.Predicate(projection) {
				skipped++
				continue
			}

			if q.Distinct {
				if pk := projectionKey(projection); pk != "" {
					if _, seen := alreadySeenProjections[pk]; seen {
						continue
					}
					alreadySeenProjections[pk] = struct{}{}
				}
			}

			result.Hits = append(result.Hits, newHit(hit, projection, q))
			if len(result.Hits) == pageSize {
				break
			}
		}

		result.Skipped = skipped

		if len(result.Hits) >= pageSize || sr.Total == uint64(len(sr.Hits)) {
			result.CappedByLimit = len(result.Hits) >= pageSize
			return result, nil
		}
		if sr.Total == lastTotal && len(sr.Hits) == lastHitLen {
			return result, nil
		}
		lastTotal, lastHitLen = sr.Total, len(sr.Hits)

		remaining := pageSize - len(result.Hits)
		if maxOutputs > 0 {
			docsToGet += remaining * maxOutputs
		} else {
			docsToGet += remaining
		}
		start = 0
	}
}

func collectAlreadySeen(hits []*search.DocumentMatch, start int, sorted bool, into map[string]struct{}) {
	if sorted {
		for i := 0; i < start && i < len(hits); i++ {
			into[foldKey(hits[i].ID)] = struct{}{}
		}
		return
	}
	if start-1 >= 0 && start-1 < len(hits) {
		into[foldKey(hits[start-1].ID)] = struct{}{}
	}
}

func collectAlreadySeenProjections(hits []*search.DocumentMatch, start int, into map[string]struct{}) {
	for i := 0; i < start && i < len(hits) && len(into) < start; i++ {
		if pk := projectionKey(projectHit(hits[i])); pk != "" {
			into[pk] = struct{}{}
		}
	}
}
