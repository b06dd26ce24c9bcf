package index

import (
	"context"
	"strings"

	"github.com/blevesearch/bleve/v2"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
	"golang.org/x/sync/errgroup"
)

// intersectSeparator splits a raw query string into its INTERSECT clauses
// (source spec §4.3 "Intersection queries": "if the query string contains
// the INTERSECT separator, split into sub-queries").
const intersectSeparator = "INTERSECT"

// splitIntersectClauses reports the sub-query clauses of raw, or nil if raw
// contains no INTERSECT separator.
func splitIntersectClauses(raw string) []string {
	if !strings.Contains(raw, intersectSeparator) {
		return nil
	}
	parts := strings.Split(raw, intersectSeparator)
	clauses := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := strings.TrimSpace(p); c != "" {
			clauses = append(clauses, c)
		}
	}
	return clauses
}

// intersectionCollector counts, per document ID, how many of the N
// sub-queries matched it (source spec §4.3 "Intersection Collector": counts
// per-document matches; documents matching all N sub-queries form the
// result").
type intersectionCollector struct {
	counts map[string]int
}

func newIntersectionCollector() *intersectionCollector {
	return &intersectionCollector{counts: make(map[string]int)}
}

func (c *intersectionCollector) add(ids []string) {
	for _, id := range ids {
		c.counts[id]++
	}
}

// matchingAll returns the IDs that matched all n sub-queries, in the order
// they first appeared in ids (preserving the base query's relative order).
func (c *intersectionCollector) matchingAll(n int, orderedIDs []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, id := range orderedIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if c.counts[id] == n {
			out = append(out, id)
		}
	}
	return out
}

// runIntersectionQueries executes each subsequent clause (index 1..N-1)
// concurrently against the same searcher, honoring source spec §4.3's
// errgroup-based concurrency note, and folds the resulting document ID sets
// into an intersectionCollector. The first clause is executed separately by
// the caller so it alone can honor sort order.
//
// Each clause is fetched to its own reported total, not to the base query's
// docsToGet window: intersection only needs set membership for clauses 1..N-1,
// and their own ranking order has nothing to do with the base query's order.
// Capping a clause's fetch at the base window size would silently drop a
// document that matches the base query and this clause but ranks below that
// cap within the clause's own scoring.
func runIntersectionQueries(ctx context.Context, idx bleve.Index, clauses []string, parse func(string) (bleveQuery.Query, error)) (*intersectionCollector, error) {
	collector := newIntersectionCollector()

	g, ctx := errgroup.WithContext(ctx)
	results := make([][]string, len(clauses))

	for i, clause := range clauses {
		i, clause := i, clause
		g.Go(func() error {
			q, err := parse(clause)
			if err != nil {
				return err
			}
			total, err := clauseMatchCount(ctx, idx, q)
			if err != nil {
				return err
			}
			req := bleve.NewSearchRequestOptions(q, int(total), 0, false)
			sr, err := idx.SearchInContext(ctx, req)
			if err != nil {
				return err
			}
			ids := make([]string, len(sr.Hits))
			for j, hit := range sr.Hits {
				ids[j] = hit.ID
			}
			results[i] = ids
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, ids := range results {
		collector.add(ids)
	}
	return collector, nil
}

// clauseMatchCount runs a zero-size probe to learn how many documents a
// clause matches in total, so the real fetch can size its window to cover
// every match rather than an arbitrary cap.
func clauseMatchCount(ctx context.Context, idx bleve.Index, q bleveQuery.Query) (uint64, error) {
	req := bleve.NewSearchRequestOptions(q, 0, 0, false)
	sr, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return 0, err
	}
	return sr.Total, nil
}
