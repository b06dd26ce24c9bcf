package index

// Query describes one search request (source spec §4.3 "Query pipeline"):
// "a query is characterized by: raw query string (may use an INTERSECT
// separator), optional sort fields (one may be __distance), page start, page
// size, highlighted fields with pre/post tag overrides, explain_scores
// flag, distinct flag, skip_duplicate_checking flag, optional spatial shape
// + strategy".
type Query struct {
	RawQuery string

	SortFields []string

	Start int
	Size  int

	HighlightedFields []string
	HighlightPreTag   string
	HighlightPostTag  string
	FragmentsField    string

	ExplainScores         bool
	Distinct              bool
	SkipDuplicateChecking bool

	SpatialShape    interface{}
	SpatialStrategy string
	SpatialField    string

	// Predicate, if set, is the user-supplied row filter consulted during
	// pagination (source spec §4.3 "skip if the user predicate rejects
	// it"). Optional; nil means every candidate is accepted.
	Predicate func(projection map[string]interface{}) bool
}

// Result is the outcome of one QueryOperation.Execute call.
type Result struct {
	Hits          []Hit
	TotalHits     uint64
	Skipped       int
	CappedByLimit bool
}

// Hit is one projected, possibly highlighted/explained result row.
type Hit struct {
	DocumentID   string
	Score        float64
	Projection   map[string]interface{}
	Highlights   map[string][]string
	Explanation  string
}
