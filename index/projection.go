package index

import (
	"encoding/json"
	"sort"

	"github.com/blevesearch/bleve/v2/search"
)

// projectHit turns the stored fields bleve loaded for a hit into the
// caller-facing projection, stripping the engine's reserved fields and
// suffix markers (source spec §3, §4.3 step 8 "project").
func projectHit(hit *search.DocumentMatch) map[string]interface{} {
	return StripReservedFields(hit.Fields)
}

// projectionKey renders a projection into a canonical, comparable string for
// the Distinct set (source spec §4.3 "Distinct": "projections are compared
// structurally (JSON-value equality)"). An empty projection yields "" and is
// never deduplicated, per spec ("empty projections are not deduplicated").
func projectionKey(projection map[string]interface{}) string {
	if len(projection) == 0 {
		return ""
	}
	keys := make([]string, 0, len(projection))
	for k := range projection {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		ordered[k] = projection[k]
	}
	// encoding/json renders map keys in sorted order regardless, but sorting
	// explicitly first keeps this self-documenting and independent of that
	// implementation detail.
	buf, err := json.Marshal(ordered)
	if err != nil {
		return ""
	}
	return string(buf)
}

// newHit assembles a Hit from a raw bleve match plus its projection, adding
// highlight fragments and score explanation when requested (source spec
// §4.3 step 8 "highlight, explain").
func newHit(match *search.DocumentMatch, projection map[string]interface{}, q *Query) Hit {
	h := Hit{
		DocumentID: match.ID,
		Score:      match.Score,
		Projection: projection,
	}

	if len(match.Fragments) > 0 {
		if q.FragmentsField != "" {
			projection[q.FragmentsField] = flattenFragments(match.Fragments)
		} else {
			h.Highlights = match.Fragments
		}
	}

	if q.ExplainScores && match.Expl != nil {
		h.Explanation = match.Expl.String()
	}

	return h
}

func flattenFragments(fragments map[string][]string) []string {
	var out []string
	for _, frags := range fragments {
		out = append(out, frags...)
	}
	return out
}
