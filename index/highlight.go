package index

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search/highlight"
	simplefragmenter "github.com/blevesearch/bleve/v2/search/highlight/fragmenter/simple"
	htmlformat "github.com/blevesearch/bleve/v2/search/highlight/format/html"
	"github.com/blevesearch/bleve/v2/search/highlight/highlighter/simple"
)

// defaultHighlightStyle is bleve's built-in style, used whenever the caller
// did not override the pre/post tags (source spec §4.3 "default to colored
// tags").
const defaultHighlightStyle = "html"

var (
	customStylesMu sync.Mutex
	customStyles   = map[string]bool{}
)

// buildHighlight assembles the *bleve.HighlightRequest for q, registering a
// one-off highlighter style under the registry when custom pre/post tags
// are requested (source spec §4.3 "Highlighting": "build a fast-vector
// highlighter with either user-provided pre/post tags or default colored
// tags").
func buildHighlight(q *Query) *bleve.HighlightRequest {
	if len(q.HighlightedFields) == 0 {
		return nil
	}

	style := defaultHighlightStyle
	if q.HighlightPreTag != "" || q.HighlightPostTag != "" {
		style = registerCustomHighlightStyle(q.HighlightPreTag, q.HighlightPostTag)
	}

	hr := bleve.NewHighlightWithStyle(style)
	hr.Fields = append([]string(nil), q.HighlightedFields...)
	return hr
}

// registerCustomHighlightStyle lazily registers a named highlighter style
// wrapping the requested pre/post tags around each fragment, matching
// bleve's own registry extension point (the same mechanism backing its
// built-in "ansi"/"html" styles). Registration happens at most once per
// distinct tag pair for the lifetime of the process.
func registerCustomHighlightStyle(pre, post string) string {
	name := fmt.Sprintf("ravenidx-%s-%s", pre, post)

	customStylesMu.Lock()
	defer customStylesMu.Unlock()
	if customStyles[name] {
		return name
	}

	formatter := htmlformat.NewFragmentFormatter(pre, post)
	registry.RegisterHighlighter(name, func(config map[string]interface{}, cache *registry.Cache) (highlight.Highlighter, error) {
		fragmenter, err := cache.FragmenterNamed(simplefragmenter.Name)
		if err != nil {
			return nil, err
		}
		return simple.NewHighlighter(fragmenter, formatter, simple.DefaultSeparator), nil
	})
	customStyles[name] = true
	return name
}
