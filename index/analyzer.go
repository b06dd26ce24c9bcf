package index

import (
	"github.com/blevesearch/bleve/v2"
	_ "github.com/blevesearch/bleve/v2/config"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Analyzer identifiers assembled by the Analyzer Stack. "lowercase_keyword"
// is registered as a custom analyzer on every IndexMapping this package
// builds, matching the source spec's default "lowercase-keyword analyzer"
// for both indexing and querying.
const (
	AnalyzerLowercaseKeyword = "lowercase_keyword"
	AnalyzerKeyword          = "keyword"
	AnalyzerStandard         = "standard"
)

// AnalyzerGenerator is a registered extension that may rewrite the
// per-field analyzer wrapper assembled for one index (source spec §4.4 step
// 5, §9 "Plugin/extension registries").
type AnalyzerGenerator interface {
	// Name identifies the generator for logging/diagnostics.
	Name() string
	// Generate may return a replacement IndexMapping, or nil to leave the
	// input unchanged.
	Generate(def *Definition, forQuerying bool, current mapping.IndexMapping) mapping.IndexMapping
}

// AnalyzerStack assembles a per-field analyzer wrapper from an Index
// Definition, for either indexing or querying (source spec §4.4).
//
// Rule 3 ("skip analyzers annotated 'not for querying'") is modeled with
// the NotForQuerying set: field names present there are skipped when
// forQuerying is true.
type AnalyzerStack struct {
	NotForQuerying map[string]bool
	Generators     []AnalyzerGenerator
}

// Build assembles the bleve IndexMapping for def, applying the five rules
// from source spec §4.4 in order. Bleve's mappings are plain values with no
// OS handles to close, so unlike the teacher's Lucene analyzers there is no
// dispose list here; the "close in reverse order" invariant from source
// spec §4.4 is satisfied trivially by Go's garbage collector owning the
// mapping.IndexMapping value once it falls out of scope.
func (s *AnalyzerStack) Build(def *Definition, forQuerying bool) mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer(AnalyzerLowercaseKeyword, map[string]interface{}{
		"type":          "custom",
		"tokenizer":     "single",
		"token_filters": []string{"to_lower"},
	}); err != nil {
		// Registration only fails if a prior Build already registered the
		// same name on the same mapping, which never happens since each
		// call starts from a fresh bleve.NewIndexMapping().
		panic(err)
	}

	doc := bleve.NewDocumentMapping()

	// Rule 1+2: start from the default, then __all_fields override.
	defaultAnalyzer := AnalyzerLowercaseKeyword
	if fd, ok := def.Fields["__all_fields"]; ok && fd.Analyzer != "" {
		defaultAnalyzer = fd.Analyzer
	}
	im.DefaultAnalyzer = defaultAnalyzer

	// Rule 3: per-field explicit analyzers.
	explicit := make(map[string]bool)
	for name, fd := range def.Fields {
		if name == "__all_fields" || name == CatchAllField {
			continue
		}
		if fd.Analyzer == "" {
			continue
		}
		if forQuerying && s.NotForQuerying[name] {
			continue
		}
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = fd.Analyzer
		doc.AddFieldMappingsAt(name, fm)
		explicit[name] = true
	}

	// Rule 4: NotAnalyzed -> keyword, Analyzed (without explicit analyzer) -> standard.
	for name, fd := range def.Fields {
		if name == "__all_fields" || name == CatchAllField || explicit[name] {
			continue
		}
		switch fd.Indexing {
		case NotAnalyzed:
			fm := bleve.NewTextFieldMapping()
			fm.Analyzer = AnalyzerKeyword
			doc.AddFieldMappingsAt(name, fm)
		case Analyzed:
			fm := bleve.NewTextFieldMapping()
			fm.Analyzer = AnalyzerStandard
			doc.AddFieldMappingsAt(name, fm)
		}
	}

	im.DefaultMapping = doc

	// Rule 5: let generators rewrite the wrapper.
	var result mapping.IndexMapping = im
	for _, gen := range s.Generators {
		if replacement := gen.Generate(def, forQuerying, result); replacement != nil {
			result = replacement
		}
	}

	return result
}
