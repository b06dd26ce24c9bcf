package index

// QueryTrigger may rewrite a Query (including its RawQuery) before it is
// parsed and executed (source spec §4.3 step 5 "Apply index-query triggers
// sequentially"). INTERSECT queries run without triggers. Modeled as an ordered
// sequence of small interfaces rather than a polymorphic exception-driven
// pipeline (source spec §9 "Plugin/extension registries").
type QueryTrigger interface {
	Name() string
	BeforeQuery(def *Definition, q *Query) error
}

// UpdateTrigger observes changes applied by a batch (source spec §4.1,
// referenced as "extensions" that indexed documents are forwarded to via
// currently_index_documents). Registered triggers see every put/delete this
// process applies to the index.
type UpdateTrigger interface {
	Name() string
	OnDocumentIndexed(entry *Entry)
	OnDocumentDeleted(key string)
}

// TriggerRegistry is the ordered collection of registered extensions for one
// Index. Initialization is external per source spec §9: the façade never
// discovers plugins on its own, callers register them at construction.
type TriggerRegistry struct {
	QueryTriggers  []QueryTrigger
	UpdateTriggers []UpdateTrigger
	Analyzers      []AnalyzerGenerator
}

// ApplyQueryTriggers runs every registered QueryTrigger in order, stopping
// (and propagating) on the first error.
func (r *TriggerRegistry) ApplyQueryTriggers(def *Definition, q *Query) error {
	for _, t := range r.QueryTriggers {
		if err := t.BeforeQuery(def, q); err != nil {
			return err
		}
	}
	return nil
}

// NotifyIndexed fans an indexed entry out to every registered UpdateTrigger.
func (r *TriggerRegistry) NotifyIndexed(entry *Entry) {
	for _, t := range r.UpdateTriggers {
		t.OnDocumentIndexed(entry)
	}
}

// NotifyDeleted fans a deletion out to every registered UpdateTrigger.
func (r *TriggerRegistry) NotifyDeleted(key string) {
	for _, t := range r.UpdateTriggers {
		t.OnDocumentDeleted(key)
	}
}
