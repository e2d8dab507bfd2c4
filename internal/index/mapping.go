package index

// FieldMapping declares which index names are served by the full-text
// engine, per kind tag. Entries are keyed by index name. The mapping is
// built at startup and read-only afterwards.
type FieldMapping struct {
	fields map[string]map[string]struct{}
}

func NewFieldMapping() *FieldMapping {
	return &FieldMapping{fields: make(map[string]map[string]struct{})}
}

// Declare marks indexName as full-text for the given kind tags.
func (m *FieldMapping) Declare(indexName string, kindTags ...string) *FieldMapping {
	tags, ok := m.fields[indexName]
	if !ok {
		tags = make(map[string]struct{}, len(kindTags))
		m.fields[indexName] = tags
	}
	for _, tag := range kindTags {
		tags[tag] = struct{}{}
	}
	return m
}

// IsFullText reports whether indexName resolves through the full-text
// engine for kindTag.
func (m *FieldMapping) IsFullText(indexName, kindTag string) bool {
	if m == nil || kindTag == "" {
		return false
	}
	_, ok := m.fields[indexName][kindTag]
	return ok
}
