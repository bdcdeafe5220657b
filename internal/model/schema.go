package model

// SchemaField is one column the agent is asked to fill.
type SchemaField struct {
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description" yaml:"description"`
}

// Schema is the fixed field set of a DocumentRecord: study characteristics
// followed by outcomes. The Source File column is the record key and is
// never part of the field set.
type Schema struct {
	StudyCharacteristics []SchemaField
	Outcomes             []SchemaField

	columns []string
	index   map[string]struct{}
}

// NewSchema creates a Schema with an indexed column list. A label repeated
// in outcomes keeps its study-characteristics position.
func NewSchema(characteristics, outcomes []SchemaField) *Schema {
	s := &Schema{
		StudyCharacteristics: characteristics,
		Outcomes:             outcomes,
		index:                make(map[string]struct{}, len(characteristics)+len(outcomes)),
	}
	for _, group := range [][]SchemaField{characteristics, outcomes} {
		for _, f := range group {
			if f.Label == "" || f.Label == SourceColumn {
				continue
			}
			if _, ok := s.index[f.Label]; ok {
				continue
			}
			s.index[f.Label] = struct{}{}
			s.columns = append(s.columns, f.Label)
		}
	}
	return s
}

// Columns returns the stored field names in schema order.
func (s *Schema) Columns() []string {
	return s.columns
}

// Has reports whether name is a stored field.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// PromptOutcomes returns the outcome fields not already listed under study
// characteristics.
func (s *Schema) PromptOutcomes() []SchemaField {
	seen := make(map[string]struct{}, len(s.StudyCharacteristics))
	for _, f := range s.StudyCharacteristics {
		seen[f.Label] = struct{}{}
	}
	out := make([]SchemaField, 0, len(s.Outcomes))
	for _, f := range s.Outcomes {
		if _, ok := seen[f.Label]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}
