package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SourceColumn is the reserved key column of the record store.
const SourceColumn = "Source File"

// NullToken stands in for a missing value when values are compared or
// reported.
const NullToken = "NULL"

// FieldValue is one named, optionally null, extracted value.
type FieldValue struct {
	Name  string  `json:"name"`
	Value *string `json:"value"`
}

// DocumentRecord is the extracted data for one source document. Fields keep
// the column order of the store they were read from.
type DocumentRecord struct {
	SourceID string       `json:"source_id"`
	Fields   []FieldValue `json:"fields"`
}

// Get returns the value of the named field and whether the field exists.
func (r DocumentRecord) Get(name string) (*string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// NonNull returns the fields that carry a value, in order.
func (r DocumentRecord) NonNull() []FieldValue {
	var out []FieldValue
	for _, f := range r.Fields {
		if f.Value != nil && strings.TrimSpace(*f.Value) != "" {
			out = append(out, f)
		}
	}
	return out
}

// HasData reports whether at least one field carries a value.
func (r DocumentRecord) HasData() bool {
	return len(r.NonNull()) > 0
}

// Clone returns a deep copy so snapshots survive store mutation.
func (r DocumentRecord) Clone() DocumentRecord {
	out := DocumentRecord{SourceID: r.SourceID, Fields: make([]FieldValue, len(r.Fields))}
	for i, f := range r.Fields {
		out.Fields[i] = FieldValue{Name: f.Name}
		if f.Value != nil {
			v := *f.Value
			out.Fields[i].Value = &v
		}
	}
	return out
}

// NewRecordFromReply builds a record from a parsed agent reply. Keys outside
// the schema are dropped and schema fields missing from the reply are null.
func NewRecordFromReply(sourceID string, reply map[string]any, schema *Schema) DocumentRecord {
	rec := DocumentRecord{SourceID: sourceID, Fields: make([]FieldValue, 0, len(schema.Columns()))}
	for _, col := range schema.Columns() {
		var val *string
		if raw, ok := reply[col]; ok {
			val = Stringify(raw)
		}
		rec.Fields = append(rec.Fields, FieldValue{Name: col, Value: val})
	}
	return rec
}

// Stringify renders a decoded JSON value as cell text. Null becomes nil;
// arrays and objects are re-encoded as JSON.
func Stringify(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	case json.Number:
		s = t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		s = string(b)
	}
	return &s
}

// Display renders an optional value for comparison and reports.
func Display(v *string) string {
	if v == nil {
		return NullToken
	}
	return *v
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
