package core

// schema.go defines record schemas and the JSON <-> Record mapping.
//
// A Schema is the single source of truth for column order: the table view,
// the search set, the spreadsheet header, and the detail panel all read it.
// Field lookups by key happen once per operation (Ref); the per-record hot
// path uses positional FieldRefs.

import (
	"fmt"
	"strings"
)

// Schema is an ordered list of field descriptors plus the settings that
// depend on the record variant.
type Schema struct {
	Name        string // Registry key: "catalog"
	Title       string // Display name: "Music Catalog"
	Fields      []FieldDescriptor
	DefaultSort FieldKey
	Summable    FieldKey // Numeric field summed and averaged in Stats; empty disables
	MaxTracked  FieldKey // Numeric field whose maximum is tracked in Stats; empty disables
	Labels      StatLabels
	Detail      []FieldKey // Fields shown for a selected record
	Export      ExportLayout
}

// Ref returns the position of key in the schema.
func (s *Schema) Ref(key FieldKey) (FieldRef, bool) {
	for i, f := range s.Fields {
		if f.Key == key {
			return FieldRef(i), true
		}
	}
	return -1, false
}

// Field returns the descriptor at ref.
func (s *Schema) Field(ref FieldRef) FieldDescriptor {
	return s.Fields[ref]
}

// Lookup returns the descriptor for key.
func (s *Schema) Lookup(key FieldKey) (FieldDescriptor, bool) {
	ref, ok := s.Ref(key)
	if !ok {
		return FieldDescriptor{}, false
	}
	return s.Fields[ref], true
}

// SearchRefs returns the positions of all searchable fields.
func (s *Schema) SearchRefs() []FieldRef {
	var refs []FieldRef
	for i, f := range s.Fields {
		if f.Searchable {
			refs = append(refs, FieldRef(i))
		}
	}
	return refs
}

// ExportRefs returns the positions of all exported fields in schema order.
func (s *Schema) ExportRefs() []FieldRef {
	var refs []FieldRef
	for i, f := range s.Fields {
		if f.Exported {
			refs = append(refs, FieldRef(i))
		}
	}
	return refs
}

// ColumnLabels returns the display labels in schema order.
func (s *Schema) ColumnLabels() []string {
	labels := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		labels[i] = f.Label
	}
	return labels
}

// Validate checks that every key referenced by the schema settings exists
// and has a suitable kind.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema: missing name")
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s: no fields", s.Name)
	}

	seen := make(map[FieldKey]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Key == "" {
			return fmt.Errorf("schema %s: field with empty key", s.Name)
		}
		if seen[f.Key] {
			return fmt.Errorf("schema %s: duplicate field %q", s.Name, f.Key)
		}
		seen[f.Key] = true
	}

	var errs []string
	checkNumeric := func(role string, key FieldKey) {
		if key == "" {
			return
		}
		f, ok := s.Lookup(key)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s field %q not found", role, key))
			return
		}
		if f.Kind != KindNumber {
			errs = append(errs, fmt.Sprintf("%s field %q must be numeric, got %s", role, key, f.Kind))
		}
	}
	checkNumeric("summable", s.Summable)
	checkNumeric("max-tracked", s.MaxTracked)

	if s.DefaultSort != "" {
		if f, ok := s.Lookup(s.DefaultSort); !ok || !f.Sortable {
			errs = append(errs, fmt.Sprintf("default sort field %q is not a sortable field", s.DefaultSort))
		}
	}
	for _, key := range s.Detail {
		if !seen[key] {
			errs = append(errs, fmt.Sprintf("detail field %q not found", key))
		}
	}
	for _, col := range s.Export.Document.Columns {
		if !seen[col.Key] {
			errs = append(errs, fmt.Sprintf("document column %q not found", col.Key))
		}
	}
	if s.Export.FileBase == "" {
		errs = append(errs, "export file base is empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("schema %s: %s", s.Name, strings.Join(errs, "; "))
	}
	return nil
}

// DecodeRecord converts one payload object into a Record aligned with the schema.
// Keys missing from the object, JSON nulls, blank strings, and values that
// cannot be read as the field's kind become absent values.
func (s *Schema) DecodeRecord(obj map[string]any) Record {
	values := make([]Value, len(s.Fields))
	for i, f := range s.Fields {
		values[i] = ToValue(obj[string(f.Key)], f.Kind)
	}
	return Record{values: values}
}

// DecodeRecords converts a payload array, preserving order.
func (s *Schema) DecodeRecords(objs []map[string]any) []Record {
	records := make([]Record, len(objs))
	for i, obj := range objs {
		records[i] = s.DecodeRecord(obj)
	}
	return records
}

// EncodeRecord converts a Record back into a payload-shaped object.
// Absent values encode as nil (JSON null).
func (s *Schema) EncodeRecord(r Record) map[string]any {
	obj := make(map[string]any, len(s.Fields))
	for i, f := range s.Fields {
		obj[string(f.Key)] = r.Get(FieldRef(i)).Interface()
	}
	return obj
}

// TableKeys lists the columns of the table view: the document layout when
// the schema defines one, otherwise every field.
func (s *Schema) TableKeys() []FieldKey {
	if cols := s.Export.Document.Columns; len(cols) > 0 {
		keys := make([]FieldKey, len(cols))
		for i, c := range cols {
			keys[i] = c.Key
		}
		return keys
	}
	keys := make([]FieldKey, len(s.Fields))
	for i, f := range s.Fields {
		keys[i] = f.Key
	}
	return keys
}

// DetailKeys lists the fields of the detail panel, or every field when the
// schema sets none.
func (s *Schema) DetailKeys() []FieldKey {
	if len(s.Detail) > 0 {
		return s.Detail
	}
	keys := make([]FieldKey, len(s.Fields))
	for i, f := range s.Fields {
		keys[i] = f.Key
	}
	return keys
}
