package core

// query.go derives views from the record store.
//
// A view is computed on demand from three inputs: the records, the schema,
// and the UI's ViewState. The engine keeps no state between calls and never
// modifies its input slice.
//
// Pipeline:
//  1. Filter: case-insensitive substring match against searchable fields
//  2. Stats:  aggregates over the filtered set
//  3. Sort:   stable, kind-aware, absent values always last

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// QueryEngine computes filtered, sorted and aggregated views.
type QueryEngine struct {
	locale language.Tag
}

// NewQueryEngine creates an engine that orders strings by the collation rules of locale.
func NewQueryEngine(locale language.Tag) *QueryEngine {
	return &QueryEngine{locale: locale}
}

// View returns the records matching state.SearchTerm, sorted by state.SortField,
// together with the aggregates of the matching set.
func (e *QueryEngine) View(records []Record, schema *Schema, state ViewState) (View, error) {
	sortKey := state.SortField
	if sortKey == "" {
		sortKey = schema.DefaultSort
	}

	var sortRef FieldRef = -1
	if sortKey != "" {
		ref, ok := schema.Ref(sortKey)
		if !ok || !schema.Field(ref).Sortable {
			return View{}, fmt.Errorf("%w: %q", ErrUnknownField, sortKey)
		}
		sortRef = ref
	}

	filtered := Filter(records, schema, state.SearchTerm)
	stats := Aggregate(filtered, schema)

	if sortRef >= 0 {
		e.sort(filtered, sortRef, schema.Field(sortRef).Kind, state.SortAscending)
	}

	return View{Records: filtered, Stats: stats}, nil
}

// Filter returns the records whose searchable fields contain term,
// compared case-insensitively. The term is used as typed: surrounding
// whitespace is part of the substring. Only an empty term matches every
// record. The result is always a new slice.
func Filter(records []Record, schema *Schema, term string) []Record {
	if term == "" {
		return slices.Clone(records)
	}
	term = strings.ToLower(term)

	refs := schema.SearchRefs()
	result := make([]Record, 0, len(records))
	for _, r := range records {
		if matches(r, refs, term) {
			result = append(result, r)
		}
	}
	return result
}

func matches(r Record, refs []FieldRef, lowerTerm string) bool {
	for _, ref := range refs {
		if strings.Contains(strings.ToLower(r.Get(ref).String()), lowerTerm) {
			return true
		}
	}
	return false
}

// Aggregate computes Stats over records using the schema's summable and
// max-tracked fields. Absent summable values count as zero.
func Aggregate(records []Record, schema *Schema) Stats {
	stats := Stats{Count: len(records)}
	if stats.Count == 0 {
		return stats
	}

	if ref, ok := numericRef(schema, schema.Summable); ok {
		for _, r := range records {
			if n, ok := r.Get(ref).Number(); ok {
				stats.Sum += n
			}
		}
		stats.Average = roundHalfUp(stats.Sum / float64(stats.Count))
	}

	if ref, ok := numericRef(schema, schema.MaxTracked); ok {
		seen := false
		for _, r := range records {
			n, ok := r.Get(ref).Number()
			if !ok {
				continue
			}
			if !seen || n > stats.Max {
				stats.Max = n
				seen = true
			}
		}
	}

	return stats
}

func numericRef(schema *Schema, key FieldKey) (FieldRef, bool) {
	if key == "" {
		return -1, false
	}
	ref, ok := schema.Ref(key)
	if !ok || schema.Field(ref).Kind != KindNumber {
		return -1, false
	}
	return ref, true
}

// roundHalfUp rounds to the nearest integer, halves towards positive infinity.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// sort orders records in place by the field at ref.
// Absent values sort after present ones in both directions.
func (e *QueryEngine) sort(records []Record, ref FieldRef, kind FieldKind, ascending bool) {
	// Collators keep internal buffers and must not be shared across goroutines.
	coll := collate.New(e.locale)

	slices.SortStableFunc(records, func(a, b Record) int {
		av, bv := a.Get(ref), b.Get(ref)
		switch {
		case !av.Valid() && !bv.Valid():
			return 0
		case !av.Valid():
			return 1
		case !bv.Valid():
			return -1
		}

		c := compareValues(av, bv, kind, coll)
		if !ascending {
			c = -c
		}
		return c
	})
}

// compareValues compares two present values of the same field kind.
func compareValues(a, b Value, kind FieldKind, coll *collate.Collator) int {
	switch kind {
	case KindNumber:
		an, _ := a.Number()
		bn, _ := b.Number()
		return cmp.Compare(an, bn)
	case KindDate:
		at, _ := a.Time()
		bt, _ := b.Time()
		return at.Compare(bt)
	default:
		as, _ := a.Text()
		bs, _ := b.Text()
		return coll.CompareString(as, bs)
	}
}
