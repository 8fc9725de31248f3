package domain

// RawRecord is one market document with no fixed schema.
// Records are supplied by a data source and are read-only to the engine.
type RawRecord map[string]Value

// Has reports whether the record exposes the field, regardless of its value.
func (r RawRecord) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Get returns the value of a field, or Null if absent.
func (r RawRecord) Get(field string) Value {
	if v, ok := r[field]; ok {
		return v
	}
	return Null()
}

// RecordFromMap converts a decoded document into a RawRecord.
func RecordFromMap(m map[string]any) RawRecord {
	rec := make(RawRecord, len(m))
	for k, v := range m {
		rec[k] = ValueFromAny(v)
	}
	return rec
}
