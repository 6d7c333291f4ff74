package session

// Store is the append-only ordered collection of finalized call records.
// Insertion order is discovery order, which tracks chronological order of the
// capture. It is populated by a single writer and safe to read only after the
// scan completes.
type Store struct {
	records []*CallRecord
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Save appends a finalized record.
func (s *Store) Save(r *CallRecord) {
	s.records = append(s.records, r)
}

// All returns the full ordered sequence.
func (s *Store) All() []*CallRecord {
	return s.records
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	return len(s.records)
}

// Values applies extract to every record in store order and collects only the
// present results, so aggregate statistics never see missing data points.
func (s *Store) Values(extract func(*CallRecord) (int, bool)) []int {
	var out []int
	for _, r := range s.records {
		if v, ok := extract(r); ok {
			out = append(out, v)
		}
	}
	return out
}

// Filter returns a new store holding only records keep accepts, in order.
func (s *Store) Filter(keep func(*CallRecord) bool) *Store {
	filtered := NewStore()
	for _, r := range s.records {
		if keep(r) {
			filtered.Save(r)
		}
	}
	return filtered
}
