package resolver

// ExcludedSet is an ordered, de-duplicated set of slugs that are unusable for
// the current resolution. The zero value is empty and ready to use.
type ExcludedSet struct {
	order []string
	seen  map[string]struct{}
}

// NewExcludedSet returns a set seeded with items, in order, duplicates dropped.
func NewExcludedSet(items ...string) *ExcludedSet {
	s := &ExcludedSet{}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// Add inserts item. It reports whether item was new.
func (s *ExcludedSet) Add(item string) bool {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[item]; ok {
		return false
	}
	s.seen[item] = struct{}{}
	s.order = append(s.order, item)
	return true
}

// Contains reports whether item is in the set.
func (s *ExcludedSet) Contains(item string) bool {
	_, ok := s.seen[item]
	return ok
}

// Len returns the number of items.
func (s *ExcludedSet) Len() int {
	return len(s.order)
}

// List returns a copy of the items in insertion order.
func (s *ExcludedSet) List() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
