package pairview

import "sort"

// Selection is the set of checked row ids. The zero value is an empty
// selection ready for use. Selection is not safe for concurrent use; its
// owner serializes access.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection returns a selection holding ids.
func NewSelection(ids ...string) *Selection {
	s := &Selection{}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func (s *Selection) add(id string) {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	s.ids[id] = struct{}{}
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Selection) Toggle(id string) bool {
	if s.Has(id) {
		delete(s.ids, id)
		return false
	}
	s.add(id)
	return true
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len is the number of selected ids.
func (s *Selection) Len() int { return len(s.ids) }

// Clear empties the selection.
func (s *Selection) Clear() { s.ids = nil }

// SelectAllVisible is all-or-nothing over visible: when every visible id is
// already selected the selection is cleared, otherwise it becomes exactly the
// visible ids. An empty view leaves the selection empty.
func (s *Selection) SelectAllVisible(visible []string) {
	if len(visible) > 0 && s.Len() == len(visible) && s.containsAll(visible) {
		s.Clear()
		return
	}
	s.Clear()
	for _, id := range visible {
		s.add(id)
	}
}

func (s *Selection) containsAll(ids []string) bool {
	for _, id := range ids {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// AllSelected reports whether visible is non-empty and fully selected.
func (s *Selection) AllSelected(visible []string) bool {
	return len(visible) > 0 && s.containsAll(visible)
}

// Retain drops ids that are not in keep.
func (s *Selection) Retain(keep []string) {
	set := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		set[id] = struct{}{}
	}
	for id := range s.ids {
		if _, ok := set[id]; !ok {
			delete(s.ids, id)
		}
	}
}

// IDs returns the selected ids in sorted order.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
