package catalog

import "slices"

// Selection is the set of product IDs ticked in the listing. It is a value:
// every operation returns a new Selection and leaves the receiver untouched.
// The selection is independent of the query that produced the page.
type Selection struct {
	ids map[int64]struct{}
}

// NewSelection returns a selection holding ids.
func NewSelection(ids ...int64) Selection {
	s := Selection{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Has reports whether id is selected.
func (s Selection) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected IDs.
func (s Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected IDs in ascending order.
func (s Selection) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Toggle flips a single ID.
func (s Selection) Toggle(id int64) Selection {
	next := s.clone()
	if next.Has(id) {
		delete(next.ids, id)
	} else {
		next.ids[id] = struct{}{}
	}
	return next
}

// AllSelected reports whether every product on the visible page is selected.
// An empty page is never "all selected".
func (s Selection) AllSelected(visible []Product) bool {
	if len(visible) == 0 {
		return false
	}
	for _, p := range visible {
		if !s.Has(p.ID) {
			return false
		}
	}
	return true
}

// ToggleAll implements the header checkbox. When the whole visible page is
// already selected, exactly those IDs are removed. Otherwise the selection
// becomes exactly the visible page's IDs. Products that matched the filter
// but sit on other pages are never selected here.
func (s Selection) ToggleAll(visible []Product) Selection {
	if s.AllSelected(visible) {
		next := s.clone()
		for _, p := range visible {
			delete(next.ids, p.ID)
		}
		return next
	}

	ids := make([]int64, len(visible))
	for i, p := range visible {
		ids[i] = p.ID
	}
	return NewSelection(ids...)
}

func (s Selection) clone() Selection {
	next := Selection{ids: make(map[int64]struct{}, len(s.ids))}
	for id := range s.ids {
		next.ids[id] = struct{}{}
	}
	return next
}
