package types

import (
	"cmp"
	"slices"
)

// FilterOption is a candidate value of a facet, Count is the number of hits
// if it were selected, given the other active filters.
type FilterOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type Facet struct {
	Field    Field          `json:"field"`
	Name     string         `json:"name,omitempty"`
	Options  []FilterOption `json:"options"`
	Selected []string       `json:"selected,omitempty"`
}

// SortOptions orders by count descending, ties by label ascending.
func SortOptions(options []FilterOption) {
	slices.SortStableFunc(options, func(a, b FilterOption) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Label, b.Label); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
}

func (f *Facet) TotalCount() int {
	total := 0
	for _, o := range f.Options {
		total += o.Count
	}
	return total
}
