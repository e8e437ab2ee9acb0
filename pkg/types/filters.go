package types

import (
	"slices"
	"strings"
)

// VehicleSelection is the single model+year pairing a shopper can pin.
type VehicleSelection struct {
	Model string `json:"model"`
	Year  int    `json:"year"`
}

func (v *VehicleSelection) IsZero() bool {
	return v == nil || strings.TrimSpace(v.Model) == "" || v.Year <= 0
}

// FilterState is the active filter selection. It is a value: the With* helpers
// return a modified copy and never touch the receiver's slices.
type FilterState struct {
	Vendors    []string          `json:"vendors,omitempty"`
	Categories []string          `json:"categories,omitempty"`
	Chassis    []string          `json:"chassis,omitempty"`
	Vehicle    *VehicleSelection `json:"vehicle,omitempty"`
	SearchTerm string            `json:"searchTerm,omitempty"`
}

// FilterPatch carries the fields of a partial update, nil means not present.
// A zero VehicleSelection clears the pinned vehicle.
type FilterPatch struct {
	Vendors    *[]string         `json:"vendors,omitempty"`
	Categories *[]string         `json:"categories,omitempty"`
	Chassis    *[]string         `json:"chassis,omitempty"`
	Vehicle    *VehicleSelection `json:"vehicle,omitempty"`
	SearchTerm *string           `json:"searchTerm,omitempty"`
}

func EmptyFilterState() FilterState {
	return FilterState{}
}

// NormalizeSet trims, drops empty values, removes duplicates and sorts.
// The result is nil when nothing remains.
func NormalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	ret := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		ret = append(ret, v)
	}
	if len(ret) == 0 {
		return nil
	}
	slices.Sort(ret)
	return slices.Compact(ret)
}

func toggle(values []string, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return NormalizeSet(values)
	}
	if slices.Contains(values, value) {
		return NormalizeSet(slices.DeleteFunc(slices.Clone(values), func(v string) bool {
			return v == value
		}))
	}
	return NormalizeSet(append(slices.Clone(values), value))
}

func normalizeVehicle(v *VehicleSelection) *VehicleSelection {
	if v.IsZero() {
		return nil
	}
	return &VehicleSelection{Model: strings.TrimSpace(v.Model), Year: v.Year}
}

// Normalize returns the canonical form of the state.
func (f FilterState) Normalize() FilterState {
	return FilterState{
		Vendors:    NormalizeSet(f.Vendors),
		Categories: NormalizeSet(f.Categories),
		Chassis:    NormalizeSet(f.Chassis),
		Vehicle:    normalizeVehicle(f.Vehicle),
		SearchTerm: strings.TrimSpace(f.SearchTerm),
	}
}

// Clone returns a copy sharing no slices or pointers with f.
func (f FilterState) Clone() FilterState {
	ret := FilterState{
		Vendors:    slices.Clone(f.Vendors),
		Categories: slices.Clone(f.Categories),
		Chassis:    slices.Clone(f.Chassis),
		SearchTerm: f.SearchTerm,
	}
	if f.Vehicle != nil {
		v := *f.Vehicle
		ret.Vehicle = &v
	}
	return ret
}

func (f FilterState) IsEmpty() bool {
	return f.Equal(EmptyFilterState())
}

func (f FilterState) Equal(other FilterState) bool {
	a := f.Normalize()
	b := other.Normalize()
	if !slices.Equal(a.Vendors, b.Vendors) ||
		!slices.Equal(a.Categories, b.Categories) ||
		!slices.Equal(a.Chassis, b.Chassis) ||
		a.SearchTerm != b.SearchTerm {
		return false
	}
	if a.Vehicle == nil || b.Vehicle == nil {
		return a.Vehicle == nil && b.Vehicle == nil
	}
	return *a.Vehicle == *b.Vehicle
}

func (f FilterState) Merge(patch FilterPatch) FilterState {
	ret := f.Normalize()
	if patch.Vendors != nil {
		ret.Vendors = NormalizeSet(*patch.Vendors)
	}
	if patch.Categories != nil {
		ret.Categories = NormalizeSet(*patch.Categories)
	}
	if patch.Chassis != nil {
		ret.Chassis = NormalizeSet(*patch.Chassis)
	}
	if patch.Vehicle != nil {
		ret.Vehicle = normalizeVehicle(patch.Vehicle)
	}
	if patch.SearchTerm != nil {
		ret.SearchTerm = strings.TrimSpace(*patch.SearchTerm)
	}
	return ret
}

func (f FilterState) WithVendorToggled(vendor string) FilterState {
	ret := f.Normalize()
	ret.Vendors = toggle(ret.Vendors, vendor)
	return ret
}

func (f FilterState) WithCategoryToggled(category string) FilterState {
	ret := f.Normalize()
	ret.Categories = toggle(ret.Categories, category)
	return ret
}

func (f FilterState) WithChassisToggled(chassis string) FilterState {
	ret := f.Normalize()
	ret.Chassis = toggle(ret.Chassis, chassis)
	return ret
}

func (f FilterState) WithVehicle(model string, year int) FilterState {
	ret := f.Normalize()
	ret.Vehicle = normalizeVehicle(&VehicleSelection{Model: model, Year: year})
	return ret
}

func (f FilterState) WithSearchTerm(term string) FilterState {
	ret := f.Normalize()
	ret.SearchTerm = strings.TrimSpace(term)
	return ret
}
