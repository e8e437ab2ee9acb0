package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeSet(t *testing.T) {
	got := NormalizeSet([]string{" Volvo", "Audi", "", "Volvo", "BMW "})
	expected := []string{"Audi", "BMW", "Volvo"}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("unexpected set (-want +got):\n%s", diff)
	}
	if NormalizeSet([]string{" ", ""}) != nil {
		t.Errorf("Expected nil for a set without values")
	}
}

func TestToggleTwiceRestores(t *testing.T) {
	start := FilterState{Vendors: []string{"Audi"}, Categories: []string{"wagon"}}
	for _, v := range []string{"Volvo", "Audi"} {
		after := start.WithVendorToggled(v).WithVendorToggled(v)
		if !after.Equal(start) {
			t.Errorf("toggling %s twice changed state: %+v", v, after)
		}
	}
	after := start.WithCategoryToggled("coupe").WithCategoryToggled("coupe")
	if !after.Equal(start) {
		t.Errorf("toggling a category twice changed state: %+v", after)
	}
}

func TestToggleDoesNotMutateReceiver(t *testing.T) {
	vendors := []string{"Audi", "Volvo"}
	start := FilterState{Vendors: vendors}
	_ = start.WithVendorToggled("Audi")
	if diff := cmp.Diff([]string{"Audi", "Volvo"}, vendors); diff != "" {
		t.Errorf("receiver slice modified (-want +got):\n%s", diff)
	}
}

func TestEmptyAndNilAreEqual(t *testing.T) {
	a := FilterState{Vendors: []string{}, SearchTerm: "  "}
	if !a.Equal(EmptyFilterState()) {
		t.Errorf("Expected empty slices and blank term to equal the empty state")
	}
	if !a.IsEmpty() {
		t.Errorf("Expected IsEmpty")
	}
}

func TestWithVehicle(t *testing.T) {
	s := EmptyFilterState().WithVehicle(" M3 ", 2005)
	if s.Vehicle == nil || s.Vehicle.Model != "M3" || s.Vehicle.Year != 2005 {
		t.Errorf("unexpected vehicle %+v", s.Vehicle)
	}
	if s.WithVehicle("M3", 0).Vehicle != nil {
		t.Errorf("Expected a zero year to clear the selection")
	}
}

func TestMerge(t *testing.T) {
	term := " turbo "
	vendors := []string{"Saab"}
	start := FilterState{
		Vendors:    []string{"Volvo"},
		Categories: []string{"wagon"},
		Vehicle:    &VehicleSelection{Model: "240", Year: 1990},
	}
	got := start.Merge(FilterPatch{Vendors: &vendors, SearchTerm: &term})
	expected := FilterState{
		Vendors:    []string{"Saab"},
		Categories: []string{"wagon"},
		Vehicle:    &VehicleSelection{Model: "240", Year: 1990},
		SearchTerm: "turbo",
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("unexpected merge (-want +got):\n%s", diff)
	}

	empty := []string{}
	if got.Merge(FilterPatch{Vendors: &empty}).Vendors != nil {
		t.Errorf("Expected an empty patch value to clear vendors")
	}
}
