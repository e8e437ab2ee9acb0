package types

// YearFilters is the filter set of the year distribution. It has no year
// bounds, the axis being visualized can never filter itself. The zero value
// covers current inventory only.
type YearFilters struct {
	Chassis           []string `json:"chassis,omitempty"`
	PriceMin          *int     `json:"priceMin,omitempty"`
	PriceMax          *int     `json:"priceMax,omitempty"`
	IncludeHistorical bool     `json:"includeHistorical,omitempty"`
}

// CurrentOnly reports whether sold and archived vehicles are left out.
func (y YearFilters) CurrentOnly() bool {
	return !y.IncludeHistorical
}

// VehicleFilters is the repository side projection of a filter selection.
type VehicleFilters struct {
	YearFilters
	YearMin *int `json:"yearMin,omitempty"`
	YearMax *int `json:"yearMax,omitempty"`
}

func DefaultVehicleFilters() VehicleFilters {
	return VehicleFilters{}
}

// WithoutYears returns the filters with the year bounds stripped.
func (v VehicleFilters) WithoutYears() YearFilters {
	return v.YearFilters
}
