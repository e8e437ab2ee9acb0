package types

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/schema"
)

// VehicleRequest is the query string shape of a filtered vehicle listing.
type VehicleRequest struct {
	Vendors    []string  `json:"vendors" schema:"vendor,omitempty"`
	Categories []string  `json:"categories" schema:"category,omitempty"`
	Chassis    []string  `json:"chassis" schema:"chassis,omitempty"`
	Model      string    `json:"model" schema:"model,omitempty"`
	Year       int       `json:"year" schema:"year,omitempty"`
	Query      string    `json:"query" schema:"q,omitempty"`
	Historical bool      `json:"history" schema:"history,omitempty"`
	Page       int       `json:"page" schema:"page,omitempty"`
	PageSize   int       `json:"pageSize" schema:"size,omitempty"`
	Sort       SortOrder `json:"sort" schema:"sort,omitempty"`
}

type SearchRequest struct {
	Query    string `json:"query" schema:"q,omitempty"`
	Domain   Domain `json:"domain" schema:"domain,omitempty"`
	Page     int    `json:"page" schema:"page,omitempty"`
	PageSize int    `json:"pageSize" schema:"size,omitempty"`
}

var decoder = schema.NewDecoder()
var encoder = schema.NewEncoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

func clamp[T int | float64](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// decodeLenient decodes what it can, values that fail conversion are left
// at their zero value.
func decodeLenient(dst any, query url.Values) error {
	err := decoder.Decode(dst, query)
	if err == nil {
		return nil
	}
	var multi schema.MultiError
	if errors.As(err, &multi) {
		for key, e := range multi {
			var conv schema.ConversionError
			if !errors.As(e, &conv) {
				return err
			}
			log.Printf("ignoring malformed value for %s: %v", key, e)
		}
		return nil
	}
	return err
}

func splitCommas(values []string) []string {
	ret := make([]string, 0, len(values))
	for _, v := range values {
		ret = append(ret, strings.Split(v, ",")...)
	}
	return NormalizeSet(ret)
}

func (r *VehicleRequest) FilterState() FilterState {
	state := FilterState{
		Vendors:    r.Vendors,
		Categories: r.Categories,
		Chassis:    r.Chassis,
		SearchTerm: r.Query,
	}
	if r.Model != "" && r.Year > 0 {
		state.Vehicle = &VehicleSelection{Model: r.Model, Year: r.Year}
	}
	return state.Normalize()
}

func (r *VehicleRequest) PageRequest() PageRequest {
	return PageRequest{Page: r.Page, PageSize: r.PageSize, Sort: r.Sort}
}

func GetVehicleRequest(r *http.Request) (*VehicleRequest, error) {
	return VehicleRequestFromQuery(r.URL.Query())
}

func VehicleRequestFromQuery(query url.Values) (*VehicleRequest, error) {
	sr := &VehicleRequest{}
	if err := decodeLenient(sr, query); err != nil {
		return nil, err
	}
	sr.Vendors = NormalizeSet(sr.Vendors)
	sr.Categories = NormalizeSet(sr.Categories)
	sr.Chassis = splitCommas(sr.Chassis)
	return sr, nil
}

// VehicleRequestFor is the inverse of VehicleRequestFromQuery.
func VehicleRequestFor(state FilterState, page PageRequest) *VehicleRequest {
	state = state.Normalize()
	ret := &VehicleRequest{
		Vendors:    state.Vendors,
		Categories: state.Categories,
		Chassis:    state.Chassis,
		Query:      state.SearchTerm,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Sort:       page.Sort,
	}
	if state.Vehicle != nil {
		ret.Model = state.Vehicle.Model
		ret.Year = state.Vehicle.Year
	}
	return ret
}

func (r *VehicleRequest) Values() (url.Values, error) {
	values := url.Values{}
	err := encoder.Encode(r, values)
	return values, err
}

func GetSearchRequest(r *http.Request) (*SearchRequest, error) {
	sr := &SearchRequest{}
	if err := decodeLenient(sr, r.URL.Query()); err != nil {
		return nil, err
	}
	sr.Sanitize()
	return sr, nil
}

func (s *SearchRequest) Sanitize() {
	s.Query = strings.TrimSpace(s.Query)
	s.Domain = ParseDomain(string(s.Domain))
	s.Page = clamp(s.Page, 1, 1000)
}

func (s *SearchRequest) Values() (url.Values, error) {
	values := url.Values{}
	err := encoder.Encode(s, values)
	return values, err
}

func PageRequestFromQuery(query url.Values) (PageRequest, error) {
	page := PageRequest{}
	err := decodeLenient(&page, query)
	return page, err
}

// optionalInt returns nil for anything that is not an integer.
func optionalInt(value string) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &i
}

// YearFiltersFromQuery parses the year distribution parameters. yearMin and
// yearMax are not read, they do not exist on YearFilters.
func YearFiltersFromQuery(query url.Values) YearFilters {
	return YearFilters{
		Chassis:           splitCommas(query["chassis"]),
		PriceMin:          optionalInt(query.Get("priceMin")),
		PriceMax:          optionalInt(query.Get("priceMax")),
		IncludeHistorical: query.Get("currentOnly") == "false",
	}
}

// VehicleFiltersFromQuery is YearFiltersFromQuery plus the year bounds.
func VehicleFiltersFromQuery(query url.Values) VehicleFilters {
	return VehicleFilters{
		YearFilters: YearFiltersFromQuery(query),
		YearMin:     optionalInt(query.Get("yearMin")),
		YearMax:     optionalInt(query.Get("yearMax")),
	}
}

func (y YearFilters) Values() url.Values {
	values := url.Values{}
	if len(y.Chassis) > 0 {
		values.Set("chassis", strings.Join(y.Chassis, ","))
	}
	if y.PriceMin != nil {
		values.Set("priceMin", strconv.Itoa(*y.PriceMin))
	}
	if y.PriceMax != nil {
		values.Set("priceMax", strconv.Itoa(*y.PriceMax))
	}
	if y.IncludeHistorical {
		values.Set("currentOnly", "false")
	}
	return values
}
