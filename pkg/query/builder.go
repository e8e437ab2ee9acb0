package query

import (
	"strconv"
	"strings"

	"github.com/matst80/slask-fordon/pkg/types"
)

const (
	DefaultPageSize = 24
	MaxPageSize     = 100
)

// Builder maps filter selections to repository query descriptors. It has
// no state besides its bounds and is safe to copy.
type Builder struct {
	DefaultPageSize int
	MaxPageSize     int
	// IncludeHistorical turns off the active-only restriction for FilterState queries.
	IncludeHistorical bool
}

var Default = Builder{
	DefaultPageSize: DefaultPageSize,
	MaxPageSize:     MaxPageSize,
}

var textFields = []types.Field{types.FieldTitle, types.FieldDescription}

func inConstraint(field types.Field, values []string) (types.Constraint, bool) {
	values = types.NormalizeSet(values)
	if len(values) == 0 {
		return types.Constraint{}, false
	}
	return types.Constraint{Field: field, Op: types.OpIn, Values: values}, true
}

func rangeConstraint(field types.Field, minValue, maxValue *int) (types.Constraint, bool) {
	if minValue == nil && maxValue == nil {
		return types.Constraint{}, false
	}
	return types.Constraint{Field: field, Op: types.OpRange, Min: minValue, Max: maxValue}, true
}

func textConstraint(term string) (types.Constraint, bool) {
	term = strings.TrimSpace(term)
	if term == "" {
		return types.Constraint{}, false
	}
	return types.Constraint{Field: types.FieldText, Op: types.OpMatch, Text: term, Fields: textFields}, true
}

func currentOnly() types.Constraint {
	return types.Constraint{Field: types.FieldStatus, Op: types.OpIn, Values: []string{types.StatusActive}}
}

func (b Builder) defaultPageSize() int {
	if b.DefaultPageSize > 0 {
		return b.DefaultPageSize
	}
	return DefaultPageSize
}

func (b Builder) maxPageSize() int {
	if b.MaxPageSize > 0 {
		return b.MaxPageSize
	}
	return MaxPageSize
}

// Page sanitizes paging. Nonsensical values are replaced by defaults.
func (b Builder) Page(req types.PageRequest) types.PageRequest {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > b.maxPageSize() {
		req.PageSize = b.defaultPageSize()
	}
	if !req.Sort.IsValid() {
		req.Sort = types.SortNewest
	}
	return req
}

type constraints []types.Constraint

func (c *constraints) add(constraint types.Constraint, ok bool) {
	if ok {
		*c = append(*c, constraint)
	}
}

func (b Builder) descriptor(domain types.Domain, c constraints, req types.PageRequest) types.QueryDescriptor {
	req = b.Page(req)
	if c == nil {
		c = constraints{}
	}
	return types.QueryDescriptor{
		Domain:      domain,
		Constraints: c,
		Page:        req.Page,
		PageSize:    req.PageSize,
		Sort:        req.Sort,
	}
}

// Build translates a FilterState into a vehicle query.
func (b Builder) Build(state types.FilterState, req types.PageRequest) types.QueryDescriptor {
	state = state.Normalize()
	c := constraints{}
	c.add(inConstraint(types.FieldVendor, state.Vendors))
	c.add(inConstraint(types.FieldCategory, state.Categories))
	c.add(inConstraint(types.FieldChassis, state.Chassis))
	if state.Vehicle != nil {
		c.add(types.Constraint{Field: types.FieldModel, Op: types.OpEq, Values: []string{state.Vehicle.Model}}, true)
		c.add(types.Constraint{Field: types.FieldYear, Op: types.OpEq, Values: []string{strconv.Itoa(state.Vehicle.Year)}}, true)
	}
	c.add(textConstraint(state.SearchTerm))
	if !b.IncludeHistorical {
		c.add(currentOnly(), true)
	}
	return b.descriptor(types.DomainVehicles, c, req)
}

func (b Builder) yearFilterConstraints(f types.YearFilters) constraints {
	c := constraints{}
	c.add(inConstraint(types.FieldChassis, f.Chassis))
	c.add(rangeConstraint(types.FieldPrice, f.PriceMin, f.PriceMax))
	if f.CurrentOnly() {
		c.add(currentOnly(), true)
	}
	return c
}

// Vehicles translates the repository side filter projection.
func (b Builder) Vehicles(f types.VehicleFilters, req types.PageRequest) types.QueryDescriptor {
	c := b.yearFilterConstraints(f.YearFilters)
	c.add(rangeConstraint(types.FieldYear, f.YearMin, f.YearMax))
	return b.descriptor(types.DomainVehicles, c, req)
}

// Years builds the query behind the year distribution.
func (b Builder) Years(f types.YearFilters) types.QueryDescriptor {
	return b.descriptor(types.DomainVehicles, b.yearFilterConstraints(f), types.PageRequest{})
}

// Text builds a free text query for one domain, an empty term browses.
func (b Builder) Text(term string, domain types.Domain, req types.PageRequest) types.QueryDescriptor {
	c := constraints{}
	c.add(textConstraint(term))
	if !b.IncludeHistorical {
		c.add(currentOnly(), true)
	}
	return b.descriptor(domain, c, req)
}
