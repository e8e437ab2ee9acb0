package types

import "slices"

type Field string

const (
	FieldVendor      Field = "vendor"
	FieldCategory    Field = "category"
	FieldChassis     Field = "chassis"
	FieldModel       Field = "model"
	FieldYear        Field = "year"
	FieldPrice       Field = "price"
	FieldStatus      Field = "status"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	// FieldText marks a free text constraint, the scoped fields are in Constraint.Fields
	FieldText Field = "text"
)

type Operator string

const (
	OpIn    Operator = "in"
	OpEq    Operator = "eq"
	OpRange Operator = "range"
	OpMatch Operator = "match"
)

const (
	StatusActive   = "active"
	StatusSold     = "sold"
	StatusArchived = "archived"
)

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
	SortYearAsc   SortOrder = "year-asc"
	SortYearDesc  SortOrder = "year-desc"
)

var sortOrders = []SortOrder{SortNewest, SortPriceAsc, SortPriceDesc, SortYearAsc, SortYearDesc}

func (s SortOrder) IsValid() bool {
	return slices.Contains(sortOrders, s)
}

type Constraint struct {
	Field  Field    `json:"field"`
	Op     Operator `json:"op"`
	Values []string `json:"values,omitempty"`
	Min    *int     `json:"min,omitempty"`
	Max    *int     `json:"max,omitempty"`
	Text   string   `json:"text,omitempty"`
	Fields []Field  `json:"fields,omitempty"`
}

// QueryDescriptor is what crosses the boundary to the content repository.
type QueryDescriptor struct {
	Domain      Domain       `json:"domain"`
	Constraints []Constraint `json:"constraints"`
	Page        int          `json:"page"`
	PageSize    int          `json:"pageSize"`
	Sort        SortOrder    `json:"sort"`
}

// WithOut returns a copy without any constraint on the given field, used
// for sibling queries when counting facet options.
func (q QueryDescriptor) WithOut(field Field) QueryDescriptor {
	result := q
	result.Constraints = make([]Constraint, 0, len(q.Constraints))
	for _, c := range q.Constraints {
		if c.Field != field {
			result.Constraints = append(result.Constraints, c)
		}
	}
	return result
}

func (q QueryDescriptor) HasField(field Field) bool {
	return slices.ContainsFunc(q.Constraints, func(c Constraint) bool {
		return c.Field == field
	})
}

// Values returns the selected values of an in/eq constraint on the field.
func (q QueryDescriptor) Values(field Field) []string {
	ret := []string{}
	for _, c := range q.Constraints {
		if c.Field == field && (c.Op == OpIn || c.Op == OpEq) {
			ret = append(ret, c.Values...)
		}
	}
	return ret
}

type PageRequest struct {
	Page     int       `json:"page" schema:"page"`
	PageSize int       `json:"pageSize" schema:"size"`
	Sort     SortOrder `json:"sort" schema:"sort"`
}

func (p PageRequest) Offset() int {
	return max(p.Page-1, 0) * p.PageSize
}
