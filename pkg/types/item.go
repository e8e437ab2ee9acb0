package types

import "strconv"

type Domain string

const (
	DomainVehicles Domain = "vehicles"
	DomainParts    Domain = "parts"
	DomainAll      Domain = "all"
)

// ParseDomain maps anything unknown, including the empty string, to DomainAll.
func ParseDomain(value string) Domain {
	switch Domain(value) {
	case DomainVehicles, DomainParts:
		return Domain(value)
	}
	return DomainAll
}

func (d Domain) Domains() []Domain {
	if d == DomainAll {
		return []Domain{DomainVehicles, DomainParts}
	}
	return []Domain{d}
}

// Item is an inventory record of the content repository, a vehicle or a part.
type Item struct {
	Id          string `json:"id"`
	Domain      Domain `json:"domain"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Vendor      string `json:"vendor,omitempty"`
	Category    string `json:"category,omitempty"`
	Chassis     string `json:"chassis,omitempty"`
	Model       string `json:"model,omitempty"`
	Year        int    `json:"year,omitempty"`
	Price       int    `json:"price,omitempty"`
	Status      string `json:"status"`
	Image       string `json:"img,omitempty"`
}

// KeyValue returns the value of a keyword field as used in constraints and counts.
func (i *Item) KeyValue(field Field) (string, bool) {
	switch field {
	case FieldVendor:
		return i.Vendor, i.Vendor != ""
	case FieldCategory:
		return i.Category, i.Category != ""
	case FieldChassis:
		return i.Chassis, i.Chassis != ""
	case FieldModel:
		return i.Model, i.Model != ""
	case FieldStatus:
		return i.Status, i.Status != ""
	case FieldYear:
		return strconv.Itoa(i.Year), i.Year > 0
	case FieldPrice:
		return strconv.Itoa(i.Price), i.Price > 0
	}
	return "", false
}

func (i *Item) NumberValue(field Field) (int, bool) {
	switch field {
	case FieldYear:
		return i.Year, i.Year > 0
	case FieldPrice:
		return i.Price, i.Price > 0
	}
	return 0, false
}

type ResultPage struct {
	Items    []Item `json:"items"`
	Total    int    `json:"totalHits"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

func (r *ResultPage) TotalPages() int {
	if r == nil || r.PageSize <= 0 {
		return 0
	}
	return (r.Total + r.PageSize - 1) / r.PageSize
}

// ResultState tells the rendering layer apart "no matches" from "broken".
type ResultState string

const (
	StateOk     ResultState = "ok"
	StateEmpty  ResultState = "empty"
	StateFailed ResultState = "failed"
)

func StateFor(total int, err error) ResultState {
	if err != nil {
		return StateFailed
	}
	if total == 0 {
		return StateEmpty
	}
	return StateOk
}
