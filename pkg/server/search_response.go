package server

import "github.com/matst80/slask-fordon/pkg/types"

type VehicleResponse struct {
	Items      []types.Item      `json:"items"`
	Facets     []types.Facet     `json:"facets"`
	Filters    types.FilterState `json:"filters"`
	TotalHits  int               `json:"totalHits"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
	State      types.ResultState `json:"state"`
	Retry      bool              `json:"retry,omitempty"`
}

type FacetResponse struct {
	Facets  []types.Facet     `json:"facets"`
	Filters types.FilterState `json:"filters"`
	State   types.ResultState `json:"state"`
	Retry   bool              `json:"retry,omitempty"`
}

type InventoryResponse struct {
	Items      []types.Item         `json:"items"`
	Filters    types.VehicleFilters `json:"filters"`
	TotalHits  int                  `json:"totalHits"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	TotalPages int                  `json:"totalPages"`
	State      types.ResultState    `json:"state"`
	Retry      bool                 `json:"retry,omitempty"`
}
