package tracking

import (
	"net/http"

	"github.com/matst80/slask-fordon/pkg/types"
)

type Tracking interface {
	TrackSession(sessionId string, r *http.Request)
	TrackSearch(sessionId string, search Search, r *http.Request)
}

// Search describes one executed listing or free text search.
type Search struct {
	Filters *types.FilterState `json:"filters,omitempty"`
	Query   string             `json:"query,omitempty"`
	Domain  types.Domain       `json:"domain,omitempty"`
	Page    int                `json:"page"`
	Results int                `json:"noi"`
	State   types.ResultState  `json:"state"`
}
