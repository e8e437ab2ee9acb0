package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/matst80/slask-fordon/pkg/search"
	"github.com/matst80/slask-fordon/pkg/tracking"
	"github.com/matst80/slask-fordon/pkg/types"
)

const resultStateHeader = "X-Result-State"

// defaultHeaders sets the result state and caching. Failures are never
// cached and a response issuing a session cookie stays out of shared caches.
func defaultHeaders(w http.ResponseWriter, r *http.Request, state types.ResultState) {
	w.Header().Set(resultStateHeader, string(state))
	w.Header().Set("Age", "0")
	if origin := r.Header.Get("Origin"); origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	switch {
	case state == types.StateFailed:
		noStore(w)
	case w.Header().Get("Set-Cookie") != "":
		w.Header().Set("Cache-Control", "private, max-age=60")
	default:
		w.Header().Set("Cache-Control", "public, max-age=60, stale-while-revalidate=600")
	}
}

func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}

func (ws *WebServer) trackSearch(sessionId string, r *http.Request, event tracking.Search) {
	if ws.Tracking == nil {
		return
	}
	go ws.Tracking.TrackSearch(sessionId, event, r)
}

// YearDistribution answers with a bare json array of year counts. Year
// bounds in the query are never read. A failing repository still gives a
// 200 with an empty array, the state header tells it apart from no matches.
func (ws *WebServer) YearDistribution(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	filters := types.YearFiltersFromQuery(r.URL.Query())
	res := ws.Heatmap.Distribution(r.Context(), filters)
	countState("year-distribution", res.State)

	defaultHeaders(w, r, res.State)
	w.WriteHeader(http.StatusOK)
	return enc.Encode(res.Years)
}

func (ws *WebServer) VehicleSearch(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	req, err := types.GetVehicleRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return err
	}
	state := req.FilterState()
	builder := ws.Builder
	builder.IncludeHistorical = req.Historical
	q := builder.Build(state, req.PageRequest())

	res := ws.Facets.Search(r.Context(), q)
	countState("vehicles", res.State)
	ws.trackSearch(sessionId, r, tracking.Search{
		Filters: &state,
		Query:   state.SearchTerm,
		Domain:  types.DomainVehicles,
		Page:    q.Page,
		Results: res.Page.Total,
		State:   res.State,
	})

	defaultHeaders(w, r, res.State)
	if res.FacetsFailed {
		noStore(w)
	}
	w.WriteHeader(http.StatusOK)
	return enc.Encode(VehicleResponse{
		Items:      res.Page.Items,
		Facets:     res.Facets,
		Filters:    state,
		TotalHits:  res.Page.Total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: res.Page.TotalPages(),
		State:      res.State,
		Retry:      res.Retry,
	})
}

func (ws *WebServer) FacetSearch(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	req, err := types.GetVehicleRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return err
	}
	state := req.FilterState()
	builder := ws.Builder
	builder.IncludeHistorical = req.Historical
	facets, err := ws.Facets.Facets(r.Context(), builder.Build(state, req.PageRequest()))
	resultState := types.StateOk
	if err != nil {
		resultState = types.StateFailed
	}
	countState("facets", resultState)

	defaultHeaders(w, r, resultState)
	w.WriteHeader(http.StatusOK)
	return enc.Encode(FacetResponse{
		Facets:  facets,
		Filters: state,
		State:   resultState,
		Retry:   err != nil,
	})
}

// Inventory lists vehicles under the range filters that accompany the
// year distribution, year bounds included.
func (ws *WebServer) Inventory(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	values := r.URL.Query()
	filters := types.VehicleFiltersFromQuery(values)
	page, err := types.PageRequestFromQuery(values)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return err
	}
	q := ws.Builder.Vehicles(filters, page)

	ctx := r.Context()
	if ws.Facets.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ws.Facets.QueryTimeout)
		defer cancel()
	}
	res, err := ws.Vehicles.Query(ctx, q)
	state := types.StateFor(0, err)
	ret := InventoryResponse{
		Items:    []types.Item{},
		Filters:  filters,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if err == nil {
		state = types.StateFor(res.Total, nil)
		ret.Items = res.Items
		ret.TotalHits = res.Total
		ret.TotalPages = res.TotalPages()
	} else {
		ret.Retry = true
	}
	ret.State = state
	countState("inventory", state)

	defaultHeaders(w, r, state)
	w.WriteHeader(http.StatusOK)
	return enc.Encode(ret)
}

func (ws *WebServer) TextSearch(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	req, err := types.GetSearchRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return err
	}
	res := ws.Search.Search(r.Context(), search.Request{
		Query:    req.Query,
		Domain:   req.Domain,
		Page:     req.Page,
		PageSize: req.PageSize,
	})

	state := types.StateEmpty
	total := 0
	for _, d := range res.Results {
		total += d.Total
		if d.State == types.StateOk {
			state = types.StateOk
		}
	}
	if state != types.StateOk {
		for _, d := range res.Results {
			if d.State == types.StateFailed {
				state = types.StateFailed
			}
		}
	}
	countState("search", state)
	ws.trackSearch(sessionId, r, tracking.Search{
		Query:   res.Query,
		Domain:  res.Domain,
		Page:    req.Page,
		Results: total,
		State:   state,
	})

	defaultHeaders(w, r, state)
	w.WriteHeader(http.StatusOK)
	return enc.Encode(res)
}
