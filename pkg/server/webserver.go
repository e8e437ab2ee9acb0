package server

import (
	"net/http"
	"time"

	"github.com/matst80/slask-fordon/pkg/common"
	"github.com/matst80/slask-fordon/pkg/facet"
	"github.com/matst80/slask-fordon/pkg/heatmap"
	"github.com/matst80/slask-fordon/pkg/query"
	"github.com/matst80/slask-fordon/pkg/repository"
	"github.com/matst80/slask-fordon/pkg/search"
	"github.com/matst80/slask-fordon/pkg/tracking"
)

type Options struct {
	QueryTimeout     time.Duration
	FacetConcurrency int
	Dimensions       []facet.Dimension
}

func DefaultOptions() Options {
	return Options{
		QueryTimeout:     3 * time.Second,
		FacetConcurrency: facet.DefaultMaxConcurrency,
		Dimensions:       facet.DefaultDimensions,
	}
}

type WebServer struct {
	Vehicles repository.Repository
	Builder  query.Builder
	Facets   *facet.Engine
	Heatmap  *heatmap.Aggregator
	Search   *search.Orchestrator
	Tracking tracking.Tracking
	// Ready reports whether the inventory is loaded, nil means always ready.
	Ready func() bool
}

func NewWebServer(vehicles, parts repository.Repository, opts Options) *WebServer {
	engine := facet.NewEngine(vehicles, opts.Dimensions...)
	engine.QueryTimeout = opts.QueryTimeout
	if opts.FacetConcurrency > 0 {
		engine.MaxConcurrency = opts.FacetConcurrency
	}

	aggregator := heatmap.NewAggregator(vehicles)
	aggregator.QueryTimeout = opts.QueryTimeout

	orchestrator := search.NewOrchestrator(vehicles, parts)
	orchestrator.QueryTimeout = opts.QueryTimeout

	return &WebServer{
		Vehicles: vehicles,
		Builder:  query.Default,
		Facets:   engine,
		Heatmap:  aggregator,
		Search:   orchestrator,
	}
}

func (ws *WebServer) tracker() common.SessionTracker {
	if ws.Tracking == nil {
		return nil
	}
	return ws.Tracking
}

func (ws *WebServer) Health(w http.ResponseWriter, r *http.Request) {
	if ws.Ready != nil && !ws.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (ws *WebServer) json(name string, fn common.JsonHandlerFunc) http.HandlerFunc {
	return instrument(name, common.JsonHandler(ws.tracker(), fn))
}

func (ws *WebServer) Handler() *http.ServeMux {
	srv := http.NewServeMux()
	srv.HandleFunc("/health", ws.Health)
	srv.HandleFunc("/api/year-distribution", ws.json("year-distribution", ws.YearDistribution))
	srv.HandleFunc("/api/vehicles", ws.json("vehicles", ws.VehicleSearch))
	srv.HandleFunc("/api/facets", ws.json("facets", ws.FacetSearch))
	srv.HandleFunc("/api/inventory", ws.json("inventory", ws.Inventory))
	srv.HandleFunc("/api/search", ws.json("search", ws.TextSearch))
	return srv
}
