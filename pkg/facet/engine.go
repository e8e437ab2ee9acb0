package facet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/matst80/slask-fordon/pkg/repository"
	"github.com/matst80/slask-fordon/pkg/types"
	"golang.org/x/sync/errgroup"
)

const DefaultMaxConcurrency = 4

// Dimension is a facetable field and its display vocabulary.
type Dimension struct {
	Field  types.Field       `json:"field"`
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
}

func (d *Dimension) Label(value string) string {
	if l, ok := d.Labels[value]; ok && l != "" {
		return l
	}
	return value
}

var DefaultDimensions = []Dimension{
	{Field: types.FieldVendor, Name: "Vendor"},
	{Field: types.FieldCategory, Name: "Category"},
	{Field: types.FieldChassis, Name: "Chassis"},
}

type Engine struct {
	Repository repository.Repository
	Dimensions []Dimension
	// MaxConcurrency caps the sibling queries in flight for one request.
	MaxConcurrency int
	// QueryTimeout bounds each repository call, zero means the caller's context only.
	QueryTimeout time.Duration
}

func NewEngine(repo repository.Repository, dimensions ...Dimension) *Engine {
	if len(dimensions) == 0 {
		dimensions = DefaultDimensions
	}
	return &Engine{
		Repository:     repo,
		Dimensions:     dimensions,
		MaxConcurrency: DefaultMaxConcurrency,
		QueryTimeout:   3 * time.Second,
	}
}

type Result struct {
	Page   *types.ResultPage `json:"page"`
	Facets []types.Facet     `json:"facets"`
	State  types.ResultState `json:"state"`
	Retry  bool              `json:"retry,omitempty"`

	// FacetsFailed is set when at least one facet has empty options because
	// its query failed, not because nothing matched.
	FacetsFailed bool `json:"facetsFailed,omitempty"`
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.QueryTimeout > 0 {
		return context.WithTimeout(ctx, e.QueryTimeout)
	}
	return context.WithCancel(ctx)
}

// Options builds the option list of one dimension from sibling counts.
// Selected values are kept even when nothing matches them.
func Options(dim *Dimension, counts map[string]int, selected []string) []types.FilterOption {
	ret := make([]types.FilterOption, 0, len(counts)+len(selected))
	for value, count := range counts {
		if count <= 0 {
			continue
		}
		ret = append(ret, types.FilterOption{Value: value, Label: dim.Label(value), Count: count})
	}
	for _, value := range selected {
		if counts[value] <= 0 {
			ret = append(ret, types.FilterOption{Value: value, Label: dim.Label(value), Count: 0})
		}
	}
	types.SortOptions(ret)
	return ret
}

func (e *Engine) facet(ctx context.Context, q types.QueryDescriptor, dim *Dimension) (types.Facet, error) {
	selected := types.NormalizeSet(q.Values(dim.Field))
	ret := types.Facet{
		Field:    dim.Field,
		Name:     dim.Name,
		Options:  []types.FilterOption{},
		Selected: selected,
	}
	qctx, cancel := e.withTimeout(ctx)
	defer cancel()
	counts, err := e.Repository.ValueCounts(qctx, q.WithOut(dim.Field), dim.Field)
	if err != nil {
		log.Printf("facet %s failed, treating as empty: %v", dim.Field, err)
		counts = map[string]int{}
		err = fmt.Errorf("facet %s: %w", dim.Field, err)
	}
	ret.Options = Options(dim, counts, selected)
	return ret, err
}

// Facets counts options for every dimension. Each dimension gets a sibling
// query with its own constraint removed and all others kept. The facets are
// always complete, a failed dimension has no options and is reported in the
// joined error.
func (e *Engine) Facets(ctx context.Context, q types.QueryDescriptor) ([]types.Facet, error) {
	ret := make([]types.Facet, len(e.Dimensions))
	errs := make([]error, len(e.Dimensions))
	g := errgroup.Group{}
	limit := e.MaxConcurrency
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}
	g.SetLimit(limit)
	for i := range e.Dimensions {
		g.Go(func() error {
			ret[i], errs[i] = e.facet(ctx, q, &e.Dimensions[i])
			return nil
		})
	}
	_ = g.Wait()
	return ret, errors.Join(errs...)
}

// Search runs the result query and the facet queries concurrently.
func (e *Engine) Search(ctx context.Context, q types.QueryDescriptor) Result {
	var page *types.ResultPage
	var err error
	var facets []types.Facet
	var facetErr error

	wg := sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		qctx, cancel := e.withTimeout(ctx)
		defer cancel()
		page, err = e.Repository.Query(qctx, q)
	}()
	go func() {
		defer wg.Done()
		facets, facetErr = e.Facets(ctx, q)
	}()
	wg.Wait()

	if err != nil {
		log.Printf("result query failed: %v", err)
		return Result{
			Page:         &types.ResultPage{Items: []types.Item{}, Page: q.Page, PageSize: q.PageSize},
			Facets:       facets,
			State:        types.StateFailed,
			Retry:        true,
			FacetsFailed: facetErr != nil,
		}
	}
	return Result{
		Page:         page,
		Facets:       facets,
		State:        types.StateFor(page.Total, nil),
		FacetsFailed: facetErr != nil,
	}
}

// Facet returns the facet of a single field from a result, if present.
func (r *Result) Facet(field types.Field) (types.Facet, bool) {
	idx := slices.IndexFunc(r.Facets, func(f types.Facet) bool {
		return f.Field == field
	})
	if idx < 0 {
		return types.Facet{}, false
	}
	return r.Facets[idx], true
}
