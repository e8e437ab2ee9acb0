package search

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/matst80/slask-fordon/pkg/query"
	"github.com/matst80/slask-fordon/pkg/repository"
	"github.com/matst80/slask-fordon/pkg/types"
)

type Request struct {
	Query    string       `json:"query"`
	Domain   types.Domain `json:"domain"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
}

type DomainResult struct {
	Domain     types.Domain      `json:"domain"`
	Items      []types.Item      `json:"items"`
	Total      int               `json:"totalHits"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
	State      types.ResultState `json:"state"`
	Retry      bool              `json:"retry,omitempty"`
}

type Response struct {
	Query   string         `json:"query"`
	Domain  types.Domain   `json:"domain"`
	Results []DomainResult `json:"results"`
}

func (r *Response) Result(domain types.Domain) (DomainResult, bool) {
	for _, res := range r.Results {
		if res.Domain == domain {
			return res, true
		}
	}
	return DomainResult{}, false
}

// Orchestrator runs free text queries over the vehicle and part domains.
// Each domain is paginated on its own, their relevance is not comparable.
type Orchestrator struct {
	Repositories map[types.Domain]repository.Repository
	Builder      query.Builder
	QueryTimeout time.Duration
}

func NewOrchestrator(vehicles, parts repository.Repository) *Orchestrator {
	return &Orchestrator{
		Repositories: map[types.Domain]repository.Repository{
			types.DomainVehicles: vehicles,
			types.DomainParts:    parts,
		},
		Builder:      query.Default,
		QueryTimeout: 3 * time.Second,
	}
}

func (o *Orchestrator) searchDomain(ctx context.Context, domain types.Domain, term string, page types.PageRequest) DomainResult {
	q := o.Builder.Text(term, domain, page)
	ret := DomainResult{
		Domain:   domain,
		Items:    []types.Item{},
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	repo, ok := o.Repositories[domain]
	if !ok || repo == nil {
		log.Printf("no repository for domain %s", domain)
		ret.State = types.StateFailed
		ret.Retry = true
		return ret
	}
	if o.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.QueryTimeout)
		defer cancel()
	}
	res, err := repo.Query(ctx, q)
	if err != nil {
		log.Printf("search in %s failed: %v", domain, err)
		ret.State = types.StateFailed
		ret.Retry = true
		return ret
	}
	for _, item := range res.Items {
		item.Domain = domain
		ret.Items = append(ret.Items, item)
	}
	ret.Total = res.Total
	ret.TotalPages = res.TotalPages()
	ret.State = types.StateFor(res.Total, nil)
	return ret
}

// Search queries the requested domains in parallel. An empty query browses.
func (o *Orchestrator) Search(ctx context.Context, req Request) Response {
	domain := types.ParseDomain(string(req.Domain))
	term := strings.TrimSpace(req.Query)
	page := types.PageRequest{Page: req.Page, PageSize: req.PageSize}
	domains := domain.Domains()

	results := make([]DomainResult, len(domains))
	wg := sync.WaitGroup{}
	for i, d := range domains {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = o.searchDomain(ctx, d, term, page)
		}()
	}
	wg.Wait()

	return Response{
		Query:   term,
		Domain:  domain,
		Results: results,
	}
}
