package heatmap

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/matst80/slask-fordon/pkg/query"
	"github.com/matst80/slask-fordon/pkg/repository"
	"github.com/matst80/slask-fordon/pkg/types"
)

type Result struct {
	Years types.YearDistribution `json:"years"`
	State types.ResultState      `json:"state"`
}

// Aggregator counts matching inventory per model year.
type Aggregator struct {
	Repository   repository.Repository
	Builder      query.Builder
	QueryTimeout time.Duration
}

func NewAggregator(repo repository.Repository) *Aggregator {
	return &Aggregator{
		Repository:   repo,
		Builder:      query.Default,
		QueryTimeout: 3 * time.Second,
	}
}

// Fill turns per-year counts into a continuous distribution from the lowest
// to the highest observed year. Years without matches get a zero count.
func Fill(counts map[int]int) types.YearDistribution {
	minYear, maxYear := 0, 0
	for year, count := range counts {
		if count <= 0 || year <= 0 {
			continue
		}
		if minYear == 0 || year < minYear {
			minYear = year
		}
		if year > maxYear {
			maxYear = year
		}
	}
	if minYear == 0 {
		return types.YearDistribution{}
	}
	ret := make(types.YearDistribution, 0, maxYear-minYear+1)
	for year := minYear; year <= maxYear; year++ {
		ret = append(ret, types.YearCount{Year: year, Count: max(counts[year], 0)})
	}
	return ret
}

func FromYears(years []int) types.YearDistribution {
	counts := make(map[int]int, len(years))
	for _, y := range years {
		counts[y]++
	}
	return Fill(counts)
}

func parseCounts(raw map[string]int) map[int]int {
	ret := make(map[int]int, len(raw))
	for value, count := range raw {
		year, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		ret[year] += count
	}
	return ret
}

// Distribution computes the year distribution under all filters but the
// year bounds, which YearFilters cannot carry. A failed or timed out query
// gives the same empty distribution as no matches, State tells them apart.
func (a *Aggregator) Distribution(ctx context.Context, f types.YearFilters) Result {
	q := a.Builder.Years(f)
	if a.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.QueryTimeout)
		defer cancel()
	}
	raw, err := a.Repository.ValueCounts(ctx, q, types.FieldYear)
	if err != nil {
		log.Printf("year distribution query failed: %v", err)
		return Result{Years: types.YearDistribution{}, State: types.StateFailed}
	}
	years := Fill(parseCounts(raw))
	return Result{Years: years, State: types.StateFor(len(years), nil)}
}
