package heatmap

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/matst80/slask-fordon/pkg/repository"
	"github.com/matst80/slask-fordon/pkg/types"
)

func TestFromYears(t *testing.T) {
	got := FromYears([]int{2005, 2005, 2008})
	expected := types.YearDistribution{
		{Year: 2005, Count: 2},
		{Year: 2006, Count: 0},
		{Year: 2007, Count: 0},
		{Year: 2008, Count: 1},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("unexpected distribution (-want +got):\n%s", diff)
	}
}

func TestFillEmpty(t *testing.T) {
	got := Fill(map[int]int{})
	if got == nil || len(got) != 0 {
		t.Errorf("Expected an empty, non nil distribution, got %#v", got)
	}
	if len(Fill(map[int]int{2001: 0})) != 0 {
		t.Errorf("Expected years without counts to be ignored")
	}
}

func TestFillSingleYear(t *testing.T) {
	got := Fill(map[int]int{1999: 4})
	if diff := cmp.Diff(types.YearDistribution{{Year: 1999, Count: 4}}, got); diff != "" {
		t.Errorf("unexpected distribution (-want +got):\n%s", diff)
	}
}

func TestParseCounts(t *testing.T) {
	got := parseCounts(map[string]int{"2001": 2, "n/a": 3, "2003": 1})
	if diff := cmp.Diff(map[int]int{2001: 2, 2003: 1}, got); diff != "" {
		t.Errorf("unexpected counts (-want +got):\n%s", diff)
	}
}

func inventory() *repository.Memory {
	m := repository.NewMemory()
	m.Upsert(
		types.Item{Id: "1", Chassis: "E46", Year: 2001, Price: 40000},
		types.Item{Id: "2", Chassis: "E46", Year: 2004, Price: 60000},
		types.Item{Id: "3", Chassis: "E90", Year: 2006, Price: 90000},
		types.Item{Id: "4", Chassis: "E90", Year: 2008, Price: 120000, Status: types.StatusSold},
	)
	return m
}

func TestDistribution(t *testing.T) {
	a := NewAggregator(inventory())
	res := a.Distribution(context.Background(), types.YearFilters{Chassis: []string{"E46"}})
	expected := types.YearDistribution{
		{Year: 2001, Count: 1},
		{Year: 2002, Count: 0},
		{Year: 2003, Count: 0},
		{Year: 2004, Count: 1},
	}
	if diff := cmp.Diff(expected, res.Years); diff != "" {
		t.Errorf("unexpected distribution (-want +got):\n%s", diff)
	}
	if res.State != types.StateOk {
		t.Errorf("Expected ok, got %s", res.State)
	}
}

func TestDistributionPriceAndHistory(t *testing.T) {
	a := NewAggregator(inventory())
	minPrice := 80000
	res := a.Distribution(context.Background(), types.YearFilters{PriceMin: &minPrice, IncludeHistorical: true})
	if res.Years.Total() != 2 {
		t.Errorf("Expected sold items when currentOnly is off, got %v", res.Years)
	}
	res = a.Distribution(context.Background(), types.YearFilters{PriceMin: &minPrice})
	if diff := cmp.Diff(types.YearDistribution{{Year: 2006, Count: 1}}, res.Years); diff != "" {
		t.Errorf("unexpected distribution (-want +got):\n%s", diff)
	}
}

func TestZeroFiltersLeaveOutSold(t *testing.T) {
	m := repository.NewMemory()
	m.Upsert(
		types.Item{Id: "1", Year: 2005},
		types.Item{Id: "2", Year: 2008, Status: types.StatusSold},
	)
	res := NewAggregator(m).Distribution(context.Background(), types.YearFilters{})
	if diff := cmp.Diff(types.YearDistribution{{Year: 2005, Count: 1}}, res.Years); diff != "" {
		t.Errorf("unexpected distribution (-want +got):\n%s", diff)
	}
}

func TestDistributionEmpty(t *testing.T) {
	a := NewAggregator(inventory())
	res := a.Distribution(context.Background(), types.YearFilters{Chassis: []string{"F30"}})
	if len(res.Years) != 0 || res.State != types.StateEmpty {
		t.Errorf("Expected empty, got %v %s", res.Years, res.State)
	}
}

type brokenRepository struct{}

func (brokenRepository) Query(context.Context, types.QueryDescriptor) (*types.ResultPage, error) {
	return nil, errors.New("down")
}

func (brokenRepository) ValueCounts(context.Context, types.QueryDescriptor, types.Field) (map[string]int, error) {
	return nil, context.DeadlineExceeded
}

func TestDistributionFailure(t *testing.T) {
	res := NewAggregator(brokenRepository{}).Distribution(context.Background(), types.YearFilters{})
	if res.Years == nil || len(res.Years) != 0 {
		t.Errorf("Expected an empty distribution, got %#v", res.Years)
	}
	if res.State != types.StateFailed {
		t.Errorf("Expected failed, got %s", res.State)
	}
}
