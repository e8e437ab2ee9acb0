package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/matst80/slask-fordon/pkg/repository"
	"github.com/matst80/slask-fordon/pkg/search"
	"github.com/matst80/slask-fordon/pkg/tracking"
	"github.com/matst80/slask-fordon/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenRepository struct{}

func (brokenRepository) Query(context.Context, types.QueryDescriptor) (*types.ResultPage, error) {
	return nil, errors.New("connection refused")
}

func (brokenRepository) ValueCounts(context.Context, types.QueryDescriptor, types.Field) (map[string]int, error) {
	return nil, errors.New("connection refused")
}

func testInventory() (*repository.Memory, *repository.Memory) {
	vehicles := repository.NewMemory()
	vehicles.Upsert(
		types.Item{Id: "v1", Title: "BMW M3 Competition", Vendor: "BMW", Category: "sedan", Chassis: "E90", Model: "M3", Year: 2005, Price: 150000},
		types.Item{Id: "v2", Title: "BMW M3 Touring", Vendor: "BMW", Category: "wagon", Chassis: "E91", Model: "M3", Year: 2005, Price: 90000},
		types.Item{Id: "v3", Title: "Volvo V70", Vendor: "Volvo", Category: "wagon", Chassis: "P26", Model: "V70", Year: 2008, Price: 60000},
		types.Item{Id: "v4", Title: "Saab 9-5", Vendor: "Saab", Category: "sedan", Chassis: "YS3E", Model: "9-5", Year: 2001, Price: 20000, Status: types.StatusSold},
	)
	parts := repository.NewMemory()
	parts.Upsert(
		types.Item{Id: "p1", Domain: types.DomainParts, Title: "M3 brake pads", Vendor: "Brembo", Price: 1200},
		types.Item{Id: "p2", Domain: types.DomainParts, Title: "V70 headlight", Vendor: "Hella", Price: 2400},
	)
	return vehicles, parts
}

func testServer() *WebServer {
	vehicles, parts := testInventory()
	return NewWebServer(vehicles, parts, DefaultOptions())
}

func get(t *testing.T, handler http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

const knownSession = "5f0b6a57-3c1e-4d3f-9a49-0d6c2a8e7b11"

// getWithSession sends the request as a returning shopper with a session cookie.
func getWithSession(t *testing.T, handler http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: knownSession})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeYears(t *testing.T, res *httptest.ResponseRecorder) types.YearDistribution {
	t.Helper()
	years := types.YearDistribution{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&years))
	return years
}

func TestYearDistributionFillsGaps(t *testing.T) {
	handler := testServer().Handler()
	res := getWithSession(t, handler, "/api/year-distribution")

	require.Equal(t, http.StatusOK, res.Code)
	assert.Empty(t, res.Header().Get("Set-Cookie"))
	assert.Equal(t, "public, max-age=60, stale-while-revalidate=600", res.Header().Get("Cache-Control"))
	assert.Equal(t, string(types.StateOk), res.Header().Get(resultStateHeader))

	expected := types.YearDistribution{
		{Year: 2005, Count: 2},
		{Year: 2006, Count: 0},
		{Year: 2007, Count: 0},
		{Year: 2008, Count: 1},
	}
	if diff := cmp.Diff(expected, decodeYears(t, res)); diff != "" {
		t.Errorf("unexpected distribution (-want +got):\n%s", diff)
	}
}

func TestNewSessionIsNotShared(t *testing.T) {
	handler := testServer().Handler()
	res := get(t, handler, "/api/year-distribution")
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotEmpty(t, res.Header().Get("Set-Cookie"))
	assert.Equal(t, "private, max-age=60", res.Header().Get("Cache-Control"),
		"a response carrying a new session cookie must stay out of shared caches")
}

func TestYearDistributionIgnoresYearBounds(t *testing.T) {
	handler := testServer().Handler()
	all := decodeYears(t, get(t, handler, "/api/year-distribution"))
	bounded := decodeYears(t, get(t, handler, "/api/year-distribution?yearMin=2007&yearMax=2007"))
	if diff := cmp.Diff(all, bounded); diff != "" {
		t.Errorf("year bounds changed the distribution (-all +bounded):\n%s", diff)
	}
}

func TestYearDistributionMalformedPrice(t *testing.T) {
	handler := testServer().Handler()
	malformed := decodeYears(t, get(t, handler, "/api/year-distribution?priceMin=abc"))
	assert.Equal(t, 3, malformed.Total(), "non numeric priceMin is treated as absent")

	limited := decodeYears(t, get(t, handler, "/api/year-distribution?priceMin=100000"))
	assert.Equal(t, types.YearDistribution{{Year: 2005, Count: 1}}, limited)
}

func TestYearDistributionCurrentOnly(t *testing.T) {
	handler := testServer().Handler()
	current := decodeYears(t, get(t, handler, "/api/year-distribution?currentOnly=yes"))
	assert.Equal(t, 3, current.Total())

	all := decodeYears(t, get(t, handler, "/api/year-distribution?currentOnly=false"))
	assert.Equal(t, 4, all.Total())
	assert.Equal(t, 2001, all[0].Year)
}

func TestYearDistributionChassis(t *testing.T) {
	handler := testServer().Handler()
	years := decodeYears(t, get(t, handler, "/api/year-distribution?chassis=E91,P26"))
	assert.Equal(t, types.YearDistribution{
		{Year: 2005, Count: 1},
		{Year: 2006, Count: 0},
		{Year: 2007, Count: 0},
		{Year: 2008, Count: 1},
	}, years)
}

func TestYearDistributionEmpty(t *testing.T) {
	handler := testServer().Handler()
	res := get(t, handler, "/api/year-distribution?chassis=unknown")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, string(types.StateEmpty), res.Header().Get(resultStateHeader))
	assert.JSONEq(t, "[]", res.Body.String())
}

func TestYearDistributionFailure(t *testing.T) {
	handler := NewWebServer(brokenRepository{}, brokenRepository{}, DefaultOptions()).Handler()
	res := get(t, handler, "/api/year-distribution")

	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, "[]", res.Body.String())
	assert.Equal(t, string(types.StateFailed), res.Header().Get(resultStateHeader))
	assert.Equal(t, "no-store", res.Header().Get("Cache-Control"))
}

func TestVehicleSearchFacets(t *testing.T) {
	handler := testServer().Handler()
	res := get(t, handler, "/api/vehicles?vendor=BMW&category=wagon")
	require.Equal(t, http.StatusOK, res.Code)

	body := VehicleResponse{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, 1, body.TotalHits)
	assert.Equal(t, types.StateOk, body.State)
	assert.Equal(t, []string{"BMW"}, body.Filters.Vendors)

	vendors := body.Facets[0]
	assert.Equal(t, types.FieldVendor, vendors.Field)
	assert.Equal(t, []types.FilterOption{
		{Value: "BMW", Label: "BMW", Count: 1},
		{Value: "Volvo", Label: "Volvo", Count: 1},
	}, vendors.Options, "vendor counts ignore the vendor selection")

	categories := body.Facets[1]
	assert.Equal(t, []types.FilterOption{
		{Value: "sedan", Label: "sedan", Count: 1},
		{Value: "wagon", Label: "wagon", Count: 1},
	}, categories.Options)
}

func TestVehicleSearchVehicleSelection(t *testing.T) {
	handler := testServer().Handler()
	res := get(t, handler, "/api/vehicles?model=M3&year=2005&size=1")
	body := VehicleResponse{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, 2, body.TotalHits)
	assert.Equal(t, 2, body.TotalPages)
	assert.Len(t, body.Items, 1)
	require.NotNil(t, body.Filters.Vehicle)
	assert.Equal(t, types.VehicleSelection{Model: "M3", Year: 2005}, *body.Filters.Vehicle)
}

func TestVehicleSearchMalformedPaging(t *testing.T) {
	handler := testServer().Handler()
	res := get(t, handler, "/api/vehicles?page=abc&size=5000&sort=cheapest")
	require.Equal(t, http.StatusOK, res.Code)
	body := VehicleResponse{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, 1, body.Page)
	assert.Equal(t, 24, body.PageSize)
	assert.Equal(t, 3, body.TotalHits)
}

func TestVehicleSearchFailure(t *testing.T) {
	handler := NewWebServer(brokenRepository{}, brokenRepository{}, DefaultOptions()).Handler()
	res := get(t, handler, "/api/vehicles?vendor=BMW")
	body := VehicleResponse{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, types.StateFailed, body.State)
	assert.True(t, body.Retry)
	assert.Empty(t, body.Items)
	for _, f := range body.Facets {
		if f.Field == types.FieldVendor {
			assert.Equal(t, []types.FilterOption{{Value: "BMW", Label: "BMW", Count: 0}}, f.Options)
		} else {
			assert.Empty(t, f.Options)
		}
	}
}

func TestFacetSearch(t *testing.T) {
	handler := testServer().Handler()
	res := get(t, handler, "/api/facets?chassis=E90")
	body := FacetResponse{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, types.StateOk, body.State)
	require.Len(t, body.Facets, 3)
	assert.Equal(t, []types.FilterOption{{Value: "BMW", Label: "BMW", Count: 1}}, body.Facets[0].Options)
}

func TestFacetSearchFailure(t *testing.T) {
	handler := NewWebServer(brokenRepository{}, brokenRepository{}, DefaultOptions()).Handler()
	res := getWithSession(t, handler, "/api/facets?vendor=Volvo")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, string(types.StateFailed), res.Header().Get(resultStateHeader))
	assert.Equal(t, "no-store", res.Header().Get("Cache-Control"))

	body := FacetResponse{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, types.StateFailed, body.State)
	assert.True(t, body.Retry)
	require.Len(t, body.Facets, 3)
}

func TestVehicleSearchFailedFacetsAreNotCached(t *testing.T) {
	vehicles, parts := testInventory()
	flaky := &flakyFacets{Repository: vehicles, fail: types.FieldCategory}
	handler := NewWebServer(flaky, parts, DefaultOptions()).Handler()
	res := getWithSession(t, handler, "/api/vehicles?vendor=BMW")
	assert.Equal(t, string(types.StateOk), res.Header().Get(resultStateHeader))
	assert.Equal(t, "no-store", res.Header().Get("Cache-Control"))
}

type flakyFacets struct {
	repository.Repository
	fail types.Field
}

func (f *flakyFacets) ValueCounts(ctx context.Context, q types.QueryDescriptor, field types.Field) (map[string]int, error) {
	if field == f.fail {
		return nil, errors.New("timeout")
	}
	return f.Repository.ValueCounts(ctx, q, field)
}

func TestInventoryYearRange(t *testing.T) {
	handler := testServer().Handler()
	res := get(t, handler, "/api/inventory?yearMin=2006&currentOnly=false")
	body := InventoryResponse{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, 1, body.TotalHits)
	assert.Equal(t, "v3", body.Items[0].Id)
}

func TestTextSearchAllDomains(t *testing.T) {
	handler := testServer().Handler()
	res := get(t, handler, "/api/search?q=M3&size=1")
	require.Equal(t, http.StatusOK, res.Code)

	body := search.Response{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Len(t, body.Results, 2)
	assert.Equal(t, types.DomainVehicles, body.Results[0].Domain)
	assert.Equal(t, 2, body.Results[0].Total)
	assert.Equal(t, 2, body.Results[0].TotalPages)
	assert.Equal(t, types.DomainParts, body.Results[1].Domain)
	assert.Equal(t, 1, body.Results[1].Total)
	assert.Equal(t, types.DomainParts, body.Results[1].Items[0].Domain)
}

func TestTextSearchUnknownDomain(t *testing.T) {
	handler := testServer().Handler()
	res := get(t, handler, "/api/search?domain=boats")
	body := search.Response{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, types.DomainAll, body.Domain)
	assert.Len(t, body.Results, 2)
}

type recordingTracker struct {
	sessions chan string
	searches chan tracking.Search
}

func (r *recordingTracker) TrackSession(sessionId string, _ *http.Request) {
	r.sessions <- sessionId
}

func (r *recordingTracker) TrackSearch(_ string, s tracking.Search, _ *http.Request) {
	r.searches <- s
}

func TestSearchIsTracked(t *testing.T) {
	ws := testServer()
	tracker := &recordingTracker{
		sessions: make(chan string, 1),
		searches: make(chan tracking.Search, 1),
	}
	ws.Tracking = tracker
	res := get(t, ws.Handler(), "/api/vehicles?vendor=Volvo")

	sessionId := <-tracker.sessions
	assert.NotEmpty(t, sessionId)
	assert.Contains(t, res.Header().Get("Set-Cookie"), sessionId)

	event := <-tracker.searches
	assert.Equal(t, 1, event.Results)
	assert.Equal(t, []string{"Volvo"}, event.Filters.Vendors)
}

func TestHealth(t *testing.T) {
	ws := testServer()
	loaded := false
	ws.Ready = func() bool { return loaded }
	assert.Equal(t, http.StatusServiceUnavailable, get(t, ws.Handler(), "/health").Code)
	loaded = true
	assert.Equal(t, http.StatusOK, get(t, ws.Handler(), "/health").Code)
}
