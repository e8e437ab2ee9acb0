package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matst80/slask-fordon/pkg/search"
	"github.com/matst80/slask-fordon/pkg/server"
	"github.com/matst80/slask-fordon/pkg/types"
)

// Client talks to the inventory api.
type Client struct {
	BaseUrl    string
	HttpClient *http.Client
}

func New(baseUrl string) *Client {
	return &Client{
		BaseUrl:    strings.TrimSuffix(baseUrl, "/"),
		HttpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type StatusError struct {
	Status int
	Path   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d", e.Path, e.Status)
}

func (c *Client) get(ctx context.Context, path string, values url.Values, out any) (*http.Response, error) {
	u := c.BaseUrl + path
	if len(values) > 0 {
		u += "?" + values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return res, &StatusError{Status: res.StatusCode, Path: path}
	}
	if err = json.NewDecoder(res.Body).Decode(out); err != nil {
		return res, fmt.Errorf("decode %s: %w", path, err)
	}
	return res, nil
}

// YearDistribution returns the distribution and the result state reported
// by the server, failed comes with an empty distribution.
func (c *Client) YearDistribution(ctx context.Context, filters types.YearFilters) (types.YearDistribution, types.ResultState, error) {
	years := types.YearDistribution{}
	res, err := c.get(ctx, "/api/year-distribution", filters.Values(), &years)
	if err != nil {
		return years, types.StateFailed, err
	}
	state := types.ResultState(res.Header.Get("X-Result-State"))
	if state == "" {
		state = types.StateFor(len(years), nil)
	}
	return years, state, nil
}

func (c *Client) Vehicles(ctx context.Context, state types.FilterState, page types.PageRequest) (*server.VehicleResponse, error) {
	values, err := types.VehicleRequestFor(state, page).Values()
	if err != nil {
		return nil, err
	}
	ret := &server.VehicleResponse{}
	if _, err = c.get(ctx, "/api/vehicles", values, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Client) Facets(ctx context.Context, state types.FilterState) ([]types.Facet, error) {
	values, err := types.VehicleRequestFor(state, types.PageRequest{}).Values()
	if err != nil {
		return nil, err
	}
	ret := &server.FacetResponse{}
	if _, err = c.get(ctx, "/api/facets", values, ret); err != nil {
		return nil, err
	}
	return ret.Facets, nil
}

func (c *Client) Search(ctx context.Context, req types.SearchRequest) (*search.Response, error) {
	values, err := req.Values()
	if err != nil {
		return nil, err
	}
	ret := &search.Response{}
	if _, err = c.get(ctx, "/api/search", values, ret); err != nil {
		return nil, err
	}
	return ret, nil
}
