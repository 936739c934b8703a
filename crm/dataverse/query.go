package dataverse

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Record is one entity row as returned by the Web API, annotations included.
type Record map[string]any

type Query struct {
	// EntitySet is the plural collection name, e.g. incidents
	EntitySet string
	Select    []string
	Expand    []string
	Filter    string
	Top       int
	OrderBy   []string
}

func (q Query) params() map[string]string {
	p := map[string]string{}
	if len(q.Select) > 0 {
		p["$select"] = strings.Join(q.Select, ",")
	}
	if len(q.Expand) > 0 {
		p["$expand"] = strings.Join(q.Expand, ",")
	}
	if q.Filter != "" {
		p["$filter"] = q.Filter
	}
	if q.Top > 0 {
		p["$top"] = strconv.Itoa(q.Top)
	}
	if len(q.OrderBy) > 0 {
		p["$orderby"] = strings.Join(q.OrderBy, ",")
	}
	return p
}

// ODataError is a non-2xx Web API response.
type ODataError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ODataError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("dataverse request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("dataverse request failed with status %d: %s %s", e.StatusCode, e.Code, e.Message)
}

type page struct {
	Value    []Record `json:"value"`
	NextLink string   `json:"@odata.nextLink"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Pages runs q and calls fn with each page of results, following @odata.nextLink.
func (c *Client) Pages(ctx context.Context, q Query, fn func([]Record) error) error {
	if q.EntitySet == "" {
		return fmt.Errorf("query has no entity set")
	}

	params := q.params()
	url := "/" + q.EntitySet
	for url != "" {
		var (
			p  page
			eb errorBody
		)
		req := c.httpc.R().SetContext(ctx).SetResult(&p).SetError(&eb)
		if params != nil {
			req.SetQueryParams(params)
		}
		r, err := req.Get(url)
		if err != nil {
			return fmt.Errorf("dataverse request: %w", err)
		}
		if r.IsError() {
			return &ODataError{StatusCode: r.StatusCode(), Code: eb.Error.Code, Message: eb.Error.Message}
		}
		if err := fn(p.Value); err != nil {
			return err
		}

		// nextLink already carries the query options
		url, params = p.NextLink, nil
	}
	return nil
}

// Get runs q and returns every page.
func (c *Client) Get(ctx context.Context, q Query) ([][]Record, error) {
	var batches [][]Record
	err := c.Pages(ctx, q, func(records []Record) error {
		batches = append(batches, records)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batches, nil
}
