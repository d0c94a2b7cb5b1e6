// Package iss provides the endpoint builders and domain mappers for the
// Moscow Exchange ISS API on top of the core client: securities search,
// board quotes, historical candles, and the engine/market/board taxonomy.
//
// Methods here only build query parameters and map tabular rows to typed
// records. Resilience (pacing, retries, classification, pagination limits)
// lives in pkg/client and pkg/pagination.
package iss

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/finwerk/moexiss/pkg/client"
	"github.com/finwerk/moexiss/pkg/pagination"
	"github.com/finwerk/moexiss/pkg/table"
)

// issTimeLayout is the timestamp format used by ISS tabular payloads.
const issTimeLayout = "2006-01-02 15:04:05"

// Service exposes typed ISS operations over a shared client session.
type Service struct {
	client *client.Client
}

// NewService creates a service bound to an existing session.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// Client returns the underlying session, for callers that need raw access.
func (s *Service) Client() *client.Client {
	return s.client
}

// get performs a single-page request and extracts one named block.
func (s *Service) get(ctx context.Context, endpoint string, params url.Values, block string) ([]table.Row, error) {
	params = withMetaOff(params)

	doc, err := s.client.Get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	rows, err := doc.Rows(block)
	if err != nil {
		return nil, malformed(endpoint, err)
	}
	return rows, nil
}

// fetchAll paginates an endpoint and aggregates one named block across pages.
func (s *Service) fetchAll(ctx context.Context, endpoint string, params url.Values, block string, pageSize int) ([]table.Row, error) {
	fetcher := pagination.NewFetcher(
		&pageFetcher{client: s.client, block: block},
		pagination.Config{PageSize: pageSize},
	)
	return fetcher.FetchAll(ctx, endpoint, withMetaOff(params))
}

// pageFetcher adapts the session to the paginator: it maps the abstract
// offset/limit to the ISS start/limit parameters and extracts the block.
type pageFetcher struct {
	client *client.Client
	block  string
}

func (p *pageFetcher) FetchPage(ctx context.Context, req pagination.PageRequest) ([]table.Row, error) {
	params := cloneValues(req.Params)
	params.Set("start", strconv.Itoa(req.Offset))
	params.Set("limit", strconv.Itoa(req.Limit))

	doc, err := p.client.Get(ctx, req.Endpoint, params)
	if err != nil {
		return nil, err
	}

	rows, err := doc.Rows(p.block)
	if err != nil {
		return nil, malformed(req.Endpoint, err)
	}
	return rows, nil
}

// malformed wraps a block-shape failure into the terminal taxonomy.
func malformed(endpoint string, err error) error {
	return &client.APIError{
		Kind:     client.KindMalformedResponse,
		Endpoint: endpoint,
		Attempts: 1,
		Err:      err,
	}
}

// withMetaOff copies params and disables the ISS metadata block, which
// roughly halves payload size for tabular endpoints.
func withMetaOff(params url.Values) url.Values {
	out := cloneValues(params)
	out.Set("iss.meta", "off")
	return out
}

func cloneValues(params url.Values) url.Values {
	out := make(url.Values, len(params)+2)
	for name, values := range params {
		out[name] = append([]string(nil), values...)
	}
	return out
}

// parseTime parses an ISS timestamp column. Zero time on null or mismatch.
func parseTime(row table.Row, col string) time.Time {
	value := row.String(col)
	if value == "" {
		return time.Time{}
	}
	at, err := time.Parse(issTimeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return at
}
