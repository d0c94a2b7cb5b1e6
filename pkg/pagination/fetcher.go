package pagination

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/finwerk/moexiss/pkg/client"
	"github.com/finwerk/moexiss/pkg/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pagination.
var (
	issPagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iss_pages_fetched_total",
		Help: "Total pages fetched by endpoint",
	}, []string{"endpoint"})

	issPaginationGuardTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iss_pagination_guard_trips_total",
		Help: "Total pagination runs aborted by the max-row guard",
	})
)

// PageRequest describes one bounded page. A fresh request is derived per
// page; the offset advances monotonically within a logical call.
type PageRequest struct {
	Endpoint string
	Params   url.Values
	Offset   int
	Limit    int
}

// PageFetcher fetches one page of rows. Implementations map Offset/Limit to
// the server's paging parameters and run the request through the executor,
// so all retry and classification behavior applies per page.
type PageFetcher interface {
	FetchPage(ctx context.Context, req PageRequest) ([]table.Row, error)
}

// Terminator decides, from the size of the page just received, whether the
// result set is complete. Returning true stops pagination.
type Terminator func(rowCount, pageSize int) bool

// ShortPage terminates when a page comes back smaller than requested.
// This is the ISS convention: a short page means end-of-data.
func ShortPage(rowCount, pageSize int) bool {
	return rowCount < pageSize
}

// EmptyPage terminates only on a completely empty page, for servers that
// pad or do not guarantee full pages.
func EmptyPage(rowCount, pageSize int) bool {
	return rowCount == 0
}

// Config holds fetcher configuration.
type Config struct {
	// PageSize is the number of rows requested per page.
	PageSize int

	// MaxRows aborts pagination once the aggregate reaches this size,
	// guarding against unbounded loops from a misbehaving server.
	MaxRows int

	// Terminator decides when the result set is complete (default ShortPage).
	Terminator Terminator
}

// DefaultConfig returns safe defaults for ISS list endpoints.
func DefaultConfig() Config {
	return Config{
		PageSize:   100,
		MaxRows:    100000,
		Terminator: ShortPage,
	}
}

// Fetcher drives a PageFetcher until the result set is complete.
type Fetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewFetcher creates a fetcher. Zero config fields fall back to defaults.
func NewFetcher(fetcher PageFetcher, config Config) *Fetcher {
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	if config.MaxRows <= 0 {
		config.MaxRows = 100000
	}
	if config.Terminator == nil {
		config.Terminator = ShortPage
	}

	return &Fetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll assembles the complete result set for an endpoint, page by page.
// Rows are returned in page order. On any page failure the partial aggregate
// is discarded and the executor's terminal error propagates unchanged; the
// fetcher never retries a page itself.
func (f *Fetcher) FetchAll(ctx context.Context, endpoint string, baseParams url.Values) ([]table.Row, error) {
	start := time.Now()

	var rows []table.Row
	offset := 0
	pages := 0

	for {
		page, err := f.fetcher.FetchPage(ctx, PageRequest{
			Endpoint: endpoint,
			Params:   baseParams,
			Offset:   offset,
			Limit:    f.config.PageSize,
		})
		if err != nil {
			return nil, err
		}

		rows = append(rows, page...)
		pages++
		issPagesFetchedTotal.WithLabelValues(endpoint).Inc()

		log.Debug().
			Str("endpoint", endpoint).
			Int("offset", offset).
			Int("rows", len(page)).
			Msg("Page fetched")

		if f.config.Terminator(len(page), f.config.PageSize) {
			break
		}

		if len(rows) >= f.config.MaxRows {
			issPaginationGuardTotal.Inc()
			log.Error().
				Str("endpoint", endpoint).
				Int("rows", len(rows)).
				Int("max_rows", f.config.MaxRows).
				Msg("Pagination aborted by max-row guard")
			return nil, &client.APIError{
				Kind:     client.KindPaginationLimit,
				Endpoint: endpoint,
				Elapsed:  time.Since(start),
				Err:      fmt.Errorf("aggregated %d rows without termination (guard %d)", len(rows), f.config.MaxRows),
			}
		}

		offset += len(page)
	}

	log.Debug().
		Str("endpoint", endpoint).
		Int("pages", pages).
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")

	return rows, nil
}
