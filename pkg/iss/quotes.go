package iss

import (
	"context"
	"fmt"
	"net/url"
)

// Quote is the current market snapshot of one security on one board,
// joined from the securities and marketdata blocks of the board listing.
type Quote struct {
	SecID      string
	BoardID    string
	ShortName  string
	Last       float64
	Open       float64
	High       float64
	Low        float64
	Value      float64
	Volume     float64
	UpdateTime string
}

// BoardQuotes returns the current quotes for every security traded on a
// board. This is a single round trip: the board listing endpoint returns
// the full set in one response.
func (s *Service) BoardQuotes(ctx context.Context, engine, market, board string) ([]Quote, error) {
	endpoint := fmt.Sprintf("/iss/engines/%s/markets/%s/boards/%s/securities.json",
		url.PathEscape(engine), url.PathEscape(market), url.PathEscape(board))

	params := url.Values{}
	params.Set("iss.only", "securities,marketdata")

	doc, err := s.client.Get(ctx, endpoint, withMetaOff(params))
	if err != nil {
		return nil, err
	}

	marketdata, err := doc.Rows("marketdata")
	if err != nil {
		return nil, malformed(endpoint, err)
	}
	securities, err := doc.Rows("securities")
	if err != nil {
		return nil, malformed(endpoint, err)
	}

	// Join short names from the static block by SECID.
	names := make(map[string]string, len(securities))
	for _, row := range securities {
		names[row.String("SECID")] = row.String("SHORTNAME")
	}

	quotes := make([]Quote, 0, len(marketdata))
	for _, row := range marketdata {
		secID := row.String("SECID")
		quotes = append(quotes, Quote{
			SecID:      secID,
			BoardID:    row.String("BOARDID"),
			ShortName:  names[secID],
			Last:       row.Float("LAST"),
			Open:       row.Float("OPEN"),
			High:       row.Float("HIGH"),
			Low:        row.Float("LOW"),
			Value:      row.Float("VALTODAY"),
			Volume:     row.Float("VOLTODAY"),
			UpdateTime: row.String("UPDATETIME"),
		})
	}

	return quotes, nil
}
