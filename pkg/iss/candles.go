package iss

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Interval is a candle aggregation period in ISS encoding.
type Interval int

const (
	IntervalMinute  Interval = 1
	Interval10Min   Interval = 10
	IntervalHour    Interval = 60
	IntervalDay     Interval = 24
	IntervalWeek    Interval = 7
	IntervalMonth   Interval = 31
	IntervalQuarter Interval = 4
)

// candlesPageSize is the server's fixed page bound for candle history.
const candlesPageSize = 500

// Candle is one OHLCV bar.
type Candle struct {
	Open   float64
	Close  float64
	High   float64
	Low    float64
	Value  float64
	Volume float64
	Begin  time.Time
	End    time.Time
}

// Candles returns the candle history of a security over [from, till],
// aggregated across all pages. Dates are sent in ISS yyyy-mm-dd form.
func (s *Service) Candles(ctx context.Context, engine, market, security string, interval Interval, from, till time.Time) ([]Candle, error) {
	endpoint := fmt.Sprintf("/iss/engines/%s/markets/%s/securities/%s/candles.json",
		url.PathEscape(engine), url.PathEscape(market), url.PathEscape(security))

	params := url.Values{}
	params.Set("interval", fmt.Sprintf("%d", interval))
	if !from.IsZero() {
		params.Set("from", from.Format("2006-01-02"))
	}
	if !till.IsZero() {
		params.Set("till", till.Format("2006-01-02"))
	}

	rows, err := s.fetchAll(ctx, endpoint, params, "candles", candlesPageSize)
	if err != nil {
		return nil, err
	}

	candles := make([]Candle, 0, len(rows))
	for _, row := range rows {
		candles = append(candles, Candle{
			Open:   row.Float("open"),
			Close:  row.Float("close"),
			High:   row.Float("high"),
			Low:    row.Float("low"),
			Value:  row.Float("value"),
			Volume: row.Float("volume"),
			Begin:  parseTime(row, "begin"),
			End:    parseTime(row, "end"),
		})
	}

	return candles, nil
}
