package iss

import (
	"context"
	"net/url"
)

// Security is one row of the securities directory.
type Security struct {
	SecID          string
	ShortName      string
	Name           string
	ISIN           string
	IsTraded       bool
	Type           string
	Group          string
	PrimaryBoardID string
}

// SearchSecurities finds securities whose ticker, name, or ISIN matches
// query. The directory endpoint is paginated; all pages are aggregated.
func (s *Service) SearchSecurities(ctx context.Context, query string) ([]Security, error) {
	params := url.Values{}
	params.Set("q", query)

	rows, err := s.fetchAll(ctx, "/iss/securities.json", params, "securities", 100)
	if err != nil {
		return nil, err
	}

	securities := make([]Security, 0, len(rows))
	for _, row := range rows {
		securities = append(securities, Security{
			SecID:          row.String("secid"),
			ShortName:      row.String("shortname"),
			Name:           row.String("name"),
			ISIN:           row.String("isin"),
			IsTraded:       row.Bool("is_traded"),
			Type:           row.String("type"),
			Group:          row.String("group"),
			PrimaryBoardID: row.String("primary_boardid"),
		})
	}

	return securities, nil
}
