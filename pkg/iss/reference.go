package iss

import (
	"context"
	"fmt"
	"net/url"
)

// Engine is one trading engine (stock, currency, futures, ...).
type Engine struct {
	ID    int64
	Name  string
	Title string
}

// Market is one market within an engine (shares, bonds, index, ...).
type Market struct {
	ID    int64
	Name  string
	Title string
}

// Board is one trading board within a market (TQBR, TQTF, ...).
type Board struct {
	ID           int64
	BoardGroupID int64
	BoardID      string
	Title        string
	IsTraded     bool
}

// Engines returns the exchange's trading engines. Single page; cached long
// by the session when a cache is configured.
func (s *Service) Engines(ctx context.Context) ([]Engine, error) {
	rows, err := s.get(ctx, "/iss/engines.json", url.Values{}, "engines")
	if err != nil {
		return nil, err
	}

	engines := make([]Engine, 0, len(rows))
	for _, row := range rows {
		engines = append(engines, Engine{
			ID:    row.Int("id"),
			Name:  row.String("name"),
			Title: row.String("title"),
		})
	}
	return engines, nil
}

// Markets returns the markets of one engine.
func (s *Service) Markets(ctx context.Context, engine string) ([]Market, error) {
	endpoint := fmt.Sprintf("/iss/engines/%s/markets.json", url.PathEscape(engine))

	rows, err := s.get(ctx, endpoint, url.Values{}, "markets")
	if err != nil {
		return nil, err
	}

	markets := make([]Market, 0, len(rows))
	for _, row := range rows {
		name := row.String("NAME")
		if name == "" {
			name = row.String("market_name")
		}
		markets = append(markets, Market{
			ID:    row.Int("id"),
			Name:  name,
			Title: row.String("title"),
		})
	}
	return markets, nil
}

// Boards returns the trading boards of one market.
func (s *Service) Boards(ctx context.Context, engine, market string) ([]Board, error) {
	endpoint := fmt.Sprintf("/iss/engines/%s/markets/%s/boards.json",
		url.PathEscape(engine), url.PathEscape(market))

	rows, err := s.get(ctx, endpoint, url.Values{}, "boards")
	if err != nil {
		return nil, err
	}

	boards := make([]Board, 0, len(rows))
	for _, row := range rows {
		boards = append(boards, Board{
			ID:           row.Int("id"),
			BoardGroupID: row.Int("board_group_id"),
			BoardID:      row.String("boardid"),
			Title:        row.String("title"),
			IsTraded:     row.Bool("is_traded"),
		})
	}
	return boards, nil
}
