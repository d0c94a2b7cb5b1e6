// Package table converts ISS payload blocks into row-oriented tables.
//
// Every tabular ISS endpoint responds with named blocks of the shape
// {"columns": [...], "data": [[...], ...]}. The package decodes that shape
// once, at the parse boundary, and exposes ordered rows keyed by column name.
// Values pass through as decoded JSON (string, float64, nil); no type
// inference happens here.
package table

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed indicates a payload that does not match the expected
// columns/data structure. Callers map it to a malformed-response failure.
var ErrMalformed = errors.New("malformed tabular payload")

// Block is one tabular block of an ISS response: ordered column names plus
// row-major data.
type Block struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

// Row maps a column name to its decoded value (string, float64, or nil).
type Row map[string]any

// Rows converts the block into ordered rows, preserving row and column
// order. Fails with ErrMalformed when a row's length does not match the
// column count.
func (b Block) Rows() ([]Row, error) {
	rows := make([]Row, 0, len(b.Data))
	for i, values := range b.Data {
		if len(values) != len(b.Columns) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d columns",
				ErrMalformed, i, len(values), len(b.Columns))
		}

		row := make(Row, len(b.Columns))
		for j, col := range b.Columns {
			row[col] = values[j]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Len returns the number of data rows in the block.
func (b Block) Len() int {
	return len(b.Data)
}

// Document is a decoded ISS response. Members that match the columns/data
// shape are resolved as tabular blocks; anything else is kept as a raw
// scalar lookup. The tabular-vs-scalar decision is made once, here.
type Document struct {
	blocks  map[string]Block
	scalars map[string]json.RawMessage
}

// Parse decodes an ISS response body into a Document. Fails with
// ErrMalformed when the body is not a JSON object or a block's columns/data
// members do not decode.
func Parse(data []byte) (*Document, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	doc := &Document{
		blocks:  make(map[string]Block),
		scalars: make(map[string]json.RawMessage),
	}

	for name, raw := range members {
		if !looksTabular(raw) {
			doc.scalars[name] = raw
			continue
		}

		var block Block
		if err := json.Unmarshal(raw, &block); err != nil {
			return nil, fmt.Errorf("%w: block %q: %v", ErrMalformed, name, err)
		}
		doc.blocks[name] = block
	}

	return doc, nil
}

// looksTabular reports whether a member is an object declaring both
// "columns" and "data".
func looksTabular(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}

	var probe struct {
		Columns *json.RawMessage `json:"columns"`
		Data    *json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return false
	}
	return probe.Columns != nil && probe.Data != nil
}

// Block returns the named tabular block.
func (d *Document) Block(name string) (Block, bool) {
	block, ok := d.blocks[name]
	return block, ok
}

// Rows is shorthand for resolving a named block and converting it to rows.
// A missing block is malformed: the caller asked for a block the endpoint
// contract promises.
func (d *Document) Rows(name string) ([]Row, error) {
	block, ok := d.blocks[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing block %q", ErrMalformed, name)
	}
	return block.Rows()
}

// Scalar returns the raw JSON of a non-tabular member (nested mapping
// lookups such as dataversion).
func (d *Document) Scalar(name string) (json.RawMessage, bool) {
	raw, ok := d.scalars[name]
	return raw, ok
}
