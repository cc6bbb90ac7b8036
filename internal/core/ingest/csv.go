package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// rowReader streams CSV rows as header-keyed maps. Values are trimmed and empty
// values are dropped, so an absent map entry means "no value".
type rowReader struct {
	r      *csv.Reader
	header []string
	line   int
}

func newRowReader(r io.Reader) (*rowReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty dataset: no header row")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		cols[i] = h
	}
	return &rowReader{r: cr, header: cols, line: 1}, nil
}

// Next returns the next non-blank row and its 1-based data row number. A
// *csv.ParseError is returned for a malformed row; reading may continue.
func (rr *rowReader) Next() (map[string]string, int, error) {
	for {
		rec, err := rr.r.Read()
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				rr.line++
				return nil, rr.line - 1, err
			}
			return nil, 0, err
		}
		rr.line++

		row := make(map[string]string, len(rec))
		for i, v := range rec {
			if i >= len(rr.header) || rr.header[i] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			row[rr.header[i]] = v
		}
		if len(row) == 0 {
			continue
		}
		return row, rr.line - 1, nil
	}
}
