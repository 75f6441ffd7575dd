package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadCSV reads a delimited table: the first record is the header.
// A zero delimiter means ','.
func ReadCSV(r io.Reader, delim rune) (header []string, rows [][]string, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	if delim != 0 {
		cr.Comma = delim
	}
	header, err = cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		// Excel exports often carry a UTF-8 BOM on the first cell.
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(trimCompression(path))
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}
