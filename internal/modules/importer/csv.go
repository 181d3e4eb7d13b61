package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// Sheet is a decoded CSV. Lines[i] is the file line Rows[i] started on,
// counting the header as line 1.
type Sheet struct {
	Rows  []Row
	Lines []int
}

// ReadCSV decodes a header-first CSV into a Sheet. Blank lines and rows whose
// cells are all empty are skipped; a leading UTF-8 byte order mark is ignored.
func ReadCSV(r io.Reader) (*Sheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv: header row is missing")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	sheet := &Sheet{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		row := make(Row, len(header))
		empty := true
		for i, col := range header {
			if col == "" || i >= len(record) {
				continue
			}
			row[col] = record[i]
			if strings.TrimSpace(record[i]) != "" {
				empty = false
			}
		}
		if !empty {
			sheet.Rows = append(sheet.Rows, row)
			sheet.Lines = append(sheet.Lines, line)
		}
	}
	return sheet, nil
}
