package universe

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NormalizeColumn trims and upper-cases a header cell.
func NormalizeColumn(s string) string {
	// A Caser is stateful and cannot be shared between goroutines.
	return cases.Upper(language.BrazilianPortuguese).String(strings.TrimSpace(s))
}

// decode returns the CSV as UTF-8. Spreadsheet exports are UTF-8, but files
// saved from Excel on Windows arrive as Windows-1252.
func decode(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decoding windows-1252: %w", err)
	}
	return out, nil
}

// Parse parses a CSV body with primary as delimiter, retrying once with
// alternate if the first pass fails. Rows that do not parse, or have more
// fields than the header, are skipped; short rows are padded. A missing
// ticker column is fatal and returns *MissingColumnError.
func Parse(data []byte, primary, alternate rune, tickerColumn string) (*Universe, error) {
	data, err := decode(data)
	if err != nil {
		return nil, err
	}

	var attempts []Attempt
	for _, delim := range []rune{primary, alternate} {
		header, rows, skipped, err := parseWith(data, delim, otherOf(delim, primary, alternate))
		attempts = append(attempts, Attempt{Delimiter: delim, Err: err})
		if err != nil {
			continue
		}

		columns := make([]string, len(header))
		tickerCol := -1
		want := NormalizeColumn(tickerColumn)
		for i, h := range header {
			columns[i] = NormalizeColumn(h)
			if tickerCol < 0 && columns[i] == want {
				tickerCol = i
			}
		}
		if tickerCol < 0 {
			return nil, &MissingColumnError{Column: want, Found: columns}
		}

		u := newUniverse(columns, rows, tickerCol)
		u.Delimiter = delim
		u.Attempts = attempts
		u.Skipped = skipped
		return u, nil
	}
	return nil, &ParseError{Attempts: attempts}
}

func otherOf(delim, a, b rune) rune {
	if delim == a {
		return b
	}
	return a
}

func parseWith(data []byte, delim, other rune) (header []string, rows [][]string, skipped int, err error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1

	header, err = r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, 0, ErrEmpty
	}
	if err != nil {
		return nil, nil, 0, fmt.Errorf("reading header: %w", err)
	}
	if len(header) == 1 && strings.ContainsRune(header[0], other) {
		return nil, nil, 0, ErrWrongDelimiter
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				skipped++
				continue
			}
			return nil, nil, 0, err
		}
		if len(rec) > len(header) {
			skipped++
			continue
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		rows = append(rows, rec)
	}
	return header, rows, skipped, nil
}
