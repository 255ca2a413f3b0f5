// Package extract turns a captured table snapshot into field-keyed rows.
// The mapping is header-text to cell, never raw position against a fixed
// column order: the source table's column order is not guaranteed stable
// across renders, and a silent column shift would produce financially wrong
// numbers that survive the type system.
package extract

import (
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HeaderMap is the ordered list of column labels from the header row.
type HeaderMap []string

// RawRow maps a column label to the text of that row's cell.
type RawRow map[string]string

// Result is the parse output for one table snapshot.
type Result struct {
	Header  HeaderMap
	Rows    []RawRow
	Skipped int // body rows dropped for cell-count mismatch
}

// ParseTable reads the header cells in document order to form the
// HeaderMap, then zips each body row positionally against it. Rows whose
// cell count differs from the header are dropped and logged, never padded
// or shifted into adjacent columns.
func ParseTable(html string, logger *log.Logger) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse table html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("snapshot contains no table element")
	}

	header, err := readHeader(table)
	if err != nil {
		return nil, err
	}

	res := &Result{Header: header}
	table.Find("tbody tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td").Map(func(_ int, td *goquery.Selection) string {
			return strings.TrimSpace(td.Text())
		})
		if len(cells) != len(header) {
			res.Skipped++
			logger.Printf("skip row %d: %d cells vs %d header labels", i, len(cells), len(header))
			return
		}
		row := make(RawRow, len(header))
		for j, label := range header {
			row[label] = cells[j]
		}
		res.Rows = append(res.Rows, row)
	})

	return res, nil
}

func readHeader(table *goquery.Selection) (HeaderMap, error) {
	var header HeaderMap
	seen := make(map[string]bool)
	var dup string

	table.Find("thead th").Each(func(_ int, th *goquery.Selection) {
		label := strings.TrimSpace(th.Text())
		if seen[label] && dup == "" {
			dup = label
		}
		seen[label] = true
		header = append(header, label)
	})

	if len(header) == 0 {
		return nil, fmt.Errorf("table has no header cells")
	}
	// A duplicate label means header-keyed rows would silently lose a
	// column; treat it as a parse fault.
	if dup != "" {
		return nil, fmt.Errorf("duplicate header label %q", dup)
	}
	return header, nil
}
