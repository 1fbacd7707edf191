// Package feeds provides access to the bookseller's delimited-text feed
// resources. The pipeline consumes feeds through the Source interface; the
// FTP transport behind it is a thin I/O wrapper.
package feeds

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/bookbridge/shelfsync/pkg/errors"
)

// Record is one raw data row: a field mapping plus its origin.
type Record struct {
	Feed   string
	Line   int // 1-based; the header row is line 1
	Fields map[string]string
}

// Source is a collection of named feed resources.
type Source interface {
	// List returns the available feed names. Callers sort the result, so
	// processing order is deterministic regardless of server listing order.
	List(ctx context.Context) ([]string, error)

	// Fetch downloads and parses one feed.
	Fetch(ctx context.Context, name string) ([]Record, error)

	// Close releases the underlying connection.
	Close() error
}

// ParseCSV reads a header row plus data rows into Records. A leading
// byte-order marker is stripped transparently. Header names are trimmed
// and lowercased; rows shorter or longer than the header are tolerated.
func ParseCSV(feed string, r io.Reader) ([]Record, error) {
	// Feeds arrive with or without a UTF-8 BOM depending on the exporter.
	decoded := transform.NewReader(r, unicode.UTF8BOM.NewDecoder())

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapSource("feed "+feed, err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var records []Record
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			// One malformed row never aborts the rest of the feed.
			continue
		}
		fields := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}
			fields[h] = row[i]
		}
		records = append(records, Record{Feed: feed, Line: line, Fields: fields})
	}
	return records, nil
}

// isFeedName reports whether a file name looks like a feed resource.
// Exporters deliver both .csv and .text suffixes.
func isFeedName(name string) bool {
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".text")
}
