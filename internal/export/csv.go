// Package export writes the record set as CSV or XLSX and reads the CSV
// back.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"numtrack/internal/record"
	"numtrack/internal/view"
)

const (
	DefaultCSVName  = "number-status-tracker.csv"
	DefaultXLSXName = "number-status-tracker.xlsx"
	csvHeader       = "Number,Status,Name"
)

// WriteCSV emits one row per number in ascending order. Names are written
// verbatim without quoting.
func WriteCSV(w io.Writer, rs view.Records) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(csvHeader + "\n"); err != nil {
		return err
	}
	for n := record.MinNumber; n <= record.MaxNumber; n++ {
		r := rs.Get(n)
		if _, err := fmt.Fprintf(bw, "%d,%s,%s\n", n, r.Status, r.Name); err != nil {
			return err
		}
	}
	return bw.Flush()
}

type Row struct {
	Status record.Status
	Name   string
}

// ReadCSV parses output of WriteCSV. Everything after the second comma is
// the name. Lines may end in CRLF, so a name ending in '\r' comes back
// without it, and a name containing '\n' breaks its row. Neither
// round-trips.
func ReadCSV(r io.Reader) (map[int]Row, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	out := make(map[int]Row)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSuffix(sc.Text(), "\r")
		if line == 1 {
			if text != csvHeader {
				return nil, fmt.Errorf("unexpected header %q", text)
			}
			continue
		}
		if text == "" {
			continue
		}
		numField, rest, ok := strings.Cut(text, ",")
		if !ok {
			return nil, fmt.Errorf("line %d: missing status", line)
		}
		statusField, name, ok := strings.Cut(rest, ",")
		if !ok {
			return nil, fmt.Errorf("line %d: missing name", line)
		}
		n, err := strconv.Atoi(numField)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := record.CheckNumber(n); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		status, err := record.ParseStatus(statusField)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out[n] = Row{Status: status, Name: name}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if line == 0 {
		return nil, fmt.Errorf("empty export")
	}
	return out, nil
}
