package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrEmptyFile is returned when a CSV has no header row.
var ErrEmptyFile = errors.New("csv has no header row")

// ReadCSV loads path into a Dataset named after the file (without extension).
// Every non-missing cell is kept as Text; typing happens in the schema step.
func ReadCSV(path string) (*Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ds, err := DecodeCSV(bytes.NewReader(b), name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// DecodeCSV reads a header row followed by data rows. Repeated header
// names are mangled to name.1, name.2, ... so no column is lost.
func DecodeCSV(r io.Reader, name string) (*Dataset, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
	cr := csv.NewReader(bytes.NewReader(b))
	cr.FieldsPerRecord = -1
	headers, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, err
	}
	headers = mangleDuplicates(headers)
	ds := New(name, headers)
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		row := make(Record, len(headers))
		for i, h := range headers {
			if i >= len(rec) {
				break
			}
			field := normalizeCSVField(rec[i])
			if IsMissingMarker(field) {
				continue
			}
			row[h] = Text(field)
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// EncodeCSV writes ds with a header row and "\n" terminators.
func EncodeCSV(w io.Writer, ds *Dataset) error {
	if err := writeCSVRecord(w, ds.Columns); err != nil {
		return err
	}
	rec := make([]string, len(ds.Columns))
	for _, r := range ds.Rows {
		for i, c := range ds.Columns {
			rec[i] = r[c].String()
		}
		if err := writeCSVRecord(w, rec); err != nil {
			return err
		}
	}
	return nil
}

func mangleDuplicates(headers []string) []string {
	out := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	taken := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		taken[h] = struct{}{}
	}
	for i, h := range headers {
		n, dup := seen[h]
		seen[h] = n + 1
		if !dup {
			out[i] = h
			continue
		}
		for {
			candidate := h + "." + strconv.Itoa(n)
			if _, ok := taken[candidate]; !ok {
				taken[candidate] = struct{}{}
				out[i] = candidate
				break
			}
			n++
		}
		seen[h] = n + 1
	}
	return out
}

func normalizeCSVField(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func writeCSVRecord(w io.Writer, rec []string) error {
	for i, field := range rec {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if needsCSVQuote(field) {
			field = `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
		}
		if _, err := io.WriteString(w, field); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func needsCSVQuote(s string) bool {
	return strings.ContainsAny(s, ",\"\n\r")
}
