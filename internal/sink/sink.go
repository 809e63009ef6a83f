// Package sink persists pipeline stages to flat CSV files and relational
// tables. Every write is a full overwrite.
package sink

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"movora/internal/table"
)

// TableWriter replaces a whole table with a dataset.
type TableWriter interface {
	ReplaceTable(ctx context.Context, name string, ds *table.Dataset) error
}

// Stage is one named pipeline output. An empty CSVPath or Table skips that
// destination.
type Stage struct {
	Name    string
	CSVPath string
	Table   string
	Data    *table.Dataset
}

// Sink writes stages to disk and to a TableWriter.
type Sink struct {
	tables TableWriter
	log    *slog.Logger
}

// New returns a Sink. tables may be nil to write CSV files only.
func New(tables TableWriter, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{tables: tables, log: log}
}

// Persist writes st to its CSV path and then to its table.
func (s *Sink) Persist(ctx context.Context, st Stage) error {
	if st.CSVPath != "" {
		if err := WriteCSV(st.CSVPath, st.Data); err != nil {
			return fmt.Errorf("stage %s: %w", st.Name, err)
		}
		s.log.Info("wrote csv", "stage", st.Name, "path", st.CSVPath, "rows", st.Data.Len(), "columns", len(st.Data.Columns))
	}
	if st.Table != "" && s.tables != nil {
		if err := s.tables.ReplaceTable(ctx, st.Table, st.Data); err != nil {
			return fmt.Errorf("stage %s: %w", st.Name, err)
		}
		s.log.Info("replaced table", "stage", st.Name, "table", st.Table, "rows", st.Data.Len())
	}
	return nil
}

// PersistAll persists stages in order and stops at the first failure.
func (s *Sink) PersistAll(ctx context.Context, stages []Stage) error {
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Persist(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV creates the parent directories of path and overwrites it with ds.
func WriteCSV(path string, ds *table.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := table.EncodeCSV(w, ds); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
