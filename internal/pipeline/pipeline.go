// Package pipeline runs the batch: load every source, normalize, merge into
// the master table, build features and persist each stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"movora/internal/config"
	"movora/internal/features"
	"movora/internal/filter"
	"movora/internal/logger"
	"movora/internal/merge"
	"movora/internal/price"
	"movora/internal/profile"
	"movora/internal/schema"
	"movora/internal/sink"
	"movora/internal/store"
	"movora/internal/table"
)

// ErrSourceNotFound is returned when a configured source file is absent.
var ErrSourceNotFound = errors.New("source file not found")

// Result is everything one run produced.
type Result struct {
	RunID       string
	Sources     []*table.Dataset
	Reports     []schema.Report
	Suggestions []profile.Suggestion
	Master      *table.Dataset
	Priced      int
	Features    *features.Result
	Stages      []sink.Stage
}

// Prepare loads, normalizes, merges and builds features without writing
// anything. Any structural failure aborts before persistence.
func Prepare(ctx context.Context, cfg *config.Config) (*Result, error) {
	ctx = withRun(ctx)
	log := logger.FromContext(ctx)
	res := &Result{RunID: RunID(ctx)}
	opts := schema.Options{Strict: cfg.Schema.Strict, NumericColumns: cfg.Schema.NumericColumns}

	for _, src := range cfg.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ds, rep, err := loadSource(src, opts)
		if err != nil {
			return nil, err
		}
		for _, c := range rep.Collisions {
			log.Warn("column name collision", "source", src.Name, "canonical", c.Canonical, "raw", c.Raw, "assigned", c.Assigned)
		}
		for col, n := range rep.CoercionFailures {
			log.Warn("numeric coercion failed", "source", src.Name, "column", col, "cells", n)
		}
		log.Info("loaded source", "source", src.Name, "path", src.Path, "rows", ds.Len(), "columns", len(ds.Columns))
		res.Sources = append(res.Sources, ds)
		res.Reports = append(res.Reports, rep)
	}

	for i := 1; i < len(res.Sources); i++ {
		for _, sg := range profile.Suggest(res.Sources[0], res.Sources[i], profile.DefaultThreshold) {
			log.Warn("column dropped by merge resembles another source's column",
				"column", sg.Column, "source", sg.Source, "candidate", sg.Candidate, "other_source", sg.OtherSource, "score", sg.Score)
			res.Suggestions = append(res.Suggestions, sg)
		}
	}

	master, err := merge.MergeAll(res.Sources...)
	if err != nil {
		return nil, err
	}
	master.Name = masterName(cfg)
	if _, ok := schema.Lookup(master, cfg.Price.Column); ok {
		n, err := filter.DerivePrice(master, cfg.Price.Column, cfg.Price.CleanedColumn, price.Unit(cfg.Price.NumericUnit))
		if err != nil {
			return nil, err
		}
		res.Priced = n
		log.Info("derived price column", "column", cfg.Price.CleanedColumn, "priced", n, "rows", master.Len())
	} else {
		log.Warn("price column not found", "column", cfg.Price.Column)
	}
	res.Master = master
	log.Info("merged master", "rows", master.Len(), "columns", len(master.Columns))

	input, err := featureInput(cfg, res)
	if err != nil {
		return nil, err
	}
	fr, err := features.Build(input, features.Options{
		SeatingColumn:      cfg.Features.SeatingColumn,
		DisplacementColumn: cfg.Features.DisplacementColumn,
		Exclude:            cfg.Features.Exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("features on %s: %w", input.Name, err)
	}
	for _, col := range fr.EmptyColumns {
		log.Warn("numeric column has no values", "column", col)
	}
	res.Features = fr
	log.Info("built features", "rows", fr.Dataset.Len(), "numeric", len(fr.NumericColumns),
		"categorical", len(fr.CategoricalColumns), "indicators", len(fr.IndicatorColumns))

	res.Stages = stages(cfg, res)
	return res, nil
}

// Run prepares a run and persists every stage through tables.
func Run(ctx context.Context, cfg *config.Config, tables sink.TableWriter) (*Result, error) {
	ctx = withRun(ctx)
	res, err := Prepare(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := sink.New(tables, logger.FromContext(ctx)).PersistAll(ctx, res.Stages); err != nil {
		logger.WithError(logger.FromContext(ctx), err).Error("persist failed")
		return nil, err
	}
	return res, nil
}

// Execute is Run against the store named in cfg. The store is opened only
// once every stage is ready.
func Execute(ctx context.Context, cfg *config.Config) (*Result, error) {
	ctx = withRun(ctx)
	res, err := Prepare(ctx, cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	log := logger.FromContext(ctx)
	log.Debug("store opened", "driver", st.Driver())
	if err := sink.New(st, log).PersistAll(ctx, res.Stages); err != nil {
		logger.WithError(log, err).Error("persist failed")
		return nil, err
	}
	return res, nil
}

type runKey struct{}

// RunID returns the run id carried by ctx, if any.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runKey{}).(string)
	return id
}

func withRun(ctx context.Context) context.Context {
	if RunID(ctx) != "" {
		return ctx
	}
	id := uuid.NewString()
	ctx = context.WithValue(ctx, runKey{}, id)
	return logger.WithContext(ctx, logger.WithRunID(logger.FromContext(ctx), id))
}

func loadSource(src config.Source, opts schema.Options) (*table.Dataset, schema.Report, error) {
	if _, err := os.Stat(src.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, schema.Report{}, fmt.Errorf("%w: %s (%s)", ErrSourceNotFound, src.Name, src.Path)
		}
		return nil, schema.Report{}, err
	}
	raw, err := table.ReadCSV(src.Path)
	if err != nil {
		return nil, schema.Report{}, err
	}
	ds, rep, err := schema.Normalize(raw, opts)
	if err != nil {
		return nil, rep, fmt.Errorf("source %s: %w", src.Name, err)
	}
	ds.Name = src.Name
	return ds, rep, nil
}

func featureInput(cfg *config.Config, res *Result) (*table.Dataset, error) {
	if cfg.Features.Source == "" || cfg.Features.Source == "master" {
		return res.Master, nil
	}
	for _, ds := range res.Sources {
		if ds.Name == cfg.Features.Source {
			return ds, nil
		}
	}
	return nil, fmt.Errorf("features source %q is not a configured source", cfg.Features.Source)
}

func stages(cfg *config.Config, res *Result) []sink.Stage {
	var out []sink.Stage
	for i, src := range cfg.Sources {
		st := sink.Stage{Name: src.Name, Table: src.Name, Data: res.Sources[i]}
		if cfg.ProcessedDir != "" {
			st.CSVPath = filepath.Join(cfg.ProcessedDir, filepath.Base(src.Path))
		}
		out = append(out, st)
	}
	out = append(out,
		sink.Stage{Name: "master", CSVPath: cfg.Master.CSV, Table: cfg.Master.Table, Data: res.Master},
		sink.Stage{Name: "ml", CSVPath: cfg.ML.CSV, Table: cfg.ML.Table, Data: res.Features.Dataset},
	)
	return out
}

func masterName(cfg *config.Config) string {
	if cfg.Master.Table != "" {
		return cfg.Master.Table
	}
	return "master"
}
