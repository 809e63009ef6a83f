package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movora/internal/config"
	"movora/internal/filter"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "cars.csv")
	require.NoError(t, os.WriteFile(src, []byte(
		"Name,Price,Seating Capacity,Displacement (cc),Fuel Type\n"+
			"Alto,3.5 Lakh,4,796,Petrol\n"+
			"Activa,0.8 Lakh,2,110,Petrol\n"+
			"Defender,1.2 Crore,5,2996,Diesel\n"), 0o644))

	cfg := config.Default()
	cfg.Sources = []config.Source{{Name: "cars_all", Path: src}}
	cfg.ProcessedDir = filepath.Join(dir, "processed")
	cfg.Master.CSV = filepath.Join(dir, "processed", "cars_master.csv")
	cfg.ML.CSV = filepath.Join(dir, "processed", "cars_master_ml.csv")
	cfg.Store.DSN = filepath.Join(dir, "movora.db")
	cfg.Log.Level = "error"
	path := filepath.Join(dir, "movora.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path, cfg
}

func TestRunThenFilterFromStore(t *testing.T) {
	path, cfg := writeConfig(t)

	out, err := execute(t, "run", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Pipeline finished")
	assert.FileExists(t, cfg.ML.CSV)

	out, err = execute(t, "filter", "--config", path, "--min", "0.5", "--max", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 vehicles")
	assert.Contains(t, out, "Alto")
	assert.Contains(t, out, "Activa")
	assert.Contains(t, out, "3.50 Lakh")
	assert.NotContains(t, out, "Defender")
}

func TestFilterCSVNoResults(t *testing.T) {
	path, cfg := writeConfig(t)
	out, err := execute(t, "filter", "--config", path, "--csv", cfg.Sources[0].Path, "--min", "20", "--max", "30")
	require.NoError(t, err)
	assert.Contains(t, out, noResults)
}

func TestFilterCSVCrore(t *testing.T) {
	path, cfg := writeConfig(t)
	out, err := execute(t, "filter", "--config", path, "--csv", cfg.Sources[0].Path, "--min", "100", "--max", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "Defender")
	assert.Contains(t, out, "1.20 Crore")
}

func TestFilterInvalidRange(t *testing.T) {
	path, cfg := writeConfig(t)
	_, err := execute(t, "filter", "--config", path, "--csv", cfg.Sources[0].Path, "--min", "9", "--max", "1")
	assert.Error(t, err)
}

func TestFilterRejectsNonFiniteBounds(t *testing.T) {
	path, cfg := writeConfig(t)
	for _, bounds := range [][]string{{"NaN", "5"}, {"0", "Inf"}, {"-Inf", "NaN"}} {
		var err error
		assert.NotPanics(t, func() {
			_, err = execute(t, "filter", "--config", path, "--csv", cfg.Sources[0].Path, "--min="+bounds[0], "--max="+bounds[1])
		})
		require.Error(t, err, bounds)
		assert.True(t, errors.Is(err, filter.ErrInvalidRange), bounds)
	}
}

func TestFilterRequiresBounds(t *testing.T) {
	path, _ := writeConfig(t)
	_, err := execute(t, "filter", "--config", path, "--min", "1")
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	dest := filepath.Join(t.TempDir(), "out", "movora.yaml")

	out, err := execute(t, "config", "init", "--config", cfgPath, "--path", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	loaded, err := config.Load(dest)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Store, loaded.Store)

	_, err = execute(t, "config", "init", "--config", cfgPath, "--path", dest)
	assert.Error(t, err)
	_, err = execute(t, "config", "init", "--config", cfgPath, "--path", dest, "--force")
	assert.NoError(t, err)
}

func TestProfileSuggestsDroppedColumns(t *testing.T) {
	path, cfg := writeConfig(t)
	other := filepath.Join(t.TempDir(), "bikes.csv")
	require.NoError(t, os.WriteFile(other, []byte("name,price,seats\nActiva,0.8 Lakh,2\n"), 0o644))

	out, err := execute(t, "profile", "--config", path, "--json", cfg.Sources[0].Path, other)
	require.NoError(t, err)

	var got profileOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Reports, 2)
	assert.Equal(t, 3, got.Reports[0].RowCount)
	require.Len(t, got.Suggestions, 1)
	assert.Equal(t, "seating_capacity", got.Suggestions[0].Column)
	assert.Equal(t, "seats", got.Suggestions[0].Candidate)

	out, err = execute(t, "profile", "--config", path, cfg.Sources[0].Path, other)
	require.NoError(t, err)
	assert.Contains(t, out, "resembles")
}
