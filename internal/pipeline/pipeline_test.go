package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movora/internal/config"
	"movora/internal/features"
	"movora/internal/logger"
	"movora/internal/schema"
	"movora/internal/store"
	"movora/internal/table"
)

const allCars = "Name,Price,Seating Capacity,Displacement (cc),Fuel Type,Mileage\n" +
	"Alto,3.5 Lakh,4,796,Petrol,22\n" +
	"Activa,0.8 Lakh,2,110,Petrol,50\n" +
	"Defender,1.2 Crore,5,2996,Diesel,8\n" +
	"Alto,3.5 Lakh,4,796,Petrol,22\n"

const indianCars = "\xEF\xBB\xBFname,price,seating_capacity,displacement_cc,fuel_type,body_type\n" +
	"Nexon,8.1 Lakh,5,1199,Diesel,SUV\n" +
	"Activa,0.8 Lakh,2,110,Petrol,Scooter\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	raw := filepath.Join(dir, "Data", "raw")
	require.NoError(t, os.MkdirAll(raw, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(raw, "All_cars_dataset.csv"), []byte(allCars), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(raw, "Indian_Cars_Data.csv"), []byte(indianCars), 0o644))

	cfg := config.Default()
	cfg.Sources = []config.Source{
		{Name: "cars_all", Path: filepath.Join(raw, "All_cars_dataset.csv")},
		{Name: "cars_indian", Path: filepath.Join(raw, "Indian_Cars_Data.csv")},
	}
	cfg.ProcessedDir = filepath.Join(dir, "Data", "processed")
	cfg.Master.CSV = filepath.Join(cfg.ProcessedDir, "cars_master.csv")
	cfg.ML.CSV = filepath.Join(cfg.ProcessedDir, "cars_master_ml.csv")
	cfg.Store.DSN = filepath.Join(dir, "Data", "movora.db")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestExecuteEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	res, err := Execute(ctx, cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)

	assert.Equal(t, []string{"displacement_cc", "fuel_type", "name", "price", "seating_capacity", "price_cleaned"}, res.Master.Columns)
	assert.Equal(t, 4, res.Master.Len())
	assert.Equal(t, 4, res.Priced)

	ml := res.Features.Dataset
	assert.Equal(t, features.LabelColumn, ml.Columns[len(ml.Columns)-1])
	assert.Equal(t, []string{"displacement_cc", "seating_capacity", "price_cleaned"}, ml.Columns[:3])
	var labels []string
	for i := range ml.Rows {
		labels = append(labels, ml.Get(i, features.LabelColumn).String())
	}
	assert.Equal(t, []string{"4W", "2W", "4W", "4W"}, labels)

	for _, p := range []string{
		filepath.Join(cfg.ProcessedDir, "All_cars_dataset.csv"),
		filepath.Join(cfg.ProcessedDir, "Indian_Cars_Data.csv"),
		cfg.Master.CSV,
		cfg.ML.CSV,
	} {
		assert.FileExists(t, p)
	}
	b, err := os.ReadFile(cfg.ML.CSV)
	require.NoError(t, err)
	header := strings.SplitN(string(b), "\n", 2)[0]
	assert.True(t, strings.HasSuffix(header, ",Vehicle_Type"), header)
	assert.Len(t, strings.Split(strings.TrimSuffix(string(b), "\n"), "\n"), 5)

	st, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	require.NoError(t, err)
	defer st.Close()
	for table, rows := range map[string]int{"cars_all": 4, "cars_indian": 2, "cars_master": 4, "cars_master_ml": 4} {
		ds, err := st.LoadTable(ctx, table)
		require.NoError(t, err, table)
		assert.Equal(t, rows, ds.Len(), table)
	}
}

func TestCaseVariantCategoriesPersist(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Sources[1].Path, []byte(
		"name,price,seating_capacity,displacement_cc,fuel_type\n"+
			"Nexon,8.1 Lakh,5,1199,petrol\n"), 0o644))

	res, err := Execute(ctx, cfg)
	require.NoError(t, err)
	ml := res.Features.Dataset
	assert.Contains(t, ml.Columns, "fuel_type_Petrol")
	assert.Contains(t, ml.Columns, "fuel_type_petrol_2")

	st, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	require.NoError(t, err)
	defer st.Close()
	stored, err := st.LoadTable(ctx, cfg.ML.Table)
	require.NoError(t, err)
	assert.Equal(t, ml.Columns, stored.Columns)
	assert.Equal(t, ml.Len(), stored.Len())
	for i := range ml.Rows {
		assert.Equal(t, ml.Get(i, "fuel_type_petrol_2"), stored.Get(i, "fuel_type_petrol_2"), "row %d", i)
	}
}

func TestRerunIsByteIdentical(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	_, err := Execute(ctx, cfg)
	require.NoError(t, err)
	first, err := os.ReadFile(cfg.ML.CSV)
	require.NoError(t, err)
	firstMaster, err := os.ReadFile(cfg.Master.CSV)
	require.NoError(t, err)

	_, err = Execute(ctx, cfg)
	require.NoError(t, err)
	second, err := os.ReadFile(cfg.ML.CSV)
	require.NoError(t, err)
	secondMaster, err := os.ReadFile(cfg.Master.CSV)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstMaster, secondMaster)
}

func TestMissingSourceWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources[1].Path = filepath.Join(filepath.Dir(cfg.Sources[1].Path), "absent.csv")

	_, err := Execute(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceNotFound))
	assert.NoFileExists(t, cfg.ML.CSV)
	assert.NoFileExists(t, cfg.Store.DSN)
	assert.NoDirExists(t, cfg.ProcessedDir)
}

func TestMissingRequiredColumnWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Features.SeatingColumn = "Seats"

	_, err := Execute(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, features.ErrMissingColumn))
	assert.NoFileExists(t, cfg.Store.DSN)
}

func TestStrictCollisionAborts(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "dup.csv")
	require.NoError(t, os.WriteFile(path, []byte("Price,price\n1,2\n"), 0o644))
	cfg.Sources = []config.Source{{Name: "dup", Path: path}}
	cfg.Schema.Strict = true

	_, err := Prepare(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrNameCollision))
}

func TestFeaturesOnSingleSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Features.Source = "cars_all"
	cfg.Features.Exclude = []string{"name"}

	res, err := Prepare(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Features.Dataset.Len())
	assert.Contains(t, res.Features.NumericColumns, "mileage")
	assert.NotContains(t, res.Features.CategoricalColumns, "name")
	assert.Len(t, res.Stages, 4)
}

func TestSuggestsSimilarDroppedColumns(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "bikes.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,Price,Seats,Displacement (cc),Mileage (kmpl)\nActiva,0.8 Lakh,2,110,50\n"), 0o644))
	cfg.Sources[1] = config.Source{Name: "bikes", Path: path}
	cfg.Features.Source = "cars_all"

	res, err := Prepare(context.Background(), cfg)
	require.NoError(t, err)
	var pairs [][2]string
	for _, sg := range res.Suggestions {
		pairs = append(pairs, [2]string{sg.Column, sg.Candidate})
	}
	assert.ElementsMatch(t, [][2]string{{"seating_capacity", "seats"}, {"mileage", "mileage_kmpl"}}, pairs)
	assert.NotContains(t, res.Master.Columns, "seating_capacity")
}

type brokenTables struct{}

func (brokenTables) ReplaceTable(context.Context, string, *table.Dataset) error {
	return errors.New("disk full")
}

func TestPersistFailureIsLogged(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer
	log, err := logger.New(&buf, config.LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	ctx := logger.WithContext(context.Background(), log)

	_, err = Run(ctx, cfg, brokenTables{})
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"msg":"persist failed"`)
	assert.Contains(t, buf.String(), "disk full")
	assert.Contains(t, buf.String(), `"run_id"`)
}
