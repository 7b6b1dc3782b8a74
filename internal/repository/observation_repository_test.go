package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/ecms-bot/internal/entities"
)

func newTestRepository(t *testing.T, driver string) *SQLObservationRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test-ecms.db")
	repo, err := NewObservationRepository(driver, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() }) //nolint:errcheck
	return repo
}

func forEachSQLiteDriver(t *testing.T, fn func(t *testing.T, repo *SQLObservationRepository)) {
	for _, driver := range []string{DriverSQLite3, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			fn(t, newTestRepository(t, driver))
		})
	}
}

func TestAppendAndListWaste(t *testing.T) {
	forEachSQLiteDriver(t, func(t *testing.T, repo *SQLObservationRepository) {
		ctx := context.Background()

		id1, err := repo.AppendWaste(ctx, entities.WasteObservation{
			SourceReference:   "uploads/a.png",
			Classification:    entities.Biodegradable,
			RecommendedAction: "Compost or bury; consider composting facility.",
		})
		require.NoError(t, err)
		id2, err := repo.AppendWaste(ctx, entities.WasteObservation{
			SourceReference:   "uploads/b.png",
			Classification:    entities.NonBiodegradable,
			RecommendedAction: "Recycle where possible; if contaminated, safe disposal.",
		})
		require.NoError(t, err)
		assert.Greater(t, id2, id1)

		rows, err := repo.ListWaste(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, id1, rows[0].ID)
		assert.Equal(t, "uploads/a.png", rows[0].SourceReference)
		assert.Equal(t, entities.Biodegradable, rows[0].Classification)
		assert.Equal(t, entities.NonBiodegradable, rows[1].Classification)
		assert.False(t, rows[0].CreatedAt.IsZero())
		assert.Equal(t, time.UTC, rows[0].CreatedAt.Location())
		assert.False(t, rows[1].CreatedAt.Before(rows[0].CreatedAt))
	})
}

func TestAppendAndListDrainage(t *testing.T) {
	forEachSQLiteDriver(t, func(t *testing.T, repo *SQLObservationRepository) {
		ctx := context.Background()

		_, err := repo.AppendDrainage(ctx, entities.DrainageObservation{
			Location:   "6.45,3.39",
			FlowStatus: entities.FlowBlocked,
			RiskLevel:  entities.RiskHigh,
		})
		require.NoError(t, err)

		rows, err := repo.ListDrainage(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "6.45,3.39", rows[0].Location)
		assert.Equal(t, entities.FlowBlocked, rows[0].FlowStatus)
		assert.Equal(t, entities.RiskHigh, rows[0].RiskLevel)
	})
}

func TestAppendAndListChemicalAndForest(t *testing.T) {
	forEachSQLiteDriver(t, func(t *testing.T, repo *SQLObservationRepository) {
		ctx := context.Background()

		_, err := repo.AppendChemical(ctx, entities.ChemicalObservation{
			ChemicalName:   "Sulfuric acid",
			PHLevel:        1.2,
			Recommendation: "acid guidance",
		})
		require.NoError(t, err)
		_, err = repo.AppendForest(ctx, entities.ForestObservation{
			VegetationIndex: -0.25,
			AlertLevel:      entities.Degraded,
		})
		require.NoError(t, err)

		chems, err := repo.ListChemical(ctx)
		require.NoError(t, err)
		require.Len(t, chems, 1)
		assert.Equal(t, "Sulfuric acid", chems[0].ChemicalName)
		assert.InDelta(t, 1.2, chems[0].PHLevel, 1e-9)

		forests, err := repo.ListForest(ctx)
		require.NoError(t, err)
		require.Len(t, forests, 1)
		assert.InDelta(t, -0.25, forests[0].VegetationIndex, 1e-9)
		assert.Equal(t, entities.Degraded, forests[0].AlertLevel)
	})
}

func TestIdentitiesStrictlyIncrease(t *testing.T) {
	repo := newTestRepository(t, DriverSQLite3)
	ctx := context.Background()

	// pin the clock so equal timestamps still order by id
	fixed := time.Date(2025, time.April, 18, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	for i := 0; i < 5; i++ {
		_, err := repo.AppendForest(ctx, entities.ForestObservation{VegetationIndex: float64(i) / 10, AlertLevel: entities.AtRisk})
		require.NoError(t, err)
	}

	rows, err := repo.ListForest(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for i := 1; i < len(rows); i++ {
		assert.Greater(t, rows[i].ID, rows[i-1].ID)
		assert.True(t, rows[i].CreatedAt.Equal(fixed))
	}
}

func TestCounts(t *testing.T) {
	forEachSQLiteDriver(t, func(t *testing.T, repo *SQLObservationRepository) {
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			_, err := repo.AppendChemical(ctx, entities.ChemicalObservation{ChemicalName: "x", PHLevel: 7})
			require.NoError(t, err)
		}
		_, err := repo.AppendDrainage(ctx, entities.DrainageObservation{Location: "here", FlowStatus: entities.FlowNormal, RiskLevel: entities.RiskLow})
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			n, err := repo.Count(ctx, entities.KindChemical)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
		}

		counts, err := repo.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, entities.Counts{Waste: 0, Drainage: 1, Chemical: 3, Forest: 0}, counts)
	})
}

func TestCount_UnknownKind(t *testing.T) {
	repo := newTestRepository(t, DriverSQLite3)

	_, err := repo.Count(context.Background(), entities.RecordKind("volcano"))
	require.Error(t, err)

	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "count", storageErr.Op)
}

func TestStorageErrorAfterClose(t *testing.T) {
	repo := newTestRepository(t, DriverSQLite3)
	require.NoError(t, repo.Close())

	_, err := repo.AppendForest(context.Background(), entities.ForestObservation{VegetationIndex: 0.5, AlertLevel: entities.Healthy})
	require.Error(t, err)

	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "append", storageErr.Op)
	assert.Equal(t, entities.KindForest, storageErr.Kind)

	_, err = repo.ListForest(context.Background())
	assert.True(t, errors.As(err, &storageErr))
}

func TestNewObservationRepository_CreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "data", "ecms.db")
	repo, err := NewObservationRepository(DriverSQLite, dbPath)
	require.NoError(t, err)
	defer repo.Close()

	_, err = os.Stat(filepath.Dir(dbPath))
	assert.NoError(t, err)

	n, err := repo.Count(context.Background(), entities.KindWaste)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := NewObservationRepository("oracle", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestRebind(t *testing.T) {
	pg, ok := dialectFor(DriverPostgres)
	require.True(t, ok)
	assert.Equal(t, "INSERT INTO t(a, b) VALUES($1, $2)", pg.rebind("INSERT INTO t(a, b) VALUES(?, ?)"))

	lite, ok := dialectFor(DriverSQLite)
	require.True(t, ok)
	assert.Equal(t, "VALUES(?, ?)", lite.rebind("VALUES(?, ?)"))
}

func TestPostgresSchema(t *testing.T) {
	pg, _ := dialectFor(DriverPostgres)
	for _, stmt := range pg.schema() {
		assert.Contains(t, stmt, "BIGSERIAL PRIMARY KEY")
		assert.NotContains(t, stmt, "AUTOINCREMENT")
	}
}
