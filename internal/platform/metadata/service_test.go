package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestGetValueMissingKey(t *testing.T) {
	db := setupTestDB(t)
	v, err := GetValue(context.Background(), db, "nope")
	require.NoError(t, err)
	require.Empty(t, v)
}

func TestSetValueUpserts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, SetValue(ctx, db, PolicyKey, "weekly"))
	require.NoError(t, SetValue(ctx, db, PolicyKey, "monthly"))

	v, err := GetValue(ctx, db, PolicyKey)
	require.NoError(t, err)
	require.Equal(t, "monthly", v)

	var count int64
	require.NoError(t, db.Model(&Metadata{}).Where("key = ?", PolicyKey).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestLastBulkResetRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	empty, err := GetLastBulkReset(ctx, db)
	require.NoError(t, err)
	require.True(t, empty.At.IsZero())

	at := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	require.NoError(t, SetLastBulkReset(ctx, db, BulkReset{At: at, SeasonKey: "2024-W01"}))

	got, err := GetLastBulkReset(ctx, db)
	require.NoError(t, err)
	require.True(t, at.Equal(got.At))
	require.Equal(t, "2024-W01", got.SeasonKey)
}
