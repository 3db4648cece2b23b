package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Generic Accessors ---

// GetValue retrieves a value for a given key from the metadata table.
func GetValue(ctx context.Context, db *gorm.DB, key string) (string, error) {
	var meta Metadata
	err := db.WithContext(ctx).Where("key = ?", key).First(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A missing key reads as empty.
			return "", nil
		}
		return "", err
	}
	return meta.Value, nil
}

// SetValue upserts key.
func SetValue(ctx context.Context, db *gorm.DB, key, value string) error {
	meta := Metadata{
		Key:   key,
		Value: value,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error
}

// --- Season checkpoint helpers ---

// BulkReset describes the last committed scheduled reset.
type BulkReset struct {
	At        time.Time
	SeasonKey string
}

// GetLastBulkReset returns the zero value when no scheduled reset has
// completed yet.
func GetLastBulkReset(ctx context.Context, db *gorm.DB) (BulkReset, error) {
	var out BulkReset
	at, err := GetValue(ctx, db, LastBulkResetAtKey)
	if err != nil {
		return out, err
	}
	if at != "" {
		out.At, err = time.Parse(time.RFC3339, at)
		if err != nil {
			return out, fmt.Errorf("failed to parse metadata '%s': %w", LastBulkResetAtKey, err)
		}
	}
	out.SeasonKey, err = GetValue(ctx, db, LastBulkResetSeasonKey)
	return out, err
}

// SetLastBulkReset records both checkpoint keys in one transaction.
func SetLastBulkReset(ctx context.Context, db *gorm.DB, reset BulkReset) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := SetValue(ctx, tx, LastBulkResetAtKey, reset.At.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
		return SetValue(ctx, tx, LastBulkResetSeasonKey, reset.SeasonKey)
	})
}
