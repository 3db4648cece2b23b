// Package startup prepares the database before the server takes traffic.
package startup

import (
	"context"
	"fmt"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/metadata"
	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"gorm.io/gorm"
)

// InitializeApplication migrates every table and records the season policy.
func InitializeApplication(ctx context.Context, db *gorm.DB, policy season.Policy, log *logger.Logger) error {
	log.Info("initializing application")

	if err := store.Migrate(db); err != nil {
		return err
	}
	if err := metadata.Migrate(db); err != nil {
		return err
	}
	if err := RecordPolicy(ctx, db, policy, log); err != nil {
		return err
	}

	log.Info("application initialized", "policy", policy.Name())
	return nil
}

// RecordPolicy stores the active policy name. Switching policy on existing
// data is allowed but logged: lastResetAt values written under the old
// policy are reinterpreted by the new one on the next profile load.
func RecordPolicy(ctx context.Context, db *gorm.DB, policy season.Policy, log *logger.Logger) error {
	previous, err := metadata.GetValue(ctx, db, metadata.PolicyKey)
	if err != nil {
		return fmt.Errorf("failed to read season policy metadata: %w", err)
	}
	if previous != "" && previous != policy.Name() {
		log.Warn("season policy changed since last start", "previous", previous, "current", policy.Name())
	}
	if previous == policy.Name() {
		return nil
	}
	return metadata.SetValue(ctx, db, metadata.PolicyKey, policy.Name())
}
