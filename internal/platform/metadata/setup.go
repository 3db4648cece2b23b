package metadata

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates the metadata table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Metadata{}); err != nil {
		return fmt.Errorf("failed to migrate metadata table: %w", err)
	}
	return nil
}
