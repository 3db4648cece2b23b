package metadata

import "gorm.io/gorm"

// Metadata is a key/value row for system checkpoints.
type Metadata struct {
	gorm.Model

	Key   string `gorm:"uniqueIndex;not null;type:varchar(255)"`
	Value string `gorm:"type:varchar(255)"`
}
