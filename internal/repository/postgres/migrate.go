package postgres

import (
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate creates the tables this service owns. Order tables belong to
// the order platform and are never migrated from here.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&SegmentRow{}, &CustomerProfileRow{}); err != nil {
		return fmt.Errorf("failed to migrate segment tables: %w", err)
	}
	return nil
}
