package schema

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func allModels() []interface{} {
	return []interface{}{&User{}, &Program{}, &Study{}, &Milestone{}}
}

// Migrate brings the database up to the latest schema version. New versions
// must be appended to the list, never reordered.
func Migrate(db *gorm.DB) error {
	migrations := []*gormigrate.Migration{
		{
			ID: "20250114_upcoming_milestones_index",
			Migrate: func(txn *gorm.DB) error {
				return txn.Exec("CREATE INDEX IF NOT EXISTS idx_milestones_status_planned_date ON milestones(status, planned_date)").Error
			},
			Rollback: func(txn *gorm.DB) error {
				return txn.Exec("DROP INDEX IF EXISTS idx_milestones_status_planned_date").Error
			},
		},
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations)

	// InitSchema marks the versioned migrations as applied, so a fresh
	// database must also get everything those versions add.
	m.InitSchema(func(txn *gorm.DB) error {
		if err := txn.AutoMigrate(allModels()...); err != nil {
			return err
		}
		return txn.Exec("CREATE INDEX IF NOT EXISTS idx_milestones_status_planned_date ON milestones(status, planned_date)").Error
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("error migrating db schema: %w", err)
	}

	// AutoMigrate is idempotent and picks up column additions on models that
	// predate a dedicated migration version.
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("error syncing db schema: %w", err)
	}

	return nil
}
