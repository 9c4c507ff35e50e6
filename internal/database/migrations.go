package database

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/rmitchellscott/chartserver/internal/logging"
)

// RunMigrations runs any pending database migrations using gormigrate
func RunMigrations(db *gorm.DB) error {
	logging.DebugWithComponent(logging.ComponentDatabase, "Running database migrations")

	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202601150000_create_render_logs",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&RenderLog{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("render_logs")
			},
		},
		{
			ID: "202601150001_add_render_logs_chart_created_index",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasIndex(&RenderLog{}, "idx_render_logs_chart_created") {
					return nil
				}
				return tx.Exec("CREATE INDEX idx_render_logs_chart_created ON render_logs (chart, created_at)").Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropIndex(&RenderLog{}, "idx_render_logs_chart_created")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Columns added to models after the last migration.
	for _, model := range GetAllModels() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	logging.DebugWithComponent(logging.ComponentDatabase, "Database migrations completed")
	return nil
}
