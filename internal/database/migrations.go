package database

import (
	"rentflow/internal/models"
	"rentflow/pkg/logger"
)

// Models lists every table owned by this service, in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.TenancyApplication{},
		&models.Inspection{},
		&models.Room{},
		&models.Element{},
		&models.Photo{},
		&models.Meter{},
		&models.Key{},
		&models.Amendment{},
	}
}

// MigrateModels runs GORM AutoMigrate for all models
func (db *DB) MigrateModels() error {
	log := logger.New("database").Function("MigrateModels")
	log.Info("Starting database migration")

	for _, model := range Models() {
		if err := db.SQL.AutoMigrate(model); err != nil {
			return log.Err("Failed to migrate model", err, "model", model)
		}
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CreateIndexes creates additional indexes that GORM doesn't create automatically
func (db *DB) CreateIndexes() error {
	log := logger.New("database").Function("CreateIndexes")
	log.Info("Creating additional database indexes")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_inspections_pending_export ON inspections(occupant_signed_at) WHERE status = 'SIGNED' AND artifact_url IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_amendments_inspection_created ON amendments(inspection_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_rooms_inspection_position ON rooms(inspection_id, position)",
	}

	for _, indexSQL := range indexes {
		if err := db.SQL.Exec(indexSQL).Error; err != nil {
			log.Warn("Failed to create index", "sql", indexSQL, "error", err)
		}
	}

	log.Info("Additional database indexes created")
	return nil
}
