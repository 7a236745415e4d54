package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// The ingestion pipeline owns this schema; these statements only bootstrap an
// empty database with the layout the repository reads.
var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS {{table}} (
		id                 UUID PRIMARY KEY,
		plate_number       TEXT,
		raw_text           TEXT,
		confidence         DOUBLE PRECISION,
		ocr_engine         TEXT,
		"timestamp"        TIMESTAMP,
		created_at         TIMESTAMP,
		frame_coords       JSONB,
		vehicle_coords     JSONB,
		vehicle_confidence DOUBLE PRECISION,
		vehicle_class      INT,
		image_saved        BOOLEAN,
		plate_image        TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_{{table}}_timestamp ON {{table}}("timestamp" DESC, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_{{table}}_effective_ts ON {{table}}((COALESCE("timestamp", created_at)));`,
	`CREATE INDEX IF NOT EXISTS idx_{{table}}_plate_number ON {{table}}(plate_number);`,
	`CREATE INDEX IF NOT EXISTS idx_{{table}}_ocr_engine ON {{table}}(ocr_engine);`,
}

func runMigrations(db *gorm.DB, table string) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(strings.ReplaceAll(stmt, "{{table}}", table)).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
