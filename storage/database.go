package storage

import (
	"fmt"

	"scholarlens/config"
	"scholarlens/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteDSN baut den DSN für eine SQLite-Datei mit aktivierten Fremdschlüsseln.
// Schreibende Transaktionen sperren sofort, damit parallele Upserts serialisiert werden.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
}

// OpenDatabase öffnet die Datenbank je nach DB_DRIVER.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(SQLiteDSN(cfg.SQLitePath))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
	return open(dialector, cfg.DBDriver == "sqlite")
}

// OpenSQLite öffnet eine SQLite-Datei direkt, z.B. für Tests.
func OpenSQLite(path string) (*gorm.DB, error) {
	return open(sqlite.Open(SQLiteDSN(path)), true)
}

func open(dialector gorm.Dialector, singleWriter bool) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if singleWriter {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate legt alle Tabellen samt Constraints an bzw. aktualisiert sie.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
