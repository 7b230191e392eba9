package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"research_portal_api/models"
)

// DSNFromParts builds a key/value DSN from the DB_* settings.
func DSNFromParts(host, user, password, name, port string) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, name, port,
	)
}

func ConnectDB(dsn string, debug bool) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn), TranslateError: true}
	if debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}
	conn, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, nil
}

func Migrate(db *gorm.DB) error {
	all := append([]any{&models.User{}, &models.InventoryItem{}, &models.Loan{}}, models.PublicationModels()...)
	if err := db.AutoMigrate(all...); err != nil {
		return err
	}

	// 同一物品最多一条未归还的借用
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_per_item
	  ON %s (item_id)
	  WHERE return_date IS NULL;
	`, models.LoanTable, models.LoanTable)).Error; err != nil {
		return err
	}

	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_open_due
	  ON %s (due_date)
	  WHERE return_date IS NULL;
	`, models.LoanTable, models.LoanTable)).Error; err != nil {
		return err
	}

	return db.Exec(fmt.Sprintf(
		`CREATE SEQUENCE IF NOT EXISTS %s START 1`, models.ItemSerialSequence,
	)).Error
}
