package sqlite

import (
	"fmt"
	"log/slog"

	"github.com/manjushapaul/Crypto-sub001/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage is a single-file database, the default for running the dashboard
// on one machine.
type Storage struct {
	DB *gorm.DB
}

// New opens or creates the database file at path in WAL mode and migrates
// the key/value table.
func New(path string, log *slog.Logger) (*Storage, error) {
	const op = "storage.sqlite.New"

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
		return nil, fmt.Errorf("%s: failed to enable WAL: %w", op, err)
	}

	if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
		return nil, fmt.Errorf("%s: failed to migrate database: %w", op, err)
	}

	log.Info("opened sqlite database", "path", path)

	return &Storage{DB: db}, nil
}

func (s *Storage) Stop() error {
	db, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db connection: %w", err)
	}
	return db.Close()
}
