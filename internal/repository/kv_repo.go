package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/manjushapaul/Crypto-sub001/internal/models"
	"github.com/manjushapaul/Crypto-sub001/lib/errs"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVRepository stores opaque string values by key. Set replaces the value of
// a key in a single write; Delete of a missing key is not an error.
type KVRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type kvRepository struct {
	db *gorm.DB
}

func NewGormKVRepository(db *gorm.DB) KVRepository {
	return &kvRepository{db: db}
}

func (db *kvRepository) Get(ctx context.Context, key string) (string, error) {
	var entry models.KVEntry
	if err := db.db.WithContext(ctx).First(&entry, "entry_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errs.ErrNotFound
		}

		return "", fmt.Errorf("repository.kv.Get: %w", err)
	}
	return entry.Value, nil
}

func (db *kvRepository) Set(ctx context.Context, key, value string) error {
	entry := models.KVEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}

	err := db.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("repository.kv.Set: %w", err)
	}

	return nil
}

func (db *kvRepository) Delete(ctx context.Context, key string) error {
	result := db.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&models.KVEntry{})

	if result.Error != nil {
		return fmt.Errorf("repository.kv.Delete: %w", result.Error)
	}

	return nil
}
