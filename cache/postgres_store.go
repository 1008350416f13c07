package cache

import (
	"context"
	"time"

	"github.com/Luismorlan/honeybee/model"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore keeps cache records in the cache_entries table, one row per
// key, upserted on write.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry model.CacheEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	return []byte(entry.Payload), true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	entry := model.CacheEntry{
		Key:       key,
		Payload:   datatypes.JSON(value),
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&model.CacheEntry{}).Error; err != nil {
		return errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	return nil
}
