package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// blobRecord is the single table the gorm-backed store uses: one row per
// collection key, the value being the serialized collection.
type blobRecord struct {
	Key       string `gorm:"primaryKey;column:key"`
	Value     []byte `gorm:"column:value"`
	UpdatedAt time.Time
}

func (blobRecord) TableName() string {
	return "blobs"
}

// GormKV persists blobs through gorm. The driver is selected by name so the
// same store runs on a local sqlite file or a postgres DSN.
type GormKV struct {
	db *gorm.DB
}

func OpenGormKV(driver, dsn string) (*GormKV, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", driver, err)
	}
	if err := db.AutoMigrate(&blobRecord{}); err != nil {
		return nil, fmt.Errorf("migrate blob table: %w", err)
	}
	return &GormKV{db: db}, nil
}

func (g *GormKV) Get(ctx context.Context, key string) ([]byte, error) {
	var rec blobRecord
	err := g.db.WithContext(ctx).Where("key = ?", key).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return rec.Value, nil
}

func (g *GormKV) Put(ctx context.Context, key string, value []byte) error {
	rec := blobRecord{Key: key, Value: value, UpdatedAt: time.Now()}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (g *GormKV) Delete(ctx context.Context, key string) error {
	err := g.db.WithContext(ctx).Where("key = ?", key).Delete(&blobRecord{}).Error
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (g *GormKV) Health(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (g *GormKV) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
