package storage

import (
	"errors"
	"fmt"
	"time"

	"crypto_dash/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// MemoryDSN keeps the metadata cache in process memory so nothing outlives the dashboard.
const MemoryDSN = ":memory:"

// Storage is the per-dashboard metadata cache (asset id -> name, icon).
type Storage struct {
	db *gorm.DB
}

// NewStorage opens the metadata cache. An empty dsn means MemoryDSN.
func NewStorage(dsn string) (*Storage, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Every pooled connection to :memory: would see its own empty database
	if dsn == MemoryDSN {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.CoinInfo{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the database. For MemoryDSN this discards the cache.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Coin Operations
// ======================================================================================

// UpsertCoins records metadata for a snapshot page, keeping any icon already synced.
func (s *Storage) UpsertCoins(coins []*domain.CoinInfo) error {
	if len(coins) == 0 {
		return nil
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"symbol", "name", "image_ref", "updated_at"}),
	}).Create(coins).Error
}

// GetCoin retrieves coin metadata by id
func (s *Storage) GetCoin(id string) (*domain.CoinInfo, error) {
	var coin domain.CoinInfo
	err := s.db.First(&coin, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &coin, nil
}

// GetAllCoins retrieves all coins
func (s *Storage) GetAllCoins() ([]domain.CoinInfo, error) {
	var coins []domain.CoinInfo
	err := s.db.Order("id").Find(&coins).Error
	return coins, err
}

// CoinsMissingIcon lists coins that have an image ref but no local icon yet.
func (s *Storage) CoinsMissingIcon() ([]domain.CoinInfo, error) {
	var coins []domain.CoinInfo
	err := s.db.Where("icon_path = ? AND image_ref <> ?", "", "").Order("id").Find(&coins).Error
	return coins, err
}

// SetIconPath stores the local icon path for a coin
func (s *Storage) SetIconPath(id, path string) error {
	return s.db.Model(&domain.CoinInfo{}).Where("id = ?", id).Updates(map[string]any{
		"icon_path":      path,
		"last_synced_at": time.Now(),
	}).Error
}

// DeleteCoin drops a coin that left the displayed list
func (s *Storage) DeleteCoin(id string) error {
	return s.db.Where("id = ?", id).Delete(&domain.CoinInfo{}).Error
}
