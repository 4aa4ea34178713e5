package reports

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// GormStore keeps summaries in MySQL.
type GormStore struct {
	db *gorm.DB
}

// OpenMySQL connects to dsn, configures the pool and migrates the schema.
func OpenMySQL(dsn string) (*GormStore, error) {
	return open(mysql.Open(dsn))
}

func open(dialector gorm.Dialector) (*GormStore, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               gormLogger,
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := NewGormStore(db)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// NewGormStore migrates the summary table on db.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Summary{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Save inserts s.
func (g *GormStore) Save(ctx context.Context, s *Summary) error {
	if err := g.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("failed to save report summary: %w", err)
	}
	return nil
}

// List returns up to limit summaries, newest first.
func (g *GormStore) List(ctx context.Context, limit int) ([]Summary, error) {
	limit = clampLimit(limit)

	var out []Summary
	err := g.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list report summaries: %w", err)
	}
	if out == nil {
		out = []Summary{}
	}
	return out, nil
}

// Close releases the connection pool.
func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}
