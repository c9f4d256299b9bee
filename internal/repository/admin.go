package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// AdminRow is the singleton admin settings row.
type AdminRow struct {
	ID            uint   `gorm:"primaryKey"`
	Status        bool   `gorm:"not null;default:true"`
	Message       string `gorm:"type:text;not null;default:''"`
	AuthorizedIPs string `gorm:"column:authorized_ips;type:text;not null;default:''"`
}

func (AdminRow) TableName() string { return "admin" }

const adminRowID = 1

type AdminRepositoryInterface interface {
	Fetch(ctx context.Context) (AdminRow, error)
	Update(ctx context.Context, row AdminRow) error
}

type AdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository opens gorm over an existing postgres pool.
func NewAdminRepository(sqlDB *sql.DB) (*AdminRepository, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	return &AdminRepository{db: db}, nil
}

func (r *AdminRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&AdminRow{}); err != nil {
		return fmt.Errorf("migrate admin: %w", err)
	}
	return nil
}

func (r *AdminRepository) Fetch(ctx context.Context) (AdminRow, error) {
	var row AdminRow
	err := r.db.WithContext(ctx).First(&row, adminRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return AdminRow{}, ErrNotFound
	}
	if err != nil {
		return AdminRow{}, fmt.Errorf("fetch admin row: %w", err)
	}
	return row, nil
}

// Update writes the singleton row, creating it when missing.
func (r *AdminRepository) Update(ctx context.Context, row AdminRow) error {
	row.ID = adminRowID
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("update admin row: %w", err)
	}
	return nil
}

func JoinIPs(ips []string) string { return strings.Join(ips, ",") }

func SplitIPs(s string) []string {
	var out []string
	for _, ip := range strings.Split(s, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			out = append(out, ip)
		}
	}
	return out
}
