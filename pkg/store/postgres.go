package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres implements Store on a GORM database handle.
type Postgres struct {
	db *gorm.DB
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps an open GORM handle.
func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates or updates the bot's tables.
func (p *Postgres) Migrate() error {
	if err := p.db.AutoMigrate(&Registered{}, &Greeted{}, &Job{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (p *Postgres) FindRegistered(ctx context.Context, uniqueID string) (*Registered, error) {
	var rec Registered
	err := p.db.WithContext(ctx).Where("unique_id = ?", uniqueID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find registration %s: %w", uniqueID, err)
	}
	return &rec, nil
}

func (p *Postgres) UpsertRegistered(ctx context.Context, rec *Registered) error {
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "unique_id"}},
		UpdateAll: true,
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert registration %s: %w", rec.UniqueID, err)
	}
	return nil
}

func (p *Postgres) WasGreeted(ctx context.Context, uniqueID string) (bool, error) {
	var count int64
	err := p.db.WithContext(ctx).Model(&Greeted{}).
		Where("unique_id = ?", uniqueID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check greeting for %s: %w", uniqueID, err)
	}
	return count > 0, nil
}

func (p *Postgres) MarkGreeted(ctx context.Context, uniqueID string) error {
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "unique_id"}},
		DoNothing: true,
	}).Create(&Greeted{UniqueID: uniqueID}).Error
	if err != nil {
		return fmt.Errorf("failed to mark %s greeted: %w", uniqueID, err)
	}
	return nil
}

func (p *Postgres) ListJobs(ctx context.Context) ([]Job, error) {
	var jobs []Job
	if err := p.db.WithContext(ctx).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}
