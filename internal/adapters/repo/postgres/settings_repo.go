package postgres

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pattadon/petshop/internal/domain"
)

// Setting is the generic admin key/value row backing thresholds and the
// pickup window.
type Setting struct {
	Key       string `gorm:"primaryKey;size:80"`
	Value     string `gorm:"size:255"`
	UpdatedAt time.Time
}

type SettingsRepo struct{ db *gorm.DB }

func NewSettingsRepo(db *gorm.DB) *SettingsRepo { return &SettingsRepo{db: db} }

func (r *SettingsRepo) Get(ctx context.Context, key string) (string, error) {
	var s Setting
	if err := r.db.WithContext(ctx).First(&s, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrNotFound
		}
		return "", pkgerrors.Wrap(err, "get setting")
	}
	return s.Value, nil
}

func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	return pkgerrors.Wrap(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Setting{Key: key, Value: value}).Error, "set setting")
}
