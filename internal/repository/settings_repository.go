package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/internal/model"
)

// SettingsRepository stores one settings row per user.
type SettingsRepository struct {
	db   *gorm.DB
	feed *Feed
}

func NewSettingsRepository(db *gorm.DB, feed *Feed) *SettingsRepository {
	return &SettingsRepository{db: db, feed: feed}
}

// Get returns the user's row, or an Error with CodeNotFound.
func (r *SettingsRepository) Get(ctx context.Context, userID string) (_ *model.UserSettings, err error) {
	defer observe(model.TableSettings, "select", &err)

	var settings model.UserSettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return nil, wrap("get settings", err)
	}
	return &settings, nil
}

// Create inserts the row. A second row for the same user is a conflict.
func (r *SettingsRepository) Create(ctx context.Context, settings *model.UserSettings) (err error) {
	defer observe(model.TableSettings, "insert", &err)

	if settings.UserID == "" {
		return invalid("create settings", "owner is required")
	}
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(settings).Error; err != nil {
		return wrap("create settings", err)
	}
	r.feed.Publish(model.ChangeEvent{Table: model.TableSettings, Type: model.ChangeInsert, UserID: settings.UserID, RowID: settings.ID})
	return nil
}

func (r *SettingsRepository) Update(ctx context.Context, userID string, patch model.SettingsPatch) (_ *model.UserSettings, err error) {
	defer observe(model.TableSettings, "update", &err)

	cols := patch.Columns()
	if len(cols) == 0 {
		return nil, invalid("update settings", "nothing to update")
	}
	db := r.db.WithContext(ctx)
	res := db.Model(&model.UserSettings{}).Where("user_id = ?", userID).Updates(cols)
	if res.Error != nil {
		return nil, wrap("update settings", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound("update settings")
	}

	var settings model.UserSettings
	if err := db.Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return nil, wrap("update settings", err)
	}
	r.feed.Publish(model.ChangeEvent{Table: model.TableSettings, Type: model.ChangeUpdate, UserID: userID, RowID: settings.ID})
	return &settings, nil
}
