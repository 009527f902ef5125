package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/internal/model"
)

// ProfileRepository stores one profile row per user.
type ProfileRepository struct {
	db   *gorm.DB
	feed *Feed
}

func NewProfileRepository(db *gorm.DB, feed *Feed) *ProfileRepository {
	return &ProfileRepository{db: db, feed: feed}
}

func (r *ProfileRepository) Get(ctx context.Context, userID string) (_ *model.UserProfile, err error) {
	defer observe(model.TableProfiles, "select", &err)

	var profile model.UserProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, wrap("get profile", err)
	}
	return &profile, nil
}

func (r *ProfileRepository) Create(ctx context.Context, profile *model.UserProfile) (err error) {
	defer observe(model.TableProfiles, "insert", &err)

	if profile.UserID == "" {
		return invalid("create profile", "owner is required")
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return wrap("create profile", err)
	}
	r.feed.Publish(model.ChangeEvent{Table: model.TableProfiles, Type: model.ChangeInsert, UserID: profile.UserID, RowID: profile.ID})
	return nil
}

func (r *ProfileRepository) Update(ctx context.Context, userID string, patch model.ProfilePatch) (_ *model.UserProfile, err error) {
	defer observe(model.TableProfiles, "update", &err)

	cols := patch.Columns()
	if len(cols) == 0 {
		return nil, invalid("update profile", "nothing to update")
	}
	db := r.db.WithContext(ctx)
	res := db.Model(&model.UserProfile{}).Where("user_id = ?", userID).Updates(cols)
	if res.Error != nil {
		return nil, wrap("update profile", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound("update profile")
	}

	var profile model.UserProfile
	if err := db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, wrap("update profile", err)
	}
	r.feed.Publish(model.ChangeEvent{Table: model.TableProfiles, Type: model.ChangeUpdate, UserID: userID, RowID: profile.ID})
	return &profile, nil
}
