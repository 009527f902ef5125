package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/internal/model"
)

// UserRepository provisions identities. Authentication itself happens elsewhere;
// this only maps an external account onto a stable user id.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertFromTelegram finds or creates a user based on TelegramID and refreshes the display name.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error) {
	name := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	if name == "" {
		name = username
	}

	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		if user.DisplayName != name {
			if err := db.Model(&user).Update("display_name", name).Error; err != nil {
				return nil, wrap("update user", err)
			}
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		tid := telegramID
		user = model.User{
			ID:          uuid.NewString(),
			TelegramID:  &tid,
			DisplayName: name,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, wrap("create user", err)
		}
		return &user, nil
	default:
		return nil, wrap("find user", err)
	}
}

// EnsureByEmail returns the user with that email, creating it on first use.
func (r *UserRepository) EnsureByEmail(ctx context.Context, email, displayName string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, invalid("ensure user", "a valid email is required")
	}

	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{ID: uuid.NewString(), Email: email, DisplayName: strings.TrimSpace(displayName)}
		if err := db.Create(&user).Error; err != nil {
			return nil, wrap("create user", err)
		}
		return &user, nil
	default:
		return nil, wrap("find user", err)
	}
}

// Session returns the identity for a user id.
func (r *UserRepository) Session(ctx context.Context, userID string) (model.Identity, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return model.Identity{}, wrap("get session", err)
	}
	return user.Identity(), nil
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, wrap("find user", err)
	}
	return &user, nil
}

// ListTelegram returns users reachable through the bot.
func (r *UserRepository) ListTelegram(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("telegram_id IS NOT NULL").Find(&users).Error; err != nil {
		return nil, wrap("list users", err)
	}
	return users, nil
}
