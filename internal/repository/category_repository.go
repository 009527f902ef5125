package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/internal/model"
)

// CategoryRepository manages task categories.
type CategoryRepository struct {
	db   *gorm.DB
	feed *Feed
}

func NewCategoryRepository(db *gorm.DB, feed *Feed) *CategoryRepository {
	return &CategoryRepository{db: db, feed: feed}
}

func (r *CategoryRepository) ListByUser(ctx context.Context, userID string) (categories []model.Category, err error) {
	defer observe(model.TableCategories, "select", &err)

	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, wrap("list categories", err)
	}
	return categories, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) (err error) {
	defer observe(model.TableCategories, "insert", &err)

	if category.UserID == "" {
		return invalid("create category", "owner is required")
	}
	if strings.TrimSpace(category.Name) == "" {
		return invalid("create category", "name is required")
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return wrap("create category", err)
	}
	r.feed.Publish(model.ChangeEvent{Table: model.TableCategories, Type: model.ChangeInsert, UserID: category.UserID, RowID: category.ID})
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, userID, id string, patch model.CategoryPatch) (_ *model.Category, err error) {
	defer observe(model.TableCategories, "update", &err)

	cols := patch.Columns()
	if len(cols) == 0 {
		return nil, invalid("update category", "nothing to update")
	}
	db := r.db.WithContext(ctx)
	res := db.Model(&model.Category{}).Where("user_id = ? AND id = ?", userID, id).Updates(cols)
	if res.Error != nil {
		return nil, wrap("update category", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound("update category")
	}

	var category model.Category
	if err := db.Where("user_id = ? AND id = ?", userID, id).First(&category).Error; err != nil {
		return nil, wrap("update category", err)
	}
	r.feed.Publish(model.ChangeEvent{Table: model.TableCategories, Type: model.ChangeUpdate, UserID: userID, RowID: id})
	return &category, nil
}

// Delete removes the category only. Tasks keep whatever name they carry.
func (r *CategoryRepository) Delete(ctx context.Context, userID, id string) (err error) {
	defer observe(model.TableCategories, "delete", &err)

	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&model.Category{})
	if res.Error != nil {
		return wrap("delete category", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("delete category")
	}
	r.feed.Publish(model.ChangeEvent{Table: model.TableCategories, Type: model.ChangeDelete, UserID: userID, RowID: id})
	return nil
}
