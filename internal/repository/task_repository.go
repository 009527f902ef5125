package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/internal/metrics"
	"taskflow/internal/model"
)

// TaskRepository handles CRUD for tasks. Every call is scoped to an owner.
type TaskRepository struct {
	db   *gorm.DB
	feed *Feed
}

func NewTaskRepository(db *gorm.DB, feed *Feed) *TaskRepository {
	return &TaskRepository{db: db, feed: feed}
}

// ListByUser returns the user's tasks, newest first.
func (r *TaskRepository) ListByUser(ctx context.Context, userID string) (tasks []model.Task, err error) {
	defer observe(model.TableTasks, "select", &err)

	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, wrap("list tasks", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID string) (_ *model.Task, err error) {
	defer observe(model.TableTasks, "select", &err)

	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, wrap("find task", err)
	}
	return &task, nil
}

// Create inserts the task and fills in the generated id and timestamps.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) (err error) {
	defer observe(model.TableTasks, "insert", &err)

	if task.UserID == "" {
		return invalid("create task", "owner is required")
	}
	if strings.TrimSpace(task.Title) == "" {
		return invalid("create task", "title is required")
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = model.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}

	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return wrap("create task", err)
	}
	r.feed.Publish(model.ChangeEvent{Table: model.TableTasks, Type: model.ChangeInsert, UserID: task.UserID, RowID: task.ID})
	return nil
}

// Update writes the non-nil fields of patch and returns the stored row.
func (r *TaskRepository) Update(ctx context.Context, userID, taskID string, patch model.TaskPatch) (_ *model.Task, err error) {
	defer observe(model.TableTasks, "update", &err)

	if patch.Empty() {
		return nil, invalid("update task", "nothing to update")
	}
	if patch.UpdatedAt.IsZero() {
		patch.UpdatedAt = time.Now()
	}

	db := r.db.WithContext(ctx)
	res := db.Model(&model.Task{}).Where("user_id = ? AND id = ?", userID, taskID).Updates(patch.Columns())
	if res.Error != nil {
		return nil, wrap("update task", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound("update task")
	}

	var task model.Task
	if err := db.Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, wrap("update task", err)
	}
	r.feed.Publish(model.ChangeEvent{Table: model.TableTasks, Type: model.ChangeUpdate, UserID: userID, RowID: taskID})
	return &task, nil
}

// Delete removes a task for the given user.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID string) (err error) {
	defer observe(model.TableTasks, "delete", &err)

	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return wrap("delete task", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("delete task")
	}
	r.feed.Publish(model.ChangeEvent{Table: model.TableTasks, Type: model.ChangeDelete, UserID: userID, RowID: taskID})
	return nil
}

func observe(table, op string, err *error) {
	metrics.RemoteCalls.WithLabelValues(table, op, metrics.Result(*err)).Inc()
}
