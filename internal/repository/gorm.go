package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hiroki-koketsu/go-taskboard/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// GormRepository stores tasks in a relational database.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GormRepository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// FindWorkers returns the workers whose primary key is in ids.
func (r *GormRepository) FindWorkers(ctx context.Context, ids []int64) ([]model.Worker, error) {
	ctx, span := tracer.Start(ctx, "GormRepository.FindWorkers",
		trace.WithAttributes(attribute.Int("worker.requested", len(ids))),
	)
	defer span.End()

	workers := make([]model.Worker, 0, len(ids))
	if len(ids) == 0 {
		return workers, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&workers).Error; err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}

	span.SetAttributes(attribute.Int("worker.found", len(workers)))
	return workers, nil
}

// FindCategory retrieves a task category and its project. It returns nil when absent.
func (r *GormRepository) FindCategory(ctx context.Context, id int64) (*model.TaskCategory, error) {
	ctx, span := tracer.Start(ctx, "GormRepository.FindCategory",
		trace.WithAttributes(attribute.Int64("category.id", id)),
	)
	defer span.End()

	var category model.TaskCategory
	err := r.db.WithContext(ctx).Preload("Project").First(&category, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		span.SetAttributes(attribute.Bool("category.found", false))
		return nil, nil
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query task category: %w", err)
	}

	span.SetAttributes(attribute.Bool("category.found", true))
	return &category, nil
}

// Create inserts task and sets its ID.
func (r *GormRepository) Create(ctx context.Context, task *model.Task) error {
	ctx, span := tracer.Start(ctx, "GormRepository.Create",
		trace.WithAttributes(attribute.String("task.title", task.Title)),
	)
	defer span.End()

	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to insert task: %w", err)
	}

	span.SetAttributes(attribute.Int64("task.id", int64(task.ID)))
	return nil
}

// FindTasks returns the tasks matching filter ordered by ID, each with its workers.
func (r *GormRepository) FindTasks(ctx context.Context, filter model.TaskFilter) ([]model.TaskRecord, error) {
	ctx, span := tracer.Start(ctx, "GormRepository.FindTasks",
		trace.WithAttributes(
			attribute.Int64("task.project_id", int64(filter.ProjectID)),
			attribute.Int64("task.category_id", int64(filter.TaskCategoryID)),
		),
	)
	defer span.End()

	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND task_category_id = ?", filter.ProjectID, filter.TaskCategoryID).
		Order("id").
		Find(&tasks).Error
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}

	records := make([]model.TaskRecord, 0, len(tasks))
	for _, task := range tasks {
		workers, err := r.FindWorkers(ctx, toInt64s(task.WorkerIDList()))
		if err != nil {
			return nil, err
		}
		records = append(records, model.TaskRecord{Task: task, Workers: workers})
	}

	span.SetAttributes(attribute.Int("task.count", len(records)))
	return records, nil
}

// Count returns the current number of tasks, or 0 when the count query fails.
func (r *GormRepository) Count() int64 {
	var n int64
	if err := r.db.Model(&model.Task{}).Count(&n).Error; err != nil {
		return 0
	}
	return n
}
