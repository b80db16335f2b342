package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hiroki-koketsu/go-taskboard/internal/model"
	"github.com/hiroki-koketsu/go-taskboard/internal/taskform"
	"github.com/hiroki-koketsu/go-taskboard/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/go-taskboard/internal/service")

// TaskStore persists tasks and lists them with their workers.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	FindTasks(ctx context.Context, filter model.TaskFilter) ([]model.TaskRecord, error)
}

// TaskService creates and lists tasks after validating their input.
type TaskService struct {
	form    *taskform.Form
	store   TaskStore
	logger  *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// Option configures a TaskService.
type Option func(*TaskService)

// WithClock overrides the clock used for a task's add time.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) {
		s.now = now
	}
}

// NewTaskService creates a new TaskService.
func NewTaskService(form *taskform.Form, store TaskStore, logger *slog.Logger, metrics *telemetry.Metrics, opts ...Option) *TaskService {
	s := &TaskService{
		form:    form,
		store:   store,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add validates in and persists a new task built from it. Invalid input
// yields taskform.ValidationErrors; a failed write yields model.ErrTaskCreationFailed.
func (s *TaskService) Add(ctx context.Context, in taskform.Input) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Add")
	defer span.End()

	res, err := s.validate(ctx, in, taskform.ScenarioAdd)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	task := newTask(res, s.now())
	if err := s.store.Create(ctx, task); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist task", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, model.ErrTaskCreationFailed.Error())
		return nil, model.ErrTaskCreationFailed
	}

	s.metrics.TasksCreated.Add(ctx, 1, metric.WithAttributes(
		attribute.Int64("task.project_id", int64(task.ProjectID)),
	))
	span.SetAttributes(
		attribute.Int64("task.id", int64(task.ID)),
		attribute.String("taskform.state", taskform.StateAssembled.String()),
	)
	s.logger.InfoContext(ctx, "task added",
		slog.Uint64("id", uint64(task.ID)),
		slog.Uint64("project_id", uint64(task.ProjectID)),
		slog.Int("workers", len(res.Workers)),
	)
	return task, nil
}

// GetList validates the category filter in in and returns the summaries of the
// matching tasks in store order.
func (s *TaskService) GetList(ctx context.Context, in taskform.Input) ([]model.TaskSummary, error) {
	ctx, span := tracer.Start(ctx, "TaskService.GetList")
	defer span.End()

	res, err := s.validate(ctx, in, taskform.ScenarioList)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	records, err := s.store.FindTasks(ctx, model.TaskFilter{
		ProjectID:      res.Category.ProjectID,
		TaskCategoryID: res.Category.ID,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to find tasks", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	summaries := make([]model.TaskSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, summarize(rec))
	}

	span.SetAttributes(
		attribute.Int("task.count", len(summaries)),
		attribute.String("taskform.state", taskform.StateQueried.String()),
	)
	return summaries, nil
}

func (s *TaskService) validate(ctx context.Context, in taskform.Input, scenario taskform.Scenario) (*taskform.Resolved, error) {
	res, err := s.form.Validate(ctx, in, scenario)
	if err == nil {
		return res, nil
	}

	var verrs taskform.ValidationErrors
	if !errors.As(err, &verrs) {
		s.logger.ErrorContext(ctx, "task validation could not complete",
			slog.String("scenario", string(scenario)),
			slog.Any("error", err),
		)
		return nil, err
	}

	for _, fe := range verrs {
		s.metrics.ValidationFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("scenario", string(scenario)),
			attribute.String("field", fe.Field),
			attribute.String("kind", fe.Kind.String()),
		))
	}
	s.logger.WarnContext(ctx, "task validation failed",
		slog.String("scenario", string(scenario)),
		slog.Int("errors", len(verrs)),
	)
	return nil, verrs
}

// newTask maps a resolved ADD input onto a task entity.
func newTask(res *taskform.Resolved, now time.Time) *model.Task {
	task := &model.Task{
		ProjectID:      res.Category.ProjectID,
		TaskCategoryID: res.Category.ID,
		Title:          res.Title,
		Detail:         res.Detail,
		WorkerIDs:      model.JoinIDList(res.WorkerIDs),
		LimitTime:      res.LimitTime,
		AddTime:        now,
	}
	if len(res.RelatedMemberIDs) > 0 {
		related := model.JoinIDList(res.RelatedMemberIDs)
		task.RelatedMemberIDs = &related
	}
	return task
}

func summarize(rec model.TaskRecord) model.TaskSummary {
	workers := make([]model.WorkerProfile, 0, len(rec.Workers))
	for _, w := range rec.Workers {
		workers = append(workers, w.Profile())
	}
	return model.TaskSummary{
		ID:        rec.Task.ID,
		Title:     rec.Task.Title,
		LimitTime: rec.Task.LimitTime,
		Workers:   workers,
	}
}
