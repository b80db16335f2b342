package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hiroki-koketsu/go-taskboard/internal/model"
	"github.com/hiroki-koketsu/go-taskboard/internal/service"
	"github.com/hiroki-koketsu/go-taskboard/internal/taskform"
	"github.com/hiroki-koketsu/go-taskboard/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/go-taskboard/internal/handler")

// TaskHandler handles HTTP requests for tasks.
type TaskHandler struct {
	svc     *service.TaskService
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc *service.TaskService, logger *slog.Logger, metrics *telemetry.Metrics) *TaskHandler {
	return &TaskHandler{
		svc:     svc,
		logger:  logger,
		metrics: metrics,
	}
}

// Routes returns the chi router with task routes.
func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)

	return r
}

// List returns the tasks of the category given by the taskCategoryId query parameter.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	categoryID := r.URL.Query().Get(taskform.FieldTaskCategoryID)

	ctx, span := tracer.Start(ctx, "TaskHandler.List",
		trace.WithAttributes(attribute.String("task.category_id", categoryID)),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "listing tasks", slog.String("category_id", categoryID))

	summaries, err := h.svc.GetList(ctx, taskform.Input{TaskCategoryID: categoryID})
	if err != nil {
		var verrs taskform.ValidationErrors
		if errors.As(err, &verrs) {
			h.respondValidation(w, verrs)
			h.recordMetrics(ctx, "GET", "/api/v1/tasks", http.StatusUnprocessableEntity, start)
			return
		}
		h.logger.ErrorContext(ctx, "failed to list tasks", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "failed to list tasks")
		h.recordMetrics(ctx, "GET", "/api/v1/tasks", http.StatusInternalServerError, start)
		return
	}

	span.SetAttributes(attribute.Int("task.count", len(summaries)))
	h.logger.InfoContext(ctx, "tasks listed", slog.Int("count", len(summaries)))

	h.respondJSON(w, http.StatusOK, summaries)
	h.recordMetrics(ctx, "GET", "/api/v1/tasks", http.StatusOK, start)
}

// Create adds a new task.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.Create")
	defer span.End()

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		h.recordMetrics(ctx, "POST", "/api/v1/tasks", http.StatusBadRequest, start)
		return
	}

	h.logger.InfoContext(ctx, "creating task", slog.String("title", req.Title))

	task, err := h.svc.Add(ctx, req.Input())
	if err != nil {
		var verrs taskform.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			h.respondValidation(w, verrs)
			h.recordMetrics(ctx, "POST", "/api/v1/tasks", http.StatusUnprocessableEntity, start)
		case errors.Is(err, model.ErrTaskCreationFailed):
			h.respondError(w, http.StatusInternalServerError, err.Error())
			h.recordMetrics(ctx, "POST", "/api/v1/tasks", http.StatusInternalServerError, start)
		default:
			h.logger.ErrorContext(ctx, "failed to create task", slog.Any("error", err))
			h.respondError(w, http.StatusInternalServerError, "failed to create task")
			h.recordMetrics(ctx, "POST", "/api/v1/tasks", http.StatusInternalServerError, start)
		}
		return
	}

	span.SetAttributes(attribute.Int64("task.id", int64(task.ID)))
	h.logger.InfoContext(ctx, "task created", slog.Uint64("id", uint64(task.ID)))

	h.respondJSON(w, http.StatusCreated, task)
	h.recordMetrics(ctx, "POST", "/api/v1/tasks", http.StatusCreated, start)
}

// Health returns a health check response.
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *TaskHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func (h *TaskHandler) respondValidation(w http.ResponseWriter, verrs taskform.ValidationErrors) {
	h.respondJSON(w, http.StatusUnprocessableEntity, map[string]map[string][]string{"errors": verrs.Fields()})
}

func (h *TaskHandler) recordMetrics(ctx context.Context, method, route string, status int, start time.Time) {
	duration := time.Since(start).Seconds()

	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)

	h.metrics.RequestCounter.Add(ctx, 1, attrs)
	h.metrics.RequestDuration.Record(ctx, duration, attrs)
}
