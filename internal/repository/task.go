package repository

import (
	"context"
	"sync"

	"github.com/hiroki-koketsu/go-taskboard/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/go-taskboard/internal/repository")

// MemoryRepository provides in-memory storage for tasks and the entities they reference.
type MemoryRepository struct {
	mu         sync.RWMutex
	tasks      map[uint]*model.Task
	order      []uint
	nextID     uint
	workers    map[uint]model.Worker
	categories map[uint]model.TaskCategory
}

// NewMemoryRepository creates a new MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tasks:      make(map[uint]*model.Task),
		workers:    make(map[uint]model.Worker),
		categories: make(map[uint]model.TaskCategory),
	}
}

// PutWorker adds or replaces a worker.
func (r *MemoryRepository) PutWorker(w model.Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[w.ID] = w
}

// PutCategory adds or replaces a task category.
func (r *MemoryRepository) PutCategory(c model.TaskCategory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[c.ID] = c
}

// FindWorkers returns the workers matching ids in the order the ids are given.
// Unknown and duplicate ids are skipped.
func (r *MemoryRepository) FindWorkers(ctx context.Context, ids []int64) ([]model.Worker, error) {
	_, span := tracer.Start(ctx, "MemoryRepository.FindWorkers",
		trace.WithAttributes(attribute.Int("worker.requested", len(ids))),
	)
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	workers := r.findWorkersLocked(ids)
	span.SetAttributes(attribute.Int("worker.found", len(workers)))
	return workers, nil
}

func (r *MemoryRepository) findWorkersLocked(ids []int64) []model.Worker {
	seen := make(map[int64]bool, len(ids))
	workers := make([]model.Worker, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		if w, ok := r.workers[uint(id)]; ok {
			workers = append(workers, w)
		}
	}
	return workers
}

// FindCategory retrieves a task category by its ID. It returns nil when absent.
func (r *MemoryRepository) FindCategory(ctx context.Context, id int64) (*model.TaskCategory, error) {
	_, span := tracer.Start(ctx, "MemoryRepository.FindCategory",
		trace.WithAttributes(attribute.Int64("category.id", id)),
	)
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	if id <= 0 {
		span.SetAttributes(attribute.Bool("category.found", false))
		return nil, nil
	}
	c, ok := r.categories[uint(id)]
	if !ok {
		span.SetAttributes(attribute.Bool("category.found", false))
		return nil, nil
	}

	span.SetAttributes(attribute.Bool("category.found", true))
	return &c, nil
}

// Create stores task and assigns its ID.
func (r *MemoryRepository) Create(ctx context.Context, task *model.Task) error {
	_, span := tracer.Start(ctx, "MemoryRepository.Create",
		trace.WithAttributes(attribute.String("task.title", task.Title)),
	)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	task.ID = r.nextID
	stored := *task
	r.tasks[task.ID] = &stored
	r.order = append(r.order, task.ID)

	span.SetAttributes(attribute.Int64("task.id", int64(task.ID)))
	return nil
}

// FindTasks returns the tasks matching filter in insertion order, each with its workers.
func (r *MemoryRepository) FindTasks(ctx context.Context, filter model.TaskFilter) ([]model.TaskRecord, error) {
	_, span := tracer.Start(ctx, "MemoryRepository.FindTasks",
		trace.WithAttributes(
			attribute.Int64("task.project_id", int64(filter.ProjectID)),
			attribute.Int64("task.category_id", int64(filter.TaskCategoryID)),
		),
	)
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]model.TaskRecord, 0)
	for _, id := range r.order {
		task := r.tasks[id]
		if task.ProjectID != filter.ProjectID || task.TaskCategoryID != filter.TaskCategoryID {
			continue
		}
		records = append(records, model.TaskRecord{
			Task:    *task,
			Workers: r.findWorkersLocked(toInt64s(task.WorkerIDList())),
		})
	}

	span.SetAttributes(attribute.Int("task.count", len(records)))
	return records, nil
}

// Count returns the current number of tasks.
func (r *MemoryRepository) Count() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.tasks))
}

func toInt64s(ids []uint) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
