package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hiroki-koketsu/go-taskboard/internal/model"
	"github.com/hiroki-koketsu/go-taskboard/internal/repository"
	"github.com/hiroki-koketsu/go-taskboard/internal/taskform"
	"github.com/hiroki-koketsu/go-taskboard/internal/telemetry"
	"go.opentelemetry.io/otel/metric/noop"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type failingStore struct {
	err error
}

func (s *failingStore) Create(context.Context, *model.Task) error {
	return s.err
}

func (s *failingStore) FindTasks(context.Context, model.TaskFilter) ([]model.TaskRecord, error) {
	return nil, s.err
}

func seededRepository() *repository.MemoryRepository {
	repo := repository.NewMemoryRepository()
	repo.PutWorker(model.Worker{ID: 1, Name: "Alice", Avatar: "a.png"})
	repo.PutWorker(model.Worker{ID: 2, Name: "Bob", Avatar: "b.png"})
	repo.PutCategory(model.TaskCategory{ID: 10, ProjectID: 7, Project: model.Project{ID: 7, Name: "xoa"}})
	repo.PutCategory(model.TaskCategory{ID: 11, ProjectID: 7, Project: model.Project{ID: 7, Name: "xoa"}})
	return repo
}

func newTestService(t *testing.T, lookup taskform.Lookup, store TaskStore) *TaskService {
	t.Helper()
	metrics, err := telemetry.NewMetrics(noop.NewMeterProvider().Meter("test"), func() int64 { return 0 })
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	clock := func() time.Time { return testNow }
	form := taskform.New(lookup, taskform.WithClock(clock), taskform.WithLocation(time.UTC))
	return NewTaskService(form, store, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics, WithClock(clock))
}

func validInput() taskform.Input {
	return taskform.Input{
		Title:          "Write report",
		Detail:         "Quarterly numbers",
		TaskCategoryID: "10",
		WorkerIDs:      []string{"1", "2"},
		LimitTime:      "2026-10-20 09:30:15",
	}
}

func TestAddCreatesTask(t *testing.T) {
	repo := seededRepository()
	svc := newTestService(t, repo, repo)

	task, err := svc.Add(context.Background(), validInput())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if task.ID == 0 {
		t.Error("expected an assigned id")
	}
	if task.ProjectID != 7 || task.TaskCategoryID != 10 {
		t.Errorf("unexpected project/category %d/%d", task.ProjectID, task.TaskCategoryID)
	}
	if task.LimitTime != "2026-10-20 09:30" {
		t.Errorf("expected normalized limit time, got %q", task.LimitTime)
	}
	if task.WorkerIDs != "1,2" {
		t.Errorf("expected serialized worker ids, got %q", task.WorkerIDs)
	}
	if task.RelatedMemberIDs != nil {
		t.Errorf("expected related members to be absent, got %q", *task.RelatedMemberIDs)
	}
	if !task.AddTime.Equal(testNow) {
		t.Errorf("expected add time %v, got %v", testNow, task.AddTime)
	}
	if repo.Count() != 1 {
		t.Errorf("expected 1 stored task, got %d", repo.Count())
	}
}

func TestAddSerializesRelatedMembers(t *testing.T) {
	repo := seededRepository()
	svc := newTestService(t, repo, repo)

	in := validInput()
	in.RelatedMemberIDs = []string{"2", "1"}
	task, err := svc.Add(context.Background(), in)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if task.RelatedMemberIDs == nil || *task.RelatedMemberIDs != "2,1" {
		t.Errorf("unexpected related member ids %v", task.RelatedMemberIDs)
	}
}

func TestAddKeepsUnmatchedWorkerIDs(t *testing.T) {
	repo := seededRepository()
	svc := newTestService(t, repo, repo)

	in := validInput()
	in.WorkerIDs = []string{"1", "404"}
	task, err := svc.Add(context.Background(), in)
	if err != nil {
		t.Fatalf("expected partial match to succeed, got %v", err)
	}
	if task.WorkerIDs != "1,404" {
		t.Errorf("expected input ids to be stored, got %q", task.WorkerIDs)
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	repo := seededRepository()
	svc := newTestService(t, repo, repo)

	in := validInput()
	in.Title = "abc"
	in.WorkerIDs = nil

	task, err := svc.Add(context.Background(), in)
	if task != nil {
		t.Errorf("expected no task, got %+v", task)
	}
	var verrs taskform.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if !verrs.Has(taskform.FieldTitle, taskform.KindStructural) || !verrs.Has(taskform.FieldWorkerIDs, taskform.KindReference) {
		t.Errorf("unexpected errors %v", verrs)
	}
	if repo.Count() != 0 {
		t.Errorf("expected nothing stored, got %d", repo.Count())
	}
}

func TestAddPersistenceFailure(t *testing.T) {
	repo := seededRepository()
	svc := newTestService(t, repo, &failingStore{err: errors.New("disk full")})

	task, err := svc.Add(context.Background(), validInput())
	if task != nil {
		t.Errorf("expected no task, got %+v", task)
	}
	if !errors.Is(err, model.ErrTaskCreationFailed) {
		t.Fatalf("expected ErrTaskCreationFailed, got %v", err)
	}
}

func TestAddIsNotDeduplicated(t *testing.T) {
	repo := seededRepository()
	svc := newTestService(t, repo, repo)

	first, err := svc.Add(context.Background(), validInput())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := svc.Add(context.Background(), validInput())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first.ID == second.ID {
		t.Errorf("expected distinct tasks, both have id %d", first.ID)
	}
}

func TestGetList(t *testing.T) {
	repo := seededRepository()
	svc := newTestService(t, repo, repo)
	ctx := context.Background()

	in := validInput()
	in.Title = "First task"
	if _, err := svc.Add(ctx, in); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	other := validInput()
	other.TaskCategoryID = "11"
	if _, err := svc.Add(ctx, other); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	in.Title = "Second task"
	in.WorkerIDs = []string{"2"}
	if _, err := svc.Add(ctx, in); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	list, err := svc.GetList(ctx, taskform.Input{TaskCategoryID: "10"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(list))
	}
	if list[0].Title != "First task" || list[1].Title != "Second task" {
		t.Errorf("unexpected order %q, %q", list[0].Title, list[1].Title)
	}
	if len(list[0].Workers) != 2 || list[0].Workers[0] != (model.WorkerProfile{Name: "Alice", Avatar: "a.png"}) {
		t.Errorf("unexpected workers %+v", list[0].Workers)
	}
	if len(list[1].Workers) != 1 || list[1].Workers[0].Name != "Bob" {
		t.Errorf("unexpected workers %+v", list[1].Workers)
	}
	if list[0].LimitTime != "2026-10-20 09:30" {
		t.Errorf("unexpected limit time %q", list[0].LimitTime)
	}
}

func TestGetListEmpty(t *testing.T) {
	repo := seededRepository()
	svc := newTestService(t, repo, repo)

	list, err := svc.GetList(context.Background(), taskform.Input{TaskCategoryID: "10"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected an empty list, got %#v", list)
	}
}

func TestGetListInvalidCategory(t *testing.T) {
	repo := seededRepository()
	svc := newTestService(t, repo, repo)

	list, err := svc.GetList(context.Background(), taskform.Input{TaskCategoryID: "99"})
	if list != nil {
		t.Errorf("expected no data, got %+v", list)
	}
	var verrs taskform.ValidationErrors
	if !errors.As(err, &verrs) || !verrs.Has(taskform.FieldTaskCategoryID, taskform.KindReference) {
		t.Fatalf("expected reference error on taskCategoryId, got %v", err)
	}
}

func TestGetListStoreFailure(t *testing.T) {
	repo := seededRepository()
	storeErr := errors.New("connection reset")
	svc := newTestService(t, repo, &failingStore{err: storeErr})

	if _, err := svc.GetList(context.Background(), taskform.Input{TaskCategoryID: "10"}); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}
