package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hiroki-koketsu/go-taskboard/internal/model"
	"github.com/hiroki-koketsu/go-taskboard/internal/repository"
	"github.com/hiroki-koketsu/go-taskboard/internal/service"
	"github.com/hiroki-koketsu/go-taskboard/internal/taskform"
	"github.com/hiroki-koketsu/go-taskboard/internal/telemetry"
	"go.opentelemetry.io/otel/metric/noop"
)

func newTestServer(t *testing.T) (*httptest.Server, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	repo.PutWorker(model.Worker{ID: 1, Name: "Alice", Avatar: "a.png"})
	repo.PutCategory(model.TaskCategory{ID: 10, ProjectID: 7})

	metrics, err := telemetry.NewMetrics(noop.NewMeterProvider().Meter("test"), repo.Count)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	form := taskform.New(repo, taskform.WithClock(clock), taskform.WithLocation(time.UTC))
	svc := service.NewTaskService(form, repo, logger, metrics, service.WithClock(clock))
	h := NewTaskHandler(svc, logger, metrics)

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv, repo
}

func TestCreateTask(t *testing.T) {
	srv, repo := newTestServer(t)

	body := `{"title":"Write report","taskCategoryId":10,"workerIds":[1,"404"],"limitTime":"2026-10-20 09:30"}`
	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.StatusCode)
	}
	var task model.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if task.ID == 0 || task.ProjectID != 7 || task.WorkerIDs != "1,404" {
		t.Errorf("unexpected task %+v", task)
	}
	if repo.Count() != 1 {
		t.Errorf("expected 1 stored task, got %d", repo.Count())
	}
}

func TestCreateTaskValidationErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"title":"abc","taskCategoryId":"10","workerIds":[1.5],"limitTime":"2020-01-01 00:00"}`
	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", resp.StatusCode)
	}
	var got struct {
		Errors map[string][]string `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, field := range []string{taskform.FieldTitle, taskform.FieldWorkerIDs, taskform.FieldLimitTime} {
		if len(got.Errors[field]) == 0 {
			t.Errorf("expected an error on %s, got %v", field, got.Errors)
		}
	}
	if _, ok := got.Errors[taskform.FieldTaskCategoryID]; ok {
		t.Errorf("expected no category error, got %v", got.Errors)
	}
}

func TestCreateTaskInvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(`{"title":`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.StatusCode)
	}
}

func TestListTasks(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"title":"Write report","taskCategoryId":10,"workerIds":[1],"limitTime":"2026-10-20 09:30"}`
	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	tests := []struct {
		name   string
		query  string
		status int
		count  int
	}{
		{"matching", "?taskCategoryId=10", http.StatusOK, 1},
		{"unknown category", "?taskCategoryId=11", http.StatusUnprocessableEntity, 0},
		{"missing category", "", http.StatusUnprocessableEntity, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/" + tt.query)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.StatusCode)
			}
			if tt.status != http.StatusOK {
				return
			}
			var list []model.TaskSummary
			if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(list) != tt.count {
				t.Fatalf("expected %d tasks, got %d", tt.count, len(list))
			}
			if list[0].Workers[0].Name != "Alice" || list[0].LimitTime != "2026-10-20 09:30" {
				t.Errorf("unexpected summary %+v", list[0])
			}
		})
	}
}

func TestRawIDDecoding(t *testing.T) {
	var req CreateTaskRequest
	body := `{"taskCategoryId":7,"workerIds":["1",2,true],"relatedMemberIds":null}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	in := req.Input()
	if in.TaskCategoryID != "7" {
		t.Errorf("unexpected category id %q", in.TaskCategoryID)
	}
	if strings.Join(in.WorkerIDs, ",") != "1,2,true" {
		t.Errorf("unexpected worker ids %v", in.WorkerIDs)
	}
	if in.RelatedMemberIDs != nil {
		t.Errorf("expected nil related member ids, got %v", in.RelatedMemberIDs)
	}
}
