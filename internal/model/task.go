package model

import (
	"strconv"
	"strings"
	"time"
)

// LimitTimeLayout is the canonical form a task's limit time is stored in.
const LimitTimeLayout = "2006-01-02 15:04"

// Task represents a persisted task.
type Task struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	ProjectID        uint      `gorm:"not null;index:idx_task_project_category" json:"project_id"`
	TaskCategoryID   uint      `gorm:"not null;index:idx_task_project_category" json:"task_category_id"`
	Title            string    `gorm:"type:varchar(30);not null" json:"title"`
	Detail           string    `gorm:"type:mediumtext" json:"detail"`
	WorkerIDs        string    `gorm:"type:text;not null" json:"worker_ids"`
	RelatedMemberIDs *string   `gorm:"type:text" json:"related_member_ids,omitempty"`
	LimitTime        string    `gorm:"type:varchar(16);not null" json:"limit_time"`
	AddTime          time.Time `gorm:"not null" json:"add_time"`
}

// WorkerIDList returns the worker ids stored on the task. Malformed entries are skipped.
func (t *Task) WorkerIDList() []uint {
	return ParseIDList(t.WorkerIDs)
}

// TaskSummary is the list projection of a task.
type TaskSummary struct {
	ID        uint            `json:"id"`
	Title     string          `json:"title"`
	LimitTime string          `json:"limit_time"`
	Workers   []WorkerProfile `json:"workers"`
}

// TaskRecord is a task together with its assigned workers, as returned by a store.
type TaskRecord struct {
	Task    Task
	Workers []Worker
}

// TaskFilter selects tasks of one category within one project.
type TaskFilter struct {
	ProjectID      uint
	TaskCategoryID uint
}

// JoinIDList serializes ids as a comma separated list.
func JoinIDList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// ParseIDList is the inverse of JoinIDList.
func ParseIDList(s string) []uint {
	if s == "" {
		return nil
	}
	var ids []uint
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}

// TaskError represents a domain error for tasks.
type TaskError struct {
	Message string
}

func (e TaskError) Error() string {
	return e.Message
}

// ErrTaskCreationFailed is returned when a validated task could not be persisted.
var ErrTaskCreationFailed = TaskError{Message: "task creation failed"}
