package handler

import (
	"bytes"
	"encoding/json"

	"github.com/hiroki-koketsu/go-taskboard/internal/taskform"
)

// rawID accepts a JSON string or number and keeps its text so that malformed
// values reach the form's integer check instead of failing decoding.
type rawID string

func (id *rawID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = rawID(s)
		return nil
	}
	*id = rawID(bytes.TrimSpace(b))
	return nil
}

// CreateTaskRequest represents the request body for creating a task.
type CreateTaskRequest struct {
	Title            string  `json:"title"`
	Detail           string  `json:"detail"`
	TaskCategoryID   rawID   `json:"taskCategoryId"`
	WorkerIDs        []rawID `json:"workerIds"`
	RelatedMemberIDs []rawID `json:"relatedMemberIds"`
	LimitTime        string  `json:"limitTime"`
}

// Input converts the request into form input.
func (r *CreateTaskRequest) Input() taskform.Input {
	return taskform.Input{
		Title:            r.Title,
		Detail:           r.Detail,
		TaskCategoryID:   string(r.TaskCategoryID),
		WorkerIDs:        rawIDs(r.WorkerIDs),
		RelatedMemberIDs: rawIDs(r.RelatedMemberIDs),
		LimitTime:        r.LimitTime,
	}
}

func rawIDs(ids []rawID) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
