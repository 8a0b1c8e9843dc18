package tasks

import "github.com/louisbranch/tasks/internal/services/tasks/storage"

// taskRequest is the body accepted by POST /tasks and PUT /tasks/{id}.
// Pointer fields distinguish an absent key from a zero value.
type taskRequest struct {
	Task      *string `json:"task" validate:"required"`
	Completed *bool   `json:"completed" validate:"required"`
}

type taskResponse struct {
	ID        int64  `json:"id"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func toTaskResponses(tasks []storage.Task) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, taskResponse{
			ID:        task.ID,
			Task:      task.Description,
			Completed: task.Completed,
		})
	}
	return out
}
