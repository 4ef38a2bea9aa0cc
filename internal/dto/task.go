package dto

import (
	"time"

	"github.com/yukikurage/role-task-api/internal/models"
)

// StatusEventDTO represents one status history entry in API responses
type StatusEventDTO struct {
	Status    models.TaskStatus `json:"status"`
	ChangedBy *UserRefDTO       `json:"changedBy"`
	ChangedAt time.Time         `json:"changedAt"`
	Note      string            `json:"note"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID            uint64            `json:"id"`
	TaskTitle     string            `json:"taskTitle"`
	Description   string            `json:"description"`
	Status        models.TaskStatus `json:"status"`
	UserID        uint64            `json:"userId"`
	Owner         *UserRefDTO       `json:"owner,omitempty"`
	StatusHistory []StatusEventDTO  `json:"statusHistory"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:            task.ID,
		TaskTitle:     task.TaskTitle,
		Description:   task.Description,
		Status:        task.Status,
		UserID:        task.UserID,
		StatusHistory: make([]StatusEventDTO, len(task.StatusHistory)),
		CreatedAt:     task.CreatedAt,
		UpdatedAt:     task.UpdatedAt,
	}

	// Include owner if preloaded
	if task.Owner.ID != 0 {
		owner := ToUserRefDTO(task.Owner)
		dto.Owner = &owner
	}

	for i, event := range task.StatusHistory {
		dto.StatusHistory[i] = StatusEventDTO{
			Status:    event.Status,
			ChangedAt: event.ChangedAt,
			Note:      event.Note,
		}
		if event.ChangedByUser.ID != 0 {
			by := ToUserRefDTO(event.ChangedByUser)
			dto.StatusHistory[i].ChangedBy = &by
		}
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks, never returning nil
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		out[i] = ToTaskDTO(task)
	}
	return out
}
