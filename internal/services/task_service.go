package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/role-task-api/internal/constants"
	"github.com/yukikurage/role-task-api/internal/models"
	"github.com/yukikurage/role-task-api/internal/policy"
	"github.com/yukikurage/role-task-api/internal/repository"
	"gorm.io/gorm"
)

// taskDetail lists the relations rendered with a single task.
var taskDetail = []string{"Owner", "StatusHistory", "StatusHistory.ChangedByUser"}

// TaskService handles task business logic
type TaskService struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	scopes   scopeResolver
	now      func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		scopes:   scopeResolver{userRepo: userRepo},
		now:      time.Now,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	TaskTitle   string
	Description string
	// UserID is the requested owner; nil means the actor.
	UserID *uint64
}

// UpdateTaskInput represents a partial task update
type UpdateTaskInput struct {
	TaskTitle   *string
	Description *string
	Status      *models.TaskStatus
	Note        *string
}

// ListTasks returns the non-deleted tasks whose owners the actor can see,
// newest first
func (s *TaskService) ListTasks(ctx context.Context, actor policy.Actor) ([]models.Task, error) {
	scope, err := s.scopes.scopeFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.List(ctx, scope.TaskFilter())
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

// GetTask returns a single task with owner and history
func (s *TaskService) GetTask(ctx context.Context, actor policy.Actor, taskID uint64) (*models.Task, error) {
	return s.authorizedTask(ctx, actor, taskID, taskDetail...)
}

// CreateTask creates a pending task and records its first history entry
func (s *TaskService) CreateTask(ctx context.Context, actor policy.Actor, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.TaskTitle)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, ErrTaskFieldsRequired
	}

	ownerID, err := s.resolveOwner(ctx, actor, input.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := &models.Task{
		TaskTitle:   title,
		Description: description,
		Status:      models.TaskStatusPending,
		UserID:      ownerID,
	}
	first := &models.StatusEvent{
		Status:    models.TaskStatusPending,
		ChangedBy: actor.ID,
		ChangedAt: now,
		Note:      constants.TaskCreatedNote,
	}

	if err := s.taskRepo.Create(ctx, task, first); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.reload(ctx, task.ID)
}

// UpdateTask applies a partial update. A status change appends exactly
// one history entry; re-sending the current status appends nothing.
func (s *TaskService) UpdateTask(ctx context.Context, actor policy.Actor, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.authorizedTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]interface{})
	if input.TaskTitle != nil {
		title := strings.TrimSpace(*input.TaskTitle)
		if title == "" {
			return nil, ErrTaskTitleEmpty
		}
		changes["task_title"] = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, ErrDescriptionEmpty
		}
		changes["description"] = description
	}

	var event *models.StatusEvent
	if input.Status != nil {
		status := *input.Status
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}

		if status != task.Status {
			note := fmt.Sprintf("Status changed from %s to %s", task.Status, status)
			if input.Note != nil && strings.TrimSpace(*input.Note) != "" {
				note = strings.TrimSpace(*input.Note)
			}
			if len(note) > constants.MaxNoteLength {
				return nil, ErrNoteTooLong
			}

			changes["status"] = status
			event = &models.StatusEvent{
				Status:    status,
				ChangedBy: actor.ID,
				ChangedAt: s.now(),
				Note:      note,
			}
		}
	}

	if len(changes) > 0 || event != nil {
		if err := s.taskRepo.UpdateFields(ctx, task.ID, changes, event); err != nil {
			// Deleted between the read and the write.
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return nil, ErrTaskNotFound
			}
			return nil, fmt.Errorf("failed to update task: %w", err)
		}
	}

	return s.reload(ctx, task.ID)
}

// DeleteTask soft-deletes a task. History rows are kept.
func (s *TaskService) DeleteTask(ctx context.Context, actor policy.Actor, taskID uint64) error {
	if _, err := s.authorizedTask(ctx, actor, taskID); err != nil {
		return err
	}

	if err := s.taskRepo.SoftDelete(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// authorizedTask loads a live task and checks its owner against the
// actor's scope.
func (s *TaskService) authorizedTask(ctx context.Context, actor policy.Actor, taskID uint64, preload ...string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task.IsDeleted {
		return nil, ErrTaskNotFound
	}

	scope, err := s.scopes.scopeFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(task.UserID) {
		return nil, ErrTaskForbidden
	}

	return task, nil
}

// resolveOwner picks the owner of a new task. Plain users always own
// their tasks; anything they send is ignored.
func (s *TaskService) resolveOwner(ctx context.Context, actor policy.Actor, requested *uint64) (uint64, error) {
	if requested == nil || *requested == actor.ID {
		return actor.ID, nil
	}
	if policy.SelfOwnedOnly(actor) {
		return actor.ID, nil
	}

	target := policy.Target{ID: *requested}
	user, err := s.userRepo.FindByID(ctx, *requested)
	switch {
	case err == nil:
		target.Exists = !user.IsDeleted
		target.Active = user.IsActive
		target.Role = user.RoleTitle()
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return 0, fmt.Errorf("failed to find target user: %w", err)
	}

	switch policy.CanAssignTo(actor, target) {
	case policy.AssignAllowed:
		return target.ID, nil
	case policy.AssignTargetMissing:
		return 0, ErrTargetUserNotFound
	default:
		return 0, ErrAssignForbidden
	}
}

func (s *TaskService) reload(ctx context.Context, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID, taskDetail...)
	if err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}
	return task, nil
}
