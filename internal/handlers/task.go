package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/role-task-api/internal/dto"
	apierrors "github.com/yukikurage/role-task-api/internal/errors"
	"github.com/yukikurage/role-task-api/internal/middleware"
	"github.com/yukikurage/role-task-api/internal/models"
	"github.com/yukikurage/role-task-api/internal/policy"
	"github.com/yukikurage/role-task-api/internal/services"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns all tasks visible to the current user, newest first
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), actor)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTOs(tasks))
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	taskID, _ := middleware.GetResourceID(c)

	task, err := h.taskService.GetTask(c.Request.Context(), actor, taskID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		TaskTitle   string          `json:"taskTitle"`
		Description string          `json:"description"`
		UserID      json.RawMessage `json:"userId"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.CreateTaskInput{
		TaskTitle:   req.TaskTitle,
		Description: req.Description,
	}
	// Plain users always own their tasks, whatever userId they send.
	if !policy.SelfOwnedOnly(actor) {
		userID, err := parseTargetUserID(req.UserID)
		if err != nil {
			apierrors.RespondWithServiceError(c, err)
			return
		}
		input.UserID = userID
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), actor, input)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask updates an existing task. Only fields present in the body
// are changed.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	taskID, _ := middleware.GetResourceID(c)

	type UpdateTaskRequest struct {
		TaskTitle   *string `json:"taskTitle"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
		Note        *string `json:"note"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		TaskTitle:   req.TaskTitle,
		Description: req.Description,
		Note:        req.Note,
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		input.Status = &status
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), actor, taskID, input)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask soft-deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	taskID, _ := middleware.GetResourceID(c)

	if err := h.taskService.DeleteTask(c.Request.Context(), actor, taskID); err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// parseTargetUserID accepts userId as a JSON number or a numeric string.
// Missing, null, empty and zero values mean the caller owns the task.
func parseTargetUserID(raw json.RawMessage) (*uint64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, services.ErrTargetUserNotFound
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil
		}
	}

	id, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return nil, services.ErrTargetUserNotFound
	}
	if id == 0 {
		return nil, nil
	}
	return &id, nil
}
