package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is one of the known task states.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

type Task struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	TaskTitle   string     `gorm:"type:varchar(255);not null" json:"task_title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Status      TaskStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	UserID      uint64     `gorm:"not null;index" json:"user_id"`
	IsDeleted   bool       `gorm:"not null;index" json:"-"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Owner         User          `gorm:"foreignKey:UserID" json:"owner,omitempty"`
	StatusHistory []StatusEvent `gorm:"foreignKey:TaskID" json:"status_history,omitempty"`
}

// StatusEvent is one entry of a task's append-only status history. Rows
// are only ever inserted; id order is chronological order.
type StatusEvent struct {
	ID        uint64     `gorm:"primarykey" json:"id"`
	TaskID    uint64     `gorm:"not null;index" json:"task_id"`
	Status    TaskStatus `gorm:"type:varchar(20);not null" json:"status"`
	ChangedBy uint64     `gorm:"not null" json:"changed_by"`
	ChangedAt time.Time  `gorm:"not null" json:"changed_at"`
	Note      string     `gorm:"type:text" json:"note"`

	// Relations
	ChangedByUser User `gorm:"foreignKey:ChangedBy" json:"-"`
}

func (StatusEvent) TableName() string {
	return "task_status_events"
}
