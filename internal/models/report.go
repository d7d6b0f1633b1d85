package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Report statuses
const (
	StatusPending       = "Pending"
	StatusInvestigating = "Investigating"
	StatusResolved      = "Resolved"
	StatusClosed        = "Closed"
)

// ReportStatuses lists every valid status, in lifecycle order.
var ReportStatuses = []string{StatusPending, StatusInvestigating, StatusResolved, StatusClosed}

func ValidStatus(s string) bool {
	for _, status := range ReportStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Report struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description" gorm:"not null"`
	CNIC        string         `json:"cnic" gorm:"column:cnic"`
	Phone       string         `json:"phone"`
	Location    string         `json:"location" gorm:"not null"`
	Status      string         `json:"status" gorm:"default:Pending"`
	IsAnonymous bool           `json:"isAnonymous" gorm:"default:false"`
	Image       string         `json:"image"`
	UserID      *uuid.UUID     `json:"userId" gorm:"type:uuid;index"`
	User        *User          `json:"user,omitempty" gorm:"foreignKey:UserID"`
	AdminNotes  []AdminNote    `json:"adminNotes,omitempty" gorm:"foreignKey:ReportID"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// AdminNote is an annotation an admin attaches to a report during triage.
type AdminNote struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ReportID         uuid.UUID `json:"reportId" gorm:"type:uuid;index;not null"`
	Content          string    `json:"content" gorm:"not null"`
	Attachment       string    `json:"attachment"`
	OriginalFileName string    `json:"originalFileName"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (n *AdminNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// Report DTOs
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
