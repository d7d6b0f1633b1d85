package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification recipient classes. Admin notifications are addressed to the
// class of all admins and never carry an individual recipient.
const (
	RecipientUser  = "user"
	RecipientAdmin = "admin"
)

// Notification types; these drive client-side rendering only.
const (
	TypeNewReport    = "new_report"
	TypeStatusUpdate = "status_update"
	TypeAdminNote    = "admin_note"
)

// Notification is immutable after creation except for the Read flag.
// Deletion is a hard delete, so there is no soft-delete column here.
type Notification struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	RecipientType string     `json:"recipientType" gorm:"index;not null"`
	Recipient     *uuid.UUID `json:"recipient" gorm:"type:uuid;index"`
	Type          string     `json:"type" gorm:"not null"`
	Title         string     `json:"title" gorm:"not null"`
	Message       string     `json:"message" gorm:"not null"`
	ReportID      uuid.UUID  `json:"reportId" gorm:"type:uuid;not null"`
	Read          bool       `json:"read" gorm:"default:false"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// MarkAllReadRequest scopes a bulk read/clear action to either the admin
// class or a single user.
type MarkAllReadRequest struct {
	IsAdmin bool   `json:"isAdmin"`
	UserID  string `json:"userId"`
}
