package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeWarning NotificationType = "warning"
)

// Notification is an in-app record created as a side effect of a workflow
// transition. Clients never create these directly.
type Notification struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	UserID    uuid.UUID        `db:"user_id" json:"user_id"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Type      NotificationType `db:"type" json:"type"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NotificationEvent is the payload published on the per-recipient
// real-time channel.
type NotificationEvent struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// AppointmentEvent is the payload broadcast to all observers on the
// appointments channel.
type AppointmentEvent struct {
	Type        string       `json:"type"` // create | update | delete
	Appointment *Appointment `json:"appointment,omitempty"`
	ID          string       `json:"id,omitempty"`
}
