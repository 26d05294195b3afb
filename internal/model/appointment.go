package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

type AppointmentCategory string

const (
	CategoryGeneralCheckup AppointmentCategory = "General Checkup"
	CategoryVaccination    AppointmentCategory = "Vaccination"
	CategoryNewbornCare    AppointmentCategory = "Newborn Care"
	CategoryEmergency      AppointmentCategory = "Emergency"
)

// Appointment is a single bookable clinic visit. Date and Time are kept as
// strings ("2006-01-02" and "HH:MM AM/PM"); they are compared for equality
// only, never range-parsed.
type Appointment struct {
	ID          uuid.UUID           `db:"id" json:"id"`
	UserID      uuid.UUID           `db:"user_id" json:"user_id"`
	PatientName string              `db:"patient_name" json:"patient_name"`
	PatientAge  int                 `db:"patient_age" json:"patient_age"`
	Date        string              `db:"date" json:"date"`
	Time        string              `db:"time" json:"time"`
	Category    AppointmentCategory `db:"category" json:"category"`
	Status      AppointmentStatus   `db:"status" json:"status"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

// AppointmentWithOwner joins the owning account's contact fields, used by
// the staff listing.
type AppointmentWithOwner struct {
	Appointment
	OwnerName  string `db:"owner_name" json:"owner_name"`
	OwnerEmail string `db:"owner_email" json:"owner_email"`
	OwnerPhone string `db:"owner_phone" json:"owner_phone"`
}

type CreateAppointmentRequest struct {
	PatientName string `json:"patient_name" binding:"required"`
	PatientAge  *int   `json:"patient_age" binding:"required,gte=0"`
	Date        string `json:"date" binding:"required,datetime=2006-01-02"`
	Time        string `json:"time" binding:"required,clocktime"`
	Category    string `json:"category" binding:"required,oneof='General Checkup' 'Vaccination' 'Newborn Care' 'Emergency'"`
}

// StaffBookRequest is the staff override booking: the appointment is owned
// by the given user, not the staff member making the call.
type StaffBookRequest struct {
	CreateAppointmentRequest
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// UpdateAppointmentRequest reschedules an appointment. Omitted fields keep
// their prior value. Reason, when present, is included in the notification
// sent to the owner.
type UpdateAppointmentRequest struct {
	Date   *string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Time   *string `json:"time" binding:"omitempty,clocktime"`
	Reason *string `json:"message"`
}
