package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pedicare/clinic-api/internal/model"
)

// ErrSlotTaken is returned by AppointmentRepository.Create when a
// non-cancelled appointment already holds the (date, time) slot. The
// insert itself is the check; callers never need a separate lookup to
// stay race-free.
var ErrSlotTaken = errors.New("slot already booked")

type (
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		FindConflicting(ctx context.Context, date, time string) (*model.Appointment, error)
		ListUpcoming(ctx context.Context, date string) ([]*model.Appointment, error)
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error)
		ListAllWithOwners(ctx context.Context) ([]*model.AppointmentWithOwner, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error)
		MarkRead(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	}

	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	}
)
