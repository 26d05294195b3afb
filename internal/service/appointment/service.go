package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pedicare/clinic-api/internal/email"
	"github.com/pedicare/clinic-api/internal/model"
	"github.com/pedicare/clinic-api/internal/repository"
	"github.com/pedicare/clinic-api/internal/service/notification"
	"github.com/pedicare/clinic-api/internal/sms"
	apperrors "github.com/pedicare/clinic-api/pkg/errors"
)

const completedMessage = "Thank you for visiting! We hope you had a pleasant experience. Visit again!"

// Service implements the booking workflow: slot-exclusive creation, the
// booked -> completed / booked -> cancelled transitions, reschedules, and
// the notification fanout each transition triggers.
type Service struct {
	repo     repository.AppointmentRepository
	users    repository.UserRepository
	notifSvc notification.Service
	emailSvc email.Service
	smsSvc   sms.Service
	logger   *zerolog.Logger
}

func NewService(
	repo repository.AppointmentRepository,
	users repository.UserRepository,
	notifSvc notification.Service,
	emailSvc email.Service,
	smsSvc sms.Service,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		notifSvc: notifSvc,
		emailSvc: emailSvc,
		smsSvc:   smsSvc,
		logger:   logger,
	}
}

// Book creates an appointment owned by the acting user.
func (s *Service) Book(ctx context.Context, actor model.Actor, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.create(ctx, actor.ID, req)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Your appointment is confirmed for %s at %s.", apt.Date, apt.Time)
	s.notify(ctx, actor.ID, "Booking Confirmed", msg, model.NotificationTypeSuccess)
	s.notifSvc.BroadcastAppointment(ctx, "create", apt)

	return apt, nil
}

// StaffBook creates an appointment on behalf of the user named in the
// request; the booking is owned by that user, not the staff member.
func (s *Service) StaffBook(ctx context.Context, req *model.StaffBookRequest) (*model.Appointment, error) {
	apt, err := s.create(ctx, req.UserID, &req.CreateAppointmentRequest)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Clinic Staff booked an appointment for you: %s at %s.", apt.Date, apt.Time)
	s.notify(ctx, req.UserID, "Booking Confirmed", msg, model.NotificationTypeSuccess)
	s.notifSvc.BroadcastAppointment(ctx, "create", apt)

	return apt, nil
}

// create runs the availability pre-check, then the conditional insert. The
// pre-check only exists for a friendly error; the insert is the actual
// exclusivity guarantee, so a race between the two still cannot produce a
// duplicate slot.
func (s *Service) create(ctx context.Context, ownerID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	existing, err := s.repo.FindConflicting(ctx, req.Date, req.Time)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("Slot already booked", nil)
	}

	apt := &model.Appointment{
		UserID:      ownerID,
		PatientName: req.PatientName,
		PatientAge:  *req.PatientAge,
		Date:        req.Date,
		Time:        req.Time,
		Category:    model.AppointmentCategory(req.Category),
		Status:      model.AppointmentStatusBooked,
	}
	if err := s.repo.Create(ctx, apt); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, apperrors.Conflict("Slot already booked", err)
		}
		return nil, apperrors.Internal(err)
	}
	return apt, nil
}

// Reschedule mutates only the provided fields; the slot at the new date or
// time is deliberately not re-validated (pending product decision).
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if apt == nil {
		return nil, apperrors.NotFound("appointment", nil)
	}

	if req.Date != nil {
		apt.Date = *req.Date
	}
	if req.Time != nil {
		apt.Time = *req.Time
	}
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, apperrors.Internal(err)
	}

	msg := fmt.Sprintf("Your appointment has been rescheduled to %s at %s.", apt.Date, apt.Time)
	if req.Reason != nil && *req.Reason != "" {
		msg += fmt.Sprintf(" Reason: %s", *req.Reason)
	}
	s.notify(ctx, apt.UserID, "Appointment Changed", msg, model.NotificationTypeInfo)
	s.notifSvc.BroadcastAppointment(ctx, "update", apt)

	return apt, nil
}

// Complete marks the visit completed. There is no guard against completing
// an already-completed appointment; the thank-you notification is re-sent.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if apt == nil {
		return nil, apperrors.NotFound("appointment", nil)
	}

	apt.Status = model.AppointmentStatusCompleted
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.notify(ctx, apt.UserID, "Visit Completed", completedMessage, model.NotificationTypeSuccess)
	s.notifSvc.BroadcastAppointment(ctx, "update", apt)

	return apt, nil
}

// Cancel moves the appointment to cancelled. The row is retained for
// history; the conflict predicate excludes cancelled rows, so the slot is
// immediately free again. Only the owner or a staff/admin caller may
// cancel. A privileged caller cancelling someone else's booking triggers
// the full fanout (warning notification, email, SMS, targeted event); an
// owner cancelling their own gets the in-app confirmation record only, no
// targeted event. All side effects are best-effort and never fail the
// cancellation.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return apperrors.Internal(err)
	}
	if apt == nil {
		return apperrors.NotFound("appointment", nil)
	}

	isOwner := apt.UserID == actor.ID
	if !isOwner && !actor.Role.IsStaff() {
		return apperrors.Unauthorized(nil)
	}

	apt.Status = model.AppointmentStatusCancelled
	if err := s.repo.Update(ctx, apt); err != nil {
		return apperrors.Internal(err)
	}

	if isOwner {
		msg := fmt.Sprintf("You successfully cancelled your appointment for %s at %s.", apt.Date, apt.Time)
		if _, err := s.notifSvc.CreateRecord(ctx, actor.ID, "Cancellation Confirmed", msg, model.NotificationTypeSuccess); err != nil {
			s.logger.Error().Err(err).
				Str("user_id", actor.ID.String()).
				Msg("failed to create cancellation notification")
		}
	} else {
		s.notifyClinicCancellation(ctx, apt)
	}

	s.notifSvc.BroadcastDeleted(ctx, apt.ID)
	return nil
}

// notifyClinicCancellation runs the four side effects of a privileged
// cancellation. Each is attempted independently: a failure in one is
// logged and must not stop the others.
func (s *Service) notifyClinicCancellation(ctx context.Context, apt *model.Appointment) {
	owner, err := s.users.Get(ctx, apt.UserID)
	if err != nil || owner == nil {
		s.logger.Warn().Err(err).
			Str("user_id", apt.UserID.String()).
			Msg("cannot look up owner for cancellation fanout")
		return
	}

	msg := fmt.Sprintf("Your appointment for %s at %s has been cancelled by the clinic.", apt.Date, apt.Time)

	if _, err := s.notifSvc.CreateRecord(ctx, apt.UserID, "Appointment Cancelled", msg, model.NotificationTypeWarning); err != nil {
		s.logger.Error().Err(err).
			Str("user_id", apt.UserID.String()).
			Msg("failed to create cancellation notification")
	}

	if err := s.emailSvc.Send(ctx, owner.Email, "Appointment Cancelled", msg); err != nil {
		s.logger.Error().Err(err).
			Str("email", owner.Email).
			Msg("failed to send cancellation email")
	}

	phone := owner.Phone
	if phone == "" {
		phone = sms.FallbackNumber
	}
	if err := s.smsSvc.Send(ctx, phone, msg); err != nil {
		s.logger.Error().Err(err).
			Str("phone", phone).
			Msg("failed to send cancellation SMS")
	}

	s.notifSvc.PublishTargeted(ctx, apt.UserID, "Appointment Cancelled", msg)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if apt == nil {
		return nil, apperrors.NotFound("appointment", nil)
	}
	return apt, nil
}

// ListUpcoming returns non-cancelled appointments, optionally for a single
// date. Public: used by the booking page to grey out taken slots.
func (s *Service) ListUpcoming(ctx context.Context, date string) ([]*model.Appointment, error) {
	appointments, err := s.repo.ListUpcoming(ctx, date)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return appointments, nil
}

func (s *Service) ListMine(ctx context.Context, actor model.Actor) ([]*model.Appointment, error) {
	appointments, err := s.repo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return appointments, nil
}

func (s *Service) ListAll(ctx context.Context) ([]*model.AppointmentWithOwner, error) {
	appointments, err := s.repo.ListAllWithOwners(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return appointments, nil
}

// notify is the swallow-on-failure wrapper used on success paths; a failed
// notification write never converts a committed mutation into an error.
func (s *Service) notify(ctx context.Context, userID uuid.UUID, title, message string, typ model.NotificationType) {
	if _, err := s.notifSvc.Notify(ctx, userID, title, message, typ); err != nil {
		s.logger.Error().Err(err).
			Str("user_id", userID.String()).
			Str("title", title).
			Msg("failed to create notification")
	}
}
