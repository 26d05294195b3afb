package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pedicare/clinic-api/internal/model"
	"github.com/pedicare/clinic-api/internal/repository"
	apperrors "github.com/pedicare/clinic-api/pkg/errors"
	"github.com/pedicare/clinic-api/pkg/messaging"
)

// Service persists in-app notifications and publishes real-time events.
// Publishes are fire-and-forget: no acknowledgement, no retry. A publish
// with no subscriber is dropped; the persisted record remains queryable.
type Service interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message string, typ model.NotificationType) (*model.Notification, error)
	CreateRecord(ctx context.Context, userID uuid.UUID, title, message string, typ model.NotificationType) (*model.Notification, error)
	PublishTargeted(ctx context.Context, userID uuid.UUID, title, message string)
	BroadcastAppointment(ctx context.Context, eventType string, appointment *model.Appointment)
	BroadcastDeleted(ctx context.Context, id uuid.UUID)
	List(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error)
	MarkRead(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Notification, error)
}

type service struct {
	repo   repository.NotificationRepository
	broker messaging.Broker
	logger *zerolog.Logger
}

func NewService(repo repository.NotificationRepository, broker messaging.Broker, logger *zerolog.Logger) Service {
	return &service{
		repo:   repo,
		broker: broker,
		logger: logger,
	}
}

// Notify writes the in-app record, then publishes the targeted event keyed
// by recipient id. The publish failure is logged, not returned: the record
// is the durable part, the event is best-effort.
func (s *service) Notify(ctx context.Context, userID uuid.UUID, title, message string, typ model.NotificationType) (*model.Notification, error) {
	notification, err := s.CreateRecord(ctx, userID, title, message, typ)
	if err != nil {
		return nil, err
	}
	s.PublishTargeted(ctx, userID, title, message)
	return notification, nil
}

// CreateRecord writes the in-app record without publishing. The privileged
// cancellation path uses it so a failed write cannot stop the other
// side-effect channels.
func (s *service) CreateRecord(ctx context.Context, userID uuid.UUID, title, message string, typ model.NotificationType) (*model.Notification, error) {
	notification := &model.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    typ,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

// PublishTargeted emits the per-recipient real-time event.
func (s *service) PublishTargeted(ctx context.Context, userID uuid.UUID, title, message string) {
	event := model.NotificationEvent{Title: title, Message: message}
	if err := s.broker.Publish(ctx, messaging.NotificationChannel(userID.String()), event); err != nil {
		s.logger.Warn().Err(err).
			Str("user_id", userID.String()).
			Msg("failed to publish targeted notification event")
	}
}

func (s *service) BroadcastAppointment(ctx context.Context, eventType string, appointment *model.Appointment) {
	event := model.AppointmentEvent{Type: eventType, Appointment: appointment}
	if err := s.broker.Publish(ctx, messaging.ChannelAppointments, event); err != nil {
		s.logger.Warn().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointment.ID.String()).
			Msg("failed to publish appointment broadcast")
	}
}

func (s *service) BroadcastDeleted(ctx context.Context, id uuid.UUID) {
	event := model.AppointmentEvent{Type: "delete", ID: id.String()}
	if err := s.broker.Publish(ctx, messaging.ChannelAppointments, event); err != nil {
		s.logger.Warn().Err(err).
			Str("appointment_id", id.String()).
			Msg("failed to publish appointment delete broadcast")
	}
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) MarkRead(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Notification, error) {
	notification, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if notification == nil {
		return nil, apperrors.NotFound("notification", nil)
	}
	if notification.UserID != actor.ID {
		return nil, apperrors.Unauthorized(nil)
	}
	return s.repo.MarkRead(ctx, id)
}
