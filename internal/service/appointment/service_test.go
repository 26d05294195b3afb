package appointment

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedicare/clinic-api/internal/model"
	"github.com/pedicare/clinic-api/internal/repository"
	"github.com/pedicare/clinic-api/internal/service/notification"
	apperrors "github.com/pedicare/clinic-api/pkg/errors"
)

// memAppointmentRepo mimics the conditional-insert semantics of the
// postgres repository: Create fails with ErrSlotTaken when a non-cancelled
// row holds the slot.
type memAppointmentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Appointment
}

func newMemAppointmentRepo() *memAppointmentRepo {
	return &memAppointmentRepo{items: make(map[uuid.UUID]*model.Appointment)}
}

func (r *memAppointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Date == apt.Date && existing.Time == apt.Time && existing.Status != model.AppointmentStatusCancelled {
			return repository.ErrSlotTaken
		}
	}
	apt.ID = uuid.New()
	clone := *apt
	r.items[apt.ID] = &clone
	return nil
}

func (r *memAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	clone := *apt
	return &clone, nil
}

func (r *memAppointmentRepo) Update(_ context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[apt.ID]; !ok {
		return fmt.Errorf("appointment not found")
	}
	clone := *apt
	r.items[apt.ID] = &clone
	return nil
}

func (r *memAppointmentRepo) FindConflicting(_ context.Context, date, timeStr string) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, apt := range r.items {
		if apt.Date == date && apt.Time == timeStr && apt.Status != model.AppointmentStatusCancelled {
			clone := *apt
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memAppointmentRepo) ListUpcoming(_ context.Context, date string) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.items {
		if apt.Status == model.AppointmentStatusCancelled {
			continue
		}
		if date != "" && apt.Date != date {
			continue
		}
		clone := *apt
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memAppointmentRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.items {
		if apt.UserID == userID && apt.Status != model.AppointmentStatusCancelled {
			clone := *apt
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memAppointmentRepo) ListAllWithOwners(_ context.Context) ([]*model.AppointmentWithOwner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AppointmentWithOwner
	for _, apt := range r.items {
		if apt.Status != model.AppointmentStatusCancelled {
			out = append(out, &model.AppointmentWithOwner{Appointment: *apt})
		}
	}
	return out, nil
}

type memNotificationRepo struct {
	mu         sync.Mutex
	items      []*model.Notification
	failCreate bool
}

func (r *memNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return fmt.Errorf("notification store unavailable")
	}
	n.ID = uuid.New()
	clone := *n
	r.items = append(r.items, &clone)
	return nil
}

func (r *memNotificationRepo) Get(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.ID == id {
			clone := *n
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memNotificationRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Notification
	for _, n := range r.items {
		if n.UserID == userID {
			clone := *n
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memNotificationRepo) MarkRead(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.ID == id {
			n.Read = true
			clone := *n
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memNotificationRepo) forUser(userID uuid.UUID) []*model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Notification
	for _, n := range r.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type memUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (r *memUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	return r.users[id], nil
}

type publishedMessage struct {
	Channel string
	Message interface{}
}

type recordingBroker struct {
	mu        sync.Mutex
	published []publishedMessage
}

func (b *recordingBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedMessage{Channel: channel, Message: message})
	return nil
}

func (b *recordingBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

func (b *recordingBroker) Close() error { return nil }

func (b *recordingBroker) onChannel(channel string) []publishedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []publishedMessage
	for _, m := range b.published {
		if m.Channel == channel {
			out = append(out, m)
		}
	}
	return out
}

type recordingEmail struct {
	mu    sync.Mutex
	sent  []string
	calls int
}

func (e *recordingEmail) Send(_ context.Context, to, _, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.sent = append(e.sent, to)
	return nil
}

type recordingSMS struct {
	mu     sync.Mutex
	phones []string
	calls  int
}

func (s *recordingSMS) Send(_ context.Context, phone, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.phones = append(s.phones, phone)
	return nil
}

type fixture struct {
	svc       *Service
	repo      *memAppointmentRepo
	notifRepo *memNotificationRepo
	broker    *recordingBroker
	email     *recordingEmail
	sms       *recordingSMS
	owner     *model.User
	staff     *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	owner := &model.User{ID: uuid.New(), Name: "Priya Sharma", Email: "priya@example.com", Phone: "+911234567890", Role: model.RoleUser}
	staff := &model.User{ID: uuid.New(), Name: "Front Desk", Email: "desk@clinic.example", Role: model.RoleAdmin}

	repo := newMemAppointmentRepo()
	notifRepo := &memNotificationRepo{}
	broker := &recordingBroker{}
	emailSvc := &recordingEmail{}
	smsSvc := &recordingSMS{}
	nop := zerolog.Nop()

	notifSvc := notification.NewService(notifRepo, broker, &nop)
	svc := NewService(repo, &memUserRepo{users: map[uuid.UUID]*model.User{owner.ID: owner, staff.ID: staff}}, notifSvc, emailSvc, smsSvc, &nop)

	return &fixture{
		svc:       svc,
		repo:      repo,
		notifRepo: notifRepo,
		broker:    broker,
		email:     emailSvc,
		sms:       smsSvc,
		owner:     owner,
		staff:     staff,
	}
}

func bookingRequest() *model.CreateAppointmentRequest {
	age := 4
	return &model.CreateAppointmentRequest{
		PatientName: "Aarav",
		PatientAge:  &age,
		Date:        "2025-05-01",
		Time:        "10:00 AM",
		Category:    string(model.CategoryVaccination),
	}
}

func (f *fixture) ownerActor() model.Actor {
	return model.Actor{ID: f.owner.ID, Role: f.owner.Role}
}

func (f *fixture) staffActor() model.Actor {
	return model.Actor{ID: f.staff.ID, Role: f.staff.Role}
}

func TestBookRejectsTakenSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Book(ctx, f.ownerActor(), bookingRequest())
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusBooked, first.Status)

	other := model.Actor{ID: uuid.New(), Role: model.RoleUser}
	_, err = f.svc.Book(ctx, other, bookingRequest())
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	assert.Equal(t, "Slot already booked", appErr.Message)

	// First booking untouched
	kept, err := f.repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusBooked, kept.Status)
}

func TestBookPublishesCreateEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Book(ctx, f.ownerActor(), bookingRequest())
	require.NoError(t, err)

	broadcasts := f.broker.onChannel("appointments:updated")
	require.Len(t, broadcasts, 1)
	event := broadcasts[0].Message.(model.AppointmentEvent)
	assert.Equal(t, "create", event.Type)
	assert.Equal(t, apt.ID, event.Appointment.ID)

	targeted := f.broker.onChannel("notification:" + f.owner.ID.String())
	require.Len(t, targeted, 1)
	notifEvent := targeted[0].Message.(model.NotificationEvent)
	assert.Equal(t, "Booking Confirmed", notifEvent.Title)

	records := f.notifRepo.forUser(f.owner.ID)
	require.Len(t, records, 1)
	assert.Equal(t, model.NotificationTypeSuccess, records[0].Type)
}

func TestStaffBookOwnedByPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := &model.StaffBookRequest{
		CreateAppointmentRequest: *bookingRequest(),
		UserID:                   f.owner.ID,
	}
	apt, err := f.svc.StaffBook(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, apt.UserID)

	records := f.notifRepo.forUser(f.owner.ID)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Message, "Clinic Staff booked an appointment for you")
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Book(ctx, f.ownerActor(), bookingRequest())
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, f.ownerActor(), apt.ID))

	// Row retained with cancelled status
	cancelled, err := f.repo.Get(ctx, apt.ID)
	require.NoError(t, err)
	require.NotNil(t, cancelled)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)

	// Slot is bookable again
	other := model.Actor{ID: uuid.New(), Role: model.RoleUser}
	_, err = f.svc.Book(ctx, other, bookingRequest())
	assert.NoError(t, err)
}

func TestCancelUnknownID(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Cancel(context.Background(), f.ownerActor(), uuid.New())
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestCancelByStrangerUnauthorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Book(ctx, f.ownerActor(), bookingRequest())
	require.NoError(t, err)

	stranger := model.Actor{ID: uuid.New(), Role: model.RoleUser}
	err = f.svc.Cancel(ctx, stranger, apt.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)

	// Not cancelled
	kept, _ := f.repo.Get(ctx, apt.ID)
	assert.Equal(t, model.AppointmentStatusBooked, kept.Status)
}

func TestSelfCancelSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Book(ctx, f.ownerActor(), bookingRequest())
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, f.ownerActor(), apt.ID))

	// One booking confirmation + one cancellation confirmation, no warning
	records := f.notifRepo.forUser(f.owner.ID)
	require.Len(t, records, 2)
	assert.Equal(t, model.NotificationTypeSuccess, records[1].Type)
	assert.Equal(t, "Cancellation Confirmed", records[1].Title)

	assert.Zero(t, f.email.calls)
	assert.Zero(t, f.sms.calls)

	// The confirmation is an in-app record only; the booking produced the
	// sole targeted event
	targeted := f.broker.onChannel("notification:" + f.owner.ID.String())
	require.Len(t, targeted, 1)
	notifEvent := targeted[0].Message.(model.NotificationEvent)
	assert.Equal(t, "Booking Confirmed", notifEvent.Title)
}

func TestStaffCancelFanout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Book(ctx, f.ownerActor(), bookingRequest())
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, f.staffActor(), apt.ID))

	records := f.notifRepo.forUser(f.owner.ID)
	require.Len(t, records, 2)
	assert.Equal(t, model.NotificationTypeWarning, records[1].Type)
	assert.Contains(t, records[1].Message, "cancelled by the clinic")

	assert.Equal(t, 1, f.email.calls)
	assert.Equal(t, []string{f.owner.Email}, f.email.sent)
	assert.Equal(t, 1, f.sms.calls)
	assert.Equal(t, []string{f.owner.Phone}, f.sms.phones)

	// Targeted cancellation event plus delete broadcast
	targeted := f.broker.onChannel("notification:" + f.owner.ID.String())
	require.Len(t, targeted, 2)
	cancelEvent := targeted[1].Message.(model.NotificationEvent)
	assert.Equal(t, "Appointment Cancelled", cancelEvent.Title)

	broadcasts := f.broker.onChannel("appointments:updated")
	last := broadcasts[len(broadcasts)-1].Message.(model.AppointmentEvent)
	assert.Equal(t, "delete", last.Type)
	assert.Equal(t, apt.ID.String(), last.ID)
}

func TestStaffCancelFanoutSurvivesNotificationFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Book(ctx, f.ownerActor(), bookingRequest())
	require.NoError(t, err)

	f.notifRepo.failCreate = true
	require.NoError(t, f.svc.Cancel(ctx, f.staffActor(), apt.ID))

	// Record write failed, but email, SMS and the targeted event still fired
	assert.Equal(t, 1, f.email.calls)
	assert.Equal(t, 1, f.sms.calls)

	targeted := f.broker.onChannel("notification:" + f.owner.ID.String())
	require.NotEmpty(t, targeted)
	last := targeted[len(targeted)-1].Message.(model.NotificationEvent)
	assert.Equal(t, "Appointment Cancelled", last.Title)
}

func TestStaffCancelFallsBackToPlaceholderPhone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.owner.Phone = ""

	apt, err := f.svc.Book(ctx, f.ownerActor(), bookingRequest())
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, f.staffActor(), apt.ID))
	require.Equal(t, 1, f.sms.calls)
	assert.Equal(t, "+919999999999", f.sms.phones[0])
}

func TestRescheduleKeepsOmittedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Book(ctx, f.ownerActor(), bookingRequest())
	require.NoError(t, err)

	newTime := "11:30 AM"
	updated, err := f.svc.Reschedule(ctx, apt.ID, &model.UpdateAppointmentRequest{Time: &newTime})
	require.NoError(t, err)
	assert.Equal(t, apt.Date, updated.Date)
	assert.Equal(t, newTime, updated.Time)

	newDate := "2025-05-02"
	updated, err = f.svc.Reschedule(ctx, apt.ID, &model.UpdateAppointmentRequest{Date: &newDate})
	require.NoError(t, err)
	assert.Equal(t, newDate, updated.Date)
	assert.Equal(t, newTime, updated.Time)
	assert.Equal(t, model.AppointmentStatusBooked, updated.Status)
}

func TestRescheduleIncludesReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Book(ctx, f.ownerActor(), bookingRequest())
	require.NoError(t, err)

	newDate := "2025-05-03"
	reason := "Doctor unavailable"
	_, err = f.svc.Reschedule(ctx, apt.ID, &model.UpdateAppointmentRequest{Date: &newDate, Reason: &reason})
	require.NoError(t, err)

	records := f.notifRepo.forUser(f.owner.ID)
	require.Len(t, records, 2)
	assert.Equal(t, model.NotificationTypeInfo, records[1].Type)
	assert.Contains(t, records[1].Message, "Reason: Doctor unavailable")
}

func TestRescheduleUnknownID(t *testing.T) {
	f := newFixture(t)

	newDate := "2025-05-03"
	_, err := f.svc.Reschedule(context.Background(), uuid.New(), &model.UpdateAppointmentRequest{Date: &newDate})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestCompleteRepeatsWithoutGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Book(ctx, f.ownerActor(), bookingRequest())
	require.NoError(t, err)

	first, err := f.svc.Complete(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, first.Status)

	// No double-completion guard: succeeds again and re-sends the thank-you
	second, err := f.svc.Complete(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, second.Status)

	var thanks int
	for _, n := range f.notifRepo.forUser(f.owner.ID) {
		if n.Title == "Visit Completed" {
			thanks++
		}
	}
	assert.Equal(t, 2, thanks)
}

func TestListUpcomingExcludesCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Book(ctx, f.ownerActor(), bookingRequest())
	require.NoError(t, err)

	req2 := bookingRequest()
	req2.Time = "02:00 PM"
	_, err = f.svc.Book(ctx, f.ownerActor(), req2)
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, f.ownerActor(), apt.ID))

	upcoming, err := f.svc.ListUpcoming(ctx, "2025-05-01")
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "02:00 PM", upcoming[0].Time)
}

// Cancelled rows are retained for the conflict predicate but never surface
// in any listing.
func TestCancelledHiddenFromListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.Book(ctx, f.ownerActor(), bookingRequest())
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, f.ownerActor(), apt.ID))

	mine, err := f.svc.ListMine(ctx, f.ownerActor())
	require.NoError(t, err)
	assert.Empty(t, mine)

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
