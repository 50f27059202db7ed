package alert

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rideloop/backend/internal/coordinator"
	"github.com/rideloop/backend/internal/domain/user"
	"github.com/rideloop/backend/pkg/logger"
)

type stubNotifier struct {
	groups []string
	events []string
}

func (n *stubNotifier) NotifyUser(uuid.UUID, string, interface{}) {}

func (n *stubNotifier) SetGroupMember(uuid.UUID, string, bool) {}

func (n *stubNotifier) NotifyGroup(group, event string, _ interface{}) {
	n.groups = append(n.groups, group)
	n.events = append(n.events, event)
}

type stubEmail struct {
	sent []string
	err  error
}

func (e *stubEmail) Send(_ context.Context, to, _, _ string) error {
	if e.err != nil {
		return e.err
	}
	e.sent = append(e.sent, to)
	return nil
}

func testService(t *testing.T, email EmailSender) (*Service, *stubNotifier) {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	require.NoError(t, err)
	n := &stubNotifier{}
	return NewService(n, email, log), n
}

// TestTrigger_NotifiesAdminsAndContacts tests the happy path
func TestTrigger_NotifiesAdminsAndContacts(t *testing.T) {
	email := &stubEmail{}
	svc, n := testService(t, email)

	u := &user.User{
		ID:   uuid.New(),
		Name: "Asha",
		EmergencyContacts: []user.Contact{
			{Name: "Ravi", Email: "ravi@example.com"},
			{Name: "No Email", Phone: "555-0100"},
		},
	}

	notified := svc.Trigger(context.Background(), u, TriggerInput{Message: "help"})

	assert.Equal(t, 1, notified)
	assert.Equal(t, []string{"ravi@example.com"}, email.sent)
	require.Len(t, n.groups, 1)
	assert.Equal(t, coordinator.GroupAdmins, n.groups[0])
	assert.Equal(t, EventEmergencyAlert, n.events[0])
}

// TestTrigger_EmailFailureIsBestEffort tests that a failing mail collaborator
// never fails the intent
func TestTrigger_EmailFailureIsBestEffort(t *testing.T) {
	email := &stubEmail{err: errors.New("smtp down")}
	svc, n := testService(t, email)

	u := &user.User{
		ID:                uuid.New(),
		Name:              "Asha",
		EmergencyContacts: []user.Contact{{Name: "Ravi", Email: "ravi@example.com"}},
	}

	notified := svc.Trigger(context.Background(), u, TriggerInput{})
	assert.Equal(t, 0, notified)
	assert.Len(t, n.groups, 1, "socket broadcast still happens")
}

// TestTrigger_NoMailTransport tests operation without a configured sender
func TestTrigger_NoMailTransport(t *testing.T) {
	svc, n := testService(t, nil)

	u := &user.User{ID: uuid.New(), Name: "Asha"}
	notified := svc.Trigger(context.Background(), u, TriggerInput{})

	assert.Equal(t, 0, notified)
	assert.Len(t, n.groups, 1)
}
