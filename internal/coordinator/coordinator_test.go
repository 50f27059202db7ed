package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rideloop/backend/internal/domain/ride"
	"github.com/rideloop/backend/internal/domain/user"
	apperrors "github.com/rideloop/backend/pkg/errors"
	"github.com/rideloop/backend/pkg/logger"
	"github.com/rideloop/backend/pkg/realtime"
)

// In-memory fakes. GetByID returns copies so the coordinator's read-modify-
// write only becomes visible through Update, like a real store round-trip.

type memRideRepo struct {
	mu         sync.Mutex
	rides      map[uuid.UUID]*ride.Ride
	failUpdate error
}

func newMemRideRepo() *memRideRepo {
	return &memRideRepo{rides: make(map[uuid.UUID]*ride.Ride)}
}

func (r *memRideRepo) Create(_ context.Context, rd *ride.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rd
	r.rides[rd.ID] = &cp
	return nil
}

func (r *memRideRepo) GetByID(_ context.Context, id uuid.UUID) (*ride.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rd, ok := r.rides[id]
	if !ok {
		return nil, ride.ErrRideNotFound
	}
	cp := *rd
	return &cp, nil
}

func (r *memRideRepo) Update(_ context.Context, rd *ride.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return r.failUpdate
	}
	if _, ok := r.rides[rd.ID]; !ok {
		return ride.ErrRideNotFound
	}
	cp := *rd
	r.rides[rd.ID] = &cp
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *memUserRepo) Update(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) SetApproved(_ context.Context, id uuid.UUID, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.IsApproved = approved
	return nil
}

func (r *memUserRepo) SetBlocked(_ context.Context, id uuid.UUID, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.IsBlocked = blocked
	return nil
}

type fakePresence struct {
	mu     sync.Mutex
	online map[uuid.UUID]bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{online: make(map[uuid.UUID]bool)}
}

func (p *fakePresence) SetOnline(_ context.Context, id uuid.UUID, online bool) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	changed := p.online[id] != online
	p.online[id] = online
	return changed, nil
}

type recordedEvent struct {
	target  string
	event   string
	payload interface{}
}

type recordingNotifier struct {
	mu      sync.Mutex
	events  []recordedEvent
	members map[string]bool
}

func (n *recordingNotifier) NotifyUser(userID uuid.UUID, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{target: "user:" + userID.String(), event: event, payload: payload})
}

func (n *recordingNotifier) NotifyGroup(group, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{target: "group:" + group, event: event, payload: payload})
}

func (n *recordingNotifier) SetGroupMember(userID uuid.UUID, group string, member bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.members == nil {
		n.members = make(map[string]bool)
	}
	n.members[group+":"+userID.String()] = member
}

func (n *recordingNotifier) member(userID uuid.UUID, group string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.members[group+":"+userID.String()]
}

func (n *recordingNotifier) count(target, event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.target == target && e.event == event {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) last(target, event string) (recordedEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.events) - 1; i >= 0; i-- {
		if n.events[i].target == target && n.events[i].event == event {
			return n.events[i], true
		}
	}
	return recordedEvent{}, false
}

type fixture struct {
	coord    *Coordinator
	rides    *memRideRepo
	users    *memUserRepo
	presence *fakePresence
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	require.NoError(t, err)

	f := &fixture{
		rides:    newMemRideRepo(),
		users:    newMemUserRepo(),
		presence: newFakePresence(),
		notifier: &recordingNotifier{},
	}
	f.coord = New(f.rides, f.users, f.presence, f.notifier, log)
	return f
}

func (f *fixture) addUser(t *testing.T, role user.Role, approved, online bool) *user.User {
	t.Helper()
	u := &user.User{
		ID:         uuid.New(),
		Name:       fmt.Sprintf("%s-%s", role, uuid.NewString()[:8]),
		Email:      uuid.NewString()[:8] + "@example.com",
		Role:       role,
		IsApproved: approved,
		IsOnline:   online,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) requestRide(t *testing.T, riderID uuid.UUID) *ride.Ride {
	t.Helper()
	rd, err := f.coord.RequestRide(context.Background(), riderID, RequestRideInput{
		Pickup:      ride.Location{Address: "123 Main"},
		Destination: ride.Location{Address: "456 Oak"},
		Fare:        12.50,
	})
	require.NoError(t, err)
	return rd
}

// TestRequestRide_RoundTrip tests that a requested ride is immediately
// readable with the supplied values
func TestRequestRide_RoundTrip(t *testing.T) {
	f := newFixture(t)
	rider := f.addUser(t, user.RoleRider, true, false)

	rd := f.requestRide(t, rider.ID)

	stored, err := f.rides.GetByID(context.Background(), rd.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.StatusRequested, stored.Status)
	assert.Nil(t, stored.DriverID)
	assert.Equal(t, "123 Main", stored.Pickup.Address)
	assert.Equal(t, "456 Oak", stored.Destination.Address)
	assert.Equal(t, 12.50, stored.Fare)
	assert.Equal(t, ride.PaymentCash, stored.PaymentMethod, "payment method defaults to cash")

	assert.Equal(t, 1, f.notifier.count("group:drivers", EventRideNew))
}

// TestRequestRide_Validation tests that malformed input is rejected before
// any store access
func TestRequestRide_Validation(t *testing.T) {
	f := newFixture(t)
	rider := f.addUser(t, user.RoleRider, true, false)

	tests := []struct {
		name string
		in   RequestRideInput
	}{
		{"missing pickup address", RequestRideInput{Destination: ride.Location{Address: "456 Oak"}}},
		{"missing destination address", RequestRideInput{Pickup: ride.Location{Address: "123 Main"}}},
		{"negative fare", RequestRideInput{
			Pickup:      ride.Location{Address: "123 Main"},
			Destination: ride.Location{Address: "456 Oak"},
			Fare:        -1,
		}},
		{"bad payment method", RequestRideInput{
			Pickup:        ride.Location{Address: "123 Main"},
			Destination:   ride.Location{Address: "456 Oak"},
			PaymentMethod: "cheque",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.coord.RequestRide(context.Background(), rider.ID, tt.in)
			assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"), "got %v", err)
		})
	}
	assert.Empty(t, f.rides.rides, "validation failures must not touch the store")
	assert.Equal(t, 0, f.notifier.count("group:drivers", EventRideNew))
}

// TestAcceptRide_Scenario tests the full accept flow: rider notified with the
// driver summary, offer retracted from the drivers group, second driver loses
func TestAcceptRide_Scenario(t *testing.T) {
	f := newFixture(t)
	rider := f.addUser(t, user.RoleRider, true, false)
	d := f.addUser(t, user.RoleDriver, true, true)
	d.Vehicle = user.Vehicle{Plate: "KA-01-1234", Model: "Swift", Color: "white"}
	require.NoError(t, f.users.Update(context.Background(), d))
	e := f.addUser(t, user.RoleDriver, true, true)

	rd := f.requestRide(t, rider.ID)

	accepted, err := f.coord.AcceptRide(context.Background(), rd.ID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.DriverID)
	assert.Equal(t, d.ID, *accepted.DriverID)

	ev, ok := f.notifier.last("user:"+rider.ID.String(), EventRideAccepted)
	require.True(t, ok, "rider must receive ride:accepted")
	payload := ev.payload.(RideAcceptedPayload)
	assert.Equal(t, rd.ID, payload.RideID)
	assert.Equal(t, d.ID, payload.Driver.ID)
	assert.Equal(t, "KA-01-1234", payload.Driver.Vehicle.Plate)

	rev, ok := f.notifier.last("group:drivers", EventRideRemoved)
	require.True(t, ok, "drivers group must receive ride:removed")
	assert.Equal(t, rd.ID, rev.payload.(RideRemovedPayload).RideID)

	// Second driver loses the slot.
	_, err = f.coord.AcceptRide(context.Background(), rd.ID, e.ID)
	assert.True(t, apperrors.IsCode(err, "ALREADY_ASSIGNED"), "got %v", err)

	// Re-accept by the winner is idempotent and emits nothing new.
	before := f.notifier.count("user:"+rider.ID.String(), EventRideAccepted)
	again, err := f.coord.AcceptRide(context.Background(), rd.ID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, *again.DriverID)
	assert.Equal(t, before, f.notifier.count("user:"+rider.ID.String(), EventRideAccepted))
}

// TestAcceptRide_ConcurrentDrivers fires N racing accepts with distinct
// driver ids against one fresh ride: exactly one succeeds, the rest observe
// ALREADY_ASSIGNED, and the driver slot holds a single winner
func TestAcceptRide_ConcurrentDrivers(t *testing.T) {
	const n = 32

	f := newFixture(t)
	rider := f.addUser(t, user.RoleRider, true, false)
	rd := f.requestRide(t, rider.ID)

	drivers := make([]*user.User, n)
	for i := range drivers {
		drivers[i] = f.addUser(t, user.RoleDriver, true, true)
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		winners    []uuid.UUID
		lost       int
		unexpected int
	)
	for _, d := range drivers {
		wg.Add(1)
		go func(driverID uuid.UUID) {
			defer wg.Done()
			_, err := f.coord.AcceptRide(context.Background(), rd.ID, driverID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, driverID)
			case apperrors.IsCode(err, "ALREADY_ASSIGNED"):
				lost++
			default:
				unexpected++
			}
		}(d.ID)
	}
	wg.Wait()

	require.Len(t, winners, 1, "exactly one accept must succeed")
	assert.Equal(t, n-1, lost, "every loser must observe ALREADY_ASSIGNED")
	assert.Zero(t, unexpected, "no other failure kinds expected")

	stored, err := f.rides.GetByID(context.Background(), rd.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DriverID)
	assert.Equal(t, winners[0], *stored.DriverID)
	assert.Equal(t, ride.StatusAccepted, stored.Status)

	assert.Equal(t, 1, f.notifier.count("user:"+rider.ID.String(), EventRideAccepted),
		"event emission must align with exactly one winner")
	assert.Equal(t, 1, f.notifier.count("group:drivers", EventRideRemoved))
}

// TestAcceptRide_DriverChecks tests the approval/online/role preconditions
func TestAcceptRide_DriverChecks(t *testing.T) {
	tests := []struct {
		name     string
		role     user.Role
		approved bool
		online   bool
		blocked  bool
		wantCode string
	}{
		{"unapproved driver", user.RoleDriver, false, true, false, "FORBIDDEN"},
		{"offline driver", user.RoleDriver, true, false, false, "FORBIDDEN"},
		{"blocked driver", user.RoleDriver, true, true, true, "FORBIDDEN"},
		{"rider posing as driver", user.RoleRider, true, true, false, "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rider := f.addUser(t, user.RoleRider, true, false)
			d := f.addUser(t, tt.role, tt.approved, tt.online)
			if tt.blocked {
				require.NoError(t, f.users.SetBlocked(context.Background(), d.ID, true))
			}
			rd := f.requestRide(t, rider.ID)

			_, err := f.coord.AcceptRide(context.Background(), rd.ID, d.ID)
			assert.True(t, apperrors.IsCode(err, tt.wantCode), "got %v", err)

			stored, gerr := f.rides.GetByID(context.Background(), rd.ID)
			require.NoError(t, gerr)
			assert.Equal(t, ride.StatusRequested, stored.Status, "ride must stay requested")
			assert.Nil(t, stored.DriverID)
		})
	}
}

// TestAcceptRide_MissingRide tests NOT_FOUND for an unknown ride id
func TestAcceptRide_MissingRide(t *testing.T) {
	f := newFixture(t)
	d := f.addUser(t, user.RoleDriver, true, true)

	_, err := f.coord.AcceptRide(context.Background(), uuid.New(), d.ID)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"), "got %v", err)
}

// TestAcceptRide_CancelledRide tests that a cancelled ride can no longer be
// accepted
func TestAcceptRide_CancelledRide(t *testing.T) {
	f := newFixture(t)
	rider := f.addUser(t, user.RoleRider, true, false)
	d := f.addUser(t, user.RoleDriver, true, true)
	rd := f.requestRide(t, rider.ID)

	_, err := f.coord.UpdateStatus(context.Background(), rd.ID, ride.StatusCancelled, rider.ID)
	require.NoError(t, err)

	_, err = f.coord.AcceptRide(context.Background(), rd.ID, d.ID)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"), "got %v", err)
}

// TestUpdateStatus_DriverAdvances tests the driver walking the trip forward
func TestUpdateStatus_DriverAdvances(t *testing.T) {
	f := newFixture(t)
	rider := f.addUser(t, user.RoleRider, true, false)
	d := f.addUser(t, user.RoleDriver, true, true)
	rd := f.requestRide(t, rider.ID)
	_, err := f.coord.AcceptRide(context.Background(), rd.ID, d.ID)
	require.NoError(t, err)

	for _, status := range []ride.Status{ride.StatusPickedUp, ride.StatusInTransit, ride.StatusCompleted} {
		updated, err := f.coord.UpdateStatus(context.Background(), rd.ID, status, d.ID)
		require.NoError(t, err, "driver should advance to %s", status)
		assert.Equal(t, status, updated.Status)
	}

	assert.Equal(t, 3, f.notifier.count("user:"+rider.ID.String(), EventRideStatusUpdated))
	assert.Equal(t, 3, f.notifier.count("user:"+d.ID.String(), EventRideStatusUpdated))
	assert.Equal(t, 2, f.notifier.count("group:drivers", EventRideRemoved),
		"accept and completion both retract the offer")
}

// TestUpdateStatus_Authorization tests the per-role transition rules
func TestUpdateStatus_Authorization(t *testing.T) {
	f := newFixture(t)
	rider := f.addUser(t, user.RoleRider, true, false)
	stranger := f.addUser(t, user.RoleRider, true, false)
	d := f.addUser(t, user.RoleDriver, true, true)
	otherDriver := f.addUser(t, user.RoleDriver, true, true)
	admin := f.addUser(t, user.RoleAdmin, true, false)

	newAcceptedRide := func(t *testing.T) *ride.Ride {
		rd := f.requestRide(t, rider.ID)
		_, err := f.coord.AcceptRide(context.Background(), rd.ID, d.ID)
		require.NoError(t, err)
		return rd
	}

	t.Run("rider cancels accepted ride", func(t *testing.T) {
		rd := newAcceptedRide(t)
		updated, err := f.coord.UpdateStatus(context.Background(), rd.ID, ride.StatusCancelled, rider.ID)
		require.NoError(t, err)
		assert.Equal(t, ride.StatusCancelled, updated.Status)
	})

	t.Run("rider cannot advance trip", func(t *testing.T) {
		rd := newAcceptedRide(t)
		_, err := f.coord.UpdateStatus(context.Background(), rd.ID, ride.StatusPickedUp, rider.ID)
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"), "got %v", err)
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		rd := newAcceptedRide(t)
		_, err := f.coord.UpdateStatus(context.Background(), rd.ID, ride.StatusCancelled, stranger.ID)
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"), "got %v", err)
	})

	t.Run("unassigned driver cannot advance", func(t *testing.T) {
		rd := newAcceptedRide(t)
		_, err := f.coord.UpdateStatus(context.Background(), rd.ID, ride.StatusPickedUp, otherDriver.ID)
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"), "got %v", err)
	})

	t.Run("assigned driver cannot cancel", func(t *testing.T) {
		rd := newAcceptedRide(t)
		_, err := f.coord.UpdateStatus(context.Background(), rd.ID, ride.StatusCancelled, d.ID)
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"), "got %v", err)
	})

	t.Run("admin may set any graph-allowed value", func(t *testing.T) {
		rd := newAcceptedRide(t)
		updated, err := f.coord.UpdateStatus(context.Background(), rd.ID, ride.StatusCancelled, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, ride.StatusCancelled, updated.Status)
	})
}

// TestUpdateStatus_TerminalStates tests that completed and cancelled rides
// reject every transition before authorization even runs
func TestUpdateStatus_TerminalStates(t *testing.T) {
	f := newFixture(t)
	rider := f.addUser(t, user.RoleRider, true, false)
	d := f.addUser(t, user.RoleDriver, true, true)
	admin := f.addUser(t, user.RoleAdmin, true, false)

	completed := f.requestRide(t, rider.ID)
	_, err := f.coord.AcceptRide(context.Background(), completed.ID, d.ID)
	require.NoError(t, err)
	for _, s := range []ride.Status{ride.StatusPickedUp, ride.StatusInTransit, ride.StatusCompleted} {
		_, err = f.coord.UpdateStatus(context.Background(), completed.ID, s, d.ID)
		require.NoError(t, err)
	}

	cancelled := f.requestRide(t, rider.ID)
	_, err = f.coord.UpdateStatus(context.Background(), cancelled.ID, ride.StatusCancelled, rider.ID)
	require.NoError(t, err)

	all := []ride.Status{
		ride.StatusRequested, ride.StatusAccepted, ride.StatusPickedUp,
		ride.StatusInTransit, ride.StatusCompleted, ride.StatusCancelled,
	}
	for _, terminal := range []uuid.UUID{completed.ID, cancelled.ID} {
		for _, next := range all {
			_, err := f.coord.UpdateStatus(context.Background(), terminal, next, admin.ID)
			assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"),
				"terminal ride must reject transition to %s, got %v", next, err)
		}
	}

	// Riders may cancel, but never a completed ride.
	_, err = f.coord.UpdateStatus(context.Background(), completed.ID, ride.StatusCancelled, rider.ID)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"), "got %v", err)
}

// TestStoreError_LeavesStateUntouched tests that a failed persistence write
// surfaces as STORE_ERROR and changes nothing
func TestStoreError_LeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	rider := f.addUser(t, user.RoleRider, true, false)
	d := f.addUser(t, user.RoleDriver, true, true)
	rd := f.requestRide(t, rider.ID)

	f.rides.failUpdate = errors.New("connection refused")

	_, err := f.coord.AcceptRide(context.Background(), rd.ID, d.ID)
	assert.True(t, apperrors.IsCode(err, "STORE_ERROR"), "got %v", err)

	f.rides.failUpdate = nil
	stored, gerr := f.rides.GetByID(context.Background(), rd.ID)
	require.NoError(t, gerr)
	assert.Equal(t, ride.StatusRequested, stored.Status)
	assert.Nil(t, stored.DriverID)
	assert.Equal(t, 0, f.notifier.count("user:"+rider.ID.String(), EventRideAccepted),
		"no events on a failed intent")
}

// TestSetAvailability tests the explicit presence intent and its role guard
func TestSetAvailability(t *testing.T) {
	f := newFixture(t)
	d := f.addUser(t, user.RoleDriver, true, false)
	rider := f.addUser(t, user.RoleRider, true, false)

	require.NoError(t, f.coord.SetAvailability(context.Background(), d.ID, true))
	assert.True(t, f.presence.online[d.ID])
	assert.True(t, f.notifier.member(d.ID, GroupDrivers))

	require.NoError(t, f.coord.SetAvailability(context.Background(), d.ID, false))
	assert.False(t, f.presence.online[d.ID])
	assert.False(t, f.notifier.member(d.ID, GroupDrivers), "offline driver must leave the offer group")
	assert.Equal(t, 1, f.notifier.count("group:drivers", EventDriverOffline))

	err := f.coord.SetAvailability(context.Background(), rider.ID, true)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"), "got %v", err)
}

// TestSetAvailability_RemovesOfferGroup wires the real hub as the notifier:
// a driver going voluntarily offline keeps the session connected but the
// session leaves the drivers group, so broadcast offers stop reaching it.
func TestSetAvailability_RemovesOfferGroup(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	require.NoError(t, err)

	users := newMemUserRepo()
	hub := realtime.NewHub(log)
	coord := New(newMemRideRepo(), users, newFakePresence(), hub, log)

	d := &user.User{ID: uuid.New(), Name: "drv", Email: "drv@example.com", Role: user.RoleDriver, IsApproved: true}
	require.NoError(t, users.Create(context.Background(), d))

	session := realtime.NewClient(hub, nil, d.ID, user.RoleDriver, log)
	hub.Register(session)
	hub.JoinGroup(session, realtime.GroupDrivers)
	require.Equal(t, 1, hub.GroupSize(realtime.GroupDrivers))

	require.NoError(t, coord.SetAvailability(context.Background(), d.ID, false))
	assert.Equal(t, 0, hub.GroupSize(realtime.GroupDrivers),
		"offline driver must not stay in the offer group")

	require.NoError(t, coord.SetAvailability(context.Background(), d.ID, true))
	assert.Equal(t, 1, hub.GroupSize(realtime.GroupDrivers),
		"going online restores membership for live sessions")
}

// TestHandleDisconnect_Idempotent tests that duplicate disconnect signals
// observe exactly one presence transition and one offline broadcast
func TestHandleDisconnect_Idempotent(t *testing.T) {
	f := newFixture(t)
	d := f.addUser(t, user.RoleDriver, true, false)

	require.NoError(t, f.coord.HandleConnect(context.Background(), d))
	assert.True(t, f.presence.online[d.ID])

	require.NoError(t, f.coord.HandleDisconnect(context.Background(), d.ID, user.RoleDriver))
	require.NoError(t, f.coord.HandleDisconnect(context.Background(), d.ID, user.RoleDriver),
		"second disconnect signal must not error")

	assert.False(t, f.presence.online[d.ID])
	assert.Equal(t, 1, f.notifier.count("group:drivers", EventDriverOffline),
		"offline broadcast must fire exactly once")
}

// TestHandleDisconnect_NonDriver tests that rider disconnects have no
// presence side-effect
func TestHandleDisconnect_NonDriver(t *testing.T) {
	f := newFixture(t)
	rider := f.addUser(t, user.RoleRider, true, false)

	require.NoError(t, f.coord.HandleDisconnect(context.Background(), rider.ID, user.RoleRider))
	assert.Empty(t, f.presence.online)
	assert.Equal(t, 0, f.notifier.count("group:drivers", EventDriverOffline))
}
