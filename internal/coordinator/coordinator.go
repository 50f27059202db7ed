package coordinator

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rideloop/backend/internal/domain/ride"
	"github.com/rideloop/backend/internal/domain/user"
	apperrors "github.com/rideloop/backend/pkg/errors"
	"github.com/rideloop/backend/pkg/logger"
)

// Notifier delivers coordinator events to live sessions. Delivery is
// fire-and-forget; ride state in the store is the durable source of truth.
// SetGroupMember moves every live session of a principal in or out of a
// broadcast group, so availability changes also stop group sends.
type Notifier interface {
	NotifyUser(userID uuid.UUID, event string, payload interface{})
	NotifyGroup(group, event string, payload interface{})
	SetGroupMember(userID uuid.UUID, group string, member bool)
}

// Presence is the durable reachability record for drivers. SetOnline is an
// idempotent set reporting whether the flag actually changed.
type Presence interface {
	SetOnline(ctx context.Context, driverID uuid.UUID, online bool) (bool, error)
}

// Group names the coordinator targets
const (
	GroupDrivers = "drivers"
	GroupAdmins  = "admins"
)

// Coordinator applies the ride lifecycle state machine. Every transition on
// a ride runs inside that ride's exclusive scope: the guard is taken before
// the current driver/status pair is read and released after the persisted
// write and the success/failure decision.
type Coordinator struct {
	rides    ride.Repository
	users    user.Repository
	presence Presence
	notifier Notifier
	locks    *keyedMutex
	logger   *logger.Logger
}

// New creates a coordinator
func New(rides ride.Repository, users user.Repository, presence Presence, notifier Notifier, log *logger.Logger) *Coordinator {
	return &Coordinator{
		rides:    rides,
		users:    users,
		presence: presence,
		notifier: notifier,
		locks:    newKeyedMutex(),
		logger:   log,
	}
}

// RequestRideInput carries a rider's trip request
type RequestRideInput struct {
	Pickup        ride.Location
	Destination   ride.Location
	Fare          float64
	PaymentMethod ride.PaymentMethod
}

// RequestRide creates a ride in the requested state and announces it to the
// drivers group.
func (c *Coordinator) RequestRide(ctx context.Context, riderID uuid.UUID, in RequestRideInput) (*ride.Ride, error) {
	if in.Pickup.Address == "" || in.Destination.Address == "" {
		return nil, apperrors.ValidationFailed("Pickup and destination address required", nil)
	}
	if in.Fare < 0 {
		return nil, apperrors.ValidationFailed("Fare cannot be negative", nil)
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = ride.PaymentCash
	}
	if !in.PaymentMethod.IsValid() {
		return nil, apperrors.ValidationFailed("Invalid payment method", nil)
	}

	rd := &ride.Ride{
		ID:            uuid.New(),
		RiderID:       riderID,
		Pickup:        in.Pickup,
		Destination:   in.Destination,
		Fare:          in.Fare,
		Status:        ride.StatusRequested,
		PaymentMethod: in.PaymentMethod,
	}
	if err := c.rides.Create(ctx, rd); err != nil {
		return nil, apperrors.StoreError("Failed to create ride", err)
	}

	c.logger.Info("Ride requested",
		logger.String("ride_id", rd.ID.String()),
		logger.String("rider_id", riderID.String()),
		logger.String("pickup", rd.Pickup.Address),
		logger.String("destination", rd.Destination.Address),
	)

	c.notifier.NotifyGroup(GroupDrivers, EventRideNew, RideOfferPayload{
		RideID:      rd.ID,
		Pickup:      rd.Pickup,
		Destination: rd.Destination,
		Fare:        rd.Fare,
		CreatedAt:   rd.CreatedAt,
	})
	return rd, nil
}

// AcceptRide assigns a driver to a requested ride. Racing accepts on the same
// ride are serialized by the per-ride guard: exactly one wins, the rest
// observe ALREADY_ASSIGNED and emit nothing.
func (c *Coordinator) AcceptRide(ctx context.Context, rideID, driverID uuid.UUID) (*ride.Ride, error) {
	unlock := c.locks.Lock(rideID)
	defer unlock()

	rd, err := c.getRide(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if rd.DriverID != nil {
		if *rd.DriverID == driverID {
			// Idempotent re-accept: same winner, no duplicate events.
			return rd, nil
		}
		return nil, apperrors.AlreadyAssigned("Ride is already assigned to another driver", nil)
	}
	if !rd.Status.CanTransitionTo(ride.StatusAccepted) {
		return nil, apperrors.InvalidTransition("Ride can no longer be accepted", ride.ErrInvalidTransition)
	}

	d, err := c.users.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperrors.NotFound("Driver not found", err)
		}
		return nil, apperrors.StoreError("Failed to load driver", err)
	}
	if d.Role != user.RoleDriver || d.IsBlocked {
		return nil, apperrors.Forbidden("Only drivers can accept rides", nil)
	}
	if !d.IsApproved {
		return nil, apperrors.Forbidden("Driver is not approved", user.ErrNotApproved)
	}
	if !d.IsOnline {
		return nil, apperrors.Forbidden("Driver is offline", user.ErrDriverOffline)
	}

	rd.DriverID = &driverID
	rd.Status = ride.StatusAccepted
	if err := c.rides.Update(ctx, rd); err != nil {
		return nil, apperrors.StoreError("Failed to persist ride assignment", err)
	}

	c.logger.Info("Ride accepted",
		logger.String("ride_id", rd.ID.String()),
		logger.String("driver_id", driverID.String()),
	)

	c.notifier.NotifyUser(rd.RiderID, EventRideAccepted, RideAcceptedPayload{
		RideID: rd.ID,
		Driver: d.Summarize(),
		Status: rd.Status,
	})
	c.notifier.NotifyGroup(GroupDrivers, EventRideRemoved, RideRemovedPayload{RideID: rd.ID})
	return rd, nil
}

// UpdateStatus advances a ride along the lifecycle graph. The graph check
// runs before authorization, so a terminal ride always reports
// INVALID_TRANSITION regardless of who asks.
func (c *Coordinator) UpdateStatus(ctx context.Context, rideID uuid.UUID, newStatus ride.Status, actorID uuid.UUID) (*ride.Ride, error) {
	if !newStatus.IsValid() {
		return nil, apperrors.ValidationFailed("Invalid ride status", nil)
	}

	unlock := c.locks.Lock(rideID)
	defer unlock()

	rd, err := c.getRide(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if !rd.Status.CanTransitionTo(newStatus) {
		return nil, apperrors.InvalidTransition("Status transition not allowed", ride.ErrInvalidTransition)
	}

	actor, err := c.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperrors.NotFound("Actor not found", err)
		}
		return nil, apperrors.StoreError("Failed to load actor", err)
	}
	if err := authorizeTransition(rd, actor, newStatus); err != nil {
		return nil, err
	}

	rd.Status = newStatus
	if err := c.rides.Update(ctx, rd); err != nil {
		return nil, apperrors.StoreError("Failed to persist status change", err)
	}

	c.logger.Info("Ride status updated",
		logger.String("ride_id", rd.ID.String()),
		logger.String("status", string(newStatus)),
		logger.String("actor_id", actorID.String()),
	)

	payload := RideStatusPayload{RideID: rd.ID, Status: rd.Status}
	c.notifier.NotifyUser(rd.RiderID, EventRideStatusUpdated, payload)
	if rd.DriverID != nil {
		c.notifier.NotifyUser(*rd.DriverID, EventRideStatusUpdated, payload)
	}
	if newStatus.RemovesFromOffer() {
		c.notifier.NotifyGroup(GroupDrivers, EventRideRemoved, RideRemovedPayload{RideID: rd.ID})
	}
	return rd, nil
}

// authorizeTransition applies the per-role rules: the assigned driver
// advances the trip, the ride's rider may only cancel, admins may set any
// graph-allowed value.
func authorizeTransition(rd *ride.Ride, actor *user.User, newStatus ride.Status) error {
	switch actor.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleDriver:
		if !rd.AssignedTo(actor.ID) {
			return apperrors.Forbidden("Only the assigned driver can update this ride", nil)
		}
		if newStatus == ride.StatusCancelled {
			return apperrors.Forbidden("Drivers cannot cancel rides", nil)
		}
		return nil
	case user.RoleRider:
		if rd.RiderID != actor.ID {
			return apperrors.Forbidden("Not your ride", nil)
		}
		if newStatus != ride.StatusCancelled {
			return apperrors.Forbidden("Riders can only cancel rides", nil)
		}
		return nil
	default:
		return apperrors.Forbidden("Unknown role", user.ErrInvalidRole)
	}
}

// SetAvailability flips a driver's presence on an explicit intent
func (c *Coordinator) SetAvailability(ctx context.Context, principalID uuid.UUID, online bool) error {
	u, err := c.users.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return apperrors.NotFound("User not found", err)
		}
		return apperrors.StoreError("Failed to load user", err)
	}
	if u.Role != user.RoleDriver {
		return apperrors.Forbidden("Only drivers can set availability", nil)
	}

	changed, err := c.presence.SetOnline(ctx, principalID, online)
	if err != nil {
		return apperrors.StoreError("Failed to update presence", err)
	}

	// An offline driver must stop receiving offers even while the sessions
	// stay connected.
	c.notifier.SetGroupMember(principalID, GroupDrivers, online)

	c.notifier.NotifyUser(principalID, EventDriverStatus, DriverStatusPayload{
		DriverID: principalID,
		IsOnline: online,
	})
	if changed && !online {
		c.notifier.NotifyGroup(GroupDrivers, EventDriverOffline, DriverStatusPayload{
			DriverID: principalID,
			IsOnline: false,
		})
	}
	return nil
}

// HandleConnect runs the presence side-effect for an admitted connection
func (c *Coordinator) HandleConnect(ctx context.Context, u *user.User) error {
	if u.Role != user.RoleDriver {
		return nil
	}
	if _, err := c.presence.SetOnline(ctx, u.ID, true); err != nil {
		return apperrors.StoreError("Failed to mark driver online", err)
	}
	c.notifier.SetGroupMember(u.ID, GroupDrivers, true)
	c.notifier.NotifyUser(u.ID, EventDriverStatus, DriverStatusPayload{
		DriverID: u.ID,
		IsOnline: true,
	})
	return nil
}

// HandleDisconnect runs the presence side-effect when a principal's last
// session drops. Idempotent under duplicate disconnect signals: events fire
// only when the presence flag actually changed.
func (c *Coordinator) HandleDisconnect(ctx context.Context, principalID uuid.UUID, role user.Role) error {
	if role != user.RoleDriver {
		return nil
	}
	changed, err := c.presence.SetOnline(ctx, principalID, false)
	if err != nil {
		return apperrors.StoreError("Failed to mark driver offline", err)
	}
	if changed {
		c.notifier.NotifyGroup(GroupDrivers, EventDriverOffline, DriverStatusPayload{
			DriverID: principalID,
			IsOnline: false,
		})
	}
	return nil
}

func (c *Coordinator) getRide(ctx context.Context, rideID uuid.UUID) (*ride.Ride, error) {
	rd, err := c.rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, ride.ErrRideNotFound) {
			return nil, apperrors.NotFound("Ride not found", err)
		}
		return nil, apperrors.StoreError("Failed to load ride", err)
	}
	return rd, nil
}
