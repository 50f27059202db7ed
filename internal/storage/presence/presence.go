package presence

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rideloop/backend/pkg/logger"
)

// onlineDriversKey is the Redis set of driver IDs with live presence,
// mirroring the is_online column for cheap membership checks.
const onlineDriversKey = "drivers:online"

// Store keeps driver reachability. Postgres is the durable source of truth;
// the Redis set is a best-effort mirror and never fails the write.
type Store struct {
	db     *sql.DB
	redis  *redis.Client
	logger *logger.Logger
}

// NewStore creates a presence store
func NewStore(db *sql.DB, rdb *redis.Client, log *logger.Logger) *Store {
	return &Store{db: db, redis: rdb, logger: log}
}

// SetOnline flips a driver's reachability flag. The write is an idempotent
// set: it reports changed=false when the flag already held the requested
// value, so duplicate disconnect signals observe exactly one transition.
func (s *Store) SetOnline(ctx context.Context, driverID uuid.UUID, online bool) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_online = $2, updated_at = NOW()
		WHERE id = $1 AND is_online <> $2
	`, driverID, online)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	s.mirror(ctx, driverID, online)
	return n > 0, nil
}

// IsOnline reads a driver's reachability. The Redis set answers when the
// member is present; otherwise the durable flag decides.
func (s *Store) IsOnline(ctx context.Context, driverID uuid.UUID) (bool, error) {
	if s.redis != nil {
		member, err := s.redis.SIsMember(ctx, onlineDriversKey, driverID.String()).Result()
		if err == nil && member {
			return true, nil
		}
	}

	var online bool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_online FROM users WHERE id = $1`, driverID).Scan(&online)
	if err != nil {
		return false, err
	}
	return online, nil
}

// OnlineCount returns the size of the online drivers set
func (s *Store) OnlineCount(ctx context.Context) (int64, error) {
	if s.redis != nil {
		if n, err := s.redis.SCard(ctx, onlineDriversKey).Result(); err == nil {
			return n, nil
		}
	}

	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = 'driver' AND is_online`).Scan(&n)
	return n, err
}

func (s *Store) mirror(ctx context.Context, driverID uuid.UUID, online bool) {
	if s.redis == nil {
		return
	}
	var err error
	if online {
		err = s.redis.SAdd(ctx, onlineDriversKey, driverID.String()).Err()
	} else {
		err = s.redis.SRem(ctx, onlineDriversKey, driverID.String()).Err()
	}
	if err != nil {
		s.logger.Warn("Failed to mirror presence to Redis",
			logger.String("driver_id", driverID.String()),
			logger.Bool("online", online),
			logger.Err(err),
		)
	}
}
