package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SeatLock is the advisory fast path in front of the database unique
// constraint. Its TTL mirrors the hold TTL, so a lost Unlock self-heals.
type SeatLock struct {
	client *redis.Client
}

func NewSeatLock(client *redis.Client) *SeatLock {
	return &SeatLock{client: client}
}

func (l *SeatLock) Client() *redis.Client {
	return l.client
}

func seatKey(tripID uuid.UUID, seatNo int) string {
	return fmt.Sprintf("hold:%s:%d", tripID, seatNo)
}

func (l *SeatLock) Lock(ctx context.Context, tripID uuid.UUID, seatNo int, holderID uuid.UUID, ttl time.Duration) (bool, error) {
	res := l.client.SetNX(ctx, seatKey(tripID, seatNo), holderID.String(), ttl)
	return res.Val(), res.Err()
}

func (l *SeatLock) Unlock(ctx context.Context, tripID uuid.UUID, seatNo int) error {
	return l.client.Del(ctx, seatKey(tripID, seatNo)).Err()
}
