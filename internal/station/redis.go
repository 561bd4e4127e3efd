package station

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisProbe reads station state published by the station controller into
// a Redis hash at "<prefix>:<station>" with fields "state" (ok, unavailable,
// busy) and an optional "message". A missing hash means the controller has
// not reported and the station is treated as unavailable.
type RedisProbe struct {
	client redis.Cmdable
	key    string
}

// NewRedisProbe builds a probe for one station.
func NewRedisProbe(client redis.Cmdable, prefix, stationKey string) *RedisProbe {
	if prefix == "" {
		prefix = "fasttrigger:station"
	}
	return &RedisProbe{client: client, key: prefix + ":" + stationKey}
}

// Key returns the hash key the probe reads.
func (p *RedisProbe) Key() string { return p.key }

// Check implements AvailabilityProbe.
func (p *RedisProbe) Check(ctx context.Context) (ProbeResult, error) {
	fields, err := p.client.HGetAll(ctx, p.key).Result()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("redis probe %s: %w", p.key, err)
	}
	if len(fields) == 0 {
		return ProbeResult{State: Unavailable, Message: "no state reported by the station controller"}, nil
	}

	state, err := ParseAvailability(fields["state"])
	if err != nil {
		return ProbeResult{}, fmt.Errorf("redis probe %s: %w", p.key, err)
	}
	return ProbeResult{State: state, Message: fields["message"]}, nil
}
