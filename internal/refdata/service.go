// Package refdata serves the hearing-type, meeting-type and room lists the
// journey pages render, caching them in Redis so every step submission does
// not re-hit the scheduling backend.
package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/justiceops/videolink-booking/internal/clients/bookingapi"
)

const defaultTTL = 10 * time.Minute

// Source is the slice of the scheduling client serving reference data.
type Source interface {
	HearingTypes(ctx context.Context) ([]bookingapi.RefCode, error)
	MeetingTypes(ctx context.Context) ([]bookingapi.RefCode, error)
	Rooms(ctx context.Context, prisonCode string) ([]bookingapi.Room, error)
}

// Service is a read-through cache over a reference-data source.
type Service struct {
	source Source
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// New creates a reference-data service. A zero ttl falls back to ten minutes.
func New(source Source, redisClient *redis.Client, ttl time.Duration, tracer trace.Tracer) *Service {
	if source == nil {
		panic("refdata: source cannot be nil")
	}
	if redisClient == nil {
		panic("refdata: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("videolink.internal.refdata")
	}
	return &Service{source: source, redis: redisClient, ttl: ttl, tracer: tracer}
}

// HearingTypes returns the court hearing types.
func (s *Service) HearingTypes(ctx context.Context) ([]bookingapi.RefCode, error) {
	return cached(ctx, s, "refdata:hearing-types", s.source.HearingTypes)
}

// MeetingTypes returns the probation meeting types.
func (s *Service) MeetingTypes(ctx context.Context) ([]bookingapi.RefCode, error) {
	return cached(ctx, s, "refdata:meeting-types", s.source.MeetingTypes)
}

// Rooms returns the video-link rooms at a prison.
func (s *Service) Rooms(ctx context.Context, prisonCode string) ([]bookingapi.Room, error) {
	return cached(ctx, s, "refdata:rooms:"+prisonCode, func(ctx context.Context) ([]bookingapi.Room, error) {
		return s.source.Rooms(ctx, prisonCode)
	})
}

func cached[T any](ctx context.Context, s *Service, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	ctx, span := s.tracer.Start(ctx, "refdata.get")
	defer span.End()

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == nil {
		var out []T
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
		// Unreadable cache entry: fall through and refetch.
	} else if err != redis.Nil {
		span.RecordError(err)
		return nil, fmt.Errorf("refdata: read cache %s: %w", key, err)
	}

	out, err := fetch(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("refdata: fetch %s: %w", key, err)
	}

	if data, err := json.Marshal(out); err == nil {
		if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
			span.RecordError(err)
		}
	}
	return out, nil
}
