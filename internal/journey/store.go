package journey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoDraft is returned when a session has no draft for the journey id.
var ErrNoDraft = errors.New("journey: no draft in session")

const defaultDraftTTL = time.Hour

// Store keeps one draft per (session, journey) pair in Redis. A draft is
// only ever mutated by the request currently processing it; two tabs racing
// on the same journey is last-write-wins.
type Store struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewStore creates a draft store. A zero ttl falls back to one hour.
func NewStore(redisClient *redis.Client, ttl time.Duration, tracer trace.Tracer) *Store {
	if redisClient == nil {
		panic("journey: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultDraftTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("videolink.internal.journey.store")
	}
	return &Store{redis: redisClient, ttl: ttl, tracer: tracer}
}

// Put persists the draft, resetting its TTL.
func (s *Store) Put(ctx context.Context, sessionID string, draft *Draft) error {
	ctx, span := s.tracer.Start(ctx, "journey.put_draft")
	defer span.End()

	data, err := json.Marshal(draft)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("journey: marshal draft: %w", err)
	}
	if err := s.redis.Set(ctx, draftKey(sessionID, draft.JourneyID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("journey: persist draft: %w", err)
	}
	return nil
}

// Get loads the draft for a journey, or ErrNoDraft.
func (s *Store) Get(ctx context.Context, sessionID, journeyID string) (*Draft, error) {
	ctx, span := s.tracer.Start(ctx, "journey.get_draft")
	defer span.End()

	data, err := s.redis.Get(ctx, draftKey(sessionID, journeyID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoDraft
		}
		span.RecordError(err)
		return nil, fmt.Errorf("journey: load draft: %w", err)
	}

	var draft Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("journey: decode draft: %w", err)
	}
	return &draft, nil
}

// Clear removes the draft. Clearing an absent draft is not an error.
func (s *Store) Clear(ctx context.Context, sessionID, journeyID string) error {
	ctx, span := s.tracer.Start(ctx, "journey.clear_draft")
	defer span.End()

	if err := s.redis.Del(ctx, draftKey(sessionID, journeyID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("journey: clear draft: %w", err)
	}
	return nil
}

func draftKey(sessionID, journeyID string) string {
	return fmt.Sprintf("journey:%s:%s", sessionID, journeyID)
}
