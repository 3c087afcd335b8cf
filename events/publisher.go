// Package events publishes a JSON envelope on a Redis channel for every
// successful issue mutation, so real-time listeners (dashboards, the
// frontend) can react without polling. Publishing is best effort: a
// failed publish is logged, never surfaced to the request.
package events

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"cityfix-be/config"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultChannel = "cityfix:events"

// Envelope is the wire format for one mutation event.
type Envelope struct {
	Type    string    `json:"type"`
	IssueID string    `json:"issueId"`
	ActorID string    `json:"actorId,omitempty"`
	At      time.Time `json:"at"`
}

func channel() string {
	if ch := os.Getenv("EVENTS_CHANNEL"); ch != "" {
		return ch
	}
	return defaultChannel
}

// Publish emits one mutation event. Safe to call with a nil Redis client
// (e.g. in tests); it becomes a no-op.
func Publish(ctx context.Context, eventType string, issueID, actorID primitive.ObjectID) {
	if config.RedisClient == nil {
		return
	}

	env := Envelope{
		Type:    eventType,
		IssueID: issueID.Hex(),
		At:      time.Now(),
	}
	if !actorID.IsZero() {
		env.ActorID = actorID.Hex()
	}

	payload, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("events: marshal failed")
		return
	}

	if err := config.RedisClient.Publish(ctx, channel(), payload).Err(); err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("events: publish failed")
	}
}
