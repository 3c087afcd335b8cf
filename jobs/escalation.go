// Package jobs runs the scheduled escalation sweep: issues that have
// been assigned for too long without reaching verification are escalated
// through the workflow engine, so history and timestamps stay consistent
// with manually escalated issues.
package jobs

import (
	"context"
	"os"
	"strconv"
	"time"

	"cityfix-be/config"
	"cityfix-be/events"
	"cityfix-be/models"
	"cityfix-be/notify"
	"cityfix-be/workflow"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultEscalationDays = 5

type Escalator struct {
	log        zerolog.Logger
	dispatcher *notify.Dispatcher
	maxAge     time.Duration
	c          *cron.Cron
}

func NewEscalator(log zerolog.Logger, dispatcher *notify.Dispatcher) *Escalator {
	days := defaultEscalationDays
	if v := os.Getenv("ESCALATION_AFTER_DAYS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			days = parsed
		}
	}

	e := &Escalator{
		log:        log,
		dispatcher: dispatcher,
		maxAge:     time.Duration(days) * 24 * time.Hour,
		c:          cron.New(),
	}
	_, _ = e.c.AddFunc("@hourly", e.sweep)
	return e
}

func (e *Escalator) Start() { e.c.Start() }
func (e *Escalator) Stop()  { e.c.Stop() }

func (e *Escalator) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-e.maxAge)
	issueCollection := config.GetCollection("issues")
	notificationCollection := config.GetCollection("notifications")

	// Only statuses with an escalation edge are swept; issues already in
	// pending_verification or escalated are left alone.
	cursor, err := issueCollection.Find(ctx, bson.M{
		"assignedAt": bson.M{"$lte": cutoff},
		"status":     bson.M{"$in": []models.IssueStatus{models.StatusInProgress, models.StatusReopened}},
		"archived":   bson.M{"$ne": true},
	})
	if err != nil {
		e.log.Error().Err(err).Msg("escalation sweep: query failed")
		return
	}
	defer cursor.Close(ctx)

	var issues []models.Issue
	if err := cursor.All(ctx, &issues); err != nil {
		e.log.Error().Err(err).Msg("escalation sweep: decode failed")
		return
	}

	for i := range issues {
		issue := &issues[i]
		now := time.Now()

		if err := workflow.Apply(issue, models.StatusEscalated, primitive.NilObjectID, "assignment overdue", now); err != nil {
			e.log.Warn().Err(err).Str("issue", issue.ID.Hex()).Msg("escalation sweep: transition rejected")
			continue
		}

		if _, err := issueCollection.ReplaceOne(ctx, bson.M{"_id": issue.ID}, issue); err != nil {
			e.log.Error().Err(err).Str("issue", issue.ID.Hex()).Msg("escalation sweep: save failed")
			continue
		}

		records, err := e.dispatcher.NotificationsFor(ctx, notify.Event{
			Type:  notify.EventStatusChanged,
			Issue: issue,
			At:    now,
		})
		if err != nil {
			e.log.Error().Err(err).Str("issue", issue.ID.Hex()).Msg("escalation sweep: dispatch failed")
		} else if len(records) > 0 {
			docs := make([]interface{}, 0, len(records))
			for _, r := range records {
				r.ID = primitive.NewObjectID()
				docs = append(docs, r)
			}
			if _, err := notificationCollection.InsertMany(ctx, docs); err != nil {
				e.log.Error().Err(err).Str("issue", issue.ID.Hex()).Msg("escalation sweep: notification insert failed")
			}
		}

		events.Publish(ctx, "issue.status_changed", issue.ID, primitive.NilObjectID)
		e.log.Info().Str("issue", issue.ID.Hex()).Msg("escalation sweep: issue escalated")
	}
}
