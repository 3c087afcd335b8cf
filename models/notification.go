package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// NotificationType enum, one tag per workflow event.
type NotificationType string

const (
	NotificationIssueCreated        NotificationType = "issue_created"
	NotificationIssueAssigned       NotificationType = "issue_assigned"
	NotificationIssueReassigned     NotificationType = "issue_reassigned"
	NotificationIssueInProgress     NotificationType = "issue_in_progress"
	NotificationPendingVerification NotificationType = "issue_pending_verification"
	NotificationIssueVerified       NotificationType = "issue_verified"
	NotificationIssueEscalated      NotificationType = "issue_escalated"
	NotificationIssueReopened       NotificationType = "issue_reopened"
	NotificationCommentAdded        NotificationType = "comment_added"
)

// NotificationPriority enum
type NotificationPriority string

const (
	NotifyLow    NotificationPriority = "low"
	NotifyMedium NotificationPriority = "medium"
	NotifyHigh   NotificationPriority = "high"
)

// Notification is a directed message produced as a side effect of an
// issue mutation. Recipients may mark it read or delete it.
type Notification struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID   `bson:"userId" json:"userId"`
	Type      NotificationType     `bson:"type" json:"type"`
	IssueID   primitive.ObjectID   `bson:"issueId" json:"issueId"`
	Title     string               `bson:"title" json:"title"`
	Message   string               `bson:"message" json:"message"`
	Priority  NotificationPriority `bson:"priority" json:"priority"`
	IsRead    bool                 `bson:"isRead" json:"isRead"`
	ReadAt    *time.Time           `bson:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
}

// EnsureNotificationIndex creates the (userId, createdAt) index used by
// the per-user notification feed.
func EnsureNotificationIndex(collection *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	}

	_, err := collection.Indexes().CreateOne(ctx, indexModel)
	return err
}
