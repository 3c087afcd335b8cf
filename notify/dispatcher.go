// Package notify maps workflow events to notification records. The
// dispatcher only decides recipients and content; persisting and
// emitting the records is the caller's job. Given the same event and
// directory state it always produces the same records.
package notify

import (
	"context"
	"fmt"
	"time"

	"cityfix-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType enumerates the workflow events that produce notifications.
type EventType string

const (
	EventIssueCreated  EventType = "issue_created"
	EventIssueAssigned EventType = "issue_assigned"
	EventStatusChanged EventType = "status_changed"
	EventCommentAdded  EventType = "comment_added"
)

// Event describes one issue mutation. For EventStatusChanged the issue
// already carries the new status; for EventIssueAssigned Assignee is the
// new assignee and PrevAssignee the replaced one, if any.
type Event struct {
	Type         EventType
	Issue        *models.Issue
	Actor        models.User
	Assignee     *models.User
	PrevAssignee *primitive.ObjectID
	At           time.Time
}

// Directory answers the recipient lookups the dispatcher needs.
type Directory interface {
	// AdminIDs returns the ids of all active admins, both roles.
	AdminIDs(ctx context.Context) ([]primitive.ObjectID, error)
	// HighAdminIDs returns the ids of all active high_admins.
	HighAdminIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

type Dispatcher struct {
	dir Directory
}

func NewDispatcher(dir Directory) *Dispatcher {
	return &Dispatcher{dir: dir}
}

// NotificationsFor returns the notification records the event produces,
// per the fixed event -> recipients table. Urgent issues always bump the
// record priority to high.
func (d *Dispatcher) NotificationsFor(ctx context.Context, ev Event) ([]models.Notification, error) {
	switch ev.Type {
	case EventIssueCreated:
		return d.issueCreated(ctx, ev)
	case EventIssueAssigned:
		return d.issueAssigned(ev), nil
	case EventStatusChanged:
		return d.statusChanged(ctx, ev)
	case EventCommentAdded:
		return d.commentAdded(ev), nil
	}
	return nil, nil
}

func (d *Dispatcher) issueCreated(ctx context.Context, ev Event) ([]models.Notification, error) {
	admins, err := d.dir.AdminIDs(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Notification
	for _, id := range admins {
		out = append(out, d.record(ev, id, models.NotificationIssueCreated,
			"New issue reported",
			fmt.Sprintf("%q was reported in %s", ev.Issue.Title, ev.Issue.Location.Zone),
			models.NotifyMedium))
	}
	return out, nil
}

func (d *Dispatcher) issueAssigned(ev Event) []models.Notification {
	var out []models.Notification
	if ev.Assignee != nil {
		out = append(out, d.record(ev, ev.Assignee.ID, models.NotificationIssueAssigned,
			"Issue assigned to you",
			fmt.Sprintf("You have been assigned %q", ev.Issue.Title),
			models.NotifyMedium))
	}
	if ev.PrevAssignee != nil {
		// Informational record for the replaced assignee, kept distinct
		// from the new assignee's record.
		out = append(out, d.record(ev, *ev.PrevAssignee, models.NotificationIssueReassigned,
			"Issue reassigned",
			fmt.Sprintf("%q has been reassigned to another admin", ev.Issue.Title),
			models.NotifyLow))
	}
	return out
}

func (d *Dispatcher) statusChanged(ctx context.Context, ev Event) ([]models.Notification, error) {
	issue := ev.Issue
	var out []models.Notification

	switch issue.Status {
	case models.StatusInProgress:
		out = append(out, d.record(ev, issue.ReportedBy, models.NotificationIssueInProgress,
			"Work started on your issue",
			fmt.Sprintf("%q is now in progress", issue.Title),
			models.NotifyMedium))

	case models.StatusPendingVerification:
		out = append(out, d.record(ev, issue.ReportedBy, models.NotificationPendingVerification,
			"Your issue awaits verification",
			fmt.Sprintf("%q has been marked as resolved and awaits verification", issue.Title),
			models.NotifyMedium))
		highAdmins, err := d.dir.HighAdminIDs(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range highAdmins {
			out = append(out, d.record(ev, id, models.NotificationPendingVerification,
				"Issue pending verification",
				fmt.Sprintf("%q needs verification", issue.Title),
				models.NotifyHigh))
		}

	case models.StatusVerifiedSolved:
		out = append(out, d.record(ev, issue.ReportedBy, models.NotificationIssueVerified,
			"Your issue was resolved",
			fmt.Sprintf("%q has been verified as solved", issue.Title),
			models.NotifyMedium))

	case models.StatusEscalated:
		highAdmins, err := d.dir.HighAdminIDs(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range highAdmins {
			out = append(out, d.record(ev, id, models.NotificationIssueEscalated,
				"Issue escalated",
				fmt.Sprintf("%q has been escalated", issue.Title),
				models.NotifyHigh))
		}
		if issue.AssignedTo != nil {
			out = append(out, d.record(ev, *issue.AssignedTo, models.NotificationIssueEscalated,
				"Your assigned issue was escalated",
				fmt.Sprintf("%q has been escalated", issue.Title),
				models.NotifyHigh))
		}

	case models.StatusReopened:
		if issue.AssignedTo != nil {
			out = append(out, d.record(ev, *issue.AssignedTo, models.NotificationIssueReopened,
				"Issue reopened",
				fmt.Sprintf("%q has been reopened", issue.Title),
				models.NotifyHigh))
		}
	}

	return out, nil
}

func (d *Dispatcher) commentAdded(ev Event) []models.Notification {
	issue := ev.Issue
	title := "New comment"
	message := fmt.Sprintf("New comment on %q", issue.Title)

	var out []models.Notification
	out = append(out, d.record(ev, issue.ReportedBy, models.NotificationCommentAdded,
		title, message, models.NotifyMedium))
	if issue.AssignedTo != nil && *issue.AssignedTo != issue.ReportedBy {
		out = append(out, d.record(ev, *issue.AssignedTo, models.NotificationCommentAdded,
			title, message, models.NotifyMedium))
	}
	return out
}

func (d *Dispatcher) record(ev Event, recipient primitive.ObjectID, typ models.NotificationType, title, message string, priority models.NotificationPriority) models.Notification {
	if ev.Issue.Priority == models.PriorityUrgent {
		priority = models.NotifyHigh
	}
	return models.Notification{
		UserID:    recipient,
		Type:      typ,
		IssueID:   ev.Issue.ID,
		Title:     title,
		Message:   message,
		Priority:  priority,
		CreatedAt: ev.At,
	}
}
