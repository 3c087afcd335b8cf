package notify

import (
	"context"
	"testing"
	"time"

	"cityfix-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeDirectory struct {
	admins     []primitive.ObjectID
	highAdmins []primitive.ObjectID
}

func (d *fakeDirectory) AdminIDs(context.Context) ([]primitive.ObjectID, error) {
	return d.admins, nil
}

func (d *fakeDirectory) HighAdminIDs(context.Context) ([]primitive.ObjectID, error) {
	return d.highAdmins, nil
}

func testIssue() *models.Issue {
	return &models.Issue{
		ID:         primitive.NewObjectID(),
		Title:      "Broken streetlight on Main St",
		Priority:   models.PriorityMedium,
		Status:     models.StatusPending,
		Location:   models.Location{Zone: "Zone A"},
		ReportedBy: primitive.NewObjectID(),
	}
}

func recipients(records []models.Notification) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(records))
	for _, r := range records {
		out = append(out, r.UserID)
	}
	return out
}

func TestIssueCreatedNotifiesAllAdmins(t *testing.T) {
	low := primitive.NewObjectID()
	high := primitive.NewObjectID()
	dir := &fakeDirectory{admins: []primitive.ObjectID{low, high}, highAdmins: []primitive.ObjectID{high}}

	records, err := NewDispatcher(dir).NotificationsFor(context.Background(), Event{
		Type:  EventIssueCreated,
		Issue: testIssue(),
		At:    time.Now(),
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []primitive.ObjectID{low, high}, recipients(records))
	for _, r := range records {
		assert.Equal(t, models.NotificationIssueCreated, r.Type)
		assert.Equal(t, models.NotifyMedium, r.Priority)
	}
}

func TestEscalationNotifiesHighAdminsAndAssigneeAtHigh(t *testing.T) {
	highA := primitive.NewObjectID()
	highB := primitive.NewObjectID()
	assignee := primitive.NewObjectID()
	dir := &fakeDirectory{highAdmins: []primitive.ObjectID{highA, highB}}

	issue := testIssue()
	issue.Status = models.StatusEscalated
	issue.AssignedTo = &assignee

	records, err := NewDispatcher(dir).NotificationsFor(context.Background(), Event{
		Type:  EventStatusChanged,
		Issue: issue,
		At:    time.Now(),
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []primitive.ObjectID{highA, highB, assignee}, recipients(records))
	for _, r := range records {
		assert.Equal(t, models.NotificationIssueEscalated, r.Type)
		assert.Equal(t, models.NotifyHigh, r.Priority)
	}
}

func TestReassignmentProducesDistinctRecords(t *testing.T) {
	prev := primitive.NewObjectID()
	next := models.User{ID: primitive.NewObjectID(), Role: models.RoleLowAdmin}

	records, err := NewDispatcher(&fakeDirectory{}).NotificationsFor(context.Background(), Event{
		Type:         EventIssueAssigned,
		Issue:        testIssue(),
		Assignee:     &next,
		PrevAssignee: &prev,
		At:           time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, next.ID, records[0].UserID)
	assert.Equal(t, models.NotificationIssueAssigned, records[0].Type)

	assert.Equal(t, prev, records[1].UserID)
	assert.Equal(t, models.NotificationIssueReassigned, records[1].Type)
	assert.Equal(t, models.NotifyLow, records[1].Priority)
}

func TestReopenedUnassignedIsNoOp(t *testing.T) {
	issue := testIssue()
	issue.Status = models.StatusReopened

	records, err := NewDispatcher(&fakeDirectory{}).NotificationsFor(context.Background(), Event{
		Type:  EventStatusChanged,
		Issue: issue,
		At:    time.Now(),
	})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPendingVerificationNotifiesReporterAndHighAdmins(t *testing.T) {
	high := primitive.NewObjectID()
	dir := &fakeDirectory{highAdmins: []primitive.ObjectID{high}}

	issue := testIssue()
	issue.Status = models.StatusPendingVerification

	records, err := NewDispatcher(dir).NotificationsFor(context.Background(), Event{
		Type:  EventStatusChanged,
		Issue: issue,
		At:    time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, issue.ReportedBy, records[0].UserID)
	assert.Equal(t, models.NotifyMedium, records[0].Priority)
	assert.Equal(t, high, records[1].UserID)
	assert.Equal(t, models.NotifyHigh, records[1].Priority)
}

func TestCommentNotifiesParticipants(t *testing.T) {
	assignee := primitive.NewObjectID()
	issue := testIssue()
	issue.AssignedTo = &assignee

	records, err := NewDispatcher(&fakeDirectory{}).NotificationsFor(context.Background(), Event{
		Type:  EventCommentAdded,
		Issue: issue,
		At:    time.Now(),
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []primitive.ObjectID{issue.ReportedBy, assignee}, recipients(records))
}

func TestUrgentIssueForcesHighPriority(t *testing.T) {
	admin := primitive.NewObjectID()
	dir := &fakeDirectory{admins: []primitive.ObjectID{admin}}

	issue := testIssue()
	issue.Priority = models.PriorityUrgent

	records, err := NewDispatcher(dir).NotificationsFor(context.Background(), Event{
		Type:  EventIssueCreated,
		Issue: issue,
		At:    time.Now(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, records)
	for _, r := range records {
		assert.Equal(t, models.NotifyHigh, r.Priority)
	}
}

func TestDispatcherIsIdempotent(t *testing.T) {
	high := primitive.NewObjectID()
	dir := &fakeDirectory{highAdmins: []primitive.ObjectID{high}}

	issue := testIssue()
	issue.Status = models.StatusEscalated
	ev := Event{Type: EventStatusChanged, Issue: issue, At: time.Unix(1756000000, 0)}

	d := NewDispatcher(dir)
	first, err := d.NotificationsFor(context.Background(), ev)
	require.NoError(t, err)
	second, err := d.NotificationsFor(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
