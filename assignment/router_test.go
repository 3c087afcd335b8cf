package assignment

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
	admins map[string][]models.User
	open   map[primitive.ObjectID]int64
}

func (d *fakeDirectory) ActiveLowAdminsInZone(_ context.Context, zone string) ([]models.User, error) {
	return d.admins[zone], nil
}

func (d *fakeDirectory) OpenAssignedCount(_ context.Context, adminID primitive.ObjectID) (int64, error) {
	return d.open[adminID], nil
}

func newAdmin(dept string, zones ...string) models.User {
	return models.User{
		ID:         primitive.NewObjectID(),
		Role:       models.RoleLowAdmin,
		Zones:      zones,
		Department: dept,
		Active:     true,
	}
}

func pendingIssue(zone string) models.Issue {
	return models.Issue{
		ID:       primitive.NewObjectID(),
		Status:   models.StatusPending,
		Location: models.Location{Zone: zone},
		StatusHistory: []models.StatusChange{
			{Status: models.StatusPending, ChangedAt: time.Now().Add(-time.Minute)},
		},
	}
}

func TestAutoAssignPicksOnlyEligibleAdmin(t *testing.T) {
	admin := newAdmin("roads", "Zone A")
	dir := &fakeDirectory{
		admins: map[string][]models.User{"Zone A": {admin}},
		open:   map[primitive.ObjectID]int64{admin.ID: 0},
	}

	issue := pendingIssue("Zone A")
	got, err := NewRouter(dir).AutoAssign(context.Background(), &issue, time.Now())
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, admin.ID, got.ID)
	require.NotNil(t, issue.AssignedTo)
	assert.Equal(t, admin.ID, *issue.AssignedTo)
	assert.Equal(t, "roads", issue.AssignedDepartment)
	assert.NotNil(t, issue.AssignedAt)
	assert.Equal(t, models.StatusInProgress, issue.Status)

	// The advance went through the workflow engine, so history grew.
	require.Len(t, issue.StatusHistory, 2)
	assert.Equal(t, models.StatusInProgress, issue.StatusHistory[1].Status)
}

func TestAutoAssignPicksLeastLoaded(t *testing.T) {
	busy := newAdmin("roads", "Zone A")
	idle := newAdmin("roads", "Zone A")
	dir := &fakeDirectory{
		admins: map[string][]models.User{"Zone A": {busy, idle}},
		open:   map[primitive.ObjectID]int64{busy.ID: 7, idle.ID: 2},
	}

	issue := pendingIssue("Zone A")
	got, err := NewRouter(dir).AutoAssign(context.Background(), &issue, time.Now())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, idle.ID, got.ID)
}

func TestAutoAssignNoEligibleAdminIsObservableNoOp(t *testing.T) {
	dir := &fakeDirectory{admins: map[string][]models.User{}}

	issue := pendingIssue("Zone C")
	before := issue

	got, err := NewRouter(dir).AutoAssign(context.Background(), &issue, time.Now())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, before, issue, "issue must stay pending and unassigned")
}

func TestAssignKeepsStatusOnReassignment(t *testing.T) {
	next := newAdmin("water", "Zone A")
	prev := primitive.NewObjectID()
	now := time.Now()

	issue := pendingIssue("Zone A")
	issue.Status = models.StatusEscalated
	issue.AssignedTo = &prev

	require.NoError(t, Assign(&issue, next, next.ID, now))

	assert.Equal(t, models.StatusEscalated, issue.Status)
	require.NotNil(t, issue.AssignedTo)
	assert.Equal(t, next.ID, *issue.AssignedTo)
	assert.Equal(t, "water", issue.AssignedDepartment)
	require.NotNil(t, issue.AssignedAt)
	assert.Equal(t, now, *issue.AssignedAt)
}
