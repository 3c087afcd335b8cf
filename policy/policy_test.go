package policy

import (
	"testing"

	"cityfix-be/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var allActions = []Action{
	ActionView, ActionComment, ActionAssign, ActionUpdateStatus, ActionAddProof, ActionArchive,
}

var allStatuses = []models.IssueStatus{
	models.StatusPending,
	models.StatusInProgress,
	models.StatusPendingVerification,
	models.StatusVerifiedSolved,
	models.StatusEscalated,
	models.StatusReopened,
}

func citizen(id primitive.ObjectID) models.User {
	return models.User{ID: id, Role: models.RoleCitizen, Active: true}
}

func lowAdmin(id primitive.ObjectID, dept string, zones ...string) models.User {
	return models.User{ID: id, Role: models.RoleLowAdmin, Zones: zones, Department: dept, Active: true}
}

func TestHighAdminAllowedEverything(t *testing.T) {
	admin := models.User{ID: primitive.NewObjectID(), Role: models.RoleHighAdmin, Active: true}
	issue := models.Issue{ReportedBy: primitive.NewObjectID()}

	for _, action := range allActions {
		assert.True(t, Can(admin, issue, action), "high_admin denied %s", action)
	}
}

func TestCitizenNeverAssigns(t *testing.T) {
	me := primitive.NewObjectID()
	other := primitive.NewObjectID()
	assignee := primitive.NewObjectID()

	issues := []models.Issue{
		{ReportedBy: me},
		{ReportedBy: other},
		{ReportedBy: me, AssignedTo: &assignee},
	}

	for _, issue := range issues {
		for _, status := range allStatuses {
			issue.Status = status
			assert.False(t, Can(citizen(me), issue, ActionAssign))
		}
	}
}

func TestCitizenScopedToOwnReports(t *testing.T) {
	me := primitive.NewObjectID()
	mine := models.Issue{ReportedBy: me}
	theirs := models.Issue{ReportedBy: primitive.NewObjectID()}

	assert.True(t, Can(citizen(me), mine, ActionView))
	assert.True(t, Can(citizen(me), mine, ActionComment))
	assert.False(t, Can(citizen(me), theirs, ActionView))
	assert.False(t, Can(citizen(me), theirs, ActionComment))
	assert.False(t, Can(citizen(me), mine, ActionAddProof))
	assert.False(t, Can(citizen(me), mine, ActionArchive))
}

func TestCitizenStatusRequestWhitelist(t *testing.T) {
	me := primitive.NewObjectID()
	mine := models.Issue{ReportedBy: me, Status: models.StatusInProgress}

	for _, to := range allStatuses {
		want := to == models.StatusPendingVerification || to == models.StatusReopened
		assert.Equal(t, want, CanRequestStatus(citizen(me), mine, to), "citizen requesting %s", to)
	}

	// Not even the whitelisted statuses on someone else's report.
	theirs := models.Issue{ReportedBy: primitive.NewObjectID()}
	assert.False(t, CanRequestStatus(citizen(me), theirs, models.StatusPendingVerification))
}

func TestLowAdminOutsideZoneDeniedAllMutations(t *testing.T) {
	admin := lowAdmin(primitive.NewObjectID(), "roads", "Zone B")
	issue := models.Issue{
		ReportedBy: primitive.NewObjectID(),
		Location:   models.Location{Zone: "Zone A"},
	}

	for _, action := range []Action{ActionAssign, ActionUpdateStatus, ActionComment, ActionAddProof} {
		assert.False(t, Can(admin, issue, action), "out-of-zone low_admin allowed %s", action)
	}
}

func TestLowAdminZoneGrantsAccess(t *testing.T) {
	admin := lowAdmin(primitive.NewObjectID(), "roads", "Zone A")
	issue := models.Issue{Location: models.Location{Zone: "Zone A"}}

	assert.True(t, Can(admin, issue, ActionView))
	assert.True(t, Can(admin, issue, ActionComment))
	assert.True(t, Can(admin, issue, ActionAssign))
	assert.True(t, Can(admin, issue, ActionUpdateStatus))
	// Proof requires being the assignee, zone is not enough.
	assert.False(t, Can(admin, issue, ActionAddProof))
}

func TestLowAdminAssignmentGrantsAccess(t *testing.T) {
	admin := lowAdmin(primitive.NewObjectID(), "roads", "Zone B")
	issue := models.Issue{
		Location:   models.Location{Zone: "Zone A"},
		AssignedTo: &admin.ID,
	}

	assert.True(t, Can(admin, issue, ActionUpdateStatus))
	assert.True(t, Can(admin, issue, ActionComment))
	assert.True(t, Can(admin, issue, ActionAddProof))
}

func TestLowAdminDepartmentMatchOnlyForAssign(t *testing.T) {
	admin := lowAdmin(primitive.NewObjectID(), "sanitation", "Zone B")
	issue := models.Issue{
		Location:           models.Location{Zone: "Zone A"},
		AssignedDepartment: "sanitation",
	}

	assert.True(t, Can(admin, issue, ActionAssign))
	assert.False(t, Can(admin, issue, ActionUpdateStatus))
	assert.False(t, Can(admin, issue, ActionComment))
	assert.False(t, Can(admin, issue, ActionAddProof))
}

func TestCommentInternalForcing(t *testing.T) {
	assert.False(t, CommentInternal(citizen(primitive.NewObjectID()), true))
	assert.False(t, CommentInternal(citizen(primitive.NewObjectID()), false))
	assert.True(t, CommentInternal(lowAdmin(primitive.NewObjectID(), ""), true))
	assert.False(t, CommentInternal(lowAdmin(primitive.NewObjectID(), ""), false))
	assert.True(t, CommentInternal(models.User{Role: models.RoleHighAdmin}, true))
}

func TestUnknownRoleDenied(t *testing.T) {
	stranger := models.User{ID: primitive.NewObjectID(), Role: "auditor"}
	issue := models.Issue{ReportedBy: stranger.ID}

	for _, action := range allActions {
		assert.False(t, Can(stranger, issue, action))
	}
}
