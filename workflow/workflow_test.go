package workflow

import (
	"testing"
	"time"

	"cityfix-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var allStatuses = []models.IssueStatus{
	models.StatusPending,
	models.StatusInProgress,
	models.StatusPendingVerification,
	models.StatusVerifiedSolved,
	models.StatusEscalated,
	models.StatusReopened,
}

func TestCanTransitionMatchesEdgeTable(t *testing.T) {
	allowed := map[models.IssueStatus][]models.IssueStatus{
		models.StatusPending:             {models.StatusInProgress, models.StatusEscalated},
		models.StatusInProgress:          {models.StatusPendingVerification, models.StatusEscalated},
		models.StatusPendingVerification: {models.StatusVerifiedSolved, models.StatusReopened},
		models.StatusVerifiedSolved:      {models.StatusReopened},
		models.StatusEscalated:           {models.StatusInProgress, models.StatusPendingVerification},
		models.StatusReopened:            {models.StatusInProgress, models.StatusEscalated},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestApplyRejectsInvalidTransitionWithoutMutation(t *testing.T) {
	actor := primitive.NewObjectID()
	now := time.Now()

	issue := models.Issue{
		ID:     primitive.NewObjectID(),
		Status: models.StatusPending,
		StatusHistory: []models.StatusChange{
			{Status: models.StatusPending, ChangedBy: actor, ChangedAt: now.Add(-time.Hour)},
		},
	}
	before := issue

	err := Apply(&issue, models.StatusVerifiedSolved, actor, "", now)
	require.Error(t, err)

	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, models.StatusPending, terr.From)
	assert.Equal(t, models.StatusVerifiedSolved, terr.To)

	assert.Equal(t, before, issue, "failed transition must not mutate the issue")
}

func TestApplyAppendsHistoryAndSetsStatus(t *testing.T) {
	actor := primitive.NewObjectID()
	now := time.Now()

	issue := models.Issue{
		Status: models.StatusPending,
		StatusHistory: []models.StatusChange{
			{Status: models.StatusPending, ChangedBy: actor, ChangedAt: now.Add(-time.Hour)},
		},
	}

	require.NoError(t, Apply(&issue, models.StatusInProgress, actor, "picked up", now))

	assert.Equal(t, models.StatusInProgress, issue.Status)
	require.Len(t, issue.StatusHistory, 2)
	last := issue.StatusHistory[len(issue.StatusHistory)-1]
	assert.Equal(t, models.StatusInProgress, last.Status)
	assert.Equal(t, actor, last.ChangedBy)
	assert.Equal(t, "picked up", last.Reason)
	assert.Equal(t, now, issue.UpdatedAt)
}

func TestApplyStampsDerivedTimestamps(t *testing.T) {
	actor := primitive.NewObjectID()

	cases := []struct {
		name  string
		from  models.IssueStatus
		to    models.IssueStatus
		stamp func(i *models.Issue) *time.Time
	}{
		{"resolvedAt on pending_verification", models.StatusInProgress, models.StatusPendingVerification,
			func(i *models.Issue) *time.Time { return i.ResolvedAt }},
		{"verifiedAt on verified_solved", models.StatusPendingVerification, models.StatusVerifiedSolved,
			func(i *models.Issue) *time.Time { return i.VerifiedAt }},
		{"escalatedAt on escalated", models.StatusInProgress, models.StatusEscalated,
			func(i *models.Issue) *time.Time { return i.EscalatedAt }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now := time.Now()
			issue := models.Issue{Status: tc.from}

			require.NoError(t, Apply(&issue, tc.to, actor, "", now))

			stamp := tc.stamp(&issue)
			require.NotNil(t, stamp)
			assert.Equal(t, now, *stamp)
		})
	}
}

func TestApplyRefreshesStampOnReentry(t *testing.T) {
	actor := primitive.NewObjectID()
	first := time.Now()
	second := first.Add(48 * time.Hour)

	issue := models.Issue{Status: models.StatusInProgress}

	require.NoError(t, Apply(&issue, models.StatusEscalated, actor, "", first))
	require.NoError(t, Apply(&issue, models.StatusInProgress, actor, "", first.Add(time.Hour)))
	require.NoError(t, Apply(&issue, models.StatusEscalated, actor, "", second))

	require.NotNil(t, issue.EscalatedAt)
	assert.Equal(t, second, *issue.EscalatedAt)
	assert.Len(t, issue.StatusHistory, 3)
}
