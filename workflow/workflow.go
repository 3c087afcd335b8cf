// Package workflow owns the issue status state machine. It validates
// transitions against a fixed edge table and applies them to an issue,
// appending to the status history and stamping derived timestamps. It
// knows nothing about roles; the policy package gates who may request
// which transition.
package workflow

import (
	"fmt"
	"time"

	"cityfix-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransitionError is returned when the requested status is not reachable
// from the current one. The issue is left untouched.
type TransitionError struct {
	From models.IssueStatus
	To   models.IssueStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

// edges is the full transition table. A pair absent from this table is
// invalid; there is no terminal state, verified_solved can be reopened.
var edges = map[models.IssueStatus][]models.IssueStatus{
	models.StatusPending:             {models.StatusInProgress, models.StatusEscalated},
	models.StatusInProgress:          {models.StatusPendingVerification, models.StatusEscalated},
	models.StatusPendingVerification: {models.StatusVerifiedSolved, models.StatusReopened},
	models.StatusVerifiedSolved:      {models.StatusReopened},
	models.StatusEscalated:           {models.StatusInProgress, models.StatusPendingVerification},
	models.StatusReopened:            {models.StatusInProgress, models.StatusEscalated},
}

// CanTransition reports whether the edge from -> to is in the table.
func CanTransition(from, to models.IssueStatus) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transitions returns the statuses reachable from the given status.
func Transitions(from models.IssueStatus) []models.IssueStatus {
	return edges[from]
}

// Apply validates the transition and mutates the issue: sets the new
// status, appends a history entry, and stamps the derived timestamp for
// the entered state. Re-entry refreshes the stamp. On failure the issue
// is not mutated.
func Apply(issue *models.Issue, to models.IssueStatus, actor primitive.ObjectID, reason string, now time.Time) error {
	if !CanTransition(issue.Status, to) {
		return &TransitionError{From: issue.Status, To: to}
	}

	issue.Status = to
	issue.StatusHistory = append(issue.StatusHistory, models.StatusChange{
		Status:    to,
		ChangedBy: actor,
		ChangedAt: now,
		Reason:    reason,
	})

	switch to {
	case models.StatusPendingVerification:
		t := now
		issue.ResolvedAt = &t
	case models.StatusVerifiedSolved:
		t := now
		issue.VerifiedAt = &t
	case models.StatusEscalated:
		t := now
		issue.EscalatedAt = &t
	}

	issue.UpdatedAt = now
	return nil
}
