// Package policy decides whether an actor may perform an action on an
// issue. All functions are pure: no I/O, no side effects. Rules, in
// priority order: high_admin may do anything; low_admin is gated by
// assignment, zone, or (for assignment) department; citizens may view
// and comment on their own reports and request only the
// pending_verification and reopened transitions; everything else is
// denied.
package policy

import (
	"cityfix-be/models"
)

// Action enumerates the gated operations on an issue.
type Action string

const (
	ActionView         Action = "view"
	ActionComment      Action = "comment"
	ActionAssign       Action = "assign"
	ActionUpdateStatus Action = "update_status"
	ActionAddProof     Action = "add_proof"
	ActionArchive      Action = "archive"
)

// Can reports whether the actor may perform action on the issue.
func Can(actor models.User, issue models.Issue, action Action) bool {
	switch actor.Role {
	case models.RoleHighAdmin:
		return true
	case models.RoleLowAdmin:
		return lowAdminCan(actor, issue, action)
	case models.RoleCitizen:
		return citizenCan(actor, issue, action)
	}
	return false
}

func lowAdminCan(actor models.User, issue models.Issue, action Action) bool {
	switch action {
	case ActionAddProof:
		// Work proof is restricted to the currently assigned admin.
		return issue.IsAssignedTo(actor.ID)
	case ActionView, ActionComment, ActionAssign, ActionUpdateStatus:
		if issue.IsAssignedTo(actor.ID) {
			return true
		}
		if actor.HasZone(issue.Location.Zone) {
			return true
		}
		if action == ActionAssign && actor.Department != "" && actor.Department == issue.AssignedDepartment {
			return true
		}
		return false
	}
	return false
}

func citizenCan(actor models.User, issue models.Issue, action Action) bool {
	if issue.ReportedBy != actor.ID {
		return false
	}
	switch action {
	case ActionView, ActionComment, ActionUpdateStatus:
		return true
	}
	return false
}

// CanRequestStatus reports whether the actor may request the given target
// status for the issue. Citizens may only mark their own report as
// apparently resolved (pending_verification) or reopen it; which edges
// are reachable at all is the workflow engine's concern.
func CanRequestStatus(actor models.User, issue models.Issue, to models.IssueStatus) bool {
	if !Can(actor, issue, ActionUpdateStatus) {
		return false
	}
	if actor.Role == models.RoleCitizen {
		return to == models.StatusPendingVerification || to == models.StatusReopened
	}
	return true
}

// CommentInternal returns the internal flag a comment by the actor is
// stored with. Citizen comments are always forced non-internal.
func CommentInternal(actor models.User, requested bool) bool {
	if actor.Role == models.RoleCitizen {
		return false
	}
	return requested
}

// CanViewInternal reports whether the actor sees internal comments.
func CanViewInternal(actor models.User) bool {
	return actor.IsAdmin()
}
