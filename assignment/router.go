// Package assignment routes newly created issues to the least-loaded
// active low_admin covering the issue's zone. Directory lookups are
// behind an interface so the router stays testable without a database.
package assignment

import (
	"context"
	"time"

	"cityfix-be/models"
	"cityfix-be/workflow"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Directory answers the user-directory queries the router needs.
type Directory interface {
	// ActiveLowAdminsInZone returns active low_admins whose zone set
	// contains the given zone, in stable directory order.
	ActiveLowAdminsInZone(ctx context.Context, zone string) ([]models.User, error)
	// OpenAssignedCount returns how many open issues are assigned to the admin.
	OpenAssignedCount(ctx context.Context, adminID primitive.ObjectID) (int64, error)
}

type Router struct {
	dir Directory
}

func NewRouter(dir Directory) *Router {
	return &Router{dir: dir}
}

// AutoAssign picks the eligible admin with the fewest open assigned
// issues and assigns the issue to them, advancing pending -> in_progress
// through the workflow engine. A nil admin with nil error means no
// eligible admin existed: the issue stays pending and unassigned, which
// is a valid outcome, not an error.
func (r *Router) AutoAssign(ctx context.Context, issue *models.Issue, now time.Time) (*models.User, error) {
	admins, err := r.dir.ActiveLowAdminsInZone(ctx, issue.Location.Zone)
	if err != nil {
		return nil, err
	}

	var best *models.User
	var bestCount int64
	for i := range admins {
		count, err := r.dir.OpenAssignedCount(ctx, admins[i].ID)
		if err != nil {
			return nil, err
		}
		if best == nil || count < bestCount {
			best = &admins[i]
			bestCount = count
		}
	}
	if best == nil {
		return nil, nil
	}

	if err := Assign(issue, *best, best.ID, now); err != nil {
		return nil, err
	}
	return best, nil
}

// Assign sets assignee, department, and assignment timestamp on the
// issue. A pending issue is advanced to in_progress through the workflow
// engine; reassignment of an already-progressing issue leaves the status
// alone.
func Assign(issue *models.Issue, admin models.User, actor primitive.ObjectID, now time.Time) error {
	issue.AssignedTo = &admin.ID
	issue.AssignedDepartment = admin.Department
	t := now
	issue.AssignedAt = &t
	issue.UpdatedAt = now

	if issue.Status == models.StatusPending {
		return workflow.Apply(issue, models.StatusInProgress, actor, "assigned", now)
	}
	return nil
}
