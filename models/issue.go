package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCategory enum
type IssueCategory string

const (
	Road        IssueCategory = "road"
	Water       IssueCategory = "water"
	Sanitation  IssueCategory = "sanitation"
	Electricity IssueCategory = "electricity"
	Streetlight IssueCategory = "streetlight"
	Garbage     IssueCategory = "garbage"
	Other       IssueCategory = "other"
)

// ValidCategories lists every accepted issue category.
var ValidCategories = map[IssueCategory]bool{
	Road: true, Water: true, Sanitation: true,
	Electricity: true, Streetlight: true, Garbage: true, Other: true,
}

// IssuePriority enum
type IssuePriority string

const (
	PriorityLow    IssuePriority = "low"
	PriorityMedium IssuePriority = "medium"
	PriorityHigh   IssuePriority = "high"
	PriorityUrgent IssuePriority = "urgent"
)

// ValidPriorities lists every accepted issue priority.
var ValidPriorities = map[IssuePriority]bool{
	PriorityLow: true, PriorityMedium: true, PriorityHigh: true, PriorityUrgent: true,
}

// IssueStatus enum
type IssueStatus string

const (
	StatusPending             IssueStatus = "pending"
	StatusInProgress          IssueStatus = "in_progress"
	StatusPendingVerification IssueStatus = "pending_verification"
	StatusVerifiedSolved      IssueStatus = "verified_solved"
	StatusEscalated           IssueStatus = "escalated"
	StatusReopened            IssueStatus = "reopened"
)

// OpenStatuses are the statuses that count as unresolved work for an
// assignee. Only verified_solved is excluded; reopened issues are open again.
var OpenStatuses = []IssueStatus{
	StatusPending, StatusInProgress, StatusPendingVerification,
	StatusEscalated, StatusReopened,
}

// Location pins an issue to the city map. Zone is the label the
// assignment router and access rules key on.
type Location struct {
	Latitude  *float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude *float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Address   string   `bson:"address" json:"address"`
	Zone      string   `bson:"zone" json:"zone"`
}

// StatusChange is one append-only entry in an issue's status history.
type StatusChange struct {
	Status    IssueStatus        `bson:"status" json:"status"`
	ChangedBy primitive.ObjectID `bson:"changedBy" json:"changedBy"`
	ChangedAt time.Time          `bson:"changedAt" json:"changedAt"`
	Reason    string             `bson:"reason,omitempty" json:"reason,omitempty"`
}

// Comment on an issue. Internal comments are visible to admins only.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Text      string             `bson:"text" json:"text"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Internal  bool               `bson:"internal" json:"internal"`
}

// WorkProof is an attachment uploaded by the assigned admin as evidence
// of completed work. Only the object URL is stored, never raw bytes.
type WorkProof struct {
	URL        string             `bson:"url" json:"url"`
	Note       string             `bson:"note,omitempty" json:"note,omitempty"`
	UploadedBy primitive.ObjectID `bson:"uploadedBy" json:"uploadedBy"`
	UploadedAt time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}

// Issue represents a civic issue reported by a citizen and worked through
// the status pipeline. Status always equals the status of the last
// StatusHistory entry; AssignedTo and AssignedAt are set together or not
// at all. Issues are soft-archived, never deleted.
type Issue struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title              string              `bson:"title" json:"title"`
	Description        string              `bson:"description" json:"description"`
	Category           IssueCategory       `bson:"category" json:"category"`
	Priority           IssuePriority       `bson:"priority" json:"priority"`
	Status             IssueStatus         `bson:"status" json:"status"`
	Location           Location            `bson:"location" json:"location"`
	ImageURLs          []string            `bson:"imageUrls,omitempty" json:"imageUrls,omitempty"`
	ReportedBy         primitive.ObjectID  `bson:"reportedBy" json:"reportedBy"`
	AssignedTo         *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	AssignedDepartment string              `bson:"assignedDepartment,omitempty" json:"assignedDepartment,omitempty"`
	AssignedAt         *time.Time          `bson:"assignedAt,omitempty" json:"assignedAt,omitempty"`
	DueDate            *time.Time          `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	ResolvedAt         *time.Time          `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	VerifiedAt         *time.Time          `bson:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`
	EscalatedAt        *time.Time          `bson:"escalatedAt,omitempty" json:"escalatedAt,omitempty"`
	StatusHistory      []StatusChange      `bson:"statusHistory" json:"statusHistory"`
	Comments           []Comment           `bson:"comments,omitempty" json:"comments,omitempty"`
	WorkProofs         []WorkProof         `bson:"workProofs,omitempty" json:"workProofs,omitempty"`
	Archived           bool                `bson:"archived" json:"archived"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IsAssignedTo reports whether the issue is currently assigned to userID.
func (i *Issue) IsAssignedTo(userID primitive.ObjectID) bool {
	return i.AssignedTo != nil && *i.AssignedTo == userID
}
