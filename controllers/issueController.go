package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cityfix-be/assignment"
	"cityfix-be/config"
	"cityfix-be/events"
	"cityfix-be/middlewares"
	"cityfix-be/models"
	"cityfix-be/notify"
	"cityfix-be/policy"
	"cityfix-be/workflow"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var issueCollection *mongo.Collection = config.GetCollection("issues")
var userCollection *mongo.Collection = config.GetCollection("users")
var notificationCollection *mongo.Collection = config.GetCollection("notifications")

var router = assignment.NewRouter(mongoDirectory{})
var dispatcher = notify.NewDispatcher(mongoDirectory{})

// dispatchAndStore runs the dispatcher for the event and persists the
// resulting records. Notification failures are logged, never surfaced:
// the mutation itself already succeeded.
func dispatchAndStore(ctx context.Context, ev notify.Event) {
	records, err := dispatcher.NotificationsFor(ctx, ev)
	if err != nil {
		log.Error().Err(err).Str("event", string(ev.Type)).Msg("notification dispatch failed")
		return
	}
	if len(records) == 0 {
		return
	}

	docs := make([]interface{}, 0, len(records))
	for _, r := range records {
		r.ID = primitive.NewObjectID()
		docs = append(docs, r)
	}
	if _, err := notificationCollection.InsertMany(ctx, docs); err != nil {
		log.Error().Err(err).Str("event", string(ev.Type)).Msg("notification insert failed")
	}
}

func loadIssue(ctx context.Context, c *gin.Context) (models.Issue, bool) {
	var issue models.Issue

	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return issue, false
	}

	err = issueCollection.FindOne(ctx, bson.M{"_id": issueID}).Decode(&issue)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve issue"})
		}
		return issue, false
	}
	return issue, true
}

func saveIssue(ctx context.Context, issue *models.Issue) error {
	_, err := issueCollection.ReplaceOne(ctx, bson.M{"_id": issue.ID}, issue)
	return err
}

// CreateIssue handles the creation of a new issue: validate, persist,
// auto-assign, notify, publish.
func CreateIssue(c *gin.Context) {
	actor, ok := middlewares.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Title       string     `json:"title" binding:"required,max=200"`
		Description string     `json:"description" binding:"required,max=1000"`
		Category    string     `json:"category" binding:"required"`
		Priority    *string    `json:"priority,omitempty"`
		Address     string     `json:"address" binding:"required,max=200"`
		Zone        string     `json:"zone" binding:"required,max=100"`
		ImageURLs   []string   `json:"imageUrls,omitempty"`
		Latitude    *float64   `json:"latitude,omitempty"`
		Longitude   *float64   `json:"longitude,omitempty"`
		DueDate     *time.Time `json:"dueDate,omitempty"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.ValidCategories[models.IssueCategory(input.Category)] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}

	priority := models.PriorityMedium
	if input.Priority != nil {
		priority = models.IssuePriority(*input.Priority)
		if !models.ValidPriorities[priority] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
			return
		}
	}

	now := time.Now()
	issue := models.Issue{
		ID:          primitive.NewObjectID(),
		Title:       input.Title,
		Description: input.Description,
		Category:    models.IssueCategory(input.Category),
		Priority:    priority,
		Status:      models.StatusPending,
		Location: models.Location{
			Latitude:  input.Latitude,
			Longitude: input.Longitude,
			Address:   input.Address,
			Zone:      input.Zone,
		},
		ImageURLs:  input.ImageURLs,
		ReportedBy: actor.ID,
		DueDate:    input.DueDate,
		StatusHistory: []models.StatusChange{
			{Status: models.StatusPending, ChangedBy: actor.ID, ChangedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// No eligible admin is a valid outcome: the issue stays pending.
	assignee, err := router.AutoAssign(ctx, &issue, now)
	if err != nil {
		log.Error().Err(err).Str("zone", issue.Location.Zone).Msg("auto-assignment failed")
		assignee = nil
	}
	if assignee == nil {
		log.Info().Str("zone", issue.Location.Zone).Msg("no eligible admin for zone, issue left pending")
	}

	if _, err := issueCollection.InsertOne(ctx, issue); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create issue"})
		return
	}

	dispatchAndStore(ctx, notify.Event{
		Type:  notify.EventIssueCreated,
		Issue: &issue,
		Actor: actor,
		At:    now,
	})
	if assignee != nil {
		dispatchAndStore(ctx, notify.Event{
			Type:     notify.EventIssueAssigned,
			Issue:    &issue,
			Actor:    actor,
			Assignee: assignee,
			At:       now,
		})
	}
	events.Publish(ctx, "issue.created", issue.ID, actor.ID)

	c.JSON(http.StatusCreated, issue)
}

// visibilityFilter scopes a list query to what the actor may see:
// citizens see their own reports, low_admins their assignment, zones,
// and department, high_admins everything.
func visibilityFilter(actor models.User) bson.M {
	switch actor.Role {
	case models.RoleHighAdmin:
		return bson.M{}
	case models.RoleLowAdmin:
		or := []bson.M{
			{"assignedTo": actor.ID},
		}
		if len(actor.Zones) > 0 {
			or = append(or, bson.M{"location.zone": bson.M{"$in": actor.Zones}})
		}
		if actor.Department != "" {
			or = append(or, bson.M{"assignedDepartment": actor.Department})
		}
		return bson.M{"$or": or}
	default:
		return bson.M{"reportedBy": actor.ID}
	}
}

// GetAllIssues handles retrieving issues with filtering, pagination, and
// visibility scoping.
func GetAllIssues(c *gin.Context) {
	actor, ok := middlewares.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	category := c.Query("category")
	status := c.Query("status")
	zone := c.Query("zone")
	search := c.Query("search")
	sortParam := c.DefaultQuery("sort", "newest")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	filter := visibilityFilter(actor)
	filter["archived"] = bson.M{"$ne": true}

	if category != "" && category != "all" {
		filter["category"] = category
	}
	if status != "" && status != "all" {
		filter["status"] = status
	}
	if zone != "" && zone != "all" {
		filter["location.zone"] = zone
	}
	if search != "" {
		filter["$and"] = []bson.M{
			{"$or": []bson.M{
				{"title": bson.M{"$regex": search, "$options": "i"}},
				{"description": bson.M{"$regex": search, "$options": "i"}},
			}},
		}
	}

	skip := (page - 1) * limit

	var sortOptions bson.D
	switch sortParam {
	case "oldest":
		sortOptions = bson.D{{Key: "createdAt", Value: 1}}
	case "priority":
		sortOptions = bson.D{{Key: "priority", Value: -1}, {Key: "createdAt", Value: -1}}
	case "newest":
		fallthrough
	default:
		sortOptions = bson.D{{Key: "createdAt", Value: -1}}
	}

	totalCount, err := issueCollection.CountDocuments(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count issues"})
		return
	}

	findOptions := options.Find().
		SetSort(sortOptions).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := issueCollection.Find(ctx, filter, findOptions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve issues"})
		return
	}
	defer cursor.Close(ctx)

	var issues []models.Issue
	if err := cursor.All(ctx, &issues); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode issues"})
		return
	}

	for i := range issues {
		issues[i] = redactIssue(issues[i], actor)
	}

	totalPages := int((totalCount + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, gin.H{
		"issues":      issues,
		"totalIssues": totalCount,
		"totalPages":  totalPages,
		"currentPage": page,
	})
}

// redactIssue strips internal comments for actors who may not see them.
func redactIssue(issue models.Issue, actor models.User) models.Issue {
	if policy.CanViewInternal(actor) {
		return issue
	}
	visible := make([]models.Comment, 0, len(issue.Comments))
	for _, comment := range issue.Comments {
		if !comment.Internal {
			visible = append(visible, comment)
		}
	}
	issue.Comments = visible
	return issue
}

// GetIssue retrieves a single issue, policy-checked.
func GetIssue(c *gin.Context) {
	actor, ok := middlewares.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issue, ok := loadIssue(ctx, c)
	if !ok {
		return
	}

	if !policy.Can(actor, issue, policy.ActionView) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var reporter models.User
	reportedByMap := gin.H{"id": issue.ReportedBy}
	if err := userCollection.FindOne(ctx, bson.M{"_id": issue.ReportedBy}).Decode(&reporter); err == nil {
		reportedByMap["name"] = reporter.Name
		reportedByMap["email"] = reporter.Email
	}

	issue = redactIssue(issue, actor)

	c.JSON(http.StatusOK, gin.H{
		"issue":      issue,
		"reportedBy": reportedByMap,
	})
}

// GetIssuesByUser retrieves all issues reported by the authenticated user.
func GetIssuesByUser(c *gin.Context) {
	actor, ok := middlewares.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := issueCollection.Find(ctx,
		bson.M{"reportedBy": actor.ID, "archived": bson.M{"$ne": true}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve issues"})
		return
	}
	defer cursor.Close(ctx)

	var issues []models.Issue
	if err := cursor.All(ctx, &issues); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode issues"})
		return
	}

	for i := range issues {
		issues[i] = redactIssue(issues[i], actor)
	}

	c.JSON(http.StatusOK, issues)
}

// UpdateIssueStatus drives one workflow transition:
// policy -> workflow engine -> persist -> notify -> publish.
func UpdateIssueStatus(c *gin.Context) {
	actor, ok := middlewares.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason,omitempty" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requested := models.IssueStatus(input.Status)
	switch requested {
	case models.StatusPending, models.StatusInProgress, models.StatusPendingVerification,
		models.StatusVerifiedSolved, models.StatusEscalated, models.StatusReopened:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issue, ok := loadIssue(ctx, c)
	if !ok {
		return
	}

	if !policy.CanRequestStatus(actor, issue, requested) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	now := time.Now()
	if err := workflow.Apply(&issue, requested, actor.ID, input.Reason, now); err != nil {
		var terr *workflow.TransitionError
		if errors.As(err, &terr) {
			c.JSON(http.StatusConflict, gin.H{"error": terr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}

	if err := saveIssue(ctx, &issue); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update issue"})
		return
	}

	dispatchAndStore(ctx, notify.Event{
		Type:  notify.EventStatusChanged,
		Issue: &issue,
		Actor: actor,
		At:    now,
	})
	events.Publish(ctx, "issue.status_changed", issue.ID, actor.ID)

	c.JSON(http.StatusOK, issue)
}

// AssignIssue manually (re)assigns an issue to an active low_admin.
func AssignIssue(c *gin.Context) {
	actor, ok := middlewares.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		AssigneeID string `json:"assigneeId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assigneeID, err := primitive.ObjectIDFromHex(input.AssigneeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issue, ok := loadIssue(ctx, c)
	if !ok {
		return
	}

	if !policy.Can(actor, issue, policy.ActionAssign) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var admin models.User
	err = userCollection.FindOne(ctx, bson.M{"_id": assigneeID}).Decode(&admin)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assignee not found"})
		return
	}
	if admin.Role != models.RoleLowAdmin || !admin.Active {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Assignee must be an active low_admin"})
		return
	}

	prevAssignee := issue.AssignedTo
	if prevAssignee != nil && *prevAssignee == admin.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Issue is already assigned to this admin"})
		return
	}

	now := time.Now()
	if err := assignment.Assign(&issue, admin, actor.ID, now); err != nil {
		var terr *workflow.TransitionError
		if errors.As(err, &terr) {
			c.JSON(http.StatusConflict, gin.H{"error": terr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign issue"})
		return
	}

	if err := saveIssue(ctx, &issue); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update issue"})
		return
	}

	dispatchAndStore(ctx, notify.Event{
		Type:         notify.EventIssueAssigned,
		Issue:        &issue,
		Actor:        actor,
		Assignee:     &admin,
		PrevAssignee: prevAssignee,
		At:           now,
	})
	events.Publish(ctx, "issue.assigned", issue.ID, actor.ID)

	c.JSON(http.StatusOK, issue)
}

// AddComment appends a comment. The internal flag is policy-forced:
// citizens can never produce an internal comment.
func AddComment(c *gin.Context) {
	actor, ok := middlewares.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Text     string `json:"text" binding:"required,max=1000"`
		Internal bool   `json:"internal"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issue, ok := loadIssue(ctx, c)
	if !ok {
		return
	}

	if !policy.Can(actor, issue, policy.ActionComment) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	now := time.Now()
	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		Text:      input.Text,
		Author:    actor.ID,
		CreatedAt: now,
		Internal:  policy.CommentInternal(actor, input.Internal),
	}

	_, err := issueCollection.UpdateOne(ctx, bson.M{"_id": issue.ID}, bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": now},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add comment"})
		return
	}

	issue.Comments = append(issue.Comments, comment)

	dispatchAndStore(ctx, notify.Event{
		Type:  notify.EventCommentAdded,
		Issue: &issue,
		Actor: actor,
		At:    now,
	})
	events.Publish(ctx, "issue.comment_added", issue.ID, actor.ID)

	c.JSON(http.StatusCreated, comment)
}

// ArchiveIssue soft-archives an issue. Issues are never hard-deleted.
func ArchiveIssue(c *gin.Context) {
	actor, ok := middlewares.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issue, ok := loadIssue(ctx, c)
	if !ok {
		return
	}

	if !policy.Can(actor, issue, policy.ActionArchive) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	_, err := issueCollection.UpdateOne(ctx, bson.M{"_id": issue.ID}, bson.M{
		"$set": bson.M{"archived": true, "updatedAt": time.Now()},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive issue"})
		return
	}

	events.Publish(ctx, "issue.archived", issue.ID, actor.ID)

	c.JSON(http.StatusOK, gin.H{"message": "Issue archived successfully"})
}

// RecentIssues returns the most recent issues that have coordinates, for
// the map view.
func RecentIssues(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	limit := 19

	filter := bson.M{
		"location.latitude":  bson.M{"$exists": true, "$ne": nil},
		"location.longitude": bson.M{"$exists": true, "$ne": nil},
		"archived":           bson.M{"$ne": true},
	}

	projection := bson.M{
		"_id":       1,
		"title":     1,
		"location":  1,
		"category":  1,
		"status":    1,
		"createdAt": 1,
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(projection)

	cursor, err := issueCollection.Find(ctx, filter, findOptions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve recent issues"})
		return
	}
	defer cursor.Close(ctx)

	type issueProjection struct {
		ID        primitive.ObjectID `bson:"_id" json:"id"`
		Title     string             `bson:"title" json:"title"`
		Location  models.Location    `bson:"location" json:"location"`
		Category  string             `bson:"category" json:"category"`
		Status    string             `bson:"status" json:"status"`
		CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	}

	var issues []issueProjection
	if err := cursor.All(ctx, &issues); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode recent issues"})
		return
	}

	c.JSON(http.StatusOK, issues)
}

// GetIssueAnalytics returns analytical data about issues
func GetIssueAnalytics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	groupBy := func(field string) ([]bson.M, error) {
		pipeline := []bson.M{
			{
				"$group": bson.M{
					"_id":   "$" + field,
					"count": bson.M{"$sum": 1},
				},
			},
			{
				"$project": bson.M{
					"name":  "$_id",
					"value": "$count",
					"_id":   0,
				},
			},
		}
		cursor, err := issueCollection.Aggregate(ctx, pipeline)
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)

		var out []bson.M
		if err := cursor.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	issuesByCategory, err := groupBy("category")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get category analytics"})
		return
	}
	issuesByStatus, err := groupBy("status")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get status analytics"})
		return
	}
	issuesByZone, err := groupBy("location.zone")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get zone analytics"})
		return
	}

	// Last 7 days of reports, one bucket per day.
	var last7Days []gin.H
	for i := 6; i >= 0; i-- {
		date := time.Now().AddDate(0, 0, -i)
		date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
		nextDate := date.AddDate(0, 0, 1)

		count, err := issueCollection.CountDocuments(ctx, bson.M{
			"createdAt": bson.M{
				"$gte": date,
				"$lt":  nextDate,
			},
		})
		if err != nil {
			count = 0
		}

		last7Days = append(last7Days, gin.H{
			"date":  date.Format("2006-01-02"),
			"count": count,
		})
	}

	totalIssues, err := issueCollection.CountDocuments(ctx, bson.M{})
	if err != nil {
		totalIssues = 0
	}

	openIssues, err := issueCollection.CountDocuments(ctx, bson.M{
		"status":   bson.M{"$in": models.OpenStatuses},
		"archived": bson.M{"$ne": true},
	})
	if err != nil {
		openIssues = 0
	}

	escalatedIssues, err := issueCollection.CountDocuments(ctx, bson.M{
		"status": models.StatusEscalated,
	})
	if err != nil {
		escalatedIssues = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"issuesByCategory": issuesByCategory,
		"issuesByStatus":   issuesByStatus,
		"issuesByZone":     issuesByZone,
		"last7Days":        last7Days,
		"totalIssues":      totalIssues,
		"openIssues":       openIssues,
		"escalatedIssues":  escalatedIssues,
	})
}
