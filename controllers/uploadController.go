package controllers

import (
	"context"
	"net/http"
	"time"

	"cityfix-be/events"
	"cityfix-be/middlewares"
	"cityfix-be/models"
	"cityfix-be/policy"
	"cityfix-be/storage"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

const maxUploadSize = 10 << 20 // 10 MiB

// UploadPhoto accepts a citizen photo and returns its object URL. The
// issue document only ever stores the URL.
func UploadPhoto(c *gin.Context) {
	uploader, err := storage.Default()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "File storage not configured"})
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	url, err := uploader.Upload(ctx, "photos", fileHeader.Filename, file, fileHeader.Size,
		fileHeader.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// AddWorkProof uploads evidence of completed work and attaches it to the
// issue. Restricted to the currently assigned low_admin or a high_admin.
func AddWorkProof(c *gin.Context) {
	actor, ok := middlewares.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	uploader, err := storage.Default()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "File storage not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	issue, ok := loadIssue(ctx, c)
	if !ok {
		return
	}

	if !policy.Can(actor, issue, policy.ActionAddProof) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	fileHeader, err := c.FormFile("proof")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proof file is required"})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer file.Close()

	url, err := uploader.Upload(ctx, "proofs", fileHeader.Filename, file, fileHeader.Size,
		fileHeader.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}

	now := time.Now()
	proof := models.WorkProof{
		URL:        url,
		Note:       c.PostForm("note"),
		UploadedBy: actor.ID,
		UploadedAt: now,
	}

	_, err = issueCollection.UpdateOne(ctx, bson.M{"_id": issue.ID}, bson.M{
		"$push": bson.M{"workProofs": proof},
		"$set":  bson.M{"updatedAt": now},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attach work proof"})
		return
	}

	events.Publish(ctx, "issue.proof_added", issue.ID, actor.ID)

	c.JSON(http.StatusCreated, proof)
}
