package controllers

import (
	"context"

	"cityfix-be/models"
	"cityfix-be/notify"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoDirectory backs the assignment router and notification dispatcher
// with user-directory queries over the users and issues collections.
type mongoDirectory struct{}

// Directory exposes the shared user-directory lookup for wiring outside
// this package (the escalation sweep reuses it).
func Directory() notify.Directory {
	return mongoDirectory{}
}

func (mongoDirectory) ActiveLowAdminsInZone(ctx context.Context, zone string) ([]models.User, error) {
	cursor, err := userCollection.Find(ctx, bson.M{
		"role":   models.RoleLowAdmin,
		"active": true,
		"zones":  zone,
	}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var admins []models.User
	if err := cursor.All(ctx, &admins); err != nil {
		return nil, err
	}
	return admins, nil
}

func (mongoDirectory) OpenAssignedCount(ctx context.Context, adminID primitive.ObjectID) (int64, error) {
	return issueCollection.CountDocuments(ctx, bson.M{
		"assignedTo": adminID,
		"status":     bson.M{"$in": models.OpenStatuses},
		"archived":   bson.M{"$ne": true},
	})
}

func (d mongoDirectory) AdminIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	return d.userIDs(ctx, bson.M{
		"role":   bson.M{"$in": []models.UserRole{models.RoleLowAdmin, models.RoleHighAdmin}},
		"active": true,
	})
}

func (d mongoDirectory) HighAdminIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	return d.userIDs(ctx, bson.M{"role": models.RoleHighAdmin, "active": true})
}

func (mongoDirectory) userIDs(ctx context.Context, filter bson.M) ([]primitive.ObjectID, error) {
	cursor, err := userCollection.Find(ctx, filter,
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}
