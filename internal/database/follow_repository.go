// internal/database/follow_repository.go
package database

import (
	"context"
	"log"
	"time"

	"fernpost/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// FollowDocument represents the MongoDB schema for a follow relation. The
// unique (userid, authorid) index stands in for the relational primary key.
type FollowDocument struct {
	UserID    string    `bson:"userid"`
	AuthorID  string    `bson:"authorid"`
	CreatedAt time.Time `bson:"createdat"`
}

// CreateFollow is idempotent; the duplicate-key error from the unique index
// is swallowed so re-following never fails or duplicates.
func (m *MongoDB) CreateFollow(ctx context.Context, userID, authorID uuid.UUID) error {
	_, err := m.Follows.InsertOne(ctx, &FollowDocument{
		UserID:    userID.String(),
		AuthorID:  authorID.String(),
		CreatedAt: time.Now(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to create follow", err)
	}
	return nil
}

func (m *MongoDB) DeleteFollow(ctx context.Context, userID, authorID uuid.UUID) error {
	_, err := m.Follows.DeleteOne(ctx, bson.M{
		"userid":   userID.String(),
		"authorid": authorID.String(),
	})
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to delete follow", err)
	}
	return nil
}

func (m *MongoDB) FollowExists(ctx context.Context, userID, authorID uuid.UUID) (bool, error) {
	count, err := m.Follows.CountDocuments(ctx, bson.M{
		"userid":   userID.String(),
		"authorid": authorID.String(),
	})
	if err != nil {
		return false, utils.NewAppError(utils.ErrDatabase, "Failed to check follow", err)
	}
	return count > 0, nil
}

// followedAuthorIDs lists the author id strings the user follows.
func (m *MongoDB) followedAuthorIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	cursor, err := m.Follows.Find(ctx, bson.M{"userid": userID.String()})
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to fetch follows", err)
	}
	defer cursor.Close(ctx)

	var authorIDs []string
	for cursor.Next(ctx) {
		var doc FollowDocument
		if err := cursor.Decode(&doc); err != nil {
			log.Printf("MongoDB: skipping undecodable follow document: %v", err)
			continue
		}
		authorIDs = append(authorIDs, doc.AuthorID)
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to iterate follows", err)
	}
	return authorIDs, nil
}
