// internal/database/comment_repository.go
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"fernpost/internal/models"
	"fernpost/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CommentDocument represents the MongoDB schema for a comment.
type CommentDocument struct {
	ID             string    `bson:"_id"`
	PostID         string    `bson:"postid"`
	AuthorID       string    `bson:"authorid"`
	AuthorUsername string    `bson:"authorusername"`
	Text           string    `bson:"text"`
	CreatedAt      time.Time `bson:"createdat"`
}

func commentToDocument(comment *models.Comment) *CommentDocument {
	return &CommentDocument{
		ID:             comment.ID.String(),
		PostID:         comment.PostID.String(),
		AuthorID:       comment.AuthorID.String(),
		AuthorUsername: comment.AuthorUsername,
		Text:           comment.Text,
		CreatedAt:      comment.CreatedAt,
	}
}

func documentToComment(doc *CommentDocument) (*models.Comment, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid comment ID: %v", err)
	}
	postID, err := uuid.Parse(doc.PostID)
	if err != nil {
		return nil, fmt.Errorf("invalid post ID: %v", err)
	}
	authorID, err := uuid.Parse(doc.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author ID: %v", err)
	}
	return &models.Comment{
		ID:             id,
		PostID:         postID,
		AuthorID:       authorID,
		AuthorUsername: doc.AuthorUsername,
		Text:           doc.Text,
		CreatedAt:      doc.CreatedAt,
	}, nil
}

func (m *MongoDB) SaveComment(ctx context.Context, comment *models.Comment) error {
	if comment.AuthorUsername == "" {
		author, err := m.GetUserByID(ctx, comment.AuthorID)
		if err != nil {
			return err
		}
		comment.AuthorUsername = author.Username
	}
	_, err := m.Comments.InsertOne(ctx, commentToDocument(comment))
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to save comment", err)
	}
	return nil
}

// GetPostComments returns comments oldest-first.
func (m *MongoDB) GetPostComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdat", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.Comments.Find(ctx, bson.M{"postid": postID.String()}, opts)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to fetch comments", err)
	}
	defer cursor.Close(ctx)

	comments := []*models.Comment{}
	for cursor.Next(ctx) {
		var doc CommentDocument
		if err := cursor.Decode(&doc); err != nil {
			log.Printf("MongoDB: skipping undecodable comment document: %v", err)
			continue
		}
		comment, err := documentToComment(&doc)
		if err != nil {
			log.Printf("MongoDB: skipping corrupt comment document %s: %v", doc.ID, err)
			continue
		}
		comments = append(comments, comment)
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to iterate comments", err)
	}
	return comments, nil
}
