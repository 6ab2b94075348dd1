// internal/database/group_repository.go
package database

import (
	"context"
	"fmt"
	"log"

	"fernpost/internal/models"
	"fernpost/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GroupDocument represents the MongoDB schema for a group.
type GroupDocument struct {
	ID          string `bson:"_id"`
	Title       string `bson:"title"`
	Slug        string `bson:"slug"`
	Description string `bson:"description"`
}

func groupToDocument(group *models.Group) *GroupDocument {
	return &GroupDocument{
		ID:          group.ID.String(),
		Title:       group.Title,
		Slug:        group.Slug,
		Description: group.Description,
	}
}

func documentToGroup(doc *GroupDocument) (*models.Group, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid group ID: %v", err)
	}
	return &models.Group{
		ID:          id,
		Title:       doc.Title,
		Slug:        doc.Slug,
		Description: doc.Description,
	}, nil
}

func (m *MongoDB) CreateGroup(ctx context.Context, group *models.Group) error {
	_, err := m.Groups.InsertOne(ctx, groupToDocument(group))
	if mongo.IsDuplicateKeyError(err) {
		return utils.NewAppError(utils.ErrDuplicate, "Group title or slug already exists", err)
	}
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to create group", err)
	}
	return nil
}

func (m *MongoDB) GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var doc GroupDocument
	err := m.Groups.FindOne(ctx, bson.M{"slug": slug}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewGroupNotFoundError(slug)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to fetch group", err)
	}
	return documentToGroup(&doc)
}

func (m *MongoDB) ListGroups(ctx context.Context) ([]*models.Group, error) {
	cursor, err := m.Groups.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to list groups", err)
	}
	defer cursor.Close(ctx)

	var groups []*models.Group
	for cursor.Next(ctx) {
		var doc GroupDocument
		if err := cursor.Decode(&doc); err != nil {
			log.Printf("MongoDB: skipping undecodable group document: %v", err)
			continue
		}
		group, err := documentToGroup(&doc)
		if err != nil {
			log.Printf("MongoDB: skipping corrupt group document %s: %v", doc.ID, err)
			continue
		}
		groups = append(groups, group)
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to iterate groups", err)
	}
	return groups, nil
}

func (m *MongoDB) CountGroups(ctx context.Context) (int, error) {
	count, err := m.Groups.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, utils.NewAppError(utils.ErrDatabase, "Failed to count groups", err)
	}
	return int(count), nil
}
