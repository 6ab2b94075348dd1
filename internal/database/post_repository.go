// internal/database/post_repository.go
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
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostDocument represents the MongoDB schema for a post. Author username and
// group slug are denormalized onto the document so listings need no joins.
type PostDocument struct {
	ID             string    `bson:"_id"`
	Text           string    `bson:"text"`
	AuthorID       string    `bson:"authorid"`
	AuthorUsername string    `bson:"authorusername"`
	GroupID        *string   `bson:"groupid,omitempty"`
	GroupSlug      *string   `bson:"groupslug,omitempty"`
	ImagePath      *string   `bson:"imagepath,omitempty"`
	CreatedAt      time.Time `bson:"createdat"`
}

func postToDocument(post *models.Post) *PostDocument {
	doc := &PostDocument{
		ID:             post.ID.String(),
		Text:           post.Text,
		AuthorID:       post.AuthorID.String(),
		AuthorUsername: post.AuthorUsername,
		GroupSlug:      post.GroupSlug,
		ImagePath:      post.ImagePath,
		CreatedAt:      post.CreatedAt,
	}
	if post.GroupID != nil {
		s := post.GroupID.String()
		doc.GroupID = &s
	}
	return doc
}

func documentToPost(doc *PostDocument) (*models.Post, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid post ID: %v", err)
	}
	authorID, err := uuid.Parse(doc.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author ID: %v", err)
	}

	post := &models.Post{
		ID:             id,
		Text:           doc.Text,
		AuthorID:       authorID,
		AuthorUsername: doc.AuthorUsername,
		GroupSlug:      doc.GroupSlug,
		ImagePath:      doc.ImagePath,
		CreatedAt:      doc.CreatedAt,
	}
	if doc.GroupID != nil {
		groupID, err := uuid.Parse(*doc.GroupID)
		if err != nil {
			return nil, fmt.Errorf("invalid group ID: %v", err)
		}
		post.GroupID = &groupID
	}
	return post, nil
}

func (m *MongoDB) SavePost(ctx context.Context, post *models.Post) error {
	if post.AuthorUsername == "" {
		author, err := m.GetUserByID(ctx, post.AuthorID)
		if err != nil {
			return err
		}
		post.AuthorUsername = author.Username
	}
	_, err := m.Posts.InsertOne(ctx, postToDocument(post))
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to save post", err)
	}
	return nil
}

func (m *MongoDB) UpdatePost(ctx context.Context, post *models.Post) error {
	update := bson.M{"$set": bson.M{
		"text":      post.Text,
		"groupid":   nil,
		"groupslug": nil,
		"imagepath": post.ImagePath,
	}}
	if post.GroupID != nil {
		update["$set"].(bson.M)["groupid"] = post.GroupID.String()
		update["$set"].(bson.M)["groupslug"] = post.GroupSlug
	}

	result, err := m.Posts.UpdateOne(ctx, bson.M{"_id": post.ID.String()}, update)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to update post", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewPostNotFoundError()
	}
	return nil
}

func (m *MongoDB) GetPostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var doc PostDocument
	err := m.Posts.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewPostNotFoundError()
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to fetch post", err)
	}
	return documentToPost(&doc)
}

// listPosts runs a filtered, newest-first, paginated query plus a count of
// the full match.
func (m *MongoDB) listPosts(ctx context.Context, filter bson.M, limit, offset int) ([]*models.Post, int, error) {
	total, err := m.Posts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, utils.NewAppError(utils.ErrDatabase, "Failed to count posts", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdat", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := m.Posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, utils.NewAppError(utils.ErrDatabase, "Failed to list posts", err)
	}
	defer cursor.Close(ctx)

	posts := []*models.Post{}
	for cursor.Next(ctx) {
		var doc PostDocument
		if err := cursor.Decode(&doc); err != nil {
			log.Printf("MongoDB: skipping undecodable post document: %v", err)
			continue
		}
		post, err := documentToPost(&doc)
		if err != nil {
			log.Printf("MongoDB: skipping corrupt post document %s: %v", doc.ID, err)
			continue
		}
		posts = append(posts, post)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, utils.NewAppError(utils.ErrDatabase, "Failed to iterate posts", err)
	}
	return posts, int(total), nil
}

func (m *MongoDB) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, int, error) {
	return m.listPosts(ctx, bson.M{}, limit, offset)
}

func (m *MongoDB) ListGroupPosts(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*models.Post, int, error) {
	return m.listPosts(ctx, bson.M{"groupid": groupID.String()}, limit, offset)
}

func (m *MongoDB) ListAuthorPosts(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*models.Post, int, error) {
	return m.listPosts(ctx, bson.M{"authorid": authorID.String()}, limit, offset)
}

// ListFeedPosts resolves the followed author set first, then pages through
// their posts.
func (m *MongoDB) ListFeedPosts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Post, int, error) {
	authorIDs, err := m.followedAuthorIDs(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if len(authorIDs) == 0 {
		return []*models.Post{}, 0, nil
	}
	return m.listPosts(ctx, bson.M{"authorid": bson.M{"$in": authorIDs}}, limit, offset)
}

func (m *MongoDB) CountPosts(ctx context.Context) (int, error) {
	count, err := m.Posts.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, utils.NewAppError(utils.ErrDatabase, "Failed to count posts", err)
	}
	return int(count), nil
}
