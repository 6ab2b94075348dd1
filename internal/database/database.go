// internal/database/database.go
package database

import (
	"context"
	"fmt"

	"fernpost/internal/config"
	"fernpost/internal/models"

	"github.com/google/uuid"
)

// DBAdapter is the common interface for storage backends. PostgreSQL is the
// primary backend; MongoDB and the in-memory adapter implement the same
// contract (the latter for tests and local development).
//
// Listing methods return the page slice plus the total row count so handlers
// can build paginators without a second query.
type DBAdapter interface {
	// Connection
	Close(ctx context.Context) error

	// User methods
	SaveUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Group methods
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error)
	ListGroups(ctx context.Context) ([]*models.Group, error)
	CountGroups(ctx context.Context) (int, error)

	// Post methods
	SavePost(ctx context.Context, post *models.Post) error
	UpdatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, int, error)
	ListGroupPosts(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*models.Post, int, error)
	ListAuthorPosts(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*models.Post, int, error)
	ListFeedPosts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Post, int, error)
	CountPosts(ctx context.Context) (int, error)

	// Comment methods
	SaveComment(ctx context.Context, comment *models.Comment) error
	GetPostComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error)

	// Follow methods
	CreateFollow(ctx context.Context, userID, authorID uuid.UUID) error
	DeleteFollow(ctx context.Context, userID, authorID uuid.UUID) error
	FollowExists(ctx context.Context, userID, authorID uuid.UUID) (bool, error)
}

// Open constructs the adapter selected by the configuration.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (DBAdapter, error) {
	switch cfg.Type {
	case "postgres":
		return NewPostgresDB(cfg.URI)
	case "mongo":
		return NewMongoDB(ctx, cfg.URI, cfg.Name)
	case "memory":
		return NewMemoryDB(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
