// internal/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"fernpost/internal/models"
	"fernpost/internal/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresDB represents a PostgreSQL database connection
type PostgresDB struct {
	DB *sqlx.DB
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %v", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL!")

	return &PostgresDB{DB: db}, nil
}

// Close closes the database connection
func (p *PostgresDB) Close(ctx context.Context) error {
	log.Println("Closing PostgreSQL connection...")
	return p.DB.Close()
}

// migration is one entry of the append-only schema version log.
type migration struct {
	Version     int
	Description string
	SQL         string
}

// Deletion rules live in the schema: removing an author removes their posts,
// comments and follow rows; removing a group orphans its posts to NULL.
var migrations = []migration{
	{
		Version:     1,
		Description: "create users",
		SQL: `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username VARCHAR(150) UNIQUE NOT NULL,
			email VARCHAR(254) UNIQUE NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
	},
	{
		Version:     2,
		Description: "create groups",
		SQL: `
		CREATE TABLE IF NOT EXISTS groups (
			id UUID PRIMARY KEY,
			title VARCHAR(200) UNIQUE NOT NULL,
			slug VARCHAR(75) UNIQUE NOT NULL,
			description VARCHAR(400) NOT NULL DEFAULT ''
		)`,
	},
	{
		Version:     3,
		Description: "create posts",
		SQL: `
		CREATE TABLE IF NOT EXISTS posts (
			id UUID PRIMARY KEY,
			text TEXT NOT NULL,
			author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			group_id UUID REFERENCES groups(id) ON DELETE SET NULL,
			image_path VARCHAR(255),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_posts_author ON posts (author_id);
		CREATE INDEX IF NOT EXISTS idx_posts_group ON posts (group_id)`,
	},
	{
		Version:     4,
		Description: "create comments",
		SQL: `
		CREATE TABLE IF NOT EXISTS comments (
			id UUID PRIMARY KEY,
			post_id UUID NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_comments_post ON comments (post_id, created_at)`,
	},
	{
		Version:     5,
		Description: "create follows",
		SQL: `
		CREATE TABLE IF NOT EXISTS follows (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (user_id, author_id)
		)`,
	},
}

// Migrate applies every pending entry of the migration log and records it in
// schema_versions.
func (p *PostgresDB) Migrate(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_versions (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_versions table: %v", err)
	}

	for _, m := range migrations {
		var exists bool
		err := p.DB.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM schema_versions WHERE version = $1)`, m.Version)
		if err != nil {
			return fmt.Errorf("failed to read schema_versions: %v", err)
		}
		if exists {
			continue
		}

		tx, err := p.DB.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %v", m.Version, m.Description, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_versions (version, description) VALUES ($1, $2)`,
			m.Version, m.Description); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %v", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		log.Printf("Applied migration %d: %s", m.Version, m.Description)
	}

	return nil
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// --- User methods ---

func (p *PostgresDB) SaveUser(ctx context.Context, user *models.User) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.Email, user.HashedPassword, user.CreatedAt)
	if isUniqueViolation(err) {
		return utils.NewAppError(utils.ErrUserAlreadyExists, "Username or email already registered", err)
	}
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to save user", err)
	}
	return nil
}

func (p *PostgresDB) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var user models.User
	err := p.DB.GetContext(ctx, &user,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE `+where, arg)
	if err == sql.ErrNoRows {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "User not found", err)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to fetch user", err)
	}
	return &user, nil
}

func (p *PostgresDB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return p.getUser(ctx, "id = $1", id)
}

func (p *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return p.getUser(ctx, "username = $1", username)
}

func (p *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return p.getUser(ctx, "email = $1", email)
}

// --- Group methods ---

func (p *PostgresDB) CreateGroup(ctx context.Context, group *models.Group) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO groups (id, title, slug, description)
		VALUES ($1, $2, $3, $4)`,
		group.ID, group.Title, group.Slug, group.Description)
	if isUniqueViolation(err) {
		return utils.NewAppError(utils.ErrDuplicate, "Group title or slug already exists", err)
	}
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to create group", err)
	}
	return nil
}

func (p *PostgresDB) GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	err := p.DB.GetContext(ctx, &group,
		`SELECT id, title, slug, description FROM groups WHERE slug = $1`, slug)
	if err == sql.ErrNoRows {
		return nil, utils.NewGroupNotFoundError(slug)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to fetch group", err)
	}
	return &group, nil
}

func (p *PostgresDB) ListGroups(ctx context.Context) ([]*models.Group, error) {
	groups := []*models.Group{}
	err := p.DB.SelectContext(ctx, &groups,
		`SELECT id, title, slug, description FROM groups ORDER BY title`)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to list groups", err)
	}
	return groups, nil
}

func (p *PostgresDB) CountGroups(ctx context.Context) (int, error) {
	var count int
	if err := p.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM groups`); err != nil {
		return 0, utils.NewAppError(utils.ErrDatabase, "Failed to count groups", err)
	}
	return count, nil
}

// --- Post methods ---

// postColumns joins in the author username and group slug so listings carry
// everything the presentation context needs in one round trip.
const postColumns = `
	p.id, p.text, p.author_id, u.username AS author_username,
	p.group_id, g.slug AS group_slug, p.image_path, p.created_at
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN groups g ON g.id = p.group_id`

func (p *PostgresDB) SavePost(ctx context.Context, post *models.Post) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO posts (id, text, author_id, group_id, image_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		post.ID, post.Text, post.AuthorID, post.GroupID, post.ImagePath, post.CreatedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to save post", err)
	}
	return nil
}

// UpdatePost rewrites text, group and image in place; id, author and the
// creation timestamp never change.
func (p *PostgresDB) UpdatePost(ctx context.Context, post *models.Post) error {
	res, err := p.DB.ExecContext(ctx, `
		UPDATE posts SET text = $2, group_id = $3, image_path = $4 WHERE id = $1`,
		post.ID, post.Text, post.GroupID, post.ImagePath)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to update post", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NewPostNotFoundError()
	}
	return nil
}

func (p *PostgresDB) GetPostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := p.DB.GetContext(ctx, &post, `SELECT `+postColumns+` WHERE p.id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, utils.NewPostNotFoundError()
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to fetch post", err)
	}
	return &post, nil
}

func (p *PostgresDB) listPosts(ctx context.Context, where, countWhere string, limit, offset int, args ...interface{}) ([]*models.Post, int, error) {
	var total int
	if err := p.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM posts p `+countWhere, args...); err != nil {
		return nil, 0, utils.NewAppError(utils.ErrDatabase, "Failed to count posts", err)
	}

	posts := []*models.Post{}
	query := `SELECT ` + postColumns + ` ` + where + ` ORDER BY p.created_at DESC, p.id DESC
		LIMIT ` + fmt.Sprint(limit) + ` OFFSET ` + fmt.Sprint(offset)
	if err := p.DB.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, 0, utils.NewAppError(utils.ErrDatabase, "Failed to list posts", err)
	}
	return posts, total, nil
}

func (p *PostgresDB) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, int, error) {
	return p.listPosts(ctx, "", "", limit, offset)
}

func (p *PostgresDB) ListGroupPosts(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*models.Post, int, error) {
	return p.listPosts(ctx, "WHERE p.group_id = $1", "WHERE p.group_id = $1", limit, offset, groupID)
}

func (p *PostgresDB) ListAuthorPosts(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*models.Post, int, error) {
	return p.listPosts(ctx, "WHERE p.author_id = $1", "WHERE p.author_id = $1", limit, offset, authorID)
}

func (p *PostgresDB) ListFeedPosts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Post, int, error) {
	where := `WHERE p.author_id IN (SELECT author_id FROM follows WHERE user_id = $1)`
	return p.listPosts(ctx, where, where, limit, offset, userID)
}

func (p *PostgresDB) CountPosts(ctx context.Context) (int, error) {
	var count int
	if err := p.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM posts`); err != nil {
		return 0, utils.NewAppError(utils.ErrDatabase, "Failed to count posts", err)
	}
	return count, nil
}

// --- Comment methods ---

func (p *PostgresDB) SaveComment(ctx context.Context, comment *models.Comment) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, author_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		comment.ID, comment.PostID, comment.AuthorID, comment.Text, comment.CreatedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to save comment", err)
	}
	return nil
}

// GetPostComments returns comments oldest-first.
func (p *PostgresDB) GetPostComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := p.DB.SelectContext(ctx, &comments, `
		SELECT c.id, c.post_id, c.author_id, u.username AS author_username, c.text, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1
		ORDER BY c.created_at ASC, c.id ASC`, postID)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to fetch comments", err)
	}
	return comments, nil
}

// --- Follow methods ---

// CreateFollow is idempotent: the primary key on (user_id, author_id) makes
// re-following a no-op instead of an error.
func (p *PostgresDB) CreateFollow(ctx context.Context, userID, authorID uuid.UUID) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO follows (user_id, author_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, author_id) DO NOTHING`,
		userID, authorID)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to create follow", err)
	}
	return nil
}

// DeleteFollow removes the relation; deleting an absent relation is not an
// error.
func (p *PostgresDB) DeleteFollow(ctx context.Context, userID, authorID uuid.UUID) error {
	_, err := p.DB.ExecContext(ctx,
		`DELETE FROM follows WHERE user_id = $1 AND author_id = $2`, userID, authorID)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to delete follow", err)
	}
	return nil
}

func (p *PostgresDB) FollowExists(ctx context.Context, userID, authorID uuid.UUID) (bool, error) {
	var exists bool
	err := p.DB.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE user_id = $1 AND author_id = $2)`,
		userID, authorID)
	if err != nil {
		return false, utils.NewAppError(utils.ErrDatabase, "Failed to check follow", err)
	}
	return exists, nil
}
