// internal/database/user_repository.go
package database

import (
	"context"
	"fmt"
	"time"

	"fernpost/internal/models"
	"fernpost/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserDocument represents the MongoDB schema for a user.
type UserDocument struct {
	ID             string    `bson:"_id"`
	Username       string    `bson:"username"`
	Email          string    `bson:"email"`
	HashedPassword string    `bson:"passwordhash"`
	CreatedAt      time.Time `bson:"createdat"`
}

func userToDocument(user *models.User) *UserDocument {
	return &UserDocument{
		ID:             user.ID.String(),
		Username:       user.Username,
		Email:          user.Email,
		HashedPassword: user.HashedPassword,
		CreatedAt:      user.CreatedAt,
	}
}

func documentToUser(doc *UserDocument) (*models.User, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %v", err)
	}
	return &models.User{
		ID:             id,
		Username:       doc.Username,
		Email:          doc.Email,
		HashedPassword: doc.HashedPassword,
		CreatedAt:      doc.CreatedAt,
	}, nil
}

func (m *MongoDB) SaveUser(ctx context.Context, user *models.User) error {
	_, err := m.Users.InsertOne(ctx, userToDocument(user))
	if mongo.IsDuplicateKeyError(err) {
		return utils.NewAppError(utils.ErrUserAlreadyExists, "Username or email already registered", err)
	}
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to save user", err)
	}
	return nil
}

func (m *MongoDB) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc UserDocument
	err := m.Users.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "User not found", err)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to fetch user", err)
	}
	return documentToUser(&doc)
}

func (m *MongoDB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id.String()})
}

func (m *MongoDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"username": username})
}

func (m *MongoDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": email})
}
