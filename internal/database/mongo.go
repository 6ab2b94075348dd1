// internal/database/mongo.go
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB is the document-store adapter. Relational invariants that
// PostgreSQL expresses as constraints are enforced here with unique indexes
// (username, email, group title/slug, one row per (user, author) follow).
type MongoDB struct {
	Client   *mongo.Client
	Users    *mongo.Collection
	Groups   *mongo.Collection
	Posts    *mongo.Collection
	Comments *mongo.Collection
	Follows  *mongo.Collection
}

func NewMongoDB(ctx context.Context, uri, dbName string) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	if err := client.Database("admin").RunCommand(connectCtx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	log.Println("Successfully connected to MongoDB!")

	db := client.Database(dbName)
	m := &MongoDB{
		Client:   client,
		Users:    db.Collection("users"),
		Groups:   db.Collection("groups"),
		Posts:    db.Collection("posts"),
		Comments: db.Collection("comments"),
		Follows:  db.Collection("follows"),
	}

	if err := m.ensureIndexes(connectCtx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return m, nil
}

func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	_, err := m.Users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
	})
	if err != nil {
		return err
	}

	_, err = m.Groups.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "title", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
	})
	if err != nil {
		return err
	}

	_, err = m.Posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdat", Value: -1}}},
		{Keys: bson.D{{Key: "authorid", Value: 1}}},
		{Keys: bson.D{{Key: "groupid", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = m.Comments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "postid", Value: 1}, {Key: "createdat", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = m.Follows.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userid", Value: 1}, {Key: "authorid", Value: 1}},
		Options: unique,
	})
	return err
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
