package actors

import (
	"context"
	"testing"
	"time"

	"fernpost/internal/database"
	"fernpost/internal/models"
	"fernpost/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedUser inserts a user directly; the password hash is irrelevant here.
func seedUser(t *testing.T, db *database.MemoryDB, username string) *models.User {
	t.Helper()
	user := &models.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     username + "@example.com",
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.SaveUser(context.Background(), user))
	return user
}

func seedGroup(t *testing.T, db *database.MemoryDB, slug, title string) *models.Group {
	t.Helper()
	group := &models.Group{ID: uuid.New(), Title: title, Slug: slug}
	require.NoError(t, db.CreateGroup(context.Background(), group))
	return group
}

func TestPostActorCreateAndList(t *testing.T) {
	system := actor.NewActorSystem()
	db := database.NewMemoryDB()
	metrics := utils.NewMetricsCollector()

	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPostActor(db, metrics)
	}))

	author := seedUser(t, db, "m_smith")
	seedGroup(t, db, "test_group", "Test group")

	// Empty text is rejected with the fixed form message
	future := system.Root.RequestFuture(pid, &CreatePostMsg{AuthorID: author.ID, Text: "   "}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "expected error for blank text, got %T", result)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)
	assert.Equal(t, ErrTextRequired, appErr.Message)

	// Unknown group is a form error, not a crash
	future = system.Root.RequestFuture(pid, &CreatePostMsg{AuthorID: author.ID, Text: "text", GroupSlug: "nope"}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	appErr, ok = result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)

	// Create a grouped post
	future = system.Root.RequestFuture(pid, &CreatePostMsg{
		AuthorID:  author.ID,
		Text:      "Testtext_testtext.",
		GroupSlug: "test_group",
	}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	post, ok := result.(*models.Post)
	require.True(t, ok, "expected post, got %T", result)
	assert.Equal(t, "m_smith", post.AuthorUsername)
	require.NotNil(t, post.GroupSlug)
	assert.Equal(t, "test_group", *post.GroupSlug)

	// It shows up in the global, group and author listings
	for _, msg := range []interface{}{
		&ListPostsMsg{Limit: 10},
		&ListGroupPostsMsg{Slug: "test_group", Limit: 10},
		&ListAuthorPostsMsg{Username: "m_smith", Limit: 10},
	} {
		future = system.Root.RequestFuture(pid, msg, 5*time.Second)
		result, err = future.Result()
		require.NoError(t, err)
		listing, lerr := listingFromActorResult(result)
		require.Nil(t, lerr, "listing for %T failed", msg)
		require.Equal(t, 1, listing.Total)
		assert.Equal(t, post.ID, listing.Posts[0].ID)
	}

	// Unknown slug and unknown author both 404
	future = system.Root.RequestFuture(pid, &ListGroupPostsMsg{Slug: "missing", Limit: 10}, 5*time.Second)
	result, _ = future.Result()
	assert.True(t, utils.IsErrorCode(result.(*utils.AppError), utils.ErrGroupNotFound))

	future = system.Root.RequestFuture(pid, &ListAuthorPostsMsg{Username: "nobody", Limit: 10}, 5*time.Second)
	result, _ = future.Result()
	assert.True(t, utils.IsErrorCode(result.(*utils.AppError), utils.ErrUserNotFound))
}

// listingFromActorResult unwraps the listing responses for table-style checks.
func listingFromActorResult(result interface{}) (*PostListing, *utils.AppError) {
	switch v := result.(type) {
	case *PostListing:
		return v, nil
	case *GroupListing:
		return &v.PostListing, nil
	case *AuthorListing:
		return &v.PostListing, nil
	case *utils.AppError:
		return nil, v
	}
	return nil, utils.NewAppError(utils.ErrDatabase, "unexpected response", nil)
}

func TestPostActorNewestFirstOrdering(t *testing.T) {
	system := actor.NewActorSystem()
	db := database.NewMemoryDB()
	metrics := utils.NewMetricsCollector()

	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPostActor(db, metrics)
	}))

	author := seedUser(t, db, "writer")

	var ids []uuid.UUID
	for _, text := range []string{"first", "second", "third"} {
		future := system.Root.RequestFuture(pid, &CreatePostMsg{AuthorID: author.ID, Text: text}, 5*time.Second)
		result, err := future.Result()
		require.NoError(t, err)
		ids = append(ids, result.(*models.Post).ID)
	}

	future := system.Root.RequestFuture(pid, &ListPostsMsg{Limit: 10}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	listing := result.(*PostListing)
	require.Equal(t, 3, listing.Total)
	assert.Equal(t, ids[2], listing.Posts[0].ID)
	assert.Equal(t, ids[1], listing.Posts[1].ID)
	assert.Equal(t, ids[0], listing.Posts[2].ID)
}

func TestPostActorEdit(t *testing.T) {
	system := actor.NewActorSystem()
	db := database.NewMemoryDB()
	metrics := utils.NewMetricsCollector()

	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPostActor(db, metrics)
	}))

	author := seedUser(t, db, "author")
	other := seedUser(t, db, "other")
	seedGroup(t, db, "news", "News")

	future := system.Root.RequestFuture(pid, &CreatePostMsg{AuthorID: author.ID, Text: "original", GroupSlug: "news"}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	post := result.(*models.Post)

	// A non-author edit changes nothing and is not an error
	future = system.Root.RequestFuture(pid, &EditPostMsg{PostID: post.ID, ActorID: other.ID, Text: "hijacked"}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	_, ok := result.(*NotPostAuthor)
	require.True(t, ok, "expected silent refusal, got %T", result)

	unchanged, err := db.GetPostByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", unchanged.Text)

	// The author's edit rewrites text and clears the group, keeping the
	// identity and creation timestamp
	future = system.Root.RequestFuture(pid, &EditPostMsg{PostID: post.ID, ActorID: author.ID, Text: "revised"}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	edited, ok := result.(*models.Post)
	require.True(t, ok, "expected post, got %T", result)
	assert.Equal(t, post.ID, edited.ID)
	assert.Equal(t, post.CreatedAt, edited.CreatedAt)
	assert.Equal(t, "revised", edited.Text)
	assert.Nil(t, edited.GroupID)

	// Editing a missing post 404s
	future = system.Root.RequestFuture(pid, &EditPostMsg{PostID: uuid.New(), ActorID: author.ID, Text: "x"}, 5*time.Second)
	result, _ = future.Result()
	assert.True(t, utils.IsErrorCode(result.(*utils.AppError), utils.ErrPostNotFound))
}

func TestPostActorGetPostScopedByUsername(t *testing.T) {
	system := actor.NewActorSystem()
	db := database.NewMemoryDB()
	metrics := utils.NewMetricsCollector()

	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPostActor(db, metrics)
	}))

	author := seedUser(t, db, "author")
	seedUser(t, db, "other")

	future := system.Root.RequestFuture(pid, &CreatePostMsg{AuthorID: author.ID, Text: "hello"}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	post := result.(*models.Post)

	future = system.Root.RequestFuture(pid, &GetPostMsg{Username: "author", PostID: post.ID}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	assert.Equal(t, post.ID, result.(*models.Post).ID)

	// A real post under the wrong author's route is a 404
	future = system.Root.RequestFuture(pid, &GetPostMsg{Username: "other", PostID: post.ID}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrPostNotFound, appErr.Code)
}
