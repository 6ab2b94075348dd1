package actors

import (
	"testing"
	"time"

	"fernpost/internal/database"
	"fernpost/internal/models"
	"fernpost/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentActor(t *testing.T) {
	system := actor.NewActorSystem()
	db := database.NewMemoryDB()
	metrics := utils.NewMetricsCollector()

	postPid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPostActor(db, metrics)
	}))
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewCommentActor(db)
	}))

	author := seedUser(t, db, "author")
	commenter := seedUser(t, db, "commenter")

	future := system.Root.RequestFuture(postPid, &CreatePostMsg{AuthorID: author.ID, Text: "a post"}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	post := result.(*models.Post)

	// Blank comments are refused with the form message
	future = system.Root.RequestFuture(pid, &AddCommentMsg{
		Username: "author",
		PostID:   post.ID,
		AuthorID: commenter.ID,
		Text:     "  ",
	}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "expected error for blank comment, got %T", result)
	assert.Equal(t, ErrTextRequired, appErr.Message)

	// Add two comments
	for _, text := range []string{"first!", "second!"} {
		future = system.Root.RequestFuture(pid, &AddCommentMsg{
			Username: "author",
			PostID:   post.ID,
			AuthorID: commenter.ID,
			Text:     text,
		}, 5*time.Second)
		result, err = future.Result()
		require.NoError(t, err)
		comment, ok := result.(*models.Comment)
		require.True(t, ok, "expected comment, got %T", result)
		assert.Equal(t, post.ID, comment.PostID)
	}

	// The thread comes back oldest-first
	future = system.Root.RequestFuture(pid, &GetPostCommentsMsg{Username: "author", PostID: post.ID}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	comments := result.([]*models.Comment)
	require.Len(t, comments, 2)
	assert.Equal(t, "first!", comments[0].Text)
	assert.Equal(t, "second!", comments[1].Text)
	assert.Equal(t, "commenter", comments[0].AuthorUsername)

	// The wrong author in the route 404s instead of leaking the thread
	future = system.Root.RequestFuture(pid, &GetPostCommentsMsg{Username: "commenter", PostID: post.ID}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	appErr, ok = result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrPostNotFound, appErr.Code)
}
