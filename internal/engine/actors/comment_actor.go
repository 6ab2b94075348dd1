package actors

import (
	stdctx "context"
	"log"
	"strings"
	"time"

	"fernpost/internal/database"
	"fernpost/internal/models"
	"fernpost/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for CommentActor
type (
	AddCommentMsg struct {
		Username string // post author from the route, scoping the lookup
		PostID   uuid.UUID
		AuthorID uuid.UUID // comment author
		Text     string
	}

	GetPostCommentsMsg struct {
		Username string
		PostID   uuid.UUID
	}
)

// CommentActor attaches comments to posts and lists them oldest-first.
type CommentActor struct {
	db database.DBAdapter

	// Small cache of usernames for comment authors.
	userCache map[uuid.UUID]string
}

func NewCommentActor(db database.DBAdapter) actor.Actor {
	return &CommentActor{
		db:        db,
		userCache: make(map[uuid.UUID]string),
	}
}

func (a *CommentActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("CommentActor started with PID: %v", context.Self())

	case *AddCommentMsg:
		a.handleAddComment(context, msg)

	case *GetPostCommentsMsg:
		a.handleGetPostComments(context, msg)

	default:
		log.Printf("CommentActor: Unknown message type %T", msg)
	}
}

// getPostScoped loads a post and checks it belongs to the username in the
// route; any mismatch is a 404.
func (a *CommentActor) getPostScoped(ctx stdctx.Context, username string, postID uuid.UUID) (*models.Post, *utils.AppError) {
	post, err := a.db.GetPostByID(ctx, postID)
	if err != nil {
		return nil, asAppError(err)
	}
	if post.AuthorUsername != username {
		return nil, utils.NewPostNotFoundError()
	}
	return post, nil
}

func (a *CommentActor) getUsername(ctx stdctx.Context, userID uuid.UUID) (string, error) {
	if username, ok := a.userCache[userID]; ok {
		return username, nil
	}
	user, err := a.db.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	a.userCache[userID] = user.Username
	return user.Username, nil
}

func (a *CommentActor) handleAddComment(context actor.Context, msg *AddCommentMsg) {
	ctx := stdctx.Background()

	post, appErr := a.getPostScoped(ctx, msg.Username, msg.PostID)
	if appErr != nil {
		context.Respond(appErr)
		return
	}

	if strings.TrimSpace(msg.Text) == "" {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, ErrTextRequired, nil))
		return
	}

	authorUsername, err := a.getUsername(ctx, msg.AuthorID)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}

	comment := &models.Comment{
		ID:             uuid.New(),
		PostID:         post.ID,
		AuthorID:       msg.AuthorID,
		AuthorUsername: authorUsername,
		Text:           msg.Text,
		CreatedAt:      time.Now(),
	}

	if err := a.db.SaveComment(ctx, comment); err != nil {
		context.Respond(asAppError(err))
		return
	}

	log.Printf("CommentActor: Added comment %s on post %s", comment.ID, post.ID)
	context.Respond(comment)
}

func (a *CommentActor) handleGetPostComments(context actor.Context, msg *GetPostCommentsMsg) {
	ctx := stdctx.Background()

	if _, appErr := a.getPostScoped(ctx, msg.Username, msg.PostID); appErr != nil {
		context.Respond(appErr)
		return
	}

	comments, err := a.db.GetPostComments(ctx, msg.PostID)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}
	context.Respond(comments)
}
