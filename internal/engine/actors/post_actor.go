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

// ErrTextRequired is the fixed field error for an empty post or comment body.
const ErrTextRequired = "This field is required."

// Message types for Post operations
type (
	CreatePostMsg struct {
		AuthorID  uuid.UUID
		Text      string
		GroupSlug string  // empty means ungrouped
		ImagePath *string // already validated and stored by the media layer
	}

	EditPostMsg struct {
		PostID    uuid.UUID
		ActorID   uuid.UUID
		Text      string
		GroupSlug string
		ImagePath *string // nil keeps the current image
	}

	GetPostMsg struct {
		Username string
		PostID   uuid.UUID
	}

	ListPostsMsg struct {
		Limit  int
		Offset int
	}

	ListGroupPostsMsg struct {
		Slug   string
		Limit  int
		Offset int
	}

	ListAuthorPostsMsg struct {
		Username string
		Limit    int
		Offset   int
	}

	ListGroupsMsg struct{}

	GetCountsMsg struct{}
)

// Response types
type (
	// PostListing is one page of posts plus the total match count for the
	// paginator.
	PostListing struct {
		Posts []*models.Post
		Total int
	}

	GroupListing struct {
		Group *models.Group
		PostListing
	}

	AuthorListing struct {
		Author *models.User
		PostListing
	}

	// NotPostAuthor signals an edit attempt by someone other than the
	// author. It is not an error: the handler answers with a plain
	// redirect to the untouched post.
	NotPostAuthor struct {
		Post *models.Post
	}

	Counts struct {
		Posts  int
		Groups int
	}
)

// PostActor handles post creation, editing and all listings.
type PostActor struct {
	db      database.DBAdapter
	metrics *utils.MetricsCollector
}

func NewPostActor(db database.DBAdapter, metrics *utils.MetricsCollector) actor.Actor {
	return &PostActor{db: db, metrics: metrics}
}

func (a *PostActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("PostActor started")

	case *CreatePostMsg:
		a.handleCreatePost(context, msg)
	case *EditPostMsg:
		a.handleEditPost(context, msg)
	case *GetPostMsg:
		a.handleGetPost(context, msg)
	case *ListPostsMsg:
		a.handleListPosts(context, msg)
	case *ListGroupPostsMsg:
		a.handleListGroupPosts(context, msg)
	case *ListAuthorPostsMsg:
		a.handleListAuthorPosts(context, msg)
	case *ListGroupsMsg:
		a.handleListGroups(context)
	case *GetCountsMsg:
		a.handleGetCounts(context)

	default:
		log.Printf("PostActor: Unknown message type %T", msg)
	}
}

// resolveGroup maps a submitted slug to a group id. An empty slug is the
// ungrouped case; an unknown slug is a field validation error, since it can
// only come from a stale or forged form.
func (a *PostActor) resolveGroup(ctx stdctx.Context, slug string) (*models.Group, *utils.AppError) {
	if strings.TrimSpace(slug) == "" {
		return nil, nil
	}
	group, err := a.db.GetGroupBySlug(ctx, slug)
	if err != nil {
		if utils.IsErrorCode(err, utils.ErrGroupNotFound) {
			return nil, utils.NewAppError(utils.ErrInvalidInput, "Unknown group: "+slug, err)
		}
		return nil, asAppError(err)
	}
	return group, nil
}

func (a *PostActor) handleCreatePost(context actor.Context, msg *CreatePostMsg) {
	startTime := time.Now()
	ctx := stdctx.Background()

	if strings.TrimSpace(msg.Text) == "" {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, ErrTextRequired, nil))
		return
	}

	group, appErr := a.resolveGroup(ctx, msg.GroupSlug)
	if appErr != nil {
		context.Respond(appErr)
		return
	}

	author, err := a.db.GetUserByID(ctx, msg.AuthorID)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}

	post := &models.Post{
		ID:             uuid.New(),
		Text:           msg.Text,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		ImagePath:      msg.ImagePath,
		CreatedAt:      time.Now(),
	}
	if group != nil {
		post.GroupID = &group.ID
		post.GroupSlug = &group.Slug
	}

	if err := a.db.SavePost(ctx, post); err != nil {
		context.Respond(asAppError(err))
		return
	}

	log.Printf("PostActor: Created post %s by %s", post.ID, author.Username)
	a.metrics.AddOperationLatency("create_post", time.Since(startTime))
	context.Respond(post)
}

func (a *PostActor) handleEditPost(context actor.Context, msg *EditPostMsg) {
	startTime := time.Now()
	ctx := stdctx.Background()

	post, err := a.db.GetPostByID(ctx, msg.PostID)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}

	if post.AuthorID != msg.ActorID {
		context.Respond(&NotPostAuthor{Post: post})
		return
	}

	if strings.TrimSpace(msg.Text) == "" {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, ErrTextRequired, nil))
		return
	}

	group, appErr := a.resolveGroup(ctx, msg.GroupSlug)
	if appErr != nil {
		context.Respond(appErr)
		return
	}

	// Id, author and creation timestamp are preserved; only text, group and
	// image change.
	post.Text = msg.Text
	post.GroupID = nil
	post.GroupSlug = nil
	if group != nil {
		post.GroupID = &group.ID
		post.GroupSlug = &group.Slug
	}
	if msg.ImagePath != nil {
		post.ImagePath = msg.ImagePath
	}

	if err := a.db.UpdatePost(ctx, post); err != nil {
		context.Respond(asAppError(err))
		return
	}

	a.metrics.AddOperationLatency("edit_post", time.Since(startTime))
	context.Respond(post)
}

func (a *PostActor) handleGetPost(context actor.Context, msg *GetPostMsg) {
	ctx := stdctx.Background()

	post, err := a.db.GetPostByID(ctx, msg.PostID)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}
	// The route scopes a post to its author's username; a mismatched pair
	// is a 404, not a redirect to the right author.
	if post.AuthorUsername != msg.Username {
		context.Respond(utils.NewPostNotFoundError())
		return
	}
	context.Respond(post)
}

func (a *PostActor) handleListPosts(context actor.Context, msg *ListPostsMsg) {
	startTime := time.Now()
	ctx := stdctx.Background()

	posts, total, err := a.db.ListPosts(ctx, msg.Limit, msg.Offset)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}

	a.metrics.AddOperationLatency("list_posts", time.Since(startTime))
	context.Respond(&PostListing{Posts: posts, Total: total})
}

func (a *PostActor) handleListGroupPosts(context actor.Context, msg *ListGroupPostsMsg) {
	ctx := stdctx.Background()

	group, err := a.db.GetGroupBySlug(ctx, msg.Slug)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}

	posts, total, err := a.db.ListGroupPosts(ctx, group.ID, msg.Limit, msg.Offset)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}

	context.Respond(&GroupListing{Group: group, PostListing: PostListing{Posts: posts, Total: total}})
}

func (a *PostActor) handleListAuthorPosts(context actor.Context, msg *ListAuthorPostsMsg) {
	ctx := stdctx.Background()

	author, err := a.db.GetUserByUsername(ctx, msg.Username)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}

	posts, total, err := a.db.ListAuthorPosts(ctx, author.ID, msg.Limit, msg.Offset)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}

	context.Respond(&AuthorListing{Author: author, PostListing: PostListing{Posts: posts, Total: total}})
}

func (a *PostActor) handleListGroups(context actor.Context) {
	ctx := stdctx.Background()

	groups, err := a.db.ListGroups(ctx)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}
	context.Respond(groups)
}

func (a *PostActor) handleGetCounts(context actor.Context) {
	ctx := stdctx.Background()

	postCount, err := a.db.CountPosts(ctx)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}
	groupCount, err := a.db.CountGroups(ctx)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}
	context.Respond(&Counts{Posts: postCount, Groups: groupCount})
}
