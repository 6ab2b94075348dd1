package actors

import (
	stdctx "context"
	"log"
	"time"

	"fernpost/internal/database"
	"fernpost/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for FollowActor
type (
	FollowMsg struct {
		UserID         uuid.UUID
		TargetUsername string
	}

	UnfollowMsg struct {
		UserID         uuid.UUID
		TargetUsername string
	}

	IsFollowingMsg struct {
		UserID   uuid.UUID
		AuthorID uuid.UUID
	}

	FeedMsg struct {
		UserID uuid.UUID
		Limit  int
		Offset int
	}
)

// FollowStatus reports the relation after a follow or unfollow request.
type FollowStatus struct {
	TargetUsername string
	Following      bool
}

// FollowActor manages the directed subscription relation and the
// personalized feed built from it.
type FollowActor struct {
	db      database.DBAdapter
	metrics *utils.MetricsCollector
}

func NewFollowActor(db database.DBAdapter, metrics *utils.MetricsCollector) actor.Actor {
	return &FollowActor{db: db, metrics: metrics}
}

func (a *FollowActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("FollowActor started")

	case *FollowMsg:
		a.handleFollow(context, msg)
	case *UnfollowMsg:
		a.handleUnfollow(context, msg)
	case *IsFollowingMsg:
		a.handleIsFollowing(context, msg)
	case *FeedMsg:
		a.handleFeed(context, msg)

	default:
		log.Printf("FollowActor: Unknown message type %T", msg)
	}
}

func (a *FollowActor) handleFollow(context actor.Context, msg *FollowMsg) {
	ctx := stdctx.Background()

	target, err := a.db.GetUserByUsername(ctx, msg.TargetUsername)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}

	// Self-follow is a silent no-op; the handler still redirects to the
	// profile.
	if target.ID == msg.UserID {
		context.Respond(&FollowStatus{TargetUsername: target.Username, Following: false})
		return
	}

	if err := a.db.CreateFollow(ctx, msg.UserID, target.ID); err != nil {
		context.Respond(asAppError(err))
		return
	}

	log.Printf("FollowActor: %s now follows %s", msg.UserID, target.Username)
	context.Respond(&FollowStatus{TargetUsername: target.Username, Following: true})
}

func (a *FollowActor) handleUnfollow(context actor.Context, msg *UnfollowMsg) {
	ctx := stdctx.Background()

	target, err := a.db.GetUserByUsername(ctx, msg.TargetUsername)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}

	// Removing an absent relation is not an error.
	if err := a.db.DeleteFollow(ctx, msg.UserID, target.ID); err != nil {
		context.Respond(asAppError(err))
		return
	}

	context.Respond(&FollowStatus{TargetUsername: target.Username, Following: false})
}

func (a *FollowActor) handleIsFollowing(context actor.Context, msg *IsFollowingMsg) {
	ctx := stdctx.Background()

	following, err := a.db.FollowExists(ctx, msg.UserID, msg.AuthorID)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}
	context.Respond(following)
}

func (a *FollowActor) handleFeed(context actor.Context, msg *FeedMsg) {
	startTime := time.Now()
	ctx := stdctx.Background()

	posts, total, err := a.db.ListFeedPosts(ctx, msg.UserID, msg.Limit, msg.Offset)
	if err != nil {
		context.Respond(asAppError(err))
		return
	}

	a.metrics.AddOperationLatency("follow_feed", time.Since(startTime))
	context.Respond(&PostListing{Posts: posts, Total: total})
}
