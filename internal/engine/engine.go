package engine

import (
	"fernpost/internal/database"
	"fernpost/internal/engine/actors"
	"fernpost/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Engine owns the actor PIDs and hands them to the HTTP layer. Each actor
// serializes its own message stream; persistence goes through the shared
// DBAdapter.
type Engine struct {
	userActor    *actor.PID
	postActor    *actor.PID
	commentActor *actor.PID
	followActor  *actor.PID
}

func NewEngine(system *actor.ActorSystem, metrics *utils.MetricsCollector, db database.DBAdapter) *Engine {
	context := system.Root

	userPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewUserActor(db)
	}))

	postPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewPostActor(db, metrics)
	}))

	commentPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewCommentActor(db)
	}))

	followPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewFollowActor(db, metrics)
	}))

	return &Engine{
		userActor:    userPID,
		postActor:    postPID,
		commentActor: commentPID,
		followActor:  followPID,
	}
}

// GetUserActor returns the PID of the user actor
func (e *Engine) GetUserActor() *actor.PID {
	return e.userActor
}

// GetPostActor returns the PID of the post actor
func (e *Engine) GetPostActor() *actor.PID {
	return e.postActor
}

// GetCommentActor returns the PID of the comment actor
func (e *Engine) GetCommentActor() *actor.PID {
	return e.commentActor
}

// GetFollowActor returns the PID of the follow actor
func (e *Engine) GetFollowActor() *actor.PID {
	return e.followActor
}
