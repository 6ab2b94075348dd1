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
	"golang.org/x/crypto/bcrypt"
)

// Message types for UserActor
type (
	RegisterUserMsg struct {
		Username string
		Email    string
		Password string
	}

	LoginMsg struct {
		Email    string
		Password string
	}

	GetUserByUsernameMsg struct {
		Username string
	}
)

// LoginResult carries the authentication outcome back to the handler, which
// mints the token itself.
type LoginResult struct {
	Success bool
	UserID  uuid.UUID
	Error   string
}

// UserActor handles registration, login and profile lookups.
type UserActor struct {
	db database.DBAdapter
}

func NewUserActor(db database.DBAdapter) actor.Actor {
	return &UserActor{db: db}
}

func (a *UserActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("UserActor started")

	case *RegisterUserMsg:
		a.handleRegister(context, msg)

	case *LoginMsg:
		a.handleLogin(context, msg)

	case *GetUserByUsernameMsg:
		ctx := stdctx.Background()
		user, err := a.db.GetUserByUsername(ctx, msg.Username)
		if err != nil {
			context.Respond(asAppError(err))
			return
		}
		context.Respond(user)

	default:
		log.Printf("UserActor: Unknown message type %T", msg)
	}
}

func (a *UserActor) handleRegister(context actor.Context, msg *RegisterUserMsg) {
	ctx := stdctx.Background()

	username := strings.TrimSpace(msg.Username)
	if username == "" || strings.TrimSpace(msg.Email) == "" || msg.Password == "" {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Username, email and password are required", nil))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(msg.Password), bcrypt.DefaultCost)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to hash password", err))
		return
	}

	user := &models.User{
		ID:             uuid.New(),
		Username:       username,
		Email:          msg.Email,
		HashedPassword: string(hashed),
		CreatedAt:      time.Now(),
	}

	if err := a.db.SaveUser(ctx, user); err != nil {
		context.Respond(asAppError(err))
		return
	}

	log.Printf("UserActor: Registered user %s (%s)", user.Username, user.ID)
	context.Respond(user)
}

func (a *UserActor) handleLogin(context actor.Context, msg *LoginMsg) {
	ctx := stdctx.Background()

	user, err := a.db.GetUserByEmail(ctx, msg.Email)
	if err != nil {
		context.Respond(&LoginResult{Success: false, Error: "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(msg.Password)); err != nil {
		context.Respond(&LoginResult{Success: false, Error: "Invalid credentials"})
		return
	}

	context.Respond(&LoginResult{Success: true, UserID: user.ID})
}

// asAppError keeps adapter errors uniform on the actor boundary.
func asAppError(err error) *utils.AppError {
	if appErr, ok := err.(*utils.AppError); ok {
		return appErr
	}
	return utils.NewAppError(utils.ErrDatabase, "Storage failure", err)
}
