package actors

import (
	"testing"
	"time"

	"fernpost/internal/database"
	"fernpost/internal/models"
	"fernpost/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
)

func TestUserRegistrationAndLogin(t *testing.T) {
	system := actor.NewActorSystem()
	db := database.NewMemoryDB()

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewUserActor(db)
	})
	pid := system.Root.Spawn(props)

	// Step 1: Register a new user
	regFuture := system.Root.RequestFuture(pid, &RegisterUserMsg{
		Username: "m_smith",
		Email:    "m_smith@example.com",
		Password: "password123",
	}, 5*time.Second)

	regResult, err := regFuture.Result()
	if err != nil {
		t.Fatalf("Registration failed: %v", err)
	}

	user, ok := regResult.(*models.User)
	if !ok {
		t.Fatalf("Expected user from registration, got %T", regResult)
	}
	assert.Equal(t, "m_smith", user.Username)
	assert.NotEqual(t, "password123", user.HashedPassword)

	// Step 2: Log in with the right password
	loginFuture := system.Root.RequestFuture(pid, &LoginMsg{
		Email:    "m_smith@example.com",
		Password: "password123",
	}, 5*time.Second)

	loginResult, err := loginFuture.Result()
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	login, ok := loginResult.(*LoginResult)
	if !ok {
		t.Fatalf("Expected login result, got %T", loginResult)
	}
	assert.True(t, login.Success)
	assert.Equal(t, user.ID, login.UserID)

	// Step 3: Wrong password is rejected without detail
	badFuture := system.Root.RequestFuture(pid, &LoginMsg{
		Email:    "m_smith@example.com",
		Password: "wrongpassword",
	}, 5*time.Second)

	badResult, err := badFuture.Result()
	if err != nil {
		t.Fatalf("Bad login request failed: %v", err)
	}
	badLogin := badResult.(*LoginResult)
	assert.False(t, badLogin.Success)
	assert.Equal(t, "Invalid credentials", badLogin.Error)

	// Step 4: Duplicate username is refused
	dupFuture := system.Root.RequestFuture(pid, &RegisterUserMsg{
		Username: "m_smith",
		Email:    "other@example.com",
		Password: "password123",
	}, 5*time.Second)

	dupResult, err := dupFuture.Result()
	assert.NoError(t, err)
	appErr, ok := dupResult.(*utils.AppError)
	if !ok {
		t.Fatalf("Expected error for duplicate username, got %T", dupResult)
	}
	assert.Equal(t, utils.ErrUserAlreadyExists, appErr.Code)

	// Step 5: Profile lookup by username
	getFuture := system.Root.RequestFuture(pid, &GetUserByUsernameMsg{Username: "m_smith"}, 5*time.Second)
	getResult, err := getFuture.Result()
	assert.NoError(t, err)
	fetched := getResult.(*models.User)
	assert.Equal(t, user.ID, fetched.ID)
}
