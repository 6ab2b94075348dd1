package models

import (
	"time"

	"github.com/google/uuid"
)

// Follow is a directed subscription from UserID to AuthorID. The
// (user, author) pair is unique; re-following is a no-op at the storage layer.
type Follow struct {
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	AuthorID  uuid.UUID `json:"authorId" db:"author_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
