package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is the core content unit. GroupID is nil for ungrouped posts and is
// set to NULL when the group is deleted; deleting the author deletes the post.
type Post struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Text           string     `json:"text" db:"text"`
	AuthorID       uuid.UUID  `json:"authorId" db:"author_id"`
	AuthorUsername string     `json:"authorUsername" db:"author_username"`
	GroupID        *uuid.UUID `json:"groupId,omitempty" db:"group_id"`
	GroupSlug      *string    `json:"groupSlug,omitempty" db:"group_slug"`
	ImagePath      *string    `json:"imagePath,omitempty" db:"image_path"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
}
