package models

import "github.com/google/uuid"

// Group is a named category posts may optionally belong to. Groups are
// administered out of band; there is no HTTP route that creates one.
type Group struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
}
