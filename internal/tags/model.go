// Package tags implements tag management for PromptVault. Tags are labels
// that can be attached to prompts for categorization and filtering. Each tag
// is either PUBLIC (visible to everyone, e.g. the seeded model and modality
// tags) or PRIVATE (visible only to its creator).
//
// The package provides the tag catalog endpoints and the repository other
// packages use to resolve tag visibility.
package tags

import "time"

// Tag types. PUBLIC tags appear in everyone's catalog; PRIVATE tags appear
// only in their creator's.
const (
	TypePublic  = "PUBLIC"
	TypePrivate = "PRIVATE"
)

// Tag represents a label that can be attached to prompts.
type Tag struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
	Creator   Creator   `json:"creator"`
}

// Creator is the embedded owner reference on a tag.
type Creator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// --- Request DTOs (bound from HTTP requests) ---

// CreateTagRequest holds the data submitted when creating a new tag.
type CreateTagRequest struct {
	Name string `json:"name" form:"name"`
	Type string `json:"type" form:"type"`
}

// --- Service Inputs/Outputs ---

// ListOptions carries the pagination and filter parameters for tag listing.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
}

// ListResult is the paginated envelope returned by the list operation.
type ListResult struct {
	Tags        []Tag `json:"tags"`
	HasMore     bool  `json:"hasMore"`
	TotalCount  int   `json:"totalCount"`
	CurrentPage int   `json:"currentPage"`
}
