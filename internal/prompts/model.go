// Package prompts implements the core prompt library of PromptVault.
// Prompts are versioned text assets with public or private visibility,
// owned by their creator and labeled with tags through a many-to-many
// join table. The package provides the paginated listing with search,
// the CRUD operations, and the replace-all tag assignment semantics.
package prompts

import "time"

// Prompt represents a single prompt asset. Tags and Creator are populated
// by the repository on reads; writes only use the scalar fields.
type Prompt struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Description *string   `json:"description"`
	Version     string    `json:"version"`
	IsPublic    bool      `json:"isPublic"`
	CreatorID   string    `json:"creatorId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Tags    []TagRef `json:"tags"`
	Creator Creator  `json:"creator"`
}

// TagRef is the embedded tag reference returned with each prompt. Only the
// identity and name are embedded; the full tag lives in the tags package.
type TagRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Creator is the embedded owner reference returned with each prompt.
// Name is the display name and may be empty if the user never set one.
type Creator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// --- Request DTOs (bound from HTTP requests) ---

// CreatePromptRequest holds the data submitted when creating a prompt.
// IsPublic is a pointer so that an omitted field can default to true.
type CreatePromptRequest struct {
	Title       string `json:"title" form:"title"`
	Content     string `json:"content" form:"content"`
	Description string `json:"description" form:"description"`
	Version     string `json:"version" form:"version"`
	IsPublic    *bool  `json:"isPublic" form:"isPublic"`
	TagIDs      []int  `json:"tagIds"`
}

// UpdatePromptRequest holds the data submitted when updating a prompt.
// The update is a full replacement of the editable fields; the tag ID set
// replaces all existing assignments.
type UpdatePromptRequest struct {
	Title       string `json:"title" form:"title"`
	Content     string `json:"content" form:"content"`
	Description string `json:"description" form:"description"`
	Version     string `json:"version" form:"version"`
	IsPublic    *bool  `json:"isPublic" form:"isPublic"`
	TagIDs      []int  `json:"tagIds"`
}

// --- Service Inputs/Outputs ---

// ListOptions carries the pagination and filter parameters for listing.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
}

// ListResult is the paginated envelope returned by the list operation.
// HasMore tells clients whether another page exists without a second request.
type ListResult struct {
	Prompts     []Prompt `json:"prompts"`
	HasMore     bool     `json:"hasMore"`
	TotalCount  int      `json:"totalCount"`
	CurrentPage int      `json:"currentPage"`
}
