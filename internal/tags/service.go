package tags

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/promptvault/promptvault/internal/apperror"
	"github.com/promptvault/promptvault/internal/sanitize"
)

// Pagination bounds for the tag catalog. The catalog is small so the default
// page is generous.
const (
	defaultLimit = 100
	maxLimit     = 100
)

// maxNameLength is the longest allowed tag name.
const maxNameLength = 50

// TagService defines the business logic contract for tag operations.
// Handlers call these methods -- they never touch the repository directly.
type TagService interface {
	// Create validates input and creates a new tag owned by the caller.
	Create(ctx context.Context, creatorID string, req CreateTagRequest) (*Tag, error)

	// List returns a page of tags visible to the caller. callerID is empty
	// for anonymous requests.
	List(ctx context.Context, callerID string, opts ListOptions) (*ListResult, error)
}

// tagService implements TagService with validation and input sanitization.
type tagService struct {
	repo TagRepository
}

// NewTagService creates a new TagService backed by the given repository.
func NewTagService(repo TagRepository) TagService {
	return &tagService{repo: repo}
}

// Create validates the tag name and type and persists the new tag. The type
// defaults to PRIVATE when omitted. Creating PUBLIC tags is allowed for any
// authenticated user; public tags join the shared catalog.
func (s *tagService) Create(ctx context.Context, creatorID string, req CreateTagRequest) (*Tag, error) {
	name := sanitize.Text(req.Name)
	if name == "" {
		return nil, apperror.NewValidationFields("invalid tag data", map[string]string{
			"name": "tag name is required",
		})
	}
	// Length limits count characters, not bytes; multibyte names are fine.
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, apperror.NewValidationFields("invalid tag data", map[string]string{
			"name": "tag name must be at most 50 characters",
		})
	}

	tagType := strings.ToUpper(strings.TrimSpace(req.Type))
	switch tagType {
	case "":
		tagType = TypePrivate
	case TypePublic, TypePrivate:
	default:
		return nil, apperror.NewValidationFields("invalid tag data", map[string]string{
			"type": "type must be PUBLIC or PRIVATE",
		})
	}

	tag := &Tag{
		Name:      name,
		Type:      tagType,
		CreatorID: creatorID,
	}

	if err := s.repo.Create(ctx, tag); err != nil {
		return nil, err
	}

	// Re-read so the response carries the creator embed like the list does.
	return s.repo.FindByID(ctx, tag.ID)
}

// List returns a page of visible tags. Out-of-range page and limit values
// are coerced to sane defaults rather than rejected.
func (s *tagService) List(ctx context.Context, callerID string, opts ListOptions) (*ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := (page - 1) * limit

	search := strings.TrimSpace(opts.Search)

	tags, total, err := s.repo.List(ctx, callerID, offset, limit, search)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []Tag{}
	}

	return &ListResult{
		Tags:        tags,
		HasMore:     offset+len(tags) < total,
		TotalCount:  total,
		CurrentPage: page,
	}, nil
}
