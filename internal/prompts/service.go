package prompts

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault/internal/apperror"
	"github.com/promptvault/promptvault/internal/sanitize"
	"github.com/promptvault/promptvault/internal/tags"
)

// Pagination bounds for the prompt list.
const (
	defaultLimit = 20
	maxLimit     = 100
)

// Field constraints. Content has no upper bound beyond the column type;
// prompts routinely carry long system instructions.
const (
	minTitleLength   = 3
	maxTitleLength   = 255
	minContentLength = 10
	maxDescription   = 2000
)

// defaultVersion is assigned when a prompt is created without a version.
const defaultVersion = "1.0.0"

// versionPattern validates semantic-style version strings (e.g. 1.0.0, 2.13.4).
var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// PromptService defines the business logic contract for prompt operations.
// Handlers call these methods -- they never touch the repository directly.
type PromptService interface {
	// Create validates input and creates a prompt owned by the caller.
	Create(ctx context.Context, creatorID string, req CreatePromptRequest) (*Prompt, error)

	// Update rewrites a prompt the caller owns, replacing its tag set.
	// Non-existent and non-owned prompts are both reported as not found.
	Update(ctx context.Context, callerID, id string, req UpdatePromptRequest) (*Prompt, error)

	// Delete removes a prompt the caller owns. Same not-found conflation
	// as Update.
	Delete(ctx context.Context, callerID, id string) error

	// List returns a page of prompts visible to the caller. callerID is
	// empty for anonymous requests.
	List(ctx context.Context, callerID string, opts ListOptions) (*ListResult, error)
}

// promptService implements PromptService. It validates input, enforces
// ownership, and delegates persistence to the repository. Tag visibility is
// checked through the tags repository so a caller can never attach someone
// else's private tag.
type promptService struct {
	repo    PromptRepository
	tagRepo tags.TagRepository
}

// NewPromptService creates a new prompt service.
func NewPromptService(repo PromptRepository, tagRepo tags.TagRepository) PromptService {
	return &promptService{repo: repo, tagRepo: tagRepo}
}

// Create validates the request, resolves the tag ID set, and persists the
// prompt with its assignments in one transaction. Visibility defaults to
// public when the field is omitted.
func (s *promptService) Create(ctx context.Context, creatorID string, req CreatePromptRequest) (*Prompt, error) {
	fields, norm := validatePromptFields(req.Title, req.Content, req.Description, req.Version)
	if len(fields) > 0 {
		return nil, apperror.NewValidationFields("invalid prompt data", fields)
	}

	tagIDs, err := s.resolveTagIDs(ctx, creatorID, req.TagIDs)
	if err != nil {
		return nil, err
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	now := time.Now().UTC()
	prompt := &Prompt{
		ID:          newPromptID(),
		Title:       norm.title,
		Content:     norm.content,
		Description: norm.description,
		Version:     norm.version,
		IsPublic:    isPublic,
		CreatorID:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, prompt, tagIDs); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating prompt: %w", err))
	}

	slog.Info("prompt created",
		slog.String("prompt_id", prompt.ID),
		slog.String("creator_id", creatorID),
		slog.Int("tag_count", len(tagIDs)),
	)

	// Re-read to return the embedded creator and tags.
	return s.repo.FindByID(ctx, prompt.ID)
}

// Update validates the request and rewrites the prompt. The ownership check
// reports not-found for foreign prompts so the API doesn't reveal whether a
// hidden prompt exists.
func (s *promptService) Update(ctx context.Context, callerID, id string, req UpdatePromptRequest) (*Prompt, error) {
	existing, err := s.findOwned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	fields, norm := validatePromptFields(req.Title, req.Content, req.Description, req.Version)
	if len(fields) > 0 {
		return nil, apperror.NewValidationFields("invalid prompt data", fields)
	}

	tagIDs, err := s.resolveTagIDs(ctx, callerID, req.TagIDs)
	if err != nil {
		return nil, err
	}

	isPublic := existing.IsPublic
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	existing.Title = norm.title
	existing.Content = norm.content
	existing.Description = norm.description
	existing.Version = norm.version
	existing.IsPublic = isPublic
	existing.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, existing, tagIDs, callerID); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating prompt: %w", err))
	}

	slog.Info("prompt updated",
		slog.String("prompt_id", id),
		slog.String("creator_id", callerID),
	)

	return s.repo.FindByID(ctx, id)
}

// Delete removes a prompt the caller owns.
func (s *promptService) Delete(ctx context.Context, callerID, id string) error {
	if _, err := s.findOwned(ctx, callerID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewNotFound("prompt not found")
		}
		return apperror.NewInternal(fmt.Errorf("deleting prompt: %w", err))
	}

	slog.Info("prompt deleted",
		slog.String("prompt_id", id),
		slog.String("creator_id", callerID),
	)

	return nil
}

// List returns a page of visible prompts. Out-of-range page and limit values
// are coerced to defaults rather than rejected, matching what browser query
// strings tend to deliver.
func (s *promptService) List(ctx context.Context, callerID string, opts ListOptions) (*ListResult, error) {
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

	prompts, total, err := s.repo.List(ctx, callerID, offset, limit, search)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing prompts: %w", err))
	}
	if prompts == nil {
		prompts = []Prompt{}
	}

	return &ListResult{
		Prompts:     prompts,
		HasMore:     offset+len(prompts) < total,
		TotalCount:  total,
		CurrentPage: page,
	}, nil
}

// findOwned fetches the prompt and verifies the caller owns it. A missing
// prompt and a foreign prompt produce the same not-found error.
func (s *promptService) findOwned(ctx context.Context, callerID, id string) (*Prompt, error) {
	prompt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("prompt not found")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding prompt: %w", err))
	}
	if prompt.CreatorID != callerID {
		return nil, apperror.NewNotFound("prompt not found")
	}
	return prompt, nil
}

// resolveTagIDs deduplicates the requested tag IDs (first occurrence wins)
// and verifies each one exists and is visible to the caller.
func (s *promptService) resolveTagIDs(ctx context.Context, callerID string, tagIDs []int) ([]int, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}

	seen := make(map[int]bool, len(tagIDs))
	deduped := make([]int, 0, len(tagIDs))
	for _, id := range tagIDs {
		if !seen[id] {
			seen[id] = true
			deduped = append(deduped, id)
		}
	}

	visible, err := s.tagRepo.FindVisibleByIDs(ctx, callerID, deduped)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("resolving tags: %w", err))
	}

	visibleSet := make(map[int]bool, len(visible))
	for _, t := range visible {
		visibleSet[t.ID] = true
	}
	for _, id := range deduped {
		if !visibleSet[id] {
			return nil, apperror.NewValidationFields("invalid prompt data", map[string]string{
				"tagIds": fmt.Sprintf("tag %d does not exist", id),
			})
		}
	}

	return deduped, nil
}

// normalizedFields holds the cleaned field values after validation.
type normalizedFields struct {
	title       string
	content     string
	description *string
	version     string
}

// validatePromptFields checks the writable prompt fields and returns a map
// of field name to error message plus the normalized values. Title and
// description are stripped of markup; content is stored verbatim because
// prompt text legitimately contains angle-bracket placeholders. Length
// limits count characters, not bytes, so multibyte text is measured the
// same as ASCII.
func validatePromptFields(title, content, description, version string) (map[string]string, normalizedFields) {
	fields := make(map[string]string)
	var norm normalizedFields

	norm.title = sanitize.Text(title)
	switch titleLen := utf8.RuneCountInString(norm.title); {
	case norm.title == "":
		fields["title"] = "title is required"
	case titleLen < minTitleLength:
		fields["title"] = "title must be at least 3 characters"
	case titleLen > maxTitleLength:
		fields["title"] = "title must be at most 255 characters"
	}

	norm.content = strings.TrimSpace(content)
	if utf8.RuneCountInString(norm.content) < minContentLength {
		fields["content"] = "content must be at least 10 characters"
	}

	desc := sanitize.Text(description)
	if utf8.RuneCountInString(desc) > maxDescription {
		fields["description"] = "description must be at most 2000 characters"
	}
	if desc != "" {
		norm.description = &desc
	}

	norm.version = strings.TrimSpace(version)
	if norm.version == "" {
		norm.version = defaultVersion
	}
	if !versionPattern.MatchString(norm.version) {
		fields["version"] = "version must match the format 1.0.0"
	}

	return fields, norm
}

// newPromptID returns a time-ordered UUIDv7 string. Falls back to v4 in the
// degenerate case where the system clock is unavailable to the generator.
func newPromptID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
